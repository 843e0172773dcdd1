package filesystem

import (
	"os"
	"path/filepath"
)

// AppDirName is the per-user data directory under the home directory.
const AppDirName = ".dirctx"

// UserHomeDir returns the current user's home directory.
// If the home directory cannot be determined, it returns "." as a fallback.
func UserHomeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}

// AppDir returns ~/.dirctx joined with elem.
func AppDir(elem ...string) string {
	return filepath.Join(append([]string{UserHomeDir(), AppDirName}, elem...)...)
}
