package indexer

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SourceFile is a text file found by Crawl.
type SourceFile struct {
	Path    string
	ModTime time.Time
	Size    int64
}

// sniffBytes is how much of a file is inspected to decide whether it is text.
const sniffBytes = 1024

// Crawl walks roots and returns the text files not matched by ignore. A path
// is ignored when it contains an ignore entry or when its base name matches
// one as a glob. Missing roots are skipped. Paths are absolute and unique.
func Crawl(roots []string, ignore []string) ([]SourceFile, error) {
	seen := make(map[string]struct{})
	var files []SourceFile
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, err
		}
		if _, err := os.Stat(abs); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == abs {
					return err
				}
				return nil
			}
			if path != abs && ignored(path, ignore) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			if _, dup := seen[path]; dup {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			if !isTextFile(path) {
				return nil
			}
			seen[path] = struct{}{}
			files = append(files, SourceFile{Path: path, ModTime: info.ModTime(), Size: info.Size()})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func ignored(path string, ignore []string) bool {
	base := filepath.Base(path)
	for _, pattern := range ignore {
		if pattern == "" {
			continue
		}
		if strings.Contains(path, pattern) {
			return true
		}
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// isTextFile reports whether the head of the file holds only text bytes.
func isTextFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	buf := make([]byte, sniffBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false
	}
	for _, b := range buf[:n] {
		if !isTextByte(b) {
			return false
		}
	}
	return true
}

func isTextByte(b byte) bool {
	switch b {
	case 7, 8, 9, 10, 12, 13, 27:
		return true
	}
	return b >= 0x20 && b != 0x7f
}
