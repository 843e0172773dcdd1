package domain

import "strings"

// PrefixSeparator joins artifact ids inside a PrefixKey. Ids containing it
// cannot be represented in a key.
const PrefixSeparator = "<--|-->"

// PrefixKey is the canonical form of an ordered artifact sequence.
type PrefixKey string

// NewPrefixKey joins ids in order, dropping repeats. The key stops before the
// first id that contains PrefixSeparator so that every key splits back into
// exactly the sequence it was built from.
func NewPrefixKey(ids []string) PrefixKey {
	seen := make(map[string]struct{}, len(ids))
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		if strings.Contains(id, PrefixSeparator) {
			break
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		parts = append(parts, id)
	}
	return PrefixKey(strings.Join(parts, PrefixSeparator))
}

// Artifacts splits the key back into its ordered ids.
func (k PrefixKey) Artifacts() []string {
	if k == "" {
		return nil
	}
	return strings.Split(string(k), PrefixSeparator)
}

// Len returns the number of artifacts in the key.
func (k PrefixKey) Len() int {
	if k == "" {
		return 0
	}
	return strings.Count(string(k), PrefixSeparator) + 1
}

// IsEmpty reports whether the key holds no artifacts.
func (k PrefixKey) IsEmpty() bool {
	return k == ""
}

func (k PrefixKey) String() string {
	return string(k)
}
