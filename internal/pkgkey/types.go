package pkgkey

import "strings"

// Identity represents a parsed aptly package key (name_version_arch)
type Identity struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
	Arch    string `json:"arch,omitempty"`
}

// Parse splits a package key into its parts.
// Keys with fewer than three parts leave Version and/or Arch empty.
func Parse(key string) Identity {
	id := Identity{Key: key, Name: ExtractName(key)}
	parts := strings.SplitN(key, "_", 3)
	if len(parts) > 1 {
		id.Version = parts[1]
	}
	if len(parts) > 2 {
		id.Arch = parts[2]
	}
	return id
}

// ExtractName returns the package name of a key: everything before the
// first underscore, or the whole key when there is none.
func ExtractName(key string) string {
	if i := strings.IndexByte(key, '_'); i >= 0 {
		return key[:i]
	}
	return key
}
