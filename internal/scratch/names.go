package scratch

import (
	"path"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	maxNameBytes = 255
	maxExtLength = 10
)

// SanitizeFilename reduces a client-supplied filename to a printable NFC base
// name. It returns "" when nothing usable remains.
func SanitizeFilename(name string) string {
	name = norm.NFC.String(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || r == unicode.ReplacementChar {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	for len(name) > maxNameBytes {
		_, size := utf8.DecodeLastRuneInString(name)
		name = name[:len(name)-size]
	}
	return name
}

// Extension returns the lowercase extension of a sanitized filename, including
// the dot, or "" when it is missing or not plain alphanumeric.
func Extension(name string) string {
	ext := strings.ToLower(path.Ext(SanitizeFilename(name)))
	if len(ext) < 2 || len(ext) > maxExtLength+1 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
