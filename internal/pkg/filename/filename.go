// Package filename turns client supplied file names into safe storage keys.
package filename

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// ArtifactExt is appended to a document's stem to name its extraction artifact.
const ArtifactExt = ".json"

var windowsDeviceNames = map[string]struct{}{
	"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
	"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {},
	"LPT1": {}, "LPT2": {}, "LPT3": {},
}

// Secure returns an ASCII-only version of name that is safe to join onto a
// storage directory. The result may be empty.
func Secure(name string) string {
	name = norm.NFKD.String(name)

	var ascii strings.Builder
	for _, r := range name {
		if r > unicode.MaxASCII {
			continue
		}
		if r == '/' || r == '\\' {
			r = ' '
		}
		ascii.WriteRune(r)
	}

	joined := strings.Join(strings.Fields(ascii.String()), "_")

	var out strings.Builder
	for _, r := range joined {
		if isAllowed(r) {
			out.WriteRune(r)
		}
	}
	secured := strings.Trim(out.String(), "._")

	if secured != "" {
		base := strings.ToUpper(strings.SplitN(secured, ".", 2)[0])
		if _, reserved := windowsDeviceNames[base]; reserved {
			secured = "_" + secured
		}
	}
	return secured
}

func isAllowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_', r == '.', r == '-':
		return true
	}
	return false
}

// HasExtension reports whether name has a final extension equal to ext,
// compared case-insensitively. ext is given without the leading dot.
func HasExtension(name, ext string) bool {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return false
	}
	return strings.EqualFold(name[idx+1:], ext)
}

// Stem strips the final extension from name.
func Stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Artifact returns the artifact file name for a document identifier.
func Artifact(documentID string) string {
	return Stem(documentID) + ArtifactExt
}
