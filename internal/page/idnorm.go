package page

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// removeDiacritics strips diacritical marks from a string (e.g., "Archïve" -> "Archive")
// so that page ids stay stable across filesystems with different Unicode
// normalization (HFS+ decomposes, most others don't).
func removeDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// StableID returns the default page id for a scanned file: its diacritic-free
// file stem. Scanner disambiguates collisions by prepending the parent
// directory name (see DisambiguateID).
func StableID(relPath string) string {
	stem := strings.TrimSuffix(filepath.Base(relPath), filepath.Ext(relPath))
	return removeDiacritics(stem)
}

// DisambiguateID prepends the parent directory name of relPath to base,
// used when two files would otherwise produce the same page id.
func DisambiguateID(relPath, base string) string {
	dir := filepath.Base(filepath.Dir(relPath))
	if dir == "." || dir == "" {
		return base
	}
	return removeDiacritics(dir) + "_" + base
}
