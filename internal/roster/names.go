package roster

import "strings"

// nameSuffixes are generational suffixes ignored when deriving a last name.
var nameSuffixes = map[string]bool{
	"jr": true, "sr": true, "ii": true, "iii": true, "iv": true, "v": true,
}

// nameParts lowercases and tokenizes a display name, dropping bare periods and
// generational suffixes ("Jr.", "III", ...).
func nameParts(name string) []string {
	fields := strings.Fields(strings.ToLower(name))
	parts := fields[:0]
	for _, f := range fields {
		if f == "." || nameSuffixes[strings.Trim(f, ".,")] {
			continue
		}
		parts = append(parts, f)
	}
	return parts
}

// lastNameIndex returns the position of the last-name token in parts, or -1.
// Abbreviations ending in '.' and one-letter tokens never count as a last name.
func lastNameIndex(parts []string) int {
	for i := len(parts) - 1; i >= 0; i-- {
		p := parts[i]
		if len(p) > 1 && !strings.HasSuffix(p, ".") {
			return i
		}
	}
	return -1
}

// LastName returns the lowercase last name used by the fuzzy indexes,
// or "" when the name has no usable surname token.
//
//	LastName("Marvin Harrison Jr.") == "harrison"
//	LastName("A. Jones")            == "jones"
func LastName(name string) string {
	parts := nameParts(name)
	i := lastNameIndex(parts)
	if i < 0 {
		return ""
	}
	return strings.Trim(parts[i], ",")
}

// FirstInitial returns the lowercase first letter of the given name, or ""
// when the name is a bare surname ("Jones").
func FirstInitial(name string) string {
	parts := nameParts(name)
	i := lastNameIndex(parts)
	if i <= 0 {
		return ""
	}
	given := strings.Trim(parts[0], ".")
	if given == "" {
		return ""
	}
	return given[:1]
}

// SameGivenInitial reports whether two names could belong to the same person
// judging by their first initials. A bare surname is compatible with anything.
func SameGivenInitial(a, b string) bool {
	ia, ib := FirstInitial(a), FirstInitial(b)
	if ia == "" || ib == "" {
		return true
	}
	return ia == ib
}
