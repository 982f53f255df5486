package procedure

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Separator joins procedure tree segments inside an endpoint name.
const Separator = "_"

// PathSeparator joins procedure tree segments inside a procedure path.
const PathSeparator = "."

// ToPath converts an endpoint name into the dotted procedure path.
//
//	ToPath("nested_Deep_GetVeryNestedMessage") == "nested.deep.getVeryNestedMessage"
//	ToPath("GetUserById") == "getUserById"
func ToPath(endpointName string) string {
	if !strings.Contains(endpointName, Separator) {
		return Decapitalize(endpointName)
	}

	segments := strings.Split(endpointName, Separator)
	for i, segment := range segments {
		segments[i] = Decapitalize(segment)
	}
	return strings.Join(segments, PathSeparator)
}

// ToEndpointName converts a dotted procedure path into its endpoint name.
// Every segment after the first is capitalized.
//
//	ToEndpointName("nested.deep.getVeryNestedMessage") == "nested_Deep_GetVeryNestedMessage"
func ToEndpointName(path string) string {
	return JoinSegments(strings.Split(path, PathSeparator)...)
}

// JoinSegments builds an endpoint name out of procedure tree segments.
func JoinSegments(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, segment := range segments {
		if segment == "" {
			continue
		}
		if len(parts) > 0 {
			segment = Capitalize(segment)
		}
		parts = append(parts, segment)
	}
	return strings.Join(parts, Separator)
}

// Capitalize upper-cases the first rune of s.
func Capitalize(s string) string {
	return mapFirstRune(s, unicode.ToUpper)
}

// Decapitalize lower-cases the first rune of s.
func Decapitalize(s string) string {
	return mapFirstRune(s, unicode.ToLower)
}

func mapFirstRune(s string, fn func(rune) rune) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	mapped := fn(r)
	if mapped == r {
		return s
	}
	return string(mapped) + s[size:]
}
