package util

import "strings"

// MatchGlob reports whether s matches pattern, where '*' matches any run
// of characters (including none) and every other character is literal.
// Used by backends that don't have native glob support in their own
// query layer (findKeys overlay in the CBL, or the memmap backend).
func MatchGlob(pattern, s string) bool {
	return matchGlob(splitGlob(pattern), s)
}

// splitGlob splits a glob pattern on '*' into its literal segments.
func splitGlob(pattern string) []string {
	return strings.Split(pattern, "*")
}

// matchGlob matches s against the literal segments produced by
// splitGlob. segments[0] must prefix s, segments[len-1] must suffix s,
// and every segment in between must appear, in order, somewhere between.
func matchGlob(segments []string, s string) bool {
	if len(segments) == 1 {
		return s == segments[0]
	}

	first := segments[0]
	if !strings.HasPrefix(s, first) {
		return false
	}
	s = s[len(first):]

	last := segments[len(segments)-1]
	if !strings.HasSuffix(s, last) {
		return false
	}
	s = s[:len(s)-len(last)]

	for _, seg := range segments[1 : len(segments)-1] {
		if seg == "" {
			continue
		}
		idx := strings.Index(s, seg)
		if idx < 0 {
			return false
		}
		s = s[idx+len(seg):]
	}

	return true
}

// GlobToSQLLike translates a '*'-glob pattern into a SQL LIKE pattern,
// escaping any literal '%' or '_' characters in the source pattern and
// translating '*' to '%'.
func GlobToSQLLike(pattern string) string {
	var b strings.Builder
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteByte('%')
		case '%', '_', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
