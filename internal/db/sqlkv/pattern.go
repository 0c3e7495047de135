package sqlkv

import "strings"

// globToLike converts a Redis-style glob (* ? and \-escapes) into a LIKE
// pattern using \ as the escape character. Character classes are matched
// literally.
func globToLike(glob string) string {
	var b strings.Builder
	b.Grow(len(glob))

	walkGlob(glob, func(r rune, literal bool) {
		switch {
		case !literal && r == '*':
			b.WriteByte('%')
		case !literal && r == '?':
			b.WriteByte('_')
		case r == '%', r == '_', r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	})
	return b.String()
}

// globToSQLiteGlob converts a Redis-style glob into SQLite GLOB syntax,
// which has no escape character: escaped metacharacters become one-rune classes.
func globToSQLiteGlob(glob string) string {
	var b strings.Builder
	b.Grow(len(glob))

	walkGlob(glob, func(r rune, literal bool) {
		switch {
		case !literal && (r == '*' || r == '?'):
			b.WriteRune(r)
		case r == '*', r == '?', r == '[':
			b.WriteByte('[')
			b.WriteRune(r)
			b.WriteByte(']')
		default:
			b.WriteRune(r)
		}
	})
	return b.String()
}

// walkGlob yields each rune of glob, marking runes that must match literally.
func walkGlob(glob string, fn func(r rune, literal bool)) {
	escaped := false
	for _, r := range glob {
		switch {
		case escaped:
			fn(r, true)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '*' || r == '?':
			fn(r, false)
		default:
			fn(r, true)
		}
	}
	if escaped {
		fn('\\', true)
	}
}
