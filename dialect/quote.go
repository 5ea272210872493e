package dialect

import "strings"

// EscapeString escapes a string for inclusion inside a single-quoted MySQL
// literal, following the backslash convention (NO_BACKSLASH_ESCAPES off).
// The escape set matches mysql_real_escape_string: NUL, newline, carriage
// return, backslash, both quote characters and ctrl-Z.
func EscapeString(value string) string {
	var builder strings.Builder
	builder.Grow(len(value) + len(value)/8)
	for i := 0; i < len(value); i++ {
		switch c := value[i]; c {
		case 0x00:
			builder.WriteString(`\0`)
		case '\n':
			builder.WriteString(`\n`)
		case '\r':
			builder.WriteString(`\r`)
		case '\\':
			builder.WriteString(`\\`)
		case '\'':
			builder.WriteString(`\'`)
		case '"':
			builder.WriteString(`\"`)
		case 0x1a:
			builder.WriteString(`\Z`)
		default:
			builder.WriteByte(c)
		}
	}
	return builder.String()
}

// QuoteLiteral escapes a string and wraps it in single quotes, producing a
// complete MySQL string literal.
func QuoteLiteral(value string) string {
	return "'" + EscapeString(value) + "'"
}

// Introducer prefixes a quoted literal with a character set introducer,
// e.g. Introducer("utf8", "'text'") returns "_utf8'text'". The literal is
// returned unchanged when the token is empty.
func Introducer(token string, literal string) string {
	if token == "" {
		return literal
	}
	return "_" + token + literal
}

// QuoteIdentifier wraps an identifier in backticks, doubling any embedded
// backtick.
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
