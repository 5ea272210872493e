package aradel

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/cast"
	"github.com/tfkr-ae/aradel/dialect"
	"golang.org/x/text/encoding/ianaindex"
)

// markupPattern matches angle-bracket runs for the strip-markup option.
var markupPattern = regexp.MustCompile(`<[^>]*>`)

// Quoter is the quoting capability the protector needs from the driver.
// The full Driver interface satisfies it.
type Quoter interface {
	Quote(value string) (string, error)
}

// Protector turns arbitrary values into SQL literals that are safe to embed
// in statement text. Values are coerced to text, normalized to the target
// encoding of the connection and quoted through the driver, with a charset
// introducer prefixed when the encoding resolves to a MySQL charset.
type Protector struct {
	quoter   Quoter
	encoding string // Target encoding name, e.g. "utf-8".
	token    string // Resolved MySQL charset token, empty when the encoding has none.
}

// NewProtector returns a protector quoting through the given driver surface
// and encoding text for the given target encoding.
func NewProtector(quoter Quoter, encoding string) *Protector {
	token, _ := dialect.Charset(encoding)
	return &Protector{
		quoter:   quoter,
		encoding: encoding,
		token:    token,
	}
}

// Protect renders a value as a SQL literal.
//
// A nil value becomes NULL. Numeric text is returned bare unless forceQuote
// is set; this mirrors the long-standing contract of the layer and means
// numeric-looking input bypasses quoting entirely. Everything else is
// converted to the target encoding, quoted through the driver and prefixed
// with the charset introducer. With stripMarkup set, angle-bracket runs are
// removed before conversion. An empty result after the text path becomes ''.
func (p *Protector) Protect(value any, forceQuote bool, stripMarkup bool) (string, error) {
	if value == nil {
		return "NULL", nil
	}

	text, err := coerce(value)
	if err != nil {
		return "", &ProtectionError{Op: "coercing value", Err: err}
	}

	if isNumericText(text) && !forceQuote {
		return text, nil
	}

	if stripMarkup {
		text = markupPattern.ReplaceAllString(text, "")
	}

	converted, err := p.normalize(text)
	if err != nil {
		return "", &ProtectionError{Op: "converting value", Err: err}
	}

	if converted == "" {
		return "''", nil
	}

	quoted, err := p.quoter.Quote(converted)
	if err != nil {
		return "", &ProtectionError{Op: "quoting value", Err: err}
	}

	return dialect.Introducer(p.token, quoted), nil
}

// coerce renders a scalar as text. Booleans become 1 and 0 so they ride the
// numeric path like the other scalars; times use the MySQL datetime layout.
func coerce(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case bool:
		if v {
			return "1", nil
		}
		return "0", nil
	case time.Time:
		return v.Format("2006-01-02 15:04:05"), nil
	default:
		return cast.ToStringE(value)
	}
}

// isNumericText reports whether text parses as a plain decimal number that
// MySQL would accept unquoted. Infinities, NaN, hex forms and digit
// separators do not qualify.
func isNumericText(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	if strings.Contains(lower, "inf") || strings.Contains(lower, "nan") || strings.ContainsAny(lower, "x_") {
		return false
	}
	_, err := strconv.ParseFloat(text, 64)
	return err == nil
}

// normalize converts text from its detected source encoding to the target
// encoding of the protector. For a UTF-8 target, the byte pair {C2, 80} is
// rewritten to the euro sign: it is a CP1252 euro that was decoded as U+0080
// somewhere upstream.
func (p *Protector) normalize(text string) (string, error) {
	decoded, err := decodeText(detectEncoding(text), text)
	if err != nil {
		return "", err
	}
	encoded, err := encodeText(p.encoding, decoded)
	if err != nil {
		return "", err
	}
	if isUTF8Name(p.encoding) {
		encoded = strings.ReplaceAll(encoded, "\xc2\x80", "\xe2\x82\xac")
	}
	return encoded, nil
}

// detectEncoding reports the best-guess source encoding of raw text: valid
// UTF-8 first, then Windows-1252, then a 7-bit ASCII assumption.
func detectEncoding(text string) string {
	if utf8.ValidString(text) {
		return "utf-8"
	}
	if validWindows1252(text) {
		return "windows-1252"
	}
	return "us-ascii"
}

// validWindows1252 reports whether every byte is assigned in Windows-1252.
// The codepage leaves five bytes undefined.
func validWindows1252(text string) bool {
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case 0x81, 0x8d, 0x8f, 0x90, 0x9d:
			return false
		}
	}
	return true
}

// decodeText decodes raw text from the named encoding into UTF-8. Under the
// ASCII assumption, bytes above 0x7F are replaced with question marks.
func decodeText(name string, text string) (string, error) {
	switch strings.ToLower(name) {
	case "utf-8", "utf8":
		return text, nil
	case "us-ascii", "ascii":
		var builder strings.Builder
		builder.Grow(len(text))
		for i := 0; i < len(text); i++ {
			if text[i] > 0x7f {
				builder.WriteByte('?')
			} else {
				builder.WriteByte(text[i])
			}
		}
		return builder.String(), nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return "", fmt.Errorf("no decoder for encoding %s", name)
	}
	decoded, err := enc.NewDecoder().String(text)
	if err != nil {
		return "", fmt.Errorf("decoding from %s : %w", name, err)
	}
	return decoded, nil
}

// encodeText encodes UTF-8 text into the named encoding. Text that cannot be
// represented in the target encoding is an error rather than silently
// replaced.
func encodeText(name string, text string) (string, error) {
	if isUTF8Name(name) || name == "" {
		return text, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return "", fmt.Errorf("no encoder for encoding %s", name)
	}
	encoded, err := enc.NewEncoder().String(text)
	if err != nil {
		return "", fmt.Errorf("encoding to %s : %w", name, err)
	}
	return encoded, nil
}

func isUTF8Name(name string) bool {
	lower := strings.ToLower(name)
	return lower == "utf-8" || lower == "utf8"
}
