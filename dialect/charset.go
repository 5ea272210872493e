// Package dialect holds the MySQL-specific token knowledge used by the
// connection layer: the mapping from abstract text encoding names to MySQL
// character set names, and the quoting rules for string literals and
// identifiers. Everything in this package is pure string manipulation with
// no driver or network dependency.
package dialect

import "strings"

// charsets maps lowercased encoding names to MySQL character set names.
// Windows-1252 deliberately maps to latin1: MySQL's latin1 is the cp1252
// superset, not ISO-8859-1.
var charsets = map[string]string{
	"utf-8":        "utf8",
	"utf8":         "utf8",
	"utf-16":       "utf16",
	"utf-16le":     "utf16le",
	"utf16":        "utf16",
	"utf-32":       "utf32",
	"utf32":        "utf32",
	"us-ascii":     "ascii",
	"ascii":        "ascii",
	"iso-8859-1":   "latin1",
	"iso-8859-2":   "latin2",
	"iso-8859-7":   "greek",
	"iso-8859-8":   "hebrew",
	"iso-8859-9":   "latin5",
	"iso-8859-13":  "latin7",
	"windows-1250": "cp1250",
	"windows-1251": "cp1251",
	"windows-1252": "latin1",
	"windows-1256": "cp1256",
	"windows-1257": "cp1257",
	"koi8-r":       "koi8r",
	"koi8-u":       "koi8u",
	"tis-620":      "tis620",
	"shift_jis":    "sjis",
	"euc-jp":       "ujis",
	"euc-kr":       "euckr",
	"gb2312":       "gb2312",
	"gbk":          "gbk",
	"big5":         "big5",
	"ibm850":       "cp850",
	"ibm852":       "cp852",
	"ibm866":       "cp866",
	"macintosh":    "macroman",
}

// Charset returns the MySQL character set name for an encoding name.
// The lookup is case-insensitive and total over the known set; encodings
// MySQL has no name for report ok == false and connections proceed without
// a charset token.
func Charset(encoding string) (token string, ok bool) {
	token, ok = charsets[strings.ToLower(encoding)]
	return token, ok
}

// Encodings returns the encoding names the table resolves, for diagnostics
// and tests. The order is unspecified.
func Encodings() []string {
	names := make([]string, 0, len(charsets))
	for name := range charsets {
		names = append(names, name)
	}
	return names
}
