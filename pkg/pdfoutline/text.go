package pdfoutline

import (
	"bytes"
	"encoding/hex"
	"strings"
	"unicode/utf8"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/text/encoding/unicode"
)

var (
	utf16BOM = []byte{0xFE, 0xFF}
	utf8BOM  = []byte{0xEF, 0xBB, 0xBF}
)

// pdfDocHigh maps PDFDocEncoding bytes 0x80-0x9F, which differ from Latin-1.
var pdfDocHigh = [32]rune{
	'•', '†', '‡', '…', '—', '–', 'ƒ', '⁄', '‹', '›', '−', '‰', '„', '“', '”', '‘',
	'’', '‚', '™', 'ﬁ', 'ﬂ', 'Ł', 'Œ', 'Š', 'Ÿ', 'Ž', 'ı', 'ł', 'œ', 'š', 'ž', utf8.RuneError,
}

// decodeText turns a PDF text string (literal or hex) into UTF-8. Names are
// returned as-is so they can key named destinations.
func decodeText(o types.Object) (string, bool) {
	var raw []byte
	switch v := o.(type) {
	case types.StringLiteral:
		raw = unescapeLiteral(string(v))
	case types.HexLiteral:
		b, err := decodeHex(string(v))
		if err != nil {
			return "", false
		}
		raw = b
	case types.Name:
		return string(v), true
	default:
		return "", false
	}
	return decodeTextBytes(raw)
}

func decodeTextBytes(raw []byte) (string, bool) {
	switch {
	case bytes.HasPrefix(raw, utf16BOM):
		out, err := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().Bytes(raw)
		if err != nil {
			return "", false
		}
		return string(out), true
	case bytes.HasPrefix(raw, utf8BOM):
		rest := raw[len(utf8BOM):]
		if !utf8.Valid(rest) {
			return "", false
		}
		return string(rest), true
	}
	var sb strings.Builder
	for _, c := range raw {
		if c >= 0x80 && c <= 0x9F {
			sb.WriteRune(pdfDocHigh[c-0x80])
			continue
		}
		sb.WriteRune(rune(c))
	}
	return sb.String(), true
}

// encodeText writes s as a literal string when it is plain ASCII and as a
// UTF-16BE hex string otherwise.
func encodeText(s string) types.Object {
	if isASCII(s) {
		return types.StringLiteral(escapeLiteral(s))
	}
	out, err := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(s))
	if err != nil {
		return types.StringLiteral(escapeLiteral(s))
	}
	return types.HexLiteral(strings.ToUpper(hex.EncodeToString(out)))
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

var literalEscaper = strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`, "\r", `\r`)

func escapeLiteral(s string) string {
	return literalEscaper.Replace(s)
}

// unescapeLiteral resolves the backslash escapes of a literal string body.
func unescapeLiteral(s string) []byte {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			out = append(out, c)
			continue
		}
		i++
		switch e := s[i]; e {
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case 'b':
			out = append(out, '\b')
		case 'f':
			out = append(out, '\f')
		case '\r':
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
		case '\n':
		default:
			if e >= '0' && e <= '7' {
				v := int(e - '0')
				for n := 0; n < 2 && i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '7'; n++ {
					i++
					v = v*8 + int(s[i]-'0')
				}
				out = append(out, byte(v))
				continue
			}
			out = append(out, e)
		}
	}
	return out
}

func decodeHex(s string) ([]byte, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n', '\f':
			return -1
		}
		return r
	}, s)
	if len(clean)%2 == 1 {
		clean += "0"
	}
	return hex.DecodeString(clean)
}
