package model

import (
	"bytes"

	"golang.org/x/text/encoding/unicode"
)

// textStringBOM is the UTF-16BE byte-order mark PDF uses to flag a text
// string as UTF-16BE rather than PDFDocEncoding (PDF §7.9.2.2).
var textStringBOM = []byte{0xFE, 0xFF}

// DecodeTextString interprets raw per PDF's text-string convention: a
// leading U+FEFF BOM means UTF-16BE, otherwise the bytes are
// PDFDocEncoding. PDFDocEncoding agrees with Latin-1 for the printable
// ASCII range and the great majority of documents in the wild stay within
// it, so a direct byte->rune cast is used for the non-BOM case rather
// than a full PDFDocEncoding table.
func DecodeTextString(raw []byte) string {
	if bytes.HasPrefix(raw, textStringBOM) {
		decoded, err := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder().Bytes(raw[len(textStringBOM):])
		if err == nil {
			return string(decoded)
		}
	}
	out := make([]rune, len(raw))
	for i, b := range raw {
		out[i] = rune(b)
	}
	return string(out)
}

// EncodeTextString produces the UTF-16BE-with-BOM on-disk form of a text
// string (used whenever s contains characters outside printable ASCII).
func EncodeTextString(s string) []byte {
	for _, r := range s {
		if r > 0x7E || r < 0x20 {
			encoded, err := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder().Bytes([]byte(s))
			if err == nil {
				return append(append([]byte(nil), textStringBOM...), encoded...)
			}
			break
		}
	}
	return []byte(s)
}

// NewDecodedTextString builds a String from on-disk bytes, eagerly
// decoding its text per PDF text-string rules while retaining raw for
// round-tripping through re-encryption.
func NewDecodedTextString(raw []byte) String {
	return String{Raw: raw, Text: DecodeTextString(raw), HasText: true, Encoding: TextString}
}
