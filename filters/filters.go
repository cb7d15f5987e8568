// Package filters implements the PDF stream filters needed to decode and
// re-encode object content: Flate, LZW, ASCIIHex, ASCII85, RunLength and
// the TIFF/PNG Predictor post-processing shared by Flate and LZW.
package filters

import (
	"bytes"
	"compress/flate"
	"encoding/ascii85"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/hhrutter/lzw"
)

// Name identifiers match the /Filter name exactly (PDF §7.4).
const (
	ASCII85Decode   = "ASCII85Decode"
	ASCIIHexDecode  = "ASCIIHexDecode"
	RunLengthDecode = "RunLengthDecode"
	LZWDecode       = "LZWDecode"
	FlateDecode     = "FlateDecode"
	DCTDecode       = "DCTDecode"
	CCITTFaxDecode  = "CCITTFaxDecode"
)

// Params holds the /DecodeParms entries relevant to Predictor
// post-processing; zero values fall back to the PDF defaults.
type Params struct {
	Predictor        int
	Colors           int
	BitsPerComponent int
	Columns          int
	EarlyChange      *bool // LZWDecode only; nil means the PDF default (true)
}

func (p Params) earlyChange() bool {
	if p.EarlyChange == nil {
		return true
	}
	return *p.EarlyChange
}

func (p Params) normalized() Params {
	if p.Colors == 0 {
		p.Colors = 1
	}
	if p.BitsPerComponent == 0 {
		p.BitsPerComponent = 8
	}
	if p.Columns == 0 {
		p.Columns = 1
	}
	return p
}

// Decode applies the named filter to data, returning the decoded bytes.
// Image-only filters (DCTDecode, CCITTFaxDecode) are left untouched: a
// rendering pipeline is a non-goal, so their samples are passed through
// opaque, as the original compressed bytes.
func Decode(name string, data []byte, params Params) ([]byte, error) {
	switch name {
	case FlateDecode:
		return decodeFlate(data, params)
	case LZWDecode:
		return decodeLZW(data, params)
	case ASCIIHexDecode:
		return decodeASCIIHex(data)
	case ASCII85Decode:
		return decodeASCII85(data)
	case RunLengthDecode:
		return decodeRunLength(data)
	case DCTDecode, CCITTFaxDecode:
		return data, nil
	default:
		return nil, fmt.Errorf("filters: unsupported filter %q", name)
	}
}

// Encode applies the named filter to data for writing; only the filters a
// writer actually emits (Flate, ASCIIHex, ASCII85) are implemented.
func Encode(name string, data []byte) ([]byte, error) {
	switch name {
	case FlateDecode:
		return encodeFlate(data), nil
	case ASCIIHexDecode:
		return encodeASCIIHex(data), nil
	case ASCII85Decode:
		return encodeASCII85(data), nil
	default:
		return nil, fmt.Errorf("filters: unsupported filter for encoding %q", name)
	}
}

func decodeFlate(data []byte, params Params) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("filters: FlateDecode: %w", err)
	}
	return applyPredictor(out, params.normalized())
}

func encodeFlate(data []byte) []byte {
	var buf bytes.Buffer
	w, _ := flate.NewWriter(&buf, flate.DefaultCompression)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}

func decodeLZW(data []byte, params Params) ([]byte, error) {
	r := lzw.NewReader(bytes.NewReader(data), params.earlyChange())
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("filters: LZWDecode: %w", err)
	}
	r.Close()
	return applyPredictor(out, params.normalized())
}

func decodeASCIIHex(data []byte) ([]byte, error) {
	var clean []byte
	for _, b := range data {
		if b == '>' {
			break
		}
		if isHexWhitespace(b) {
			continue
		}
		clean = append(clean, b)
	}
	if len(clean)%2 == 1 {
		clean = append(clean, '0')
	}
	out := make([]byte, hex.DecodedLen(len(clean)))
	n, err := hex.Decode(out, clean)
	if err != nil {
		return nil, fmt.Errorf("filters: ASCIIHexDecode: %w", err)
	}
	return out[:n], nil
}

func isHexWhitespace(b byte) bool {
	switch b {
	case 0, 9, 10, 12, 13, 32:
		return true
	}
	return false
}

func encodeASCIIHex(data []byte) []byte {
	out := make([]byte, hex.EncodedLen(len(data))+1)
	hex.Encode(out, data)
	out[len(out)-1] = '>'
	return out
}

func decodeASCII85(data []byte) ([]byte, error) {
	if i := bytes.Index(data, []byte("~>")); i >= 0 {
		data = data[:i]
	}
	out := make([]byte, len(data))
	n, _, err := ascii85.Decode(out, data, true)
	if err != nil {
		return nil, fmt.Errorf("filters: ASCII85Decode: %w", err)
	}
	return out[:n], nil
}

func encodeASCII85(data []byte) []byte {
	var buf bytes.Buffer
	w := ascii85.NewEncoder(&buf)
	w.Write(data)
	w.Close()
	buf.WriteString("~>")
	return buf.Bytes()
}

// decodeRunLength implements PDF §7.4.5's simple byte-oriented RLE.
func decodeRunLength(data []byte) ([]byte, error) {
	var out bytes.Buffer
	i := 0
	for i < len(data) {
		b := data[i]
		i++
		if b == 0x80 {
			break
		}
		if b < 0x80 {
			n := int(b) + 1
			if i+n > len(data) {
				return nil, fmt.Errorf("filters: RunLengthDecode: truncated literal run")
			}
			out.Write(data[i : i+n])
			i += n
			continue
		}
		if i >= len(data) {
			return nil, fmt.Errorf("filters: RunLengthDecode: truncated repeat run")
		}
		n := 257 - int(b)
		rep := data[i]
		i++
		for j := 0; j < n; j++ {
			out.WriteByte(rep)
		}
	}
	return out.Bytes(), nil
}
