package filters

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/vellumpdf/pdf/model"
)

func TestFlateRoundTrip(t *testing.T) {
	in := make([]byte, 10_000)
	rand.Read(in)
	encoded, err := Encode(FlateDecode, in)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := Decode(FlateDecode, encoded, Params{})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(in, decoded) {
		t.Fatal("flate round trip failed")
	}
}

func TestASCIIHex(t *testing.T) {
	decoded, err := Decode(ASCIIHexDecode, []byte("48 65 6C\n6C 6F>"), Params{})
	if err != nil {
		t.Fatal(err)
	}
	if string(decoded) != "Hello" {
		t.Fatalf("got %q", decoded)
	}

	// an odd trailing nibble is padded with zero
	decoded, err = Decode(ASCIIHexDecode, []byte("4>"), Params{})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(decoded, []byte{0x40}) {
		t.Fatalf("got %v", decoded)
	}

	encoded, err := Encode(ASCIIHexDecode, []byte("Hello"))
	if err != nil {
		t.Fatal(err)
	}
	back, err := Decode(ASCIIHexDecode, encoded, Params{})
	if err != nil {
		t.Fatal(err)
	}
	if string(back) != "Hello" {
		t.Fatalf("round trip: %q", back)
	}
}

func TestASCII85RoundTrip(t *testing.T) {
	in := []byte("Man is distinguished, not only by his reason")
	encoded, err := Encode(ASCII85Decode, in)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasSuffix(encoded, []byte("~>")) {
		t.Fatalf("missing EOD marker: %q", encoded)
	}
	decoded, err := Decode(ASCII85Decode, encoded, Params{})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(in, decoded) {
		t.Fatalf("round trip: %q", decoded)
	}
}

func TestRunLength(t *testing.T) {
	// a literal run of 3, a repeat run of 3, then EOD
	in := []byte{2, 'a', 'b', 'c', 0xFE, 'z', 0x80}
	decoded, err := Decode(RunLengthDecode, in, Params{})
	if err != nil {
		t.Fatal(err)
	}
	if string(decoded) != "abczzz" {
		t.Fatalf("got %q", decoded)
	}

	if _, err := Decode(RunLengthDecode, []byte{5, 'a'}, Params{}); err == nil {
		t.Fatal("truncated literal run must fail")
	}
}

func TestImageFiltersPassThrough(t *testing.T) {
	in := []byte{1, 2, 3}
	for _, name := range []string{DCTDecode, CCITTFaxDecode} {
		out, err := Decode(name, in, Params{})
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(out, in) {
			t.Errorf("%s must pass samples through opaque", name)
		}
	}
}

func TestUnknownFilter(t *testing.T) {
	if _, err := Decode("NoSuchDecode", nil, Params{}); err == nil {
		t.Fatal("unknown filters must fail")
	}
}

// PNG Up predictor: each row stores the delta against the previous row.
func TestPredictorPNGUp(t *testing.T) {
	rows := []byte{
		2, 1, 2, 3, 4, // first row: deltas against an all-zero row
		2, 1, 1, 1, 1,
	}
	p := Params{Predictor: 12, Colors: 1, BitsPerComponent: 8, Columns: 4}
	out, err := applyPredictor(rows, p)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{1, 2, 3, 4, 2, 3, 4, 5}
	if !bytes.Equal(out, want) {
		t.Fatalf("expected %v got %v", want, out)
	}
}

func TestPredictorTIFF(t *testing.T) {
	row := []byte{10, 5, 5, 5}
	p := Params{Predictor: 2, Colors: 1, BitsPerComponent: 8, Columns: 4}
	out, err := applyPredictor(row, p)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{10, 15, 20, 25}
	if !bytes.Equal(out, want) {
		t.Fatalf("expected %v got %v", want, out)
	}
}

func TestDecodeStreamPipeline(t *testing.T) {
	payload := []byte("pipe me through")
	flated, err := Encode(FlateDecode, payload)
	if err != nil {
		t.Fatal(err)
	}
	hexed, err := Encode(ASCIIHexDecode, flated)
	if err != nil {
		t.Fatal(err)
	}
	args := model.Dict{
		"Filter": model.Array{model.Name(ASCIIHexDecode), model.Name(FlateDecode)},
	}
	out, err := DecodeStream(args, hexed)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, payload) {
		t.Fatalf("pipeline round trip: %q", out)
	}
}
