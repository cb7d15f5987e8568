package model

import (
	"strings"
	"testing"
)

func TestFmtReal(t *testing.T) {
	for _, tt := range []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{1, "1"},
		{-1, "-1"},
		{0.5, "0.5"},
		{826, "826"},
		{1.50, "1.5"},
		{-0.25, "-0.25"},
		{0.123456789, "0.12346"}, // rounded to 5 decimals
	} {
		if got := FmtReal(tt.in); got != tt.want {
			t.Errorf("FmtReal(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNameWrite(t *testing.T) {
	for _, tt := range []struct {
		in   Name
		want string
	}{
		{"Type", "/Type"},
		{"A B", "/A#20B"},
		{"Paren(thesis", "/Paren#28thesis"},
		{"Sharp#", "/Sharp#23"},
	} {
		if got := tt.in.Write(nil); got != tt.want {
			t.Errorf("Name(%q).Write = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStringWrite(t *testing.T) {
	if got := NewRawString([]byte("plain")).Write(nil); got != "(plain)" {
		t.Errorf("got %q", got)
	}
	if got := NewRawString([]byte(`with (parens) and \`)).Write(nil); got != `(with \(parens\) and \\)` {
		t.Errorf("got %q", got)
	}
	// binary payloads switch to the hex form
	if got := NewRawString([]byte{0x00, 0xFF}).Write(nil); got != "<00FF>" {
		t.Errorf("got %q", got)
	}
	s := NewRawString([]byte("AB"))
	s.AsHex = true
	if got := s.Write(nil); got != "<4142>" {
		t.Errorf("got %q", got)
	}
}

func TestDictWriteDeterministic(t *testing.T) {
	d := Dict{"B": Integer(2), "A": Integer(1), "C": Name("x")}
	want := "<</A 1 /B 2 /C /x >>"
	for i := 0; i < 10; i++ {
		if got := d.Write(nil); got != want {
			t.Fatalf("got %q, want %q", got, want)
		}
	}
}

func TestStreamWriteLength(t *testing.T) {
	s := NewStream([]byte("HELLO"), nil)
	out := s.Write(nil)
	if !strings.Contains(out, "/Length 5") {
		t.Errorf("missing /Length rewrite: %q", out)
	}
	if !strings.Contains(out, "stream\nHELLO\nendstream") {
		t.Errorf("framing: %q", out)
	}
}

func TestStreamWriteEncrypted(t *testing.T) {
	key := []byte{1, 2, 3, 4, 5}
	s := NewStream([]byte("SECRET"), nil)
	out := s.Write(key)
	if strings.Contains(out, "SECRET") {
		t.Errorf("payload left in the clear: %q", out)
	}
	if !strings.Contains(out, "/Length 6") {
		t.Errorf("length must reflect the encrypted payload: %q", out)
	}
	// RC4 is its own inverse
	if string(RC4Apply(key, RC4Apply(key, []byte("SECRET")))) != "SECRET" {
		t.Error("RC4 round trip failed")
	}
}

func TestTextStringRoundTrip(t *testing.T) {
	for _, text := range []string{"plain ascii", "accentué", "日本語"} {
		raw := EncodeTextString(text)
		if got := DecodeTextString(raw); got != text {
			t.Errorf("round trip of %q: got %q", text, got)
		}
	}
	// non-ASCII strings carry the UTF-16BE BOM
	raw := EncodeTextString("é")
	if len(raw) < 2 || raw[0] != 0xFE || raw[1] != 0xFF {
		t.Errorf("missing BOM: %v", raw)
	}
}

func TestRotation(t *testing.T) {
	if NewRotation(450) != Quarter {
		t.Errorf("450 deg: %v", NewRotation(450))
	}
	if NewRotation(-90) != ThreeQuarter {
		t.Errorf("-90 deg: %v", NewRotation(-90))
	}
	r := Zero
	for i := 0; i < 4; i++ {
		r = r.Clockwise()
	}
	if r != Zero {
		t.Errorf("four quarter turns: %v", r)
	}
}

func TestMatrixCompose(t *testing.T) {
	// translate after scale: the translation must not be scaled
	m := Scaling(2, 2).Mul(Translation(10, 20))
	if m != (Matrix{2, 0, 0, 2, 10, 20}) {
		t.Errorf("scale then translate: %v", m)
	}
	// scale after translate: the offset is scaled
	m = Translation(10, 20).Mul(Scaling(2, 2))
	if m != (Matrix{2, 0, 0, 2, 20, 40}) {
		t.Errorf("translate then scale: %v", m)
	}
	if got := TranslateScaleRotate(90, 1, 1, 5, 5); got != (Matrix{0, -1, 1, 0, 5, 5}) {
		t.Errorf("translate-scale-rotate: %v", got)
	}
}

func TestObjectKey(t *testing.T) {
	base := []byte{1, 2, 3, 4, 5}
	key := ObjectKey(base, Reference{Number: 7, Generation: 0})
	if len(key) != 10 {
		t.Fatalf("a 40-bit document key derives a %d-byte object key", len(key))
	}
	if string(key) == string(ObjectKey(base, Reference{Number: 8})) {
		t.Error("different objects must derive different keys")
	}

	long := make([]byte, 16)
	if got := ObjectKey(long, Reference{Number: 1}); len(got) != 16 {
		t.Fatalf("128-bit keys cap at 16 bytes, got %d", len(got))
	}
}
