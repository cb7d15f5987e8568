package parser

import (
	"reflect"
	"testing"

	"github.com/vellumpdf/pdf/model"
)

func parseOne(t *testing.T, in string) model.Object {
	t.Helper()
	obj, err := NewParser([]byte(in)).ParseObject()
	if err != nil {
		t.Fatalf("parsing %q: %v", in, err)
	}
	return obj
}

func TestParseScalars(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want model.Object
	}{
		{"null", model.Null{}},
		{"true", model.Bool(true)},
		{"false", model.Bool(false)},
		{"42", model.Integer(42)},
		{"-7", model.Integer(-7)},
		{"3.25", model.Real(3.25)},
		{"/Name", model.Name("Name")},
		{"(text)", model.NewRawString([]byte("text"))},
		{"12 0 R", model.IndirectRef{Ref: model.Reference{Number: 12}}},
		{"12 3 R", model.IndirectRef{Ref: model.Reference{Number: 12, Generation: 3}}},
	} {
		got := parseOne(t, tt.in)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%q: expected %#v got %#v", tt.in, tt.want, got)
		}
	}
}

func TestParseHexString(t *testing.T) {
	got := parseOne(t, "<414243>")
	s, ok := got.(model.String)
	if !ok || string(s.Raw) != "ABC" || !s.AsHex {
		t.Fatalf("expected hex string ABC, got %#v", got)
	}
}

func TestParseCompound(t *testing.T) {
	obj := parseOne(t, "[1 (two) /three [4]]")
	want := model.Array{
		model.Integer(1),
		model.NewRawString([]byte("two")),
		model.Name("three"),
		model.Array{model.Integer(4)},
	}
	if !reflect.DeepEqual(obj, want) {
		t.Fatalf("expected %#v got %#v", want, obj)
	}

	obj = parseOne(t, "<< /A 1 /B << /C 2 0 R >> >>")
	dict, ok := obj.(model.Dict)
	if !ok {
		t.Fatalf("expected a dict, got %#v", obj)
	}
	if dict["A"] != model.Integer(1) {
		t.Errorf("dict[A] = %#v", dict["A"])
	}
	inner, ok := dict["B"].(model.Dict)
	if !ok {
		t.Fatalf("dict[B] = %#v", dict["B"])
	}
	if inner["C"] != (model.IndirectRef{Ref: model.Reference{Number: 2}}) {
		t.Errorf("dict[B][C] = %#v", inner["C"])
	}
}

// two adjacent integers must not be eaten by the indirect-ref lookahead
func TestParseTwoIntegers(t *testing.T) {
	p := NewParser([]byte("10 20 30"))
	for _, want := range []model.Integer{10, 20, 30} {
		obj, err := p.ParseObject()
		if err != nil {
			t.Fatal(err)
		}
		if obj != want {
			t.Fatalf("expected %v got %#v", want, obj)
		}
	}
}

func TestStreamPromotion(t *testing.T) {
	in := "<< /Length 5 >>\nstream\nHELLO\nendstream"
	obj := parseOne(t, in)
	stream, ok := obj.(model.Stream)
	if !ok {
		t.Fatalf("expected a stream, got %#v", obj)
	}
	if string(stream.Content) != "HELLO" {
		t.Errorf("payload %q", stream.Content)
	}
}

func TestStreamIndirectLength(t *testing.T) {
	p := NewParser([]byte("<< /Length 9 0 R >>\nstream\nBYTES\nendstream"))
	p.LengthResolver = func(o model.Object) int {
		ref, ok := o.(model.IndirectRef)
		if !ok || ref.Ref.Number != 9 {
			return 0
		}
		return 5
	}
	obj, err := p.ParseObject()
	if err != nil {
		t.Fatal(err)
	}
	stream, ok := obj.(model.Stream)
	if !ok || string(stream.Content) != "BYTES" {
		t.Fatalf("expected BYTES payload, got %#v", obj)
	}
}

func TestRelaxedDict(t *testing.T) {
	// a key with no value before >> is tolerated outside strict mode
	obj := parseOne(t, "<< /A 1 /Broken >>")
	dict, ok := obj.(model.Dict)
	if !ok {
		t.Fatalf("expected a dict, got %#v", obj)
	}
	if _, isNull := dict["Broken"].(model.Null); !isNull {
		t.Errorf("expected /Broken to default to null, got %#v", dict["Broken"])
	}

	p := NewParser([]byte("<< /A 1 /Broken >>"))
	p.Strict = true
	if _, err := p.ParseObject(); err == nil {
		t.Error("strict mode should reject a key with no value")
	}
}
