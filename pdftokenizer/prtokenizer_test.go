package pdftokenizer

import (
	"errors"
	"reflect"
	"testing"
)

// avoid painful freeze on a tokenizer bug
const stackOverflow = 10_000

// scanAll checks that PeekToken and NextToken agree while consuming the
// whole input.
func scanAll(s string) ([]Token, error) {
	tk := NewTokenizer([]byte(s))
	var out []Token
	next, _ := tk.PeekToken()
	i := 0
	for token, err := tk.NextToken(); ; token, err = tk.NextToken() {
		i++
		if i > stackOverflow {
			return nil, errors.New("stack overflow")
		}
		if err != nil {
			return nil, err
		}
		if token != next {
			return nil, errors.New("PeekToken disagrees with NextToken")
		}
		if token.Kind == EOF {
			break
		}
		out = append(out, token)
		next, _ = tk.PeekToken()
	}
	return out, nil
}

func TestTokenKinds(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want []Token
	}{
		{"<< /Type /Page >>", []Token{{StartDic, ""}, {Name, "Type"}, {Name, "Page"}, {EndDic, ""}}},
		{"[ 1 -17 3.14 ]", []Token{{StartArray, ""}, {Integer, "1"}, {Integer, "-17"}, {Float, "3.14"}, {EndArray, ""}}},
		{"(hello)", []Token{{String, "hello"}}},
		{"(bal(anc)ed)", []Token{{String, "bal(anc)ed"}}},
		{`(esc\(aped\))`, []Token{{String, "esc(aped)"}}},
		{`(\110i)`, []Token{{String, "Hi"}}},
		{"(a\\\nb)", []Token{{String, "ab"}}}, // line continuation
		{"<48656C6C6F>", []Token{{StringHex, "Hello"}}},
		{"<48 65 6C\n6C 6F>", []Token{{StringHex, "Hello"}}},
		{"<48656C6C6F7>", []Token{{StringHex, "Hellop"}}}, // odd nibble pads 0
		{"/A#20B", []Token{{Name, "A B"}}},
		{"/", []Token{{Name, ""}}},
		{"true false null obj", []Token{{Other, "true"}, {Other, "false"}, {Other, "null"}, {Other, "obj"}}},
		{"% a comment\n42", []Token{{Comment, ""}, {Integer, "42"}}},
		{"1E2", []Token{{Float, "1E2"}}},
		{"8#20", []Token{{Integer, "16"}}}, // PostScript radix form
	} {
		got, err := scanAll(tt.in)
		if err != nil {
			t.Fatalf("%q: %v", tt.in, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%q: expected %v got %v", tt.in, tt.want, got)
		}
	}
}

func TestTokenizeFailures(t *testing.T) {
	for _, in := range []string{
		"(never closed",
		"<48656C6C6FZZ>",
		"> alone",
		"/Na#ZZme",
	} {
		if _, err := scanAll(in); err == nil {
			t.Errorf("expected an error tokenizing %q", in)
		}
	}
}

// Bytes and Advance must slice from just after the last consumed token,
// unaffected by the pending lookahead: the stream and inline-image
// readers depend on it.
func TestRawByteAccess(t *testing.T) {
	input := []byte("stream\r\nBINARY(((PAYLOAD\nendstream")
	tk := NewTokenizer(input)
	kw, err := tk.NextToken()
	if err != nil || kw.Kind != Other || kw.Value != "stream" {
		t.Fatalf("expected the stream keyword, got %v (%v)", kw, err)
	}
	raw := tk.Bytes()
	if string(raw[:2]) != "\r\n" {
		t.Fatalf("Bytes must start at the EOL after the keyword, got %q", raw[:8])
	}
	tk.Advance(2 + len("BINARY(((PAYLOAD\n"))
	end, err := tk.NextToken()
	if err != nil || end.Value != "endstream" {
		t.Fatalf("expected endstream after Advance, got %v (%v)", end, err)
	}
}

func TestPosAfterToken(t *testing.T) {
	input := []byte("trailer << /Size 4 >>")
	tk := NewTokenizer(input)
	if _, err := tk.NextToken(); err != nil {
		t.Fatal(err)
	}
	rest := input[tk.Pos():]
	if string(rest) != " << /Size 4 >>" {
		t.Fatalf("Pos is off: %q", rest)
	}
}
