// Package parser reads one model.Object at a time from a byte stream,
// recursively for arrays and dicts, promoting dicts to streams when
// immediately followed by the `stream` keyword.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/log"

	"github.com/vellumpdf/pdf/model"
	tok "github.com/vellumpdf/pdf/pdftokenizer"
)

// Parser reads PDF objects out of a byte slice. ContentStreamMode relaxes
// a few rules that only apply to content-stream operand parsing (see the
// parser/content.go companion file).
type Parser struct {
	tokens            tok.Tokenizer
	data              []byte
	Strict            bool
	ContentStreamMode bool

	// LengthResolver resolves an indirect /Length value to its int; the
	// reader/document layer installs this so stream promotion can size
	// its payload even when /Length is itself an indirect reference.
	LengthResolver func(model.Object) int
}

func NewParser(data []byte) *Parser {
	return &Parser{tokens: tok.NewTokenizer(data), data: data}
}

// Pos reports the current byte offset into the input.
func (p *Parser) Pos() int { return p.tokens.Pos() }

// ParseObject reads one object's worth of tokens.
func (p *Parser) ParseObject() (model.Object, error) {
	t, err := p.tokens.NextToken()
	if err != nil {
		return nil, err
	}
	return p.parseObject(t)
}

func (p *Parser) parseObject(t tok.Token) (model.Object, error) {
	switch t.Kind {
	case tok.EOF:
		return nil, fmt.Errorf("unexpected end of file while parsing object")
	case tok.Name:
		log.Parse.Printf("parseObject: value = Name: /%s\n", t.Value)
		return model.Name(t.Value), nil
	case tok.String:
		return model.NewRawString([]byte(t.Value)), nil
	case tok.StringHex:
		s := model.NewRawString([]byte(t.Value))
		s.AsHex = true
		return s, nil
	case tok.StartArray:
		return p.parseArray()
	case tok.StartDic:
		return p.parseDict()
	case tok.Integer:
		return p.parseNumericOrIndirectRef(t)
	case tok.Float:
		f, err := strconv.ParseFloat(t.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", t.Value, err)
		}
		return model.Real(f), nil
	case tok.Other:
		switch t.Value {
		case "true":
			return model.Bool(true), nil
		case "false":
			return model.Bool(false), nil
		case "null":
			return model.Null{}, nil
		default:
			return Command(t.Value), nil
		}
	case tok.Comment:
		return p.ParseObject() // skip and retry
	default:
		return nil, fmt.Errorf("unexpected token %s while parsing object", t.Kind)
	}
}

// Command is a bare operator token, used by the content-stream parser
// (numbers/names/strings double as operands there too). It satisfies
// model.Object so parseObject has a single return type, but it never
// appears inside a document's object graph.
type Command string

func (c Command) Write([]byte) string { return string(c) }
func (c Command) Clone() model.Object { return c }

func (p *Parser) parseArray() (model.Array, error) {
	var out model.Array
	for {
		t, err := p.tokens.NextToken()
		if err != nil {
			return nil, err
		}
		if t.Kind == tok.EndArray {
			return out, nil
		}
		if t.Kind == tok.EOF {
			return nil, fmt.Errorf("unexpected end of file while parsing array")
		}
		obj, err := p.parseObject(t)
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
}

func (p *Parser) parseDict() (model.Object, error) {
	dict := model.Dict{}
	for {
		t, err := p.tokens.NextToken()
		if err != nil {
			return nil, err
		}
		if t.Kind == tok.EndDic {
			break
		}
		if t.Kind != tok.Name {
			if p.Strict {
				return nil, fmt.Errorf("expected dict key (name), got %s", t.Kind)
			}
			// relaxed mode: tolerate a malformed entry by skipping it
			if t.Kind == tok.EOF {
				return nil, fmt.Errorf("unexpected end of file while parsing dict")
			}
			continue
		}
		key := model.Name(t.Value)
		valueTok, err := p.tokens.NextToken()
		if err != nil {
			return nil, err
		}
		if valueTok.Kind == tok.EndDic {
			// relaxed mode: key with missing value
			if p.Strict {
				return nil, fmt.Errorf("missing value for key %s", key)
			}
			dict[key] = model.Null{}
			break
		}
		value, err := p.parseObject(valueTok)
		if err != nil {
			return nil, err
		}
		dict[key] = value
	}

	return p.maybePromoteToStream(dict)
}

// maybePromoteToStream checks whether a freshly parsed dict is
// immediately followed by the `stream` keyword, and if so reads exactly
// /Length bytes of payload (the length itself may need outside help to
// resolve an indirect reference - callers that need that set the
// LengthResolver field).
func (p *Parser) maybePromoteToStream(dict model.Dict) (model.Object, error) {
	save := p.tokens
	t, err := p.tokens.NextToken()
	if err != nil {
		return dict, nil //nolint:nilerr // no `stream` keyword, not an error
	}
	if t.Kind != tok.Other || t.Value != "stream" {
		p.tokens = save
		return dict, nil
	}
	log.Parse.Printf("parseObject: dict promoted to stream (len=%d)\n", len(dict))

	length := 0
	if l, ok := model.AsInt(dict.Lookup("Length")); ok {
		length = l
	} else if p.LengthResolver != nil {
		length = p.LengthResolver(dict.Lookup("Length"))
	}

	raw := p.tokens.Bytes()
	// skip the end-of-line after the `stream` keyword: \r\n, \r or \n
	start := 0
	if start < len(raw) && raw[start] == '\r' {
		start++
	}
	if start < len(raw) && raw[start] == '\n' {
		start++
	}
	end := start + length
	if end > len(raw) {
		end = len(raw)
	}
	content := append([]byte(nil), raw[start:end]...)

	// consume up to and past `endstream`, found by searching for the
	// keyword rather than trusting the declared length exactly. The payload
	// itself is still the declared /Length bytes, and a /Length that does
	// not match is not reported, in strict mode either.
	rest := raw[end:]
	idx := strings.Index(string(rest), "endstream")
	consumed := len(raw)
	if idx >= 0 {
		consumed = end + idx + len("endstream")
	}
	p.tokens.Advance(consumed)

	return model.Stream{Args: dict, Content: content}, nil
}

func (p *Parser) parseNumericOrIndirectRef(first tok.Token) (model.Object, error) {
	// content streams never carry indirect references; skip the lookahead
	// so two adjacent integer operands (`100 200 l`) are never mistaken
	// for the start of one.
	if p.ContentStreamMode {
		n, err := strconv.ParseInt(first.Value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q: %w", first.Value, err)
		}
		return model.Integer(n), nil
	}

	// two-token lookahead for `N G R`, done on a throwaway copy of the
	// tokenizer (cheap: Tokenizer is a small value type).
	probe := p.tokens
	second, err2 := probe.NextToken()
	if err2 == nil && second.Kind == tok.Integer {
		third, err3 := probe.NextToken()
		if err3 == nil && third.Kind == tok.Other && third.Value == "R" {
			p.tokens = probe
			n, _ := strconv.Atoi(first.Value)
			g, _ := strconv.Atoi(second.Value)
			return model.IndirectRef{Ref: model.Reference{Number: n, Generation: g}}, nil
		}
	}
	n, err := strconv.ParseInt(first.Value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid integer %q: %w", first.Value, err)
	}
	return model.Integer(n), nil
}
