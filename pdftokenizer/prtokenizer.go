// Package pdftokenizer implements the lowest level of PDF/PostScript
// byte processing: whitespace, delimiters, comments and the escaping
// rules for names, literal strings and hex strings. It never interprets
// arrays, dictionaries or object structure - that is the parser's job.
package pdftokenizer

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type Kind uint8

const (
	EOF Kind = iota
	Float
	Integer
	String
	StringHex
	Name
	Comment
	StartArray
	EndArray
	StartDic
	EndDic
	StartProc // only valid in PostScript files
	EndProc   // idem
	Other     // includes operators in content streams
)

func (k Kind) String() string {
	switch k {
	case EOF:
		return "EOF"
	case Float:
		return "Float"
	case Integer:
		return "Integer"
	case String:
		return "String"
	case StringHex:
		return "StringHex"
	case Name:
		return "Name"
	case Comment:
		return "Comment"
	case StartArray:
		return "StartArray"
	case EndArray:
		return "EndArray"
	case StartDic:
		return "StartDic"
	case EndDic:
		return "EndDic"
	case StartProc:
		return "StartProc"
	case EndProc:
		return "EndProc"
	case Other:
		return "Other"
	default:
		return "<invalid token>"
	}
}

func isWhitespace(ch byte) bool {
	switch ch {
	case 0, 9, 10, 12, 13, 32:
		return true
	default:
		return false
	}
}

// white space + delimiters
func isDelimiter(ch byte) bool {
	switch ch {
	case 40, 41, 60, 62, 91, 93, 123, 125, 47, 37:
		return true
	default:
		return isWhitespace(ch)
	}
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// Token represents a basic piece of information. Value must be
// interpreted according to Kind, which is left to parsing packages.
type Token struct {
	Kind  Kind
	Value string
}

func (t Token) Int() (int, error) {
	f, err := t.Float()
	return int(f), err
}

func (t Token) Float() (float64, error) {
	return strconv.ParseFloat(t.Value, 64)
}

// Tokenize consumes all the input, splitting it into tokens. When
// performance matters, use the iteration method NextToken directly.
func Tokenize(data []byte) ([]Token, error) {
	tk := NewTokenizer(data)
	var out []Token
	t, err := tk.NextToken()
	for ; t.Kind != EOF && err == nil; t, err = tk.NextToken() {
		out = append(out, t)
	}
	return out, err
}

type Tokenizer struct {
	data []byte
	pos  int

	// one-token lookahead, for a cheap PeekToken. aheadPos is the byte
	// offset the lookahead token was scanned from, i.e. the position just
	// after the last token handed out by NextToken - the place Pos, Bytes
	// and Advance operate on, so that raw-byte slicing (stream payloads,
	// inline image data) is never off by the pending lookahead.
	aheadToken Token
	aheadError error
	aheadPos   int
}

func NewTokenizer(data []byte) Tokenizer {
	tk := Tokenizer{data: data}
	tk.aheadToken, tk.aheadError = tk.nextToken()
	return tk
}

// PeekToken reads a token but does not advance the position.
func (pr Tokenizer) PeekToken() (Token, error) {
	return pr.aheadToken, pr.aheadError
}

// NextToken reads and consumes a token. At EOF it returns an EOF token
// and no error.
//
// Regarding exponential numbers (PDF §7.3.3): a conforming writer shall
// not emit non-decimal radices or exponential notation, but readers
// regularly encounter both in the wild, so both are accepted here.
func (pr *Tokenizer) NextToken() (Token, error) {
	tk, err := pr.PeekToken()
	pr.aheadPos = pr.pos
	pr.aheadToken, pr.aheadError = pr.nextToken()
	return tk, err
}

// Pos returns the byte offset just after the last consumed token.
func (pr Tokenizer) Pos() int { return pr.aheadPos }

// Bytes returns the raw tail of the input, starting just after the last
// consumed token (including any whitespace separating it from the next).
func (pr Tokenizer) Bytes() []byte { return pr.data[pr.aheadPos:] }

// Advance moves the cursor forward by n raw bytes relative to Bytes()
// (bypassing tokenization) and refreshes the lookahead token.
func (pr *Tokenizer) Advance(n int) {
	pr.pos = pr.aheadPos + n
	if pr.pos > len(pr.data) {
		pr.pos = len(pr.data)
	}
	pr.aheadPos = pr.pos
	pr.aheadToken, pr.aheadError = pr.nextToken()
}

// SkipBytes advances the raw cursor by n bytes relative to Bytes()
// (bypassing tokenization, used for inline image data) and returns the
// skipped slice up to n-1 bytes (the final byte, conventionally a
// separator, is consumed but not returned). It also resets the lookahead.
func (pr *Tokenizer) SkipBytes(n int) []byte {
	start := pr.aheadPos
	if start+n > len(pr.data) {
		n = len(pr.data) - start
	}
	out := pr.data[start : start+n]
	pr.pos = start + n
	pr.aheadPos = pr.pos
	pr.aheadToken, pr.aheadError = pr.nextToken()
	if len(out) > 0 {
		return out[:len(out)-1]
	}
	return out
}

func fromHexChar(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return c, false
}

func (pr *Tokenizer) read() (byte, bool) {
	if pr.pos >= len(pr.data) {
		return 0, false
	}
	ch := pr.data[pr.pos]
	pr.pos++
	return ch, true
}

func (pr *Tokenizer) nextToken() (Token, error) {
	ch, ok := pr.read()
	for ok && isWhitespace(ch) {
		ch, ok = pr.read()
	}
	if !ok {
		return Token{Kind: EOF}, nil
	}

	var outBuf []byte
	switch ch {
	case '[':
		return Token{Kind: StartArray}, nil
	case ']':
		return Token{Kind: EndArray}, nil
	case '{':
		return Token{Kind: StartProc}, nil
	case '}':
		return Token{Kind: EndProc}, nil
	case '/':
		for {
			ch, ok = pr.read()
			if !ok || isDelimiter(ch) {
				break
			}
			if ch == '#' {
				// #xx hex escapes decode to their byte value here, so a
				// Name compares equal iff its decoded bytes are equal
				h1, _ := pr.read()
				h2, _ := pr.read()
				var decoded [1]byte
				if _, err := hex.Decode(decoded[:], []byte{h1, h2}); err != nil {
					return Token{}, errors.New("corrupted name object")
				}
				outBuf = append(outBuf, decoded[0])
			} else {
				outBuf = append(outBuf, ch)
			}
		}
		if ok { // we moved, so it is safe to go back: the delimiter matters
			pr.pos--
		}
		return Token{Kind: Name, Value: string(outBuf)}, nil
	case '>':
		ch, ok = pr.read()
		if ch != '>' {
			return Token{}, errors.New("'>' not expected")
		}
		return Token{Kind: EndDic}, nil
	case '<':
		v1, ok1 := pr.read()
		if v1 == '<' {
			return Token{Kind: StartDic}, nil
		}
		var (
			v2  byte
			ok2 bool
		)
		for {
			for ok1 && isWhitespace(v1) {
				v1, ok1 = pr.read()
			}
			if v1 == '>' {
				break
			}
			v1, ok1 = fromHexChar(v1)
			if !ok1 {
				return Token{}, fmt.Errorf("invalid hex char %d (%s)", v1, string(rune(v1)))
			}
			v2, ok2 = pr.read()
			for ok2 && isWhitespace(v2) {
				v2, ok2 = pr.read()
			}
			if v2 == '>' {
				ch = v1 << 4
				outBuf = append(outBuf, ch)
				break
			}
			v2, ok2 = fromHexChar(v2)
			if !ok2 {
				return Token{}, fmt.Errorf("invalid hex char %d", v2)
			}
			ch = (v1 << 4) + v2
			outBuf = append(outBuf, ch)
			v1, ok1 = pr.read()
		}
		return Token{Kind: StringHex, Value: string(outBuf)}, nil
	case '%':
		ch, ok = pr.read()
		for ok && ch != '\r' && ch != '\n' {
			ch, ok = pr.read()
		}
		return Token{Kind: Comment}, nil
	case '(':
		nesting := 0
		for {
			ch, ok = pr.read()
			if !ok {
				break
			}
			if ch == '(' {
				nesting++
			} else if ch == ')' {
				nesting--
			} else if ch == '\\' {
				lineBreak := false
				ch, ok = pr.read()
				switch ch {
				case 'n':
					ch = '\n'
				case 'r':
					ch = '\r'
				case 't':
					ch = '\t'
				case 'b':
					ch = '\b'
				case 'f':
					ch = '\f'
				case '(', ')', '\\':
				case '\r':
					lineBreak = true
					ch, ok = pr.read()
					if ch != '\n' {
						pr.pos--
					}
				case '\n':
					lineBreak = true
				default:
					if ch < '0' || ch > '7' {
						break
					}
					octal := ch - '0'
					ch, ok = pr.read()
					if ch < '0' || ch > '7' {
						pr.pos--
						ch = octal
						break
					}
					octal = (octal << 3) + ch - '0'
					ch, ok = pr.read()
					if ch < '0' || ch > '7' {
						pr.pos--
						ch = octal
						break
					}
					octal = (octal << 3) + ch - '0'
					ch = octal & 0xff
				}
				if lineBreak {
					continue
				}
				if !ok {
					break
				}
			} else if ch == '\r' {
				ch, ok = pr.read()
				if !ok {
					break
				}
				if ch != '\n' {
					pr.pos--
					ch = '\n'
				}
			}
			if nesting == -1 {
				break
			}
			outBuf = append(outBuf, ch)
		}
		if !ok {
			return Token{}, errors.New("error reading string: unexpected EOF")
		}
		return Token{Kind: String, Value: string(outBuf)}, nil
	default:
		pr.pos-- // we need the test char again
		if token, ok := pr.readNumber(); ok {
			return token, nil
		}
		ch, ok = pr.read() // we went back before parsing a number
		outBuf = append(outBuf, ch)
		ch, ok = pr.read()
		for !isDelimiter(ch) {
			outBuf = append(outBuf, ch)
			ch, ok = pr.read()
		}
		if ok {
			pr.pos--
		}
		return Token{Kind: Other, Value: string(outBuf)}, nil
	}
}

// readNumber accepts PostScript syntax (radix and exponents); returns
// false if the bytes at the current position are not a number.
func (pr *Tokenizer) readNumber() (Token, bool) {
	markedPos := pr.pos

	sb, radix := &strings.Builder{}, &strings.Builder{}
	c, ok := pr.read()
	hasDigit := false
	if c == '+' || c == '-' {
		sb.WriteByte(c)
		c, _ = pr.read()
	}

	for isDigit(c) {
		sb.WriteByte(c)
		c, ok = pr.read()
		hasDigit = true
	}

	if c == '.' {
		sb.WriteByte(c)
		c, _ = pr.read()
	} else if c == '#' {
		// PostScript radix number: base#number
		radix = sb
		sb = &strings.Builder{}
		c, _ = pr.read()
	} else if sb.Len() == 0 || !hasDigit {
		pr.pos = markedPos
		return Token{}, false
	} else if c == 'E' || c == 'e' {
		sb.WriteByte(c)
		c, ok = pr.read()
		if c == '-' {
			sb.WriteByte(c)
			c, ok = pr.read()
		}
	} else {
		if ok {
			pr.pos--
		}
		return Token{Value: sb.String(), Kind: Integer}, true
	}

	if isDigit(c) {
		sb.WriteByte(c)
		c, ok = pr.read()
	} else {
		pr.pos = markedPos
		return Token{}, false
	}

	for isDigit(c) {
		sb.WriteByte(c)
		c, ok = pr.read()
	}

	if ok {
		pr.pos--
	}
	if radix := radix.String(); radix != "" {
		intRadix, _ := strconv.Atoi(radix)
		valInt, _ := strconv.ParseInt(sb.String(), intRadix, 0)
		return Token{Value: strconv.Itoa(int(valInt)), Kind: Integer}, true
	}
	return Token{Value: sb.String(), Kind: Float}, true
}
