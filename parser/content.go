package parser

import (
	"fmt"

	tok "github.com/vellumpdf/pdf/pdftokenizer"
	"github.com/vellumpdf/pdf/model"
	"github.com/vellumpdf/pdf/contents"
)

// ParseContent splits a decoded content stream into operations. Unknown
// operators are tolerated (their operands are discarded) unless strict is
// set, since a single unrecognized operator should not sink the whole
// page when every other operator parses fine.
func ParseContent(data []byte, strict bool) ([]contents.Operation, error) {
	p := NewParser(data)
	p.Strict = strict
	p.ContentStreamMode = true

	var ops []contents.Operation
	var stack []model.Object
	for {
		t, err := p.tokens.NextToken()
		if err != nil {
			return nil, err
		}
		if t.Kind == tok.EOF {
			break
		}

		if t.Kind == tok.Other && t.Value == "BI" {
			op, err := p.parseInlineImage()
			if err != nil {
				return nil, err
			}
			ops = append(ops, op)
			stack = stack[:0]
			continue
		}

		obj, err := p.parseObject(t)
		if err != nil {
			return nil, err
		}
		cmd, isCmd := obj.(Command)
		if !isCmd {
			stack = append(stack, obj)
			continue
		}

		op, err := buildOperation(string(cmd), stack)
		if err != nil {
			if strict {
				return nil, err
			}
		} else if op != nil {
			ops = append(ops, op)
		} else if strict {
			return nil, fmt.Errorf("unknown content stream operator %q", string(cmd))
		}
		stack = stack[:0]
	}
	return ops, nil
}

func numArg(stack []model.Object, i int) model.Fl {
	idx := len(stack) - i
	if idx < 0 || idx >= len(stack) {
		return 0
	}
	f, _ := model.AsNumber(stack[idx])
	return f
}

func nameArg(stack []model.Object, i int) model.Name {
	idx := len(stack) - i
	if idx < 0 || idx >= len(stack) {
		return ""
	}
	n, _ := stack[idx].(model.Name)
	return n
}

func floatsArg(stack []model.Object) []model.Fl {
	out := make([]model.Fl, len(stack))
	for i, o := range stack {
		out[i], _ = model.AsNumber(o)
	}
	return out
}

// buildOperation maps one operator plus its preceding operand stack to a
// concrete contents.Operation. Operators with no modeled type (text state
// rendering mode aside) return nil, nil; ParseContent drops them, or
// rejects them in strict mode.
func buildOperation(op string, s []model.Object) (contents.Operation, error) {
	n := len(s)
	switch op {
	case "q":
		return contents.OpSave{}, nil
	case "Q":
		return contents.OpRestore{}, nil
	case "cm":
		if n < 6 {
			return nil, fmt.Errorf("cm: not enough operands")
		}
		return contents.OpConcat{Matrix: model.Matrix{numArg(s, 6), numArg(s, 5), numArg(s, 4), numArg(s, 3), numArg(s, 2), numArg(s, 1)}}, nil
	case "w":
		return contents.OpSetLineWidth{W: numArg(s, 1)}, nil
	case "J":
		return contents.OpSetLineCap{Cap: int(numArg(s, 1))}, nil
	case "j":
		return contents.OpSetLineJoin{Join: int(numArg(s, 1))}, nil
	case "M":
		return contents.OpSetMiterLimit{Limit: numArg(s, 1)}, nil
	case "i":
		return contents.OpSetFlat{Flatness: numArg(s, 1)}, nil
	case "d":
		if n < 2 {
			return nil, fmt.Errorf("d: not enough operands")
		}
		arr, _ := s[n-2].(model.Array)
		return contents.OpSetDash{Dash: model.DashPattern{Array: floatsArg([]model.Object(arr)), Phase: numArg(s, 1)}}, nil
	case "m":
		return contents.OpMoveTo{X: numArg(s, 2), Y: numArg(s, 1)}, nil
	case "l":
		return contents.OpLineTo{X: numArg(s, 2), Y: numArg(s, 1)}, nil
	case "c":
		return contents.OpCurveTo{X1: numArg(s, 6), Y1: numArg(s, 5), X2: numArg(s, 4), Y2: numArg(s, 3), X3: numArg(s, 2), Y3: numArg(s, 1)}, nil
	case "v":
		return contents.OpCurveTo1{X2: numArg(s, 4), Y2: numArg(s, 3), X3: numArg(s, 2), Y3: numArg(s, 1)}, nil
	case "y":
		return contents.OpCurveTo2{X1: numArg(s, 4), Y1: numArg(s, 3), X3: numArg(s, 2), Y3: numArg(s, 1)}, nil
	case "h":
		return contents.OpClosePath{}, nil
	case "re":
		return contents.OpRectangle{X: numArg(s, 4), Y: numArg(s, 3), W: numArg(s, 2), H: numArg(s, 1)}, nil
	case "n":
		return contents.OpEndPath{}, nil
	case "f", "F":
		return contents.OpFill{}, nil
	case "f*":
		return contents.OpEOFill{}, nil
	case "S":
		return contents.OpStroke{}, nil
	case "s":
		return contents.OpCloseStroke{}, nil
	case "B":
		return contents.OpFillStroke{}, nil
	case "B*":
		return contents.OpEOFillStroke{}, nil
	case "b":
		return contents.OpCloseFillStroke{}, nil
	case "b*":
		return contents.OpCloseEOFillStroke{}, nil
	case "W":
		return contents.OpClip{}, nil
	case "W*":
		return contents.OpEOClip{}, nil
	case "g":
		return contents.OpSetFillGray{G: numArg(s, 1)}, nil
	case "G":
		return contents.OpSetStrokeGray{G: numArg(s, 1)}, nil
	case "rg":
		return contents.OpSetFillRGBColor{R: numArg(s, 3), G: numArg(s, 2), B: numArg(s, 1)}, nil
	case "RG":
		return contents.OpSetStrokeRGBColor{R: numArg(s, 3), G: numArg(s, 2), B: numArg(s, 1)}, nil
	case "k":
		return contents.OpSetFillCMYKColor{C: numArg(s, 4), M: numArg(s, 3), Y: numArg(s, 2), K: numArg(s, 1)}, nil
	case "K":
		return contents.OpSetStrokeCMYKColor{C: numArg(s, 4), M: numArg(s, 3), Y: numArg(s, 2), K: numArg(s, 1)}, nil
	case "cs":
		return contents.OpSetFillColorSpace{ColorSpace: nameArg(s, 1)}, nil
	case "CS":
		return contents.OpSetStrokeColorSpace{ColorSpace: nameArg(s, 1)}, nil
	case "sc":
		return contents.OpSetFillColor{Color: floatsArg(s)}, nil
	case "SC":
		return contents.OpSetStrokeColor{Color: floatsArg(s)}, nil
	case "scn":
		return parseColorN(s, false), nil
	case "SCN":
		return parseColorN(s, true), nil
	case "gs":
		return contents.OpSetExtGState{Dict: nameArg(s, 1)}, nil
	case "sh":
		return contents.OpShFill{Shading: nameArg(s, 1)}, nil
	case "Do":
		return contents.OpXObject{XObject: nameArg(s, 1)}, nil
	case "ri":
		return contents.OpSetRenderingIntent{Intent: nameArg(s, 1)}, nil
	case "BT":
		return contents.OpBeginText{}, nil
	case "ET":
		return contents.OpEndText{}, nil
	case "Tc":
		return contents.OpSetCharSpacing{Spacing: numArg(s, 1)}, nil
	case "Tw":
		return contents.OpSetWordSpacing{Spacing: numArg(s, 1)}, nil
	case "Tz":
		return contents.OpSetHorizScaling{Scale: numArg(s, 1)}, nil
	case "TL":
		return contents.OpSetTextLeading{L: numArg(s, 1)}, nil
	case "Tf":
		return contents.OpSetFont{Font: nameArg(s, 2), Size: numArg(s, 1)}, nil
	case "Tr":
		return contents.OpSetTextRender{Mode: int(numArg(s, 1))}, nil
	case "Ts":
		return contents.OpSetTextRise{Rise: numArg(s, 1)}, nil
	case "Td":
		return contents.OpTextMove{X: numArg(s, 2), Y: numArg(s, 1)}, nil
	case "TD":
		return contents.OpTextMoveSet{X: numArg(s, 2), Y: numArg(s, 1)}, nil
	case "Tm":
		if n < 6 {
			return nil, fmt.Errorf("Tm: not enough operands")
		}
		return contents.OpSetTextMatrix{Matrix: model.Matrix{numArg(s, 6), numArg(s, 5), numArg(s, 4), numArg(s, 3), numArg(s, 2), numArg(s, 1)}}, nil
	case "T*":
		return contents.OpTextNextLine{}, nil
	case "Tj":
		if n < 1 {
			return nil, fmt.Errorf("Tj: missing operand")
		}
		text, _ := model.IsString(s[n-1])
		return contents.OpShowText{Text: text}, nil
	case "'":
		if n < 1 {
			return nil, fmt.Errorf("': missing operand")
		}
		text, _ := model.IsString(s[n-1])
		return contents.OpMoveShowText{Text: text}, nil
	case "\"":
		if n < 3 {
			return nil, fmt.Errorf("\": not enough operands")
		}
		text, _ := model.IsString(s[n-1])
		return contents.OpMoveSetShowText{WordSpacing: numArg(s, 3), CharSpacing: numArg(s, 2), Text: text}, nil
	case "TJ":
		if n < 1 {
			return nil, fmt.Errorf("TJ: missing operand")
		}
		arr, _ := s[n-1].(model.Array)
		var texts []contents.TextSpaced
		for _, el := range arr {
			if txt, ok := model.IsString(el); ok {
				texts = append(texts, contents.TextSpaced{Text: txt})
			} else if num, ok := model.AsNumber(el); ok && len(texts) > 0 {
				texts[len(texts)-1].SpaceSubtractedAfter = int(num)
			}
		}
		return contents.OpShowSpaceText{Texts: texts}, nil
	case "d0":
		return contents.OpSetCharWidth{Wx: numArg(s, 2), Wy: numArg(s, 1)}, nil
	case "d1":
		return contents.OpSetCacheDevice{Wx: numArg(s, 6), Wy: numArg(s, 5), Llx: numArg(s, 4), Lly: numArg(s, 3), Urx: numArg(s, 2), Ury: numArg(s, 1)}, nil
	case "BMC":
		return contents.OpBeginMarkedContent{Tag: nameArg(s, 1)}, nil
	case "BDC":
		props := propertyList(s, 1)
		return contents.OpBeginMarkedContent{Tag: nameArg(s, 2), Properties: props}, nil
	case "EMC":
		return contents.OpEndMarkedContent{}, nil
	case "MP":
		return contents.OpMarkPoint{Tag: nameArg(s, 1)}, nil
	case "DP":
		props := propertyList(s, 1)
		return contents.OpMarkPoint{Tag: nameArg(s, 2), Properties: props}, nil
	case "BX":
		return contents.OpBeginIgnoreUndef{}, nil
	case "EX":
		return contents.OpEndIgnoreUndef{}, nil
	default:
		return nil, nil
	}
}

func propertyList(s []model.Object, i int) contents.PropertyList {
	idx := len(s) - i
	if idx < 0 || idx >= len(s) {
		return nil
	}
	switch v := s[idx].(type) {
	case model.Name:
		return contents.PropertyListName(v)
	case model.Dict:
		return contents.PropertyListDict(v)
	default:
		return nil
	}
}

func parseColorN(s []model.Object, stroke bool) contents.Operation {
	n := len(s)
	var pattern model.Name
	end := n
	if n > 0 {
		if name, ok := s[n-1].(model.Name); ok {
			pattern = name
			end = n - 1
		}
	}
	color := floatsArg(s[:end])
	if stroke {
		return contents.OpSetStrokeColorN{Color: color, Pattern: pattern}
	}
	return contents.OpSetFillColorN{Color: color, Pattern: pattern}
}

// parseInlineImage reads the BI <dict entries> ID <data> EI sequence. The
// `BI` token has already been consumed by the caller.
func (p *Parser) parseInlineImage() (contents.Operation, error) {
	dict := model.Dict{}
	for {
		t, err := p.tokens.NextToken()
		if err != nil {
			return nil, err
		}
		if t.Kind == tok.Other && t.Value == "ID" {
			break
		}
		if t.Kind != tok.Name {
			return nil, fmt.Errorf("inline image: expected key name, got %s", t.Kind)
		}
		key := model.Name(t.Value)
		valTok, err := p.tokens.NextToken()
		if err != nil {
			return nil, err
		}
		val, err := p.parseObject(valTok)
		if err != nil {
			return nil, err
		}
		dict[key] = val
	}

	// exactly one whitespace byte separates ID from the image data (PDF
	// §8.9.7); the rest is raw sample bytes up to the next EI delimiter
	// that is itself surrounded by whitespace (a byte-exact length can
	// only be computed by a filter-aware caller, so this conservative
	// scan is the fallback used when /L or /Length isn't present).
	raw := p.tokens.Bytes()
	start := 0
	if start < len(raw) && (raw[start] == ' ' || raw[start] == '\n' || raw[start] == '\r') {
		start++
	}

	if l, ok := lookupAbbrev(dict, "L", "Length"); ok {
		end := start + l
		if end > len(raw) {
			end = len(raw)
		}
		data := append([]byte(nil), raw[start:end]...)
		p.tokens.Advance(end)
		p.skipPastEI()
		return contents.OpBeginImage{Settings: dict, Data: data}, nil
	}

	// unfiltered images have an exact, computable sample size; trust it
	// when the bytes that follow really are the EI delimiter
	if n, ok := inlineImageLength(dict); ok {
		if end := start + n; end <= len(raw) && eiFollows(raw, end) {
			data := append([]byte(nil), raw[start:end]...)
			p.tokens.Advance(end)
			p.skipPastEI()
			return contents.OpBeginImage{Settings: dict, Data: data}, nil
		}
	}

	idx := findEI(raw[start:])
	if idx < 0 {
		return nil, fmt.Errorf("inline image: missing EI delimiter")
	}
	end := start + idx
	if end > start && isWS(raw[end-1]) {
		end-- // the single separator before EI is framing, not sample data
	}
	data := append([]byte(nil), raw[start:end]...)
	p.tokens.Advance(start + idx)
	p.skipPastEI()
	return contents.OpBeginImage{Settings: dict, Data: data}, nil
}

// inlineImageLength returns Height * ceil(Width*components*bpc/8) for an
// unfiltered inline image whose color space is one of the device spaces.
// Filtered images and named color spaces report false: their byte count
// cannot be computed without decoding.
func inlineImageLength(d model.Dict) (int, bool) {
	if _, filtered := d["F"]; filtered {
		return 0, false
	}
	if _, filtered := d["Filter"]; filtered {
		return 0, false
	}
	w, okW := lookupAbbrev(d, "W", "Width")
	h, okH := lookupAbbrev(d, "H", "Height")
	if !okW || !okH {
		return 0, false
	}
	bpc, ok := lookupAbbrev(d, "BPC", "BitsPerComponent")
	if !ok {
		bpc = 8
	}
	components := 1
	if cs, ok := d.Lookup("CS").(model.Name); ok && cs != "" {
		switch cs {
		case "G", "DeviceGray":
			components = 1
		case "RGB", "DeviceRGB":
			components = 3
		case "CMYK", "DeviceCMYK":
			components = 4
		default:
			return 0, false
		}
	}
	return h * ((w*components*bpc + 7) / 8), true
}

func lookupAbbrev(d model.Dict, short, long model.Name) (int, bool) {
	if v, ok := model.AsInt(d.Lookup(short)); ok {
		return v, true
	}
	return model.AsInt(d.Lookup(long))
}

// eiFollows reports whether data[pos:] is whitespace followed by the EI
// keyword.
func eiFollows(data []byte, pos int) bool {
	for pos < len(data) && isWS(data[pos]) {
		pos++
	}
	return pos+1 < len(data) && data[pos] == 'E' && data[pos+1] == 'I'
}

func (p *Parser) skipPastEI() {
	for {
		t, err := p.tokens.NextToken()
		if err != nil || t.Kind == tok.EOF {
			return
		}
		if t.Kind == tok.Other && t.Value == "EI" {
			return
		}
	}
}

// findEI returns the offset of a whitespace-delimited "EI" in data, or -1.
func findEI(data []byte) int {
	for i := 0; i+1 < len(data); i++ {
		if data[i] == 'E' && data[i+1] == 'I' {
			before := i == 0 || isWS(data[i-1])
			after := i+2 >= len(data) || isWS(data[i+2])
			if before && after {
				return i
			}
		}
	}
	return -1
}

func isWS(b byte) bool {
	switch b {
	case 0, 9, 10, 12, 13, 32:
		return true
	}
	return false
}
