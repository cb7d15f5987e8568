// Package contents defines the operations used in PDF content stream
// objects. They can be chained to build arbitrary content (see
// WriteOperations), or produced by parsing an existing stream.
package contents

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/vellumpdf/pdf/model"
)

type Fl = model.Fl

// Operation is a command and its operands.
type Operation interface {
	Add(out *bytes.Buffer)
}

// WriteOperations concatenates the given operations, space-separated.
func WriteOperations(ops ...Operation) []byte {
	var out bytes.Buffer
	for _, op := range ops {
		op.Add(&out)
		out.WriteByte(' ')
	}
	return out.Bytes()
}

// PropertyList is either a Name (referring to the resources' /Properties
// entry) or an inline dict, as operands of BDC/DP.
type PropertyList interface {
	contentStreamString() string
}

type PropertyListName model.Name

func (n PropertyListName) contentStreamString() string { return model.Name(n).Write(nil) }

// PropertyListDict is a dictionary; indirect references and streams are
// not valid here.
type PropertyListDict model.Dict

func (p PropertyListDict) contentStreamString() string { return model.Dict(p).Write(nil) }

func escapeText(s string) string {
	return "(" + strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`, "\r", `\r`).Replace(s) + ")"
}

// without the enclosing []
func floatArray(as []Fl) string {
	b := make([]string, len(as))
	for i, a := range as {
		b[i] = fmt.Sprintf("%f", a)
	}
	return strings.Join(b, " ")
}

// rg
type OpSetFillRGBColor struct{ R, G, B Fl }

func (o OpSetFillRGBColor) Add(out *bytes.Buffer) { fmt.Fprintf(out, "%.3f %.3f %.3f rg", o.R, o.G, o.B) }

// g
type OpSetFillGray struct{ G Fl }

func (o OpSetFillGray) Add(out *bytes.Buffer) { fmt.Fprintf(out, "%.3f g", o.G) }

// G
type OpSetStrokeGray OpSetFillGray

func (o OpSetStrokeGray) Add(out *bytes.Buffer) { fmt.Fprintf(out, "%.3f G", o.G) }

// RG
type OpSetStrokeRGBColor OpSetFillRGBColor

func (o OpSetStrokeRGBColor) Add(out *bytes.Buffer) { fmt.Fprintf(out, "%.3f %.3f %.3f RG", o.R, o.G, o.B) }

// k
type OpSetFillCMYKColor struct{ C, M, Y, K Fl }

func (o OpSetFillCMYKColor) Add(out *bytes.Buffer) {
	fmt.Fprintf(out, "%.3f %.3f %.3f %.3f k", o.C, o.M, o.Y, o.K)
}

// K
type OpSetStrokeCMYKColor OpSetFillCMYKColor

func (o OpSetStrokeCMYKColor) Add(out *bytes.Buffer) {
	fmt.Fprintf(out, "%.3f %.3f %.3f %.3f K", o.C, o.M, o.Y, o.K)
}

// w
type OpSetLineWidth struct{ W Fl }

func (o OpSetLineWidth) Add(out *bytes.Buffer) { fmt.Fprintf(out, "%.3f w", o.W) }

// J
type OpSetLineCap struct{ Cap int }

func (o OpSetLineCap) Add(out *bytes.Buffer) { fmt.Fprintf(out, "%d J", o.Cap) }

// j
type OpSetLineJoin struct{ Join int }

func (o OpSetLineJoin) Add(out *bytes.Buffer) { fmt.Fprintf(out, "%d j", o.Join) }

// M
type OpSetMiterLimit struct{ Limit Fl }

func (o OpSetMiterLimit) Add(out *bytes.Buffer) { fmt.Fprintf(out, "%.3f M", o.Limit) }

// d
type OpSetDash struct{ Dash model.DashPattern }

func (o OpSetDash) Add(out *bytes.Buffer) {
	fmt.Fprintf(out, "[%s] %.3f d", floatArray(o.Dash.Array), o.Dash.Phase)
}

// cm
type OpConcat struct{ Matrix model.Matrix }

func (o OpConcat) Add(out *bytes.Buffer) { fmt.Fprintf(out, "%s cm", o.Matrix.String()) }

// Tf
type OpSetFont struct {
	Font model.Name
	Size Fl
}

func (o OpSetFont) Add(out *bytes.Buffer) { fmt.Fprintf(out, "%s %.3f Tf", o.Font.Write(nil), o.Size) }

// TL
type OpSetTextLeading struct{ L Fl }

func (o OpSetTextLeading) Add(out *bytes.Buffer) { fmt.Fprintf(out, "%.3f TL", o.L) }

// Tc
type OpSetCharSpacing struct{ Spacing Fl }

func (o OpSetCharSpacing) Add(out *bytes.Buffer) { fmt.Fprintf(out, "%.3f Tc", o.Spacing) }

// Tw
type OpSetWordSpacing struct{ Spacing Fl }

func (o OpSetWordSpacing) Add(out *bytes.Buffer) { fmt.Fprintf(out, "%.3f Tw", o.Spacing) }

// Tz
type OpSetHorizScaling struct{ Scale Fl }

func (o OpSetHorizScaling) Add(out *bytes.Buffer) { fmt.Fprintf(out, "%.3f Tz", o.Scale) }

// Tr
type OpSetTextRender struct{ Mode int }

func (o OpSetTextRender) Add(out *bytes.Buffer) { fmt.Fprintf(out, "%d Tr", o.Mode) }

// Ts
type OpSetTextRise struct{ Rise Fl }

func (o OpSetTextRise) Add(out *bytes.Buffer) { fmt.Fprintf(out, "%.3f Ts", o.Rise) }

// n
type OpEndPath struct{}

func (o OpEndPath) Add(out *bytes.Buffer) { out.WriteByte('n') }

// m
type OpMoveTo struct{ X, Y Fl }

func (o OpMoveTo) Add(out *bytes.Buffer) { fmt.Fprintf(out, "%.3f %.3f m", o.X, o.Y) }

// l
type OpLineTo struct{ X, Y Fl }

func (o OpLineTo) Add(out *bytes.Buffer) { fmt.Fprintf(out, "%.3f %.3f l", o.X, o.Y) }

// c
type OpCurveTo struct{ X1, Y1, X2, Y2, X3, Y3 Fl }

func (o OpCurveTo) Add(out *bytes.Buffer) {
	fmt.Fprintf(out, "%.3f %.3f %.3f %.3f %.3f %.3f c", o.X1, o.Y1, o.X2, o.Y2, o.X3, o.Y3)
}

// v
type OpCurveTo1 struct{ X2, Y2, X3, Y3 Fl }

func (o OpCurveTo1) Add(out *bytes.Buffer) { fmt.Fprintf(out, "%.3f %.3f %.3f %.3f v", o.X2, o.Y2, o.X3, o.Y3) }

// y
type OpCurveTo2 struct{ X1, Y1, X3, Y3 Fl }

func (o OpCurveTo2) Add(out *bytes.Buffer) { fmt.Fprintf(out, "%.3f %.3f %.3f %.3f y", o.X1, o.Y1, o.X3, o.Y3) }

// h
type OpClosePath struct{}

func (o OpClosePath) Add(out *bytes.Buffer) { out.WriteByte('h') }

// re
type OpRectangle struct{ X, Y, W, H Fl }

func (o OpRectangle) Add(out *bytes.Buffer) { fmt.Fprintf(out, "%.3f %.3f %.3f %.3f re", o.X, o.Y, o.W, o.H) }

// f
type OpFill struct{}

func (o OpFill) Add(out *bytes.Buffer) { out.WriteByte('f') }

// f*
type OpEOFill struct{}

func (o OpEOFill) Add(out *bytes.Buffer) { out.WriteString("f*") }

// S
type OpStroke struct{}

func (o OpStroke) Add(out *bytes.Buffer) { out.WriteByte('S') }

// s
type OpCloseStroke struct{}

func (o OpCloseStroke) Add(out *bytes.Buffer) { out.WriteByte('s') }

// B
type OpFillStroke struct{}

func (o OpFillStroke) Add(out *bytes.Buffer) { out.WriteByte('B') }

// B*
type OpEOFillStroke struct{}

func (o OpEOFillStroke) Add(out *bytes.Buffer) { out.WriteString("B*") }

// b
type OpCloseFillStroke struct{}

func (o OpCloseFillStroke) Add(out *bytes.Buffer) { out.WriteByte('b') }

// b*
type OpCloseEOFillStroke struct{}

func (o OpCloseEOFillStroke) Add(out *bytes.Buffer) { out.WriteString("b*") }

// W
type OpClip struct{}

func (o OpClip) Add(out *bytes.Buffer) { out.WriteByte('W') }

// W*
type OpEOClip struct{}

func (o OpEOClip) Add(out *bytes.Buffer) { out.WriteString("W*") }

// i
type OpSetFlat struct{ Flatness Fl }

func (o OpSetFlat) Add(out *bytes.Buffer) { fmt.Fprintf(out, "%.3f i", o.Flatness) }

// BMC or BDC depending on Properties
type OpBeginMarkedContent struct {
	Tag        model.Name
	Properties PropertyList // optional
}

func (o OpBeginMarkedContent) Add(out *bytes.Buffer) {
	if o.Properties == nil {
		fmt.Fprintf(out, "%s BMC", o.Tag.Write(nil))
	} else {
		fmt.Fprintf(out, "%s %s BDC", o.Tag.Write(nil), o.Properties.contentStreamString())
	}
}

// EMC
type OpEndMarkedContent struct{}

func (o OpEndMarkedContent) Add(out *bytes.Buffer) { out.WriteString("EMC") }

// BX
type OpBeginIgnoreUndef struct{}

func (o OpBeginIgnoreUndef) Add(out *bytes.Buffer) { out.WriteString("BX") }

// EX
type OpEndIgnoreUndef struct{}

func (o OpEndIgnoreUndef) Add(out *bytes.Buffer) { out.WriteString("EX") }

// BT
type OpBeginText struct{}

func (o OpBeginText) Add(out *bytes.Buffer) { out.WriteString("BT") }

// ET
type OpEndText struct{}

func (o OpEndText) Add(out *bytes.Buffer) { out.WriteString("ET") }

// Td
type OpTextMove struct{ X, Y Fl }

func (o OpTextMove) Add(out *bytes.Buffer) { fmt.Fprintf(out, "%.3f %.3f Td", o.X, o.Y) }

// TD
type OpTextMoveSet struct{ X, Y Fl }

func (o OpTextMoveSet) Add(out *bytes.Buffer) { fmt.Fprintf(out, "%.3f %.3f TD", o.X, o.Y) }

// T*
type OpTextNextLine struct{}

func (o OpTextNextLine) Add(out *bytes.Buffer) { out.WriteString("T*") }

// Tj
type OpShowText struct{ Text string }

func (o OpShowText) Add(out *bytes.Buffer) { out.WriteString(escapeText(o.Text) + "Tj") }

// TextSpaced is one element of a TJ array: a run of text optionally
// followed by a kerning adjustment (PDF §9.4.3).
type TextSpaced struct {
	Text                 string
	SpaceSubtractedAfter int // in thousandths of text space units; 0 means none
}

// TJ
type OpShowSpaceText struct{ Texts []TextSpaced }

func (o OpShowSpaceText) Add(out *bytes.Buffer) {
	out.WriteByte('[')
	for _, ts := range o.Texts {
		out.WriteString(escapeText(ts.Text))
		if ts.SpaceSubtractedAfter != 0 {
			fmt.Fprintf(out, "%d", ts.SpaceSubtractedAfter)
		}
	}
	out.WriteString("]TJ")
}

// '
type OpMoveShowText struct{ Text string }

func (o OpMoveShowText) Add(out *bytes.Buffer) { out.WriteString(escapeText(o.Text) + "'") }

// "
type OpMoveSetShowText struct {
	WordSpacing, CharSpacing Fl
	Text                     string
}

func (o OpMoveSetShowText) Add(out *bytes.Buffer) {
	fmt.Fprintf(out, "%.3f %.3f %s\"", o.WordSpacing, o.CharSpacing, escapeText(o.Text))
}

// Tm
type OpSetTextMatrix struct{ Matrix model.Matrix }

func (o OpSetTextMatrix) Add(out *bytes.Buffer) { fmt.Fprintf(out, "%s Tm", o.Matrix.String()) }

// Q
type OpRestore struct{}

func (o OpRestore) Add(out *bytes.Buffer) { out.WriteByte('Q') }

// q
type OpSave struct{}

func (o OpSave) Add(out *bytes.Buffer) { out.WriteByte('q') }

// CS
type OpSetStrokeColorSpace struct{ ColorSpace model.Name }

func (o OpSetStrokeColorSpace) Add(out *bytes.Buffer) { out.WriteString(o.ColorSpace.Write(nil) + " CS") }

// cs
type OpSetFillColorSpace OpSetStrokeColorSpace

func (o OpSetFillColorSpace) Add(out *bytes.Buffer) { out.WriteString(o.ColorSpace.Write(nil) + " cs") }

// gs
type OpSetExtGState struct{ Dict model.Name }

func (o OpSetExtGState) Add(out *bytes.Buffer) { out.WriteString(o.Dict.Write(nil) + " gs") }

// sh
type OpShFill struct{ Shading model.Name }

func (o OpShFill) Add(out *bytes.Buffer) { out.WriteString(o.Shading.Write(nil) + " sh") }

// sc
type OpSetFillColor struct{ Color []Fl }

func (o OpSetFillColor) Add(out *bytes.Buffer) { out.WriteString(floatArray(o.Color) + " sc") }

// SC
type OpSetStrokeColor OpSetFillColor

func (o OpSetStrokeColor) Add(out *bytes.Buffer) { out.WriteString(floatArray(o.Color) + " SC") }

// scn
type OpSetFillColorN struct {
	Color   []Fl
	Pattern model.Name // optional
}

func (o OpSetFillColorN) Add(out *bytes.Buffer) {
	var n string
	if o.Pattern != "" {
		n = " " + o.Pattern.Write(nil)
	}
	out.WriteString(floatArray(o.Color) + n + " scn")
}

// SCN
type OpSetStrokeColorN OpSetFillColorN

func (o OpSetStrokeColorN) Add(out *bytes.Buffer) {
	var n string
	if o.Pattern != "" {
		n = " " + o.Pattern.Write(nil)
	}
	out.WriteString(floatArray(o.Color) + n + " SCN")
}

// Do
type OpXObject struct{ XObject model.Name }

func (o OpXObject) Add(out *bytes.Buffer) { out.WriteString(o.XObject.Write(nil) + " Do") }

// ri
type OpSetRenderingIntent struct{ Intent model.Name }

func (o OpSetRenderingIntent) Add(out *bytes.Buffer) { out.WriteString(o.Intent.Write(nil) + " ri") }

// MP or DP depending on Properties
type OpMarkPoint struct {
	Tag        model.Name
	Properties PropertyList // optional
}

func (o OpMarkPoint) Add(out *bytes.Buffer) {
	if o.Properties == nil {
		fmt.Fprintf(out, "%s MP", o.Tag.Write(nil))
	} else {
		fmt.Fprintf(out, "%s %s DP", o.Tag.Write(nil), o.Properties.contentStreamString())
	}
}

// d0
type OpSetCharWidth struct{ Wx, Wy Fl }

func (o OpSetCharWidth) Add(out *bytes.Buffer) { fmt.Fprintf(out, "%.3f %.3f d0", o.Wx, o.Wy) }

// d1
type OpSetCacheDevice struct{ Wx, Wy, Llx, Lly, Urx, Ury Fl }

func (o OpSetCacheDevice) Add(out *bytes.Buffer) {
	fmt.Fprintf(out, "%.3f %.3f %.3f %.3f %.3f %.3f d1", o.Wx, o.Wy, o.Llx, o.Lly, o.Urx, o.Ury)
}

// OpBeginImage is BI ... ID ... EI: an inline image. Settings holds the
// image dictionary entries (/W, /H, /BPC, /CS, /F, ... minus the /BI /ID
// /EI delimiters themselves) and Data its (still filtered, if /F was
// given) sample bytes.
type OpBeginImage struct {
	Settings model.Dict
	Data     []byte
}

func (o OpBeginImage) Add(out *bytes.Buffer) {
	out.WriteString("BI")
	for k, v := range o.Settings {
		out.WriteByte(' ')
		out.WriteString(k.Write(nil))
		out.WriteByte(' ')
		out.WriteString(v.Write(nil))
	}
	out.WriteString(" ID ")
	out.Write(o.Data)
	out.WriteString(" EI")
}
