package parser

import (
	"bytes"
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"github.com/vellumpdf/pdf/contents"
	"github.com/vellumpdf/pdf/model"
)

var ops = [...]contents.Operation{
	contents.OpMoveShowText{},
	contents.OpBeginMarkedContent{},
	contents.OpBeginText{},
	contents.OpSetStrokeColorSpace{},
	contents.OpMarkPoint{},
	contents.OpXObject{},
	contents.OpEndMarkedContent{},
	contents.OpEndText{},
	contents.OpRestore{},
	contents.OpSetStrokeRGBColor{},
	contents.OpStroke{},
	contents.OpSetTextLeading{},
	contents.OpTextMove{},
	contents.OpSetFont{},
	contents.OpShowText{},
	contents.OpSetTextMatrix{},
	contents.OpClip{},
	contents.OpSetFillColorSpace{},
	contents.OpSetDash{Dash: model.DashPattern{Array: []model.Fl{1, 2}, Phase: 3}},
	contents.OpFill{},
	contents.OpSetFillGray{},
	contents.OpSetExtGState{},
	contents.OpLineTo{},
	contents.OpMoveTo{},
	contents.OpEndPath{},
	contents.OpSave{},
	contents.OpRectangle{},
	contents.OpSetFillRGBColor{},
	contents.OpSetRenderingIntent{},
	contents.OpSetFillColor{Color: []model.Fl{0.5}},
	contents.OpSetFillColorN{Color: []model.Fl{}, Pattern: "sese"},
	contents.OpShFill{},
	contents.OpSetLineWidth{},
}

func randOp() contents.Operation {
	j := rand.Intn(len(ops))
	return ops[j]
}

func randOps(nops int) []contents.Operation {
	l := make([]contents.Operation, nops)
	for i := range l {
		l[i] = randOp()
	}
	return l
}

func TestParseContent(t *testing.T) {
	exp := randOps(5000)
	ct := contents.WriteOperations(exp...)
	got, err := ParseContent(ct, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(exp) != len(got) {
		t.Fatalf("expected %d ops, got %d", len(exp), len(got))
	}
	for i := range exp {
		if !reflect.DeepEqual(exp[i], got[i]) {
			t.Errorf("expected %v got %v", exp[i], got[i])
		}
	}
}

func randOperands() string {
	chars := []rune("////////<<<<<<>>>>>>>(((())))[[[]]789423azertyuiophjklmvbn,;:mùp$*")
	out := make([]rune, 10)
	for i := range out {
		out[i] = chars[rand.Intn(len(chars))]
	}
	return string(out)
}

func TestRandom(t *testing.T) {
	for range [100]int{} {
		// alternate valid ops and garbage input
		var in bytes.Buffer
		for range [300]int{} {
			in.WriteString(randOperands())
			randOp().Add(&in)
			in.WriteByte(' ')
		}
		if _, err := ParseContent(in.Bytes(), false); err == nil {
			t.Fatal("expected error on random input")
		}
	}
}

func TestInlineImage(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x03, 0x04}
	var in bytes.Buffer
	in.WriteString("q BI /W 2 /H 2 /BPC 8 ID ")
	in.Write(payload)
	in.WriteString(" EI Q")

	got, err := ParseContent(in.Bytes(), false)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected q, image, Q; got %v", got)
	}
	img, ok := got[1].(contents.OpBeginImage)
	if !ok {
		t.Fatalf("expected an inline image, got %v", got[1])
	}
	if !bytes.Equal(img.Data, payload) {
		t.Errorf("image data %v", img.Data)
	}
	if img.Settings["W"] != model.Integer(2) || img.Settings["BPC"] != model.Integer(8) {
		t.Errorf("image settings %v", img.Settings)
	}
}

func TestInlineImageExplicitLength(t *testing.T) {
	// with /L present the data may contain anything, including "EI"
	payload := []byte("xx EI yy")
	var in bytes.Buffer
	in.WriteString("BI /W 4 /H 2 /BPC 8 /L 8 ID ")
	in.Write(payload)
	in.WriteString(" EI")

	got, err := ParseContent(in.Bytes(), false)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one op, got %v", got)
	}
	img := got[0].(contents.OpBeginImage)
	if !bytes.Equal(img.Data, payload) {
		t.Errorf("image data %q", img.Data)
	}
}

func TestInlineImageReserialize(t *testing.T) {
	op := contents.OpBeginImage{
		Settings: model.Dict{"W": model.Integer(1), "H": model.Integer(1), "BPC": model.Integer(8)},
		Data:     []byte{0xAB},
	}
	out := contents.WriteOperations(op)
	if !strings.Contains(string(out), "BI") || !strings.Contains(string(out), "ID") {
		t.Fatalf("missing framing: %q", out)
	}
	got, err := ParseContent(out, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one op, got %v", got)
	}
	img := got[0].(contents.OpBeginImage)
	if !bytes.Equal(img.Data, op.Data) {
		t.Errorf("payload %v", img.Data)
	}
}
