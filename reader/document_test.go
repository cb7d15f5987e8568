package reader

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/vellumpdf/pdf/model"
)

type fileBuilder struct {
	buf     bytes.Buffer
	offsets map[int]int
}

func newFileBuilder() *fileBuilder {
	b := &fileBuilder{offsets: map[int]int{}}
	b.buf.WriteString("%PDF-1.3\n")
	return b
}

func (b *fileBuilder) addObj(num int, body string) {
	b.offsets[num] = b.buf.Len()
	fmt.Fprintf(&b.buf, "%d 0 obj\n%s\nendobj\n", num, body)
}

func (b *fileBuilder) classicalXref(first, count int, trailerBody string) int {
	pos := b.buf.Len()
	fmt.Fprintf(&b.buf, "xref\n%d %d\n", first, count)
	if first == 0 {
		b.buf.WriteString("0000000000 65535 f \n")
		first, count = 1, count-1
	}
	for i := first; i < first+count; i++ {
		fmt.Fprintf(&b.buf, "%010d 00000 n \n", b.offsets[i])
	}
	fmt.Fprintf(&b.buf, "trailer\n%s\n", trailerBody)
	return pos
}

func (b *fileBuilder) finish(startxref int) []byte {
	fmt.Fprintf(&b.buf, "startxref\n%d\n%%%%EOF", startxref)
	return b.buf.Bytes()
}

func singlePageFile() []byte {
	b := newFileBuilder()
	b.addObj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	b.addObj(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 /Resources << /Font << /F1 4 0 R >> >> /MediaBox [0 0 612 792] >>")
	b.addObj(3, "<< /Type /Page /Parent 2 0 R >>")
	b.addObj(4, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")
	pos := b.classicalXref(0, 5, "<< /Size 5 /Root 1 0 R >>")
	return b.finish(pos)
}

func TestGetObjectAndCache(t *testing.T) {
	doc, err := Open(singlePageFile(), Options{Strict: true})
	if err != nil {
		t.Fatal(err)
	}
	root, err := doc.Root()
	if err != nil {
		t.Fatal(err)
	}
	if root["Type"] != model.Name("Catalog") {
		t.Fatalf("root: %#v", root)
	}

	// a second dereference must come from the cache (same value)
	again, err := doc.GetObject(model.Reference{Number: 1})
	if err != nil {
		t.Fatal(err)
	}
	if again.(model.Dict)["Type"] != model.Name("Catalog") {
		t.Fatalf("cached root: %#v", again)
	}

	// undefined object numbers resolve to null, not an error
	missing, err := doc.GetObject(model.Reference{Number: 99})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := missing.(model.Null); !ok {
		t.Fatalf("expected null, got %#v", missing)
	}
}

func TestPageInheritance(t *testing.T) {
	doc, err := Open(singlePageFile(), Options{Strict: true})
	if err != nil {
		t.Fatal(err)
	}
	n, err := doc.NumPages()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 page, got %d", n)
	}
	page, err := doc.GetPage(0)
	if err != nil {
		t.Fatal(err)
	}
	box, err := page.MediaBox()
	if err != nil {
		t.Fatal(err)
	}
	if box.Urx != 612 || box.Ury != 792 {
		t.Errorf("inherited MediaBox: %+v", box)
	}
	res, err := page.Resources()
	if err != nil {
		t.Fatal(err)
	}
	if _, has := res["Font"]; !has {
		t.Errorf("inherited resources: %#v", res)
	}
	// CropBox falls back to the (inherited) MediaBox
	crop, err := page.CropBox()
	if err != nil {
		t.Fatal(err)
	}
	if crop != box {
		t.Errorf("CropBox fallback: %+v", crop)
	}
}

func TestObjectStream(t *testing.T) {
	b := newFileBuilder()
	b.addObj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	b.addObj(2, "<< /Type /Pages /Kids [] /Count 0 >>")

	// objects 5 and 6 packed in object stream 4
	packed := "5 0 6 9 <</A 1>> <</B 2>>"
	first := 8 // length of the "5 0 6 9 " header
	b.addObj(4, fmt.Sprintf("<< /Type /ObjStm /N 2 /First %d /Length %d >>\nstream\n%s\nendstream", first, len(packed), packed))

	var rows []byte
	pack := func(typ byte, mid int, last byte) {
		rows = append(rows, typ, byte(mid>>16), byte(mid>>8), byte(mid), last)
	}
	pack(0, 0, 0)               // 0 free
	pack(1, b.offsets[1], 0)    // 1
	pack(1, b.offsets[2], 0)    // 2
	pack(0, 0, 0)               // 3 free
	pack(1, b.offsets[4], 0)    // 4: the object stream container
	pack(2, 4, 0)               // 5: compressed
	pack(2, 4, 1)               // 6: compressed
	xrefPos := b.buf.Len()
	fmt.Fprintf(&b.buf, "7 0 obj\n<< /Type /XRef /Size 7 /W [1 3 1] /Root 1 0 R /Length %d >>\nstream\n", len(rows))
	b.buf.Write(rows)
	b.buf.WriteString("\nendstream\nendobj\n")
	data := b.finish(xrefPos)

	doc, err := Open(data, Options{Strict: true})
	if err != nil {
		t.Fatal(err)
	}
	five, err := doc.GetObject(model.Reference{Number: 5})
	if err != nil {
		t.Fatal(err)
	}
	if d, ok := five.(model.Dict); !ok || d["A"] != model.Integer(1) {
		t.Fatalf("object 5: %#v", five)
	}
	six, err := doc.GetObject(model.Reference{Number: 6})
	if err != nil {
		t.Fatal(err)
	}
	if d, ok := six.(model.Dict); !ok || d["B"] != model.Integer(2) {
		t.Fatalf("object 6: %#v", six)
	}
}

// A classical table whose first subsection is mislabeled by one (a
// well-known scanner-firmware bug) is shifted back into place on first
// dereference, outside strict mode.
func TestZeroIndexCorrection(t *testing.T) {
	b := newFileBuilder()
	b.addObj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	b.addObj(2, "<< /Type /Pages /Kids [] /Count 0 >>")

	pos := b.buf.Len()
	// the subsection claims objects 2..3 but the offsets are those of 1..2
	b.buf.WriteString("xref\n2 2\n")
	fmt.Fprintf(&b.buf, "%010d 00000 n \n", b.offsets[1])
	fmt.Fprintf(&b.buf, "%010d 00000 n \n", b.offsets[2])
	b.buf.WriteString("trailer\n<< /Size 3 /Root 1 0 R >>\n")
	data := b.finish(pos)

	var warned bool
	doc, err := Open(data, Options{Warn: func(model.Warning) { warned = true }})
	if err != nil {
		t.Fatal(err)
	}
	obj, err := doc.GetObject(model.Reference{Number: 1})
	if err != nil {
		t.Fatal(err)
	}
	if d, ok := obj.(model.Dict); !ok || d["Type"] != model.Name("Catalog") {
		t.Fatalf("object 1 after correction: %#v", obj)
	}
	if !warned {
		t.Error("the shift must be surfaced as a warning")
	}

	// object 0 stays unresolvable, without an error
	zero, err := doc.GetObject(model.Reference{Number: 0})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := zero.(model.Null); !ok {
		t.Fatalf("object 0: %#v", zero)
	}
}

// A correctly 1-based table (only the conventional free entry missing)
// must not be shifted.
func TestOneBasedTableNotShifted(t *testing.T) {
	b := newFileBuilder()
	b.addObj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	b.addObj(2, "<< /Type /Pages /Kids [] /Count 0 >>")
	pos := b.classicalXref(1, 2, "<< /Size 3 /Root 1 0 R >>")
	data := b.finish(pos)

	doc, err := Open(data, Options{})
	if err != nil {
		t.Fatal(err)
	}
	root, err := doc.Root()
	if err != nil {
		t.Fatal(err)
	}
	if root["Type"] != model.Name("Catalog") {
		t.Fatalf("root: %#v", root)
	}
}
