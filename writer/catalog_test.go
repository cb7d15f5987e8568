package writer

import (
	"strings"
	"testing"

	"github.com/vellumpdf/pdf/model"
	"github.com/vellumpdf/pdf/pages"
	"github.com/vellumpdf/pdf/reader"
)

func TestBookmarksAndNamedDestinations(t *testing.T) {
	w := New()
	p1, err := w.AddBlankPage(&model.Rectangle{Urx: 612, Ury: 792})
	if err != nil {
		t.Fatal(err)
	}
	p2, err := w.AddBlankPage(nil)
	if err != nil {
		t.Fatal(err)
	}

	first, err := w.AddBookmark("Chapter 1", p1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.AddBookmark("Section 1.1", p2, first); err != nil {
		t.Fatal(err)
	}
	if _, err := w.AddBookmark("Chapter 2", p2, 0); err != nil {
		t.Fatal(err)
	}
	err = w.AddNamedDestination("intro", p1, pages.Destination{
		Fit:      pages.FitFitH,
		Operands: []model.Object{model.Integer(826)},
	})
	if err != nil {
		t.Fatal(err)
	}

	var buf strings.Builder
	if err := w.Write(&buf); err != nil {
		t.Fatal(err)
	}

	doc, err := reader.Open([]byte(buf.String()), reader.Options{Strict: true})
	if err != nil {
		t.Fatal(err)
	}
	root, err := doc.Root()
	if err != nil {
		t.Fatal(err)
	}

	outlines, err := pages.Outlines(doc, root)
	if err != nil {
		t.Fatal(err)
	}
	if len(outlines) != 2 {
		t.Fatalf("expected 2 top-level bookmarks, got %d", len(outlines))
	}
	if outlines[0].Title != "Chapter 1" || outlines[1].Title != "Chapter 2" {
		t.Errorf("titles: %q, %q", outlines[0].Title, outlines[1].Title)
	}
	if len(outlines[0].Children) != 1 || outlines[0].Children[0].Title != "Section 1.1" {
		t.Errorf("children: %+v", outlines[0].Children)
	}
	d := outlines[0].Destination
	if d == nil || d.Fit != pages.FitFitH || d.Operands[0] != model.Integer(826) {
		t.Errorf("bookmark destination: %+v", d)
	}

	dests, err := pages.NamedDestinations(doc, root)
	if err != nil {
		t.Fatal(err)
	}
	intro, ok := dests["intro"]
	if !ok || intro.Fit != pages.FitFitH {
		t.Fatalf("named destinations: %+v", dests)
	}
	ref, ok := intro.Page.(model.IndirectRef)
	if !ok || ref.Ref != p1.Ref {
		t.Errorf("destination page: %+v", intro.Page)
	}
}

func TestImportPageFromForeignDocument(t *testing.T) {
	// build a source document with one page of real content
	src := New()
	p := src.CreateBlankPage(model.Rectangle{Urx: 200, Ury: 200})
	p.SetContents([]byte("BT (imported) Tj ET"))
	if _, err := src.AddPage(p); err != nil {
		t.Fatal(err)
	}
	var srcBuf strings.Builder
	if err := src.Write(&srcBuf); err != nil {
		t.Fatal(err)
	}
	srcDoc, err := reader.Open([]byte(srcBuf.String()), reader.Options{Strict: true})
	if err != nil {
		t.Fatal(err)
	}
	srcPage, err := srcDoc.GetPage(0)
	if err != nil {
		t.Fatal(err)
	}

	// import it into a fresh writer and round-trip again
	dst := New()
	if _, err := dst.AddPage(srcPage); err != nil {
		t.Fatal(err)
	}
	var dstBuf strings.Builder
	if err := dst.Write(&dstBuf); err != nil {
		t.Fatal(err)
	}
	dstDoc, err := reader.Open([]byte(dstBuf.String()), reader.Options{Strict: true})
	if err != nil {
		t.Fatal(err)
	}
	page, err := dstDoc.GetPage(0)
	if err != nil {
		t.Fatal(err)
	}
	text, err := page.ExtractText()
	if err != nil {
		t.Fatal(err)
	}
	if text != "imported" {
		t.Fatalf("extracted %q", text)
	}
	box, err := page.MediaBox()
	if err != nil {
		t.Fatal(err)
	}
	if box.Urx != 200 || box.Ury != 200 {
		t.Errorf("imported MediaBox: %+v", box)
	}
}
