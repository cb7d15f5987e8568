// Package xref loads a PDF's cross-reference information: the classical
// xref-table/trailer form, cross-reference streams, hybrid files mixing
// both, and a line-scan fallback for files too corrupt for either.
package xref

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/log"

	"github.com/vellumpdf/pdf/filters"
	"github.com/vellumpdf/pdf/model"
	"github.com/vellumpdf/pdf/parser"
	tok "github.com/vellumpdf/pdf/pdftokenizer"
)

// Entry locates one indirect object: either at a byte offset in the file,
// or inside an object stream.
type Entry struct {
	Free               bool
	Offset             int64
	Generation         int
	StreamObjectNumber int // 0 when not compressed
	StreamObjectIndex  int
}

// Table maps object number to its entry; object 0 is conventionally the
// head of the free list and never resolved.
type Table map[int]Entry

// Trailer holds the merged /Root, /Info, /ID, /Encrypt, /Size across every
// trailer and xref-stream dict in the file's /Prev chain.
type Trailer struct {
	Root    *model.Reference
	Info    *model.Reference
	ID      model.Array
	Encrypt model.Object
	Size    int
}

func (t *Trailer) merge(d model.Dict) error {
	if enc := d.Lookup("Encrypt"); t.Encrypt == nil {
		if _, isNull := enc.(model.Null); !isNull {
			t.Encrypt = enc
		}
	}
	if t.Size == 0 {
		if size, ok := model.AsInt(d.Lookup("Size")); ok {
			t.Size = size
		}
	}
	if t.Root == nil {
		if ref, ok := d.Lookup("Root").(model.IndirectRef); ok {
			r := ref.Ref
			t.Root = &r
		}
	}
	if t.Info == nil {
		if ref, ok := d.Lookup("Info").(model.IndirectRef); ok {
			r := ref.Ref
			t.Info = &r
		}
	}
	if t.ID == nil {
		if id, ok := d.Lookup("ID").(model.Array); ok {
			t.ID = id
		}
	}
	return nil
}

func offsetFromObject(o model.Object) (int64, bool) {
	switch v := o.(type) {
	case model.Integer:
		return int64(v), true
	case model.IndirectRef:
		// buggy writers sometimes emit "/Prev NNN 0 R"; interpret the
		// object number as the offset, matching what those files mean.
		return int64(v.Ref.Number), true
	default:
		return 0, false
	}
}

// Load walks the /Prev chain starting at the trailing "startxref" pointer
// and returns the merged object table and trailer. Root wins: entries
// already present from a later (more recent) section are never
// overwritten by an older /Prev section.
func Load(data []byte, strict bool, warn model.WarningSink) (Table, Trailer, error) {
	table := Table{}
	var trailer Trailer

	offset, err := findStartXRef(data)
	if err != nil {
		return bypassScan(data, strict, warn)
	}

	seen := map[int64]bool{}
	for offset != 0 {
		if seen[offset] || offset < 0 || int(offset) >= len(data) {
			break
		}
		seen[offset] = true

		section := data[offset:]
		tk := tok.NewTokenizer(section)
		first, err := tk.PeekToken()
		if err != nil {
			return table, trailer, model.NewError(model.KindMalformed, "xref", "reading section at %d: %v", offset, err)
		}

		if first.Kind == tok.Other && first.Value == "xref" {
			tk.NextToken()
			next, err := parseClassicalSection(&tk, section, data, table, &trailer)
			if err != nil {
				if err2 := model.Report(warn, strict, "xref", err.Error()); err2 != nil {
					return table, trailer, err2
				}
				break
			}
			offset = next
		} else {
			next, err := parseXRefStream(section, offset, table, &trailer)
			if err != nil {
				if err2 := model.Report(warn, strict, "xref", err.Error()); err2 != nil {
					return table, trailer, err2
				}
				break
			}
			offset = next
		}
	}

	if trailer.Root == nil {
		return bypassScan(data, strict, warn)
	}

	log.Read.Printf("xref: %d entries, size %d\n", len(table), trailer.Size)
	return table, trailer, nil
}

func findStartXRef(data []byte) (int64, error) {
	tail := data
	const window = 2048
	if len(tail) > window {
		tail = tail[len(tail)-window:]
	}
	i := bytes.LastIndex(tail, []byte("startxref"))
	if i < 0 {
		return 0, fmt.Errorf("xref: no startxref keyword found")
	}
	rest := tail[i+len("startxref"):]
	end := bytes.Index(rest, []byte("%%EOF"))
	if end >= 0 {
		rest = rest[:end]
	}
	n, err := strconv.ParseInt(strings.TrimSpace(string(rest)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("xref: corrupt startxref offset: %w", err)
	}
	return n, nil
}

// parseClassicalSection reads subsections until the "trailer" keyword,
// then the trailer dict; it returns the /Prev offset (0 if none). data is
// the whole file, needed when the trailer names a hybrid /XRefStm.
func parseClassicalSection(tk *tok.Tokenizer, section, data []byte, table Table, trailer *Trailer) (int64, error) {
	for {
		next, _ := tk.PeekToken()
		if next.Kind == tok.Other && next.Value == "trailer" {
			tk.NextToken()
			break
		}
		if err := parseSubsection(tk, table); err != nil {
			return 0, err
		}
	}

	p := parser.NewParser(section[tk.Pos():])
	obj, err := p.ParseObject()
	if err != nil {
		return 0, fmt.Errorf("xref: trailer: %w", err)
	}
	dict, ok := obj.(model.Dict)
	if !ok {
		return 0, fmt.Errorf("xref: trailer: expected dict, got %T", obj)
	}
	if err := trailer.merge(dict); err != nil {
		return 0, err
	}

	offset, _ := offsetFromObject(dict.Lookup("Prev"))

	if hybrid, ok := model.AsInt(dict.Lookup("XRefStm")); ok {
		// PDF 1.5 hybrid file: fold the hidden xref stream's entries in
		// before the classical /Prev chain is followed.
		if hybrid < 0 || hybrid >= len(data) {
			return 0, fmt.Errorf("xref: /XRefStm offset %d out of range", hybrid)
		}
		if _, err := parseXRefStream(data[hybrid:], int64(hybrid), table, trailer); err != nil {
			return 0, err
		}
	}

	return offset, nil
}

func parseInt(tk *tok.Tokenizer) (int, error) {
	t, err := tk.NextToken()
	if err != nil {
		return 0, err
	}
	return t.Int()
}

func parseSubsection(tk *tok.Tokenizer, table Table) error {
	start, err := parseInt(tk)
	if err != nil {
		return fmt.Errorf("xref: subsection start: %w", err)
	}
	count, err := parseInt(tk)
	if err != nil {
		return fmt.Errorf("xref: subsection count: %w", err)
	}
	for i := 0; i < count; i++ {
		offTok, err := tk.NextToken()
		if err != nil {
			return err
		}
		offset, err := strconv.ParseInt(offTok.Value, 10, 64)
		if err != nil {
			return fmt.Errorf("xref: entry offset: %w", err)
		}
		gen, err := parseInt(tk)
		if err != nil {
			return fmt.Errorf("xref: entry generation: %w", err)
		}
		kindTok, err := tk.NextToken()
		if err != nil {
			return err
		}
		if kindTok.Kind != tok.Other || (kindTok.Value != "f" && kindTok.Value != "n") {
			return fmt.Errorf("xref: malformed entry type %q", kindTok.Value)
		}
		objNum := start + i
		if _, exists := table[objNum]; exists {
			continue // a more recent section already provided this object
		}
		if kindTok.Value == "n" && offset == 0 {
			continue
		}
		table[objNum] = Entry{Free: kindTok.Value == "f", Offset: offset, Generation: gen}
	}
	return nil
}

// xrefStreamLayout is the decoded shape of a cross-reference stream dict.
type xrefStreamLayout struct {
	index [][2]int
	w     [3]int
	prev  int64
	size  int
}

func (x xrefStreamLayout) entrySize() int { return x.w[0] + x.w[1] + x.w[2] }
func (x xrefStreamLayout) count() int {
	n := 0
	for _, sub := range x.index {
		n += sub[1]
	}
	return n
}

func parseXRefStreamLayout(d model.Dict) (xrefStreamLayout, error) {
	var out xrefStreamLayout
	out.prev, _ = offsetFromObject(d.Lookup("Prev"))
	size, ok := model.AsInt(d.Lookup("Size"))
	if !ok {
		return out, fmt.Errorf("xref stream: missing /Size")
	}
	out.size = size

	if arr, ok := d.Lookup("Index").(model.Array); ok && len(arr) >= 2 {
		for i := 0; i+1 < len(arr); i += 2 {
			start, ok1 := model.AsInt(arr[i])
			n, ok2 := model.AsInt(arr[i+1])
			if !ok1 || !ok2 {
				return out, fmt.Errorf("xref stream: corrupt /Index")
			}
			out.index = append(out.index, [2]int{start, n})
		}
	} else {
		out.index = [][2]int{{0, out.size}}
	}

	w, ok := d.Lookup("W").(model.Array)
	if !ok || len(w) < 3 {
		return out, fmt.Errorf("xref stream: missing or malformed /W")
	}
	for i := 0; i < 3; i++ {
		v, ok := model.AsInt(w[i])
		if !ok || v < 0 {
			return out, fmt.Errorf("xref stream: malformed /W")
		}
		out.w[i] = v
	}
	return out, nil
}

func bufToInt64(buf []byte) int64 {
	var v int64
	for _, b := range buf {
		v = v<<8 | int64(b)
	}
	return v
}

// parseXRefStream reads the indirect stream object starting at section
// (object header "N G obj << ... >> stream ... endstream") and populates
// table; offset is section's position in the file, for diagnostics.
func parseXRefStream(section []byte, offset int64, table Table, trailer *Trailer) (int64, error) {
	log.Read.Printf("xref: reading cross-reference stream at %d\n", offset)

	tk := tok.NewTokenizer(section)
	if _, err := parseInt(&tk); err != nil {
		return 0, fmt.Errorf("xref stream: object number: %w", err)
	}
	if _, err := parseInt(&tk); err != nil {
		return 0, fmt.Errorf("xref stream: generation: %w", err)
	}
	kw, err := tk.NextToken()
	if err != nil || kw.Kind != tok.Other || kw.Value != "obj" {
		return 0, fmt.Errorf("xref stream: expected \"obj\" keyword")
	}

	p := parser.NewParser(section[tk.Pos():])
	obj, err := p.ParseObject()
	if err != nil {
		return 0, fmt.Errorf("xref stream: %w", err)
	}
	stream, ok := obj.(model.Stream)
	if !ok {
		return 0, fmt.Errorf("xref stream: expected a stream object, got %T", obj)
	}

	layout, err := parseXRefStreamLayout(stream.Args)
	if err != nil {
		return 0, err
	}

	decoded, err := decodeXRefStreamContent(stream)
	if err != nil {
		return 0, err
	}

	if err := trailer.merge(stream.Args); err != nil {
		return 0, err
	}

	entrySize, count := layout.entrySize(), layout.count()
	need := entrySize * count
	if len(decoded) < need {
		return 0, fmt.Errorf("xref stream: truncated (%d < %d bytes)", len(decoded), need)
	}
	decoded = decoded[:need]

	i1, i2, i3 := layout.w[0], layout.w[1], layout.w[2]
	j := 0
	for _, sub := range layout.index {
		first, n := sub[0], sub[1]
		for i := 0; i < n; i++ {
			objNum := first + i
			base := j * entrySize
			typ := byte(1)
			if i1 > 0 {
				typ = decoded[base]
			}
			c2 := bufToInt64(decoded[base+i1 : base+i1+i2])
			c3 := bufToInt64(decoded[base+i1+i2 : base+i1+i2+i3])

			var entry Entry
			switch typ {
			case 0:
				entry = Entry{Free: true, Offset: c2, Generation: int(c3)}
			case 1:
				entry = Entry{Offset: c2, Generation: int(c3)}
			case 2:
				entry = Entry{StreamObjectNumber: int(c2), StreamObjectIndex: int(c3)}
			}
			if _, exists := table[objNum]; !exists {
				table[objNum] = entry
			}
			j++
		}
	}

	return layout.prev, nil
}

// decodeXRefStreamContent applies the stream's filter pipeline; cross
// reference streams are never encrypted (PDF §7.5.8.2) so no decryption
// step belongs here.
func decodeXRefStreamContent(s model.Stream) ([]byte, error) {
	return filters.DecodeStream(s.Args, s.Content)
}

// bypassScan is the fallback used when the startxref chain is too corrupt
// to trust: it scans the whole file line by line for "N G obj" headers
// and the final "trailer" dict, assuming a single, non-incremental file.
func bypassScan(data []byte, strict bool, warn model.WarningSink) (Table, Trailer, error) {
	if err := model.Report(warn, strict, "xref", "falling back to a line scan of the whole file"); err != nil {
		return nil, Trailer{}, err
	}

	table := Table{0: {Free: true, Generation: 65535}}
	var trailer Trailer

	lines := splitLinesWithOffsets(data)
	withinObj := false
	for idx := 0; idx < len(lines); idx++ {
		line, offset := lines[idx].data, lines[idx].offset
		tk := tok.NewTokenizer(line)
		first, _ := tk.PeekToken()

		if withinObj {
			if first.Kind == tok.Other && first.Value == "endobj" {
				withinObj = false
			}
			continue
		}
		if first.Kind == tok.Other && first.Value == "trailer" {
			tk.NextToken()
			rest := line[tk.Pos():]
			for i := idx + 1; i < len(lines) && len(rest) == 0; i++ {
				rest = lines[i].data
			}
			p := parser.NewParser(rest)
			obj, err := p.ParseObject()
			if err != nil {
				continue
			}
			if dict, ok := obj.(model.Dict); ok {
				trailer.merge(dict)
			}
			continue
		}

		objNum, _, ok := tryObjectHeader(&tk)
		if ok {
			table[objNum] = Entry{Offset: offset}
			withinObj = true
		}
	}

	if trailer.Root == nil {
		return table, trailer, model.NewError(model.KindMalformed, "xref", "could not locate a /Root entry")
	}
	return table, trailer, nil
}

func tryObjectHeader(tk *tok.Tokenizer) (objNum, gen int, ok bool) {
	save := *tk
	n, err := parseInt(tk)
	if err != nil {
		*tk = save
		return 0, 0, false
	}
	g, err := parseInt(tk)
	if err != nil {
		*tk = save
		return 0, 0, false
	}
	kw, err := tk.NextToken()
	if err != nil || kw.Kind != tok.Other || kw.Value != "obj" {
		*tk = save
		return 0, 0, false
	}
	return n, g, true
}

type offsetLine struct {
	data   []byte
	offset int64
}

func splitLinesWithOffsets(data []byte) []offsetLine {
	var out []offsetLine
	start := 0
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' || data[i] == '\r' {
			if i > start {
				out = append(out, offsetLine{data: data[start:i], offset: int64(start)})
			}
			start = i + 1
		}
	}
	if start < len(data) {
		out = append(out, offsetLine{data: data[start:], offset: int64(start)})
	}
	return out
}
