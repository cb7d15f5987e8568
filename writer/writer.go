// Package writer assembles a fresh indirect-object table (1-based object
// numbers) and emits it as a classical-xref PDF file, mirroring the reader
// package's Document the other way around: where Document lazily
// dereferences bytes already on disk, Writer eagerly owns an in-memory
// object graph and serializes it.
//
// It implements pages.Resolver so the same Page type (box fallback,
// rotation, resource merge, text extraction) works identically whether a
// page came from a loaded Document or was built fresh here.
package writer

import (
	"crypto/rand"
	"io"

	"github.com/vellumpdf/pdf/filters"
	"github.com/vellumpdf/pdf/model"
	"github.com/vellumpdf/pdf/pages"
)

// Writer owns an ordered, 1-indexed object table. objects[0] is never
// used (object 0 is reserved for the free-list head, as in any xref
// table); real objects start at index 1.
type Writer struct {
	objects []model.Object

	extern map[externKey]int

	pagesRoot int
	pageRefs  []int

	root int // object number of the catalog, allocated lazily by Write
	info model.Dict

	namedDests   map[string]pages.Destination
	outlineRoot  int
	outlineFirst int
	outlineLast  int
	outlineCount int

	encryptObj int // object number of /Encrypt, 0 if the output is unencrypted
	encryptKey []byte
	fileID     [16]byte
}

// externKey identifies one foreign object reached while importing a page
// or resource graph from a different Resolver (most often another
// Document). The same foreign object is never imported twice.
type externKey struct {
	src pages.Resolver
	ref model.Reference
}

// New returns an empty Writer ready to receive pages.
func New() *Writer {
	w := &Writer{
		objects: make([]model.Object, 1, 64),
		extern:  map[externKey]int{},
		info:    model.Dict{},
	}
	// an all-zero id is an acceptable, if inelegant, fallback if the host
	// has no entropy source; it never breaks correctness.
	_, _ = rand.Read(w.fileID[:])
	return w
}

// allocate reserves the next object number, leaving its slot nil until
// the caller fills it in.
func (w *Writer) allocate() int {
	w.objects = append(w.objects, nil)
	return len(w.objects) - 1
}

// set installs obj at an already-allocated object number.
func (w *Writer) set(num int, obj model.Object) { w.objects[num] = obj }

// NewObject allocates and installs a brand-new indirect object owned
// directly by the caller (used for resources a caller builds by hand
// rather than importing from a foreign document), returning its
// reference.
func (w *Writer) NewObject(obj model.Object) model.Reference {
	num := w.allocate()
	w.set(num, obj)
	return model.Reference{Number: num}
}

// Resolve implements pages.Resolver: Writer objects are numbered
// identically to how they are stored, so resolution is a direct slice
// lookup.
func (w *Writer) Resolve(o model.Object) (model.Object, error) {
	ref, ok := o.(model.IndirectRef)
	if !ok {
		return o, nil
	}
	n := ref.Ref.Number
	if n <= 0 || n >= len(w.objects) || w.objects[n] == nil {
		return model.Null{}, nil
	}
	return w.objects[n], nil
}

// StreamData implements pages.Resolver, decoding s's filter pipeline.
// Writer does not cache decodes: streams it owns are read back rarely
// (only when a caller merges a writer-owned page into another), unlike a
// Document's page content which is read on every dereference.
func (w *Writer) StreamData(_ model.Reference, s model.Stream) ([]byte, error) {
	return filters.DecodeStream(s.Args, s.Content)
}

// sameWriter reports whether r is this exact Writer (so a page already
// living in this object table is registered in place, not re-imported).
func (w *Writer) sameWriter(r pages.Resolver) bool {
	other, ok := r.(*Writer)
	return ok && other == w
}

// importValue copies obj from a foreign Resolver into this Writer's
// object table, remapping every IndirectRef it reaches (transitively) to
// a local object number. It is the cycle-breaking depth-first sweep: a
// placeholder local number is recorded for a foreign reference before its
// children are visited, so a cycle back to that reference resolves to the
// same (by-then fully populated) local object instead of recursing
// forever.
func (w *Writer) importValue(src pages.Resolver, obj model.Object) (model.Object, error) {
	switch v := obj.(type) {
	case model.IndirectRef:
		local, err := w.externRef(src, v.Ref)
		if err != nil {
			return nil, err
		}
		return model.IndirectRef{Ref: model.Reference{Number: local}}, nil
	case model.Array:
		out := make(model.Array, len(v))
		for i, el := range v {
			imported, err := w.importValue(src, el)
			if err != nil {
				return nil, err
			}
			out[i] = imported
		}
		return out, nil
	case model.Dict:
		out := make(model.Dict, len(v))
		for k, el := range v {
			imported, err := w.importValue(src, el)
			if err != nil {
				return nil, err
			}
			out[k] = imported
		}
		return out, nil
	case model.Stream:
		// reached both for an indirect stream, once externRef has resolved
		// it, and for a Stream that shows up as a direct value (e.g. inside
		// an array of content streams); promoteStreams makes the direct
		// ones indirect when the file is written.
		args, err := w.importValue(src, v.Args)
		if err != nil {
			return nil, err
		}
		return model.Stream{Args: args.(model.Dict), Content: append([]byte(nil), v.Content...), Applied: v.Applied}, nil
	default:
		return obj, nil
	}
}

// externRef returns the local object number standing in for (src, ref),
// importing it on first sight.
func (w *Writer) externRef(src pages.Resolver, ref model.Reference) (int, error) {
	if w.sameWriter(src) {
		// already a local reference: no renumbering, no cycle risk beyond
		// what the caller's own graph already tolerates.
		return ref.Number, nil
	}

	key := externKey{src: src, ref: ref}
	if local, ok := w.extern[key]; ok {
		return local, nil
	}

	local := w.allocate()
	w.extern[key] = local

	obj, err := src.Resolve(model.IndirectRef{Ref: ref})
	if err != nil {
		return 0, err
	}

	// copied in on-disk (still encoded) form, matching how every other
	// Stream value in this module is represented.
	imported, err := w.importValue(src, obj)
	if err != nil {
		return 0, err
	}
	w.set(local, imported)
	return local, nil
}

// SetInfo assigns a /Info entry, always stored as a PDF text string
// (UTF-16BE with a BOM when text is not printable ASCII).
func (w *Writer) SetInfo(key model.Name, text string) {
	w.info[key] = model.NewDecodedTextString(model.EncodeTextString(text))
}

// promoteStreams rewrites every Stream that appears as a direct dict or
// array value into an indirect object, so that the emitted file honors
// the PDF rule that streams are always indirect (§7.3.8).
func (w *Writer) promoteStreams() {
	for num := 1; num < len(w.objects); num++ {
		switch v := w.objects[num].(type) {
		case model.Dict:
			w.objects[num] = w.promoteInDict(v)
		case model.Array:
			w.objects[num] = w.promoteInArray(v)
		}
	}
}

func (w *Writer) promoteInDict(d model.Dict) model.Dict {
	for k, el := range d {
		switch v := el.(type) {
		case model.Stream:
			d[k] = model.IndirectRef{Ref: w.NewObject(v)}
		case model.Dict:
			d[k] = w.promoteInDict(v)
		case model.Array:
			d[k] = w.promoteInArray(v)
		}
	}
	return d
}

func (w *Writer) promoteInArray(a model.Array) model.Array {
	for i, el := range a {
		switch v := el.(type) {
		case model.Stream:
			a[i] = model.IndirectRef{Ref: w.NewObject(v)}
		case model.Dict:
			a[i] = w.promoteInDict(v)
		case model.Array:
			a[i] = w.promoteInArray(v)
		}
	}
	return a
}

// Write renders the complete object table as a classical-xref PDF
// (header, numbered objects, xref table, trailer, startxref/%%EOF).
func (w *Writer) Write(dest io.Writer) error {
	w.buildCatalog()
	w.promoteStreams()

	var infoRef *model.Reference
	if len(w.info) > 0 {
		r := w.NewObject(w.info)
		infoRef = &r
	}

	b := model.NewBuffer()
	b.Fmt("%%PDF-1.3\n")

	offsets := make([]int, len(w.objects))
	written := b.Len()

	for num := 1; num < len(w.objects); num++ {
		obj := w.objects[num]
		if obj == nil {
			continue
		}
		offsets[num] = written
		var key []byte
		if w.encryptKey != nil && num != w.encryptObj {
			key = model.ObjectKey(w.encryptKey, model.Reference{Number: num})
		}
		b.Fmt("%d 0 obj\n%s\nendobj\n", num, obj.Write(key))
		written = b.Len()
	}

	startxref := b.Len()
	b.Fmt("xref\n0 %d\n", len(w.objects))
	b.Fmt("0000000000 65535 f \n")
	for num := 1; num < len(w.objects); num++ {
		if w.objects[num] == nil {
			b.Fmt("0000000000 00000 f \n")
			continue
		}
		b.Fmt("%010d 00000 n \n", offsets[num])
	}

	trailer := model.Dict{
		"Size": model.Integer(len(w.objects)),
		"Root": model.IndirectRef{Ref: model.Reference{Number: w.root}},
		"ID":   model.Array{model.NewRawString(w.fileID[:]), model.NewRawString(w.fileID[:])},
	}
	if infoRef != nil {
		trailer["Info"] = model.IndirectRef{Ref: *infoRef}
	}
	if w.encryptObj != 0 {
		trailer["Encrypt"] = model.IndirectRef{Ref: model.Reference{Number: w.encryptObj}}
	}
	b.Fmt("trailer\n%s\nstartxref\n%d\n%%%%EOF", trailer.Write(nil), startxref)

	_, err := dest.Write(b.Bytes())
	return err
}
