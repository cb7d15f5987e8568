// Package reader implements the reader façade: the indirect-object
// cache, lazy dereferencing (including through object streams), the
// decryption override for the /Encrypt dictionary itself, and the
// zero-indexing correction pass for classical xref tables that forgot
// their leading free entry.
package reader

import (
	"fmt"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/log"

	"github.com/vellumpdf/pdf/filters"
	"github.com/vellumpdf/pdf/model"
	"github.com/vellumpdf/pdf/parser"
	tok "github.com/vellumpdf/pdf/pdftokenizer"
	"github.com/vellumpdf/pdf/xref"
)

// Document is a loaded PDF: the merged xref table/trailer plus a lazily
// populated cache of resolved objects. It is not safe for concurrent use;
// callers wanting parallelism should open one Document per goroutine.
type Document struct {
	data    []byte
	Strict  bool
	Warn    model.WarningSink

	table   xref.Table
	trailer xref.Trailer

	cache       map[model.Reference]model.Object
	objStmCache map[int]objStmEntries // object stream number -> its packed objects
	streamCache map[model.Reference][]byte // decoded stream data, keyed by owning reference

	zeroIndexChecked bool

	security   *model.RC4SecurityHandler
	encryptKey []byte  // non-nil once Decrypt succeeds
	encryptRef *model.Reference
	ownerHash  [32]byte
	userHash   [32]byte
}

type objStmEntries struct {
	objects map[int]model.Object
}

// Options configures a new Document.
type Options struct {
	Strict bool
	Warn   model.WarningSink
}

// Open parses data's trailing xref chain and returns a ready-to-use
// Document. It does not eagerly resolve any object beyond the trailer.
func Open(data []byte, opts Options) (*Document, error) {
	table, trailer, err := xref.Load(data, opts.Strict, opts.Warn)
	if err != nil {
		return nil, err
	}
	d := &Document{
		data:        data,
		Strict:      opts.Strict,
		Warn:        opts.Warn,
		table:       table,
		trailer:     trailer,
		cache:       map[model.Reference]model.Object{},
		objStmCache: map[int]objStmEntries{},
		streamCache: map[model.Reference][]byte{},
	}
	if ref, ok := trailer.Encrypt.(model.IndirectRef); ok {
		r := ref.Ref
		d.encryptRef = &r
	}
	log.Read.Printf("reader: opened document, %d bytes, encrypted: %v\n", len(data), d.NeedsPassword())
	return d, nil
}

// Root returns the dereferenced /Root (document catalog) dict.
func (d *Document) Root() (model.Dict, error) {
	if d.trailer.Root == nil {
		return nil, model.NewError(model.KindMalformed, "trailer", "missing /Root")
	}
	obj, err := d.GetObject(*d.trailer.Root)
	if err != nil {
		return nil, err
	}
	dict, ok := obj.(model.Dict)
	if !ok {
		return nil, model.NewError(model.KindMalformed, "trailer", "/Root is not a dict")
	}
	return dict, nil
}

// Info returns the dereferenced /Info dict, or nil if absent.
func (d *Document) Info() (model.Dict, error) {
	if d.trailer.Info == nil {
		return nil, nil
	}
	obj, err := d.GetObject(*d.trailer.Info)
	if err != nil {
		return nil, err
	}
	dict, _ := obj.(model.Dict)
	return dict, nil
}

// NeedsPassword reports whether the document is protected by the Standard
// Security Handler.
func (d *Document) NeedsPassword() bool { return d.trailer.Encrypt != nil }

// Metadata returns the document-level XMP metadata stream as an opaque
// byte blob, or nil when the catalog carries none. The XML inside is
// deliberately not interpreted.
func (d *Document) Metadata() ([]byte, error) {
	root, err := d.Root()
	if err != nil {
		return nil, err
	}
	ref, ok := root.Lookup("Metadata").(model.IndirectRef)
	if !ok {
		return nil, nil
	}
	obj, err := d.GetObject(ref.Ref)
	if err != nil {
		return nil, err
	}
	stream, ok := obj.(model.Stream)
	if !ok {
		return nil, nil
	}
	return d.StreamData(ref.Ref, stream)
}

// Resolve dereferences o one level if it is an IndirectRef, otherwise
// returns it unchanged. The result of GetObject is never itself an
// IndirectRef (auto-deref is one level deep per call but callers walking a
// chain of references call Resolve repeatedly, as real PDFs never chain
// indirect references more than once).
func (d *Document) Resolve(o model.Object) (model.Object, error) {
	ref, ok := o.(model.IndirectRef)
	if !ok {
		return o, nil
	}
	return d.GetObject(ref.Ref)
}

// ResolveDict is Resolve, asserting the result is a Dict (or Null -> nil).
func (d *Document) ResolveDict(o model.Object) (model.Dict, error) {
	v, err := d.Resolve(o)
	if err != nil {
		return nil, err
	}
	dict, ok := v.(model.Dict)
	if !ok {
		return nil, nil
	}
	return dict, nil
}

// GetObject resolves (id, gen), consulting the cache first.
func (d *Document) GetObject(ref model.Reference) (model.Object, error) {
	if obj, ok := d.cache[ref]; ok {
		return obj, nil
	}

	d.maybeCorrectZeroIndex()

	entry, ok := d.table[ref.Number]
	if !ok || entry.Free {
		return model.Null{}, nil
	}

	var obj model.Object
	var err error
	if entry.StreamObjectNumber != 0 {
		obj, err = d.getCompressedObject(entry)
	} else {
		obj, err = d.parseAtOffset(ref.Number, entry.Offset)
	}
	if err != nil {
		return nil, err
	}

	if d.encryptKey != nil && entry.StreamObjectNumber == 0 && (d.encryptRef == nil || *d.encryptRef != ref) {
		obj = decryptObject(obj, model.ObjectKey(d.encryptKey, ref))
	}

	d.cache[ref] = obj
	return obj, nil
}

// parseAtOffset reads the "id gen obj ... endobj" record at a byte offset
// and parses exactly one object from it.
func (d *Document) parseAtOffset(wantID int, offset int64) (model.Object, error) {
	if offset < 0 || int(offset) >= len(d.data) {
		return nil, model.NewError(model.KindMalformed, "object", "offset %d out of range for object %d", offset, wantID)
	}
	section := d.data[offset:]
	tk := tok.NewTokenizer(section)

	idTok, err := tk.NextToken()
	if err != nil || idTok.Kind != tok.Integer {
		return nil, model.NewError(model.KindMalformed, "object", "expected object number at offset %d", offset)
	}
	gotID, _ := strconv.Atoi(idTok.Value)
	if _, err := tk.NextToken(); err != nil { // generation
		return nil, model.NewError(model.KindMalformed, "object", "expected generation at offset %d", offset)
	}
	objKw, err := tk.NextToken()
	if err != nil || objKw.Kind != tok.Other || objKw.Value != "obj" {
		return nil, model.NewError(model.KindMalformed, "object", "expected \"obj\" keyword at offset %d", offset)
	}

	if gotID != wantID {
		if err := model.Report(d.Warn, d.Strict, "object", fmt.Sprintf("object header id %d does not match expected %d", gotID, wantID)); err != nil {
			return nil, err
		}
	}

	p := parser.NewParser(section[tk.Pos():])
	p.Strict = d.Strict
	p.LengthResolver = func(o model.Object) int {
		ref, ok := o.(model.IndirectRef)
		if !ok {
			return 0
		}
		resolved, err := d.GetObject(ref.Ref)
		if err != nil {
			return 0
		}
		n, _ := model.AsInt(resolved)
		return n
	}
	return p.ParseObject()
}

// StreamData returns s's decoded payload, applying its filter pipeline on
// first access and caching the result against ref (the stream's owning
// indirect reference) until the Document is dropped.
func (d *Document) StreamData(ref model.Reference, s model.Stream) ([]byte, error) {
	if data, ok := d.streamCache[ref]; ok {
		return data, nil
	}
	data, err := filters.DecodeStream(s.Args, s.Content)
	if err != nil {
		return nil, err
	}
	d.streamCache[ref] = data
	return data, nil
}

// DecodeStreamContent applies s's filter pipeline without any caching;
// used for streams that are not (yet) indirect objects of this document,
// such as a freshly composed page content stream.
func DecodeStreamContent(s model.Stream) ([]byte, error) {
	return filters.DecodeStream(s.Args, s.Content)
}

// getCompressedObject loads (and caches) the object stream holding entry,
// then returns the Nth packed object.
func (d *Document) getCompressedObject(entry xref.Entry) (model.Object, error) {
	entries, ok := d.objStmCache[entry.StreamObjectNumber]
	if !ok {
		loaded, err := d.loadObjectStream(entry.StreamObjectNumber)
		if err != nil {
			return nil, err
		}
		entries = loaded
		d.objStmCache[entry.StreamObjectNumber] = entries
	}
	obj, ok := entries.objects[entry.StreamObjectIndex]
	if !ok {
		return model.Null{}, nil
	}
	return obj, nil
}

func (d *Document) loadObjectStream(streamNumber int) (objStmEntries, error) {
	obj, err := d.GetObject(model.Reference{Number: streamNumber})
	if err != nil {
		return objStmEntries{}, err
	}
	stream, ok := obj.(model.Stream)
	if !ok {
		return objStmEntries{}, model.NewError(model.KindMalformed, "objstm", "object %d is not a stream", streamNumber)
	}

	data, err := filters.DecodeStream(stream.Args, stream.Content)
	if err != nil {
		return objStmEntries{}, err
	}

	n, _ := model.AsInt(stream.Args.Lookup("N"))
	first, _ := model.AsInt(stream.Args.Lookup("First"))

	headerTk := tok.NewTokenizer(data[:first])
	type pair struct{ num, offset int }
	pairs := make([]pair, 0, n)
	for i := 0; i < n; i++ {
		numTok, err := headerTk.NextToken()
		if err != nil {
			return objStmEntries{}, err
		}
		offTok, err := headerTk.NextToken()
		if err != nil {
			return objStmEntries{}, err
		}
		num, _ := strconv.Atoi(numTok.Value)
		off, _ := strconv.Atoi(offTok.Value)
		pairs = append(pairs, pair{num, off})
	}

	objects := make(map[int]model.Object, n)
	for i, pr := range pairs {
		start := first + pr.offset
		if start > len(data) {
			continue
		}
		p := parser.NewParser(data[start:])
		p.Strict = d.Strict
		obj, err := p.ParseObject()
		if err != nil {
			return objStmEntries{}, fmt.Errorf("objstm %d: entry %d (object %d): %w", streamNumber, i, pr.num, err)
		}
		objects[i] = obj
		// populate the regular cache too, since a compressed object may
		// also be looked up directly by (num, 0).
		d.cache[model.Reference{Number: pr.num}] = obj
	}
	return objStmEntries{objects: objects}, nil
}

// maybeCorrectZeroIndex compensates for a malformed classical xref whose
// first subsection started at a non-zero object id: if the object header
// found at the lowest concrete offset disagrees with its stored key by a
// constant delta, every key in the table is shifted by that delta. Run
// lazily, once, before the first real dereference.
func (d *Document) maybeCorrectZeroIndex() {
	if d.zeroIndexChecked {
		return
	}
	d.zeroIndexChecked = true
	if d.Strict {
		// strict mode never rewrites the table; a mislabeled subsection
		// surfaces as a header mismatch on dereference instead
		return
	}

	// find the lowest object number with a concrete file offset
	lowest := -1
	for num, e := range d.table {
		if e.Free || e.StreamObjectNumber != 0 {
			continue
		}
		if lowest == -1 || num < lowest {
			lowest = num
		}
	}
	if lowest <= 0 {
		return
	}

	entry := d.table[lowest]
	if entry.Offset < 0 || int(entry.Offset) >= len(d.data) {
		return
	}
	tk := tok.NewTokenizer(d.data[entry.Offset:])
	idTok, err := tk.NextToken()
	if err != nil || idTok.Kind != tok.Integer {
		return
	}
	headerID, err := strconv.Atoi(idTok.Value)
	if err != nil {
		return
	}

	delta := headerID - lowest
	if delta == 0 {
		return
	}
	if err := model.Report(d.Warn, false, "xref", fmt.Sprintf("xref table is not zero-indexed, shifting by %d", delta)); err != nil {
		return
	}

	shifted := make(xref.Table, len(d.table))
	for num, e := range d.table {
		shifted[num+delta] = e
	}
	d.table = shifted
}

// decryptObject walks obj recursively, RC4-decrypting every String and
// Stream payload found (arrays and dicts are walked transparently;
// IndirectRef children are left alone, since they are decrypted with
// their own object's key on their own dereference).
func decryptObject(obj model.Object, key []byte) model.Object {
	switch v := obj.(type) {
	case model.String:
		v.Raw = model.RC4Apply(key, v.Raw)
		return v
	case model.Stream:
		v.Content = model.RC4Apply(key, v.Content)
		v.Args = decryptObject(v.Args, key).(model.Dict)
		return v
	case model.Array:
		out := make(model.Array, len(v))
		for i, el := range v {
			out[i] = decryptObject(el, key)
		}
		return out
	case model.Dict:
		out := make(model.Dict, len(v))
		for k, el := range v {
			out[k] = decryptObject(el, key)
		}
		return out
	default:
		return obj
	}
}
