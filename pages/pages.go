// Package pages implements the Page and PageTree entities: inheritable-
// attribute resolution, the five-box fallback chain, rotation, and the
// resource-merging/content-composition algorithm used by page merges.
//
// It depends only on model, not on the reader or writer packages, so the
// same Page logic serves both a loaded document's pages and a writer's
// own in-progress page objects - both sides need only implement Resolver.
package pages

import (
	"github.com/vellumpdf/pdf/model"
)

// Resolver dereferences an IndirectRef (returning its argument unchanged
// otherwise) and decodes a stream's payload, caching as it sees fit.
// *reader.Document and *writer.Writer both satisfy this interface.
type Resolver interface {
	Resolve(model.Object) (model.Object, error)
	StreamData(ref model.Reference, s model.Stream) ([]byte, error)
}

// inheritableAttrs are the four page-tree attributes that propagate from
// /Pages nodes down to /Page leaves that do not redefine them.
type inheritableAttrs struct {
	Resources, MediaBox, CropBox, Rotate model.Object
}

func (f inheritableAttrs) overlay(dict model.Dict) inheritableAttrs {
	out := f
	if v, ok := dict["Resources"]; ok {
		out.Resources = v
	}
	if v, ok := dict["MediaBox"]; ok {
		out.MediaBox = v
	}
	if v, ok := dict["CropBox"]; ok {
		out.CropBox = v
	}
	if v, ok := dict["Rotate"]; ok {
		out.Rotate = v
	}
	return out
}

func fillIfAbsent(dict model.Dict, key model.Name, value model.Object) {
	if value == nil {
		return
	}
	if _, has := dict[key]; has {
		return
	}
	dict[key] = value
}

// Page is one flattened page: a /Type /Page dict whose inheritable
// attributes have already been completed from the page tree. Ref is the
// page's own indirect reference within its owning document.
type Page struct {
	Resolver Resolver
	Ref      model.Reference
	Dict     model.Dict
}

// Flatten walks the /Pages tree rooted at ref depth-first and returns
// every leaf page in document order.
func Flatten(r Resolver, ref model.Reference) ([]*Page, error) {
	var out []*Page
	visited := map[model.Reference]bool{}
	if err := walk(r, ref, inheritableAttrs{}, visited, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func walk(r Resolver, ref model.Reference, frame inheritableAttrs, visited map[model.Reference]bool, out *[]*Page) error {
	if visited[ref] {
		return nil // cyclic /Kids, tolerate silently
	}
	visited[ref] = true

	obj, err := r.Resolve(model.IndirectRef{Ref: ref})
	if err != nil {
		return err
	}
	dict, ok := obj.(model.Dict)
	if !ok {
		return model.NewError(model.KindMalformed, "pages", "object %d is not a dict", ref.Number)
	}

	newFrame := frame.overlay(dict)

	kidsObj, err := r.Resolve(dict.Lookup("Kids"))
	if err != nil {
		return err
	}
	kids, isNode := kidsObj.(model.Array)
	if !isNode {
		completed := dict.Clone().(model.Dict)
		fillIfAbsent(completed, "Resources", newFrame.Resources)
		fillIfAbsent(completed, "MediaBox", newFrame.MediaBox)
		fillIfAbsent(completed, "CropBox", newFrame.CropBox)
		fillIfAbsent(completed, "Rotate", newFrame.Rotate)
		*out = append(*out, &Page{Resolver: r, Ref: ref, Dict: completed})
		return nil
	}

	for _, k := range kids {
		kref, ok := k.(model.IndirectRef)
		if !ok {
			continue
		}
		if err := walk(r, kref.Ref, newFrame, visited, out); err != nil {
			return err
		}
	}
	return nil
}

// box resolves a rectangle-valued key, trying fallbacks in order.
func (p *Page) box(key model.Name, fallbacks ...model.Name) (model.Rectangle, error) {
	keys := append([]model.Name{key}, fallbacks...)
	for _, k := range keys {
		v, ok := p.Dict[k]
		if !ok {
			continue
		}
		resolved, err := p.Resolver.Resolve(v)
		if err != nil {
			return model.Rectangle{}, err
		}
		arr, ok := resolved.(model.Array)
		if !ok {
			continue
		}
		rect, ok := model.RectangleFromArray(arr)
		if !ok {
			continue
		}
		return rect, nil
	}
	return model.Rectangle{}, model.NewError(model.KindMalformed, "page", "no %s (or fallback) box present", key)
}

// MediaBox has no fallback: a missing /MediaBox is a malformed document.
func (p *Page) MediaBox() (model.Rectangle, error) { return p.box("MediaBox") }

// CropBox falls back to MediaBox.
func (p *Page) CropBox() (model.Rectangle, error) { return p.box("CropBox", "MediaBox") }

// BleedBox, TrimBox and ArtBox fall back to CropBox, then MediaBox.
func (p *Page) BleedBox() (model.Rectangle, error) { return p.box("BleedBox", "CropBox", "MediaBox") }
func (p *Page) TrimBox() (model.Rectangle, error)  { return p.box("TrimBox", "CropBox", "MediaBox") }
func (p *Page) ArtBox() (model.Rectangle, error)   { return p.box("ArtBox", "CropBox", "MediaBox") }

// SetMediaBox assigns this page's own /MediaBox.
func (p *Page) SetMediaBox(r model.Rectangle) { p.Dict["MediaBox"] = r.ToArray() }

// Rotate returns the page's effective clockwise rotation, defaulting to 0.
func (p *Page) Rotate() model.Rotation {
	v, ok := p.Dict["Rotate"]
	if !ok {
		return model.Zero
	}
	n, ok := model.AsInt(v)
	if !ok {
		return model.Zero
	}
	return model.NewRotation(n)
}

// RotateClockwise rotates the page by degrees clockwise, in place. Four
// 90-degree rotations are the identity mod 360.
func (p *Page) RotateClockwise(degrees int) {
	newRotation := model.NewRotation(int(p.Rotate()) + degrees)
	p.Dict["Rotate"] = model.Integer(int(newRotation))
}

// Resources resolves the page's (possibly inherited) resource dictionary.
func (p *Page) Resources() (model.Dict, error) {
	v, ok := p.Dict["Resources"]
	if !ok {
		return model.Dict{}, nil
	}
	resolved, err := p.Resolver.Resolve(v)
	if err != nil {
		return nil, err
	}
	dict, _ := resolved.(model.Dict)
	if dict == nil {
		dict = model.Dict{}
	}
	return dict, nil
}

// SetResources assigns this page's own /Resources.
func (p *Page) SetResources(d model.Dict) { p.Dict["Resources"] = d }

// Contents returns the page's decoded, concatenated content stream bytes.
// /Contents may be a single stream or an array of streams (PDF §7.8.2);
// array elements are joined with a newline, matching how viewers treat
// them as one continuous token stream.
func (p *Page) Contents() ([]byte, error) {
	v, ok := p.Dict["Contents"]
	if !ok {
		return nil, nil
	}
	resolved, err := p.Resolver.Resolve(v)
	if err != nil {
		return nil, err
	}

	switch c := resolved.(type) {
	case model.Stream:
		ref, _ := v.(model.IndirectRef)
		return p.Resolver.StreamData(ref.Ref, c)
	case model.Array:
		var out []byte
		for i, el := range c {
			streamObj, err := p.Resolver.Resolve(el)
			if err != nil {
				return nil, err
			}
			stream, ok := streamObj.(model.Stream)
			if !ok {
				continue
			}
			ref, _ := el.(model.IndirectRef)
			data, err := p.Resolver.StreamData(ref.Ref, stream)
			if err != nil {
				return nil, err
			}
			if i > 0 {
				out = append(out, '\n')
			}
			out = append(out, data...)
		}
		return out, nil
	default:
		return nil, nil
	}
}

// SetContents replaces /Contents with a single, uncompressed stream.
// Callers wanting compression call CompressContentStreams afterwards.
func (p *Page) SetContents(data []byte) {
	p.Dict["Contents"] = model.NewStream(data, nil)
}

// Annotations resolves the page's /Annots array, skipping unresolvable
// entries rather than failing the whole page.
func (p *Page) Annotations() ([]model.Dict, error) {
	v, ok := p.Dict["Annots"]
	if !ok {
		return nil, nil
	}
	resolved, err := p.Resolver.Resolve(v)
	if err != nil {
		return nil, err
	}
	arr, ok := resolved.(model.Array)
	if !ok {
		return nil, nil
	}
	var out []model.Dict
	for _, el := range arr {
		annObj, err := p.Resolver.Resolve(el)
		if err != nil {
			continue
		}
		if dict, ok := annObj.(model.Dict); ok {
			out = append(out, dict)
		}
	}
	return out, nil
}
