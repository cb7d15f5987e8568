package pages

import (
	"github.com/vellumpdf/pdf/contents"
	"github.com/vellumpdf/pdf/filters"
	"github.com/vellumpdf/pdf/model"
	"github.com/vellumpdf/pdf/parser"
)

// resourceCategories are the resource dictionary keys merged independently
// during a page merge; /ProcSet is handled separately as an array union.
var resourceCategories = []model.Name{"ExtGState", "Font", "XObject", "ColorSpace", "Pattern", "Shading", "Properties"}

// renameTable maps an original resource name to its renamed form within
// one category. A flat table is sound because names in different
// categories never collide with each other's renaming.
type renameTable map[model.Name]model.Name

func sameValue(a model.Object, ra Resolver, b model.Object, rb Resolver) bool {
	va, err := ra.Resolve(a)
	if err != nil {
		va = a
	}
	vb, err := rb.Resolve(b)
	if err != nil {
		vb = b
	}
	return va.Write(nil) == vb.Write(nil)
}

// mergeCategory merges other's entries into self's, keeping self's value
// on a name collision with an identical value, and renaming other's entry
// (appending "renamed" until the name is free) on a genuine collision.
// Absent keys are copied from other *without* resolving them, keeping the
// raw reference form to stay compact.
func mergeCategory(self model.Dict, other model.Dict, otherR Resolver, selfResolver Resolver) (model.Dict, renameTable) {
	out := make(model.Dict, len(self))
	for k, v := range self {
		out[k] = v
	}
	renames := renameTable{}
	for key, otherVal := range other {
		selfVal, exists := out[key]
		if !exists {
			out[key] = otherVal
			continue
		}
		if sameValue(selfVal, selfResolver, otherVal, otherR) {
			continue
		}
		newKey := key + "renamed"
		for {
			if _, taken := out[newKey]; !taken {
				break
			}
			newKey += "renamed"
		}
		out[newKey] = otherVal
		renames[key] = newKey
	}
	return out, renames
}

func dictAt(d model.Dict, r Resolver, key model.Name) model.Dict {
	v, ok := d[key]
	if !ok {
		return model.Dict{}
	}
	resolved, err := r.Resolve(v)
	if err != nil {
		return model.Dict{}
	}
	dict, _ := resolved.(model.Dict)
	if dict == nil {
		return model.Dict{}
	}
	return dict
}

func arrayAt(d model.Dict, r Resolver, key model.Name) model.Array {
	v, ok := d[key]
	if !ok {
		return nil
	}
	resolved, err := r.Resolve(v)
	if err != nil {
		return nil
	}
	arr, _ := resolved.(model.Array)
	return arr
}

func procSetUnion(a, b model.Array) model.Array {
	seen := map[model.Name]bool{}
	var out model.Array
	for _, arr := range []model.Array{a, b} {
		for _, el := range arr {
			n, ok := el.(model.Name)
			if !ok || seen[n] {
				continue
			}
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

// renameOperation rewrites every Name operand of op that appears as a key
// in table, leaving everything else unchanged.
func renameOperation(op contents.Operation, table map[model.Name]renameTable) contents.Operation {
	rename := func(category model.Name, n model.Name) model.Name {
		if t, ok := table[category]; ok {
			if renamed, ok := t[n]; ok {
				return renamed
			}
		}
		return n
	}
	switch v := op.(type) {
	case contents.OpSetFont:
		v.Font = rename("Font", v.Font)
		return v
	case contents.OpSetExtGState:
		v.Dict = rename("ExtGState", v.Dict)
		return v
	case contents.OpXObject:
		v.XObject = rename("XObject", v.XObject)
		return v
	case contents.OpSetFillColorSpace:
		v.ColorSpace = rename("ColorSpace", v.ColorSpace)
		return v
	case contents.OpSetStrokeColorSpace:
		v.ColorSpace = rename("ColorSpace", v.ColorSpace)
		return v
	case contents.OpShFill:
		v.Shading = rename("Shading", v.Shading)
		return v
	case contents.OpSetFillColorN:
		if v.Pattern != "" {
			v.Pattern = rename("Pattern", v.Pattern)
		}
		return v
	case contents.OpSetStrokeColorN:
		if v.Pattern != "" {
			v.Pattern = rename("Pattern", v.Pattern)
		}
		return v
	case contents.OpBeginMarkedContent:
		if n, ok := v.Properties.(contents.PropertyListName); ok {
			v.Properties = contents.PropertyListName(rename("Properties", model.Name(n)))
		}
		return v
	case contents.OpMarkPoint:
		if n, ok := v.Properties.(contents.PropertyListName); ok {
			v.Properties = contents.PropertyListName(rename("Properties", model.Name(n)))
		}
		return v
	default:
		return op
	}
}

func reserialize(ops []contents.Operation) []byte {
	return contents.WriteOperations(ops...)
}

func (p *Page) decodedContentOps() ([]contents.Operation, error) {
	data, err := p.Contents()
	if err != nil {
		return nil, err
	}
	return parser.ParseContent(data, false)
}

// MergePage merges other's resources and content into p, optionally
// transforming other's content by transform first, and expanding p's
// MediaBox to cover both pages when expand is set.
func (p *Page) MergePage(other *Page, transform *model.Matrix, expand bool) error {
	selfOps, err := p.decodedContentOps()
	if err != nil {
		return err
	}
	otherOps, err := other.decodedContentOps()
	if err != nil {
		return err
	}

	selfRes, err := p.Resources()
	if err != nil {
		return err
	}
	otherRes, err := other.Resources()
	if err != nil {
		return err
	}

	mergedRes := model.Dict{}
	renames := map[model.Name]renameTable{}
	for _, cat := range resourceCategories {
		merged, table := mergeCategory(dictAt(selfRes, p.Resolver, cat), dictAt(otherRes, other.Resolver, cat), other.Resolver, p.Resolver)
		if len(merged) > 0 {
			mergedRes[cat] = merged
		}
		if len(table) > 0 {
			renames[cat] = table
		}
	}
	if procSet := procSetUnion(arrayAt(selfRes, p.Resolver, "ProcSet"), arrayAt(otherRes, other.Resolver, "ProcSet")); len(procSet) > 0 {
		mergedRes["ProcSet"] = procSet
	}
	// carry over any category not covered above (and anything outside
	// resourceCategories entirely) from self unchanged.
	for k, v := range selfRes {
		if _, handled := mergedRes[k]; !handled {
			mergedRes[k] = v
		}
	}
	p.SetResources(mergedRes)

	rewrittenOther := make([]contents.Operation, len(otherOps))
	for i, op := range otherOps {
		rewrittenOther[i] = renameOperation(op, renames)
	}

	var wrappedOther []contents.Operation
	wrappedOther = append(wrappedOther, contents.OpSave{})
	if transform != nil {
		wrappedOther = append(wrappedOther, contents.OpConcat{Matrix: *transform})
	}
	wrappedOther = append(wrappedOther, rewrittenOther...)
	wrappedOther = append(wrappedOther, contents.OpRestore{})

	var all []contents.Operation
	all = append(all, contents.OpSave{})
	all = append(all, selfOps...)
	all = append(all, contents.OpRestore{})
	all = append(all, wrappedOther...)

	p.SetContents(reserialize(all))

	if expand {
		otherBox, err := other.MediaBox()
		if err != nil {
			return err
		}
		rect := transformedBox(otherBox, transform)
		selfBox, err := p.MediaBox()
		if err != nil {
			return err
		}
		p.SetMediaBox(selfBox.Union(rect))
	}
	return nil
}

// transformedBox pushes box's four corners through transform (identity
// when nil) and returns their axis-aligned bounding rectangle.
func transformedBox(box model.Rectangle, transform *model.Matrix) model.Rectangle {
	if transform == nil {
		return box
	}
	corners := [4][2]model.Fl{
		{box.Llx, box.Lly}, {box.Urx, box.Lly}, {box.Urx, box.Ury}, {box.Llx, box.Ury},
	}
	m := *transform
	apply := func(x, y model.Fl) (model.Fl, model.Fl) {
		return x*m[0] + y*m[2] + m[4], x*m[1] + y*m[3] + m[5]
	}
	x0, y0 := apply(corners[0][0], corners[0][1])
	out := model.Rectangle{Llx: x0, Lly: y0, Urx: x0, Ury: y0}
	for _, c := range corners[1:] {
		x, y := apply(c[0], c[1])
		out.Llx = minFl(out.Llx, x)
		out.Lly = minFl(out.Lly, y)
		out.Urx = maxFl(out.Urx, x)
		out.Ury = maxFl(out.Ury, y)
	}
	return out
}

func minFl(a, b model.Fl) model.Fl {
	if a < b {
		return a
	}
	return b
}
func maxFl(a, b model.Fl) model.Fl {
	if a > b {
		return a
	}
	return b
}

// CompressContentStreams concatenates all of a page's content parts and
// re-emits them as a single FlateDecode stream.
func (p *Page) CompressContentStreams() error {
	data, err := p.Contents()
	if err != nil {
		return err
	}
	encoded, err := filters.Encode(filters.FlateDecode, data)
	if err != nil {
		return err
	}
	p.Dict["Contents"] = model.NewStream(encoded, []model.Filter{{Name: model.Name(filters.FlateDecode)}})
	return nil
}

// ExtractText dispatches on the page's content operators: Tj/'/"/TJ show
// text, '/" and T* each emit a leading newline.
func (p *Page) ExtractText() (string, error) {
	ops, err := p.decodedContentOps()
	if err != nil {
		return "", err
	}
	var out []byte
	for _, op := range ops {
		switch v := op.(type) {
		case contents.OpShowText:
			out = append(out, v.Text...)
		case contents.OpMoveShowText:
			out = append(out, '\n')
			out = append(out, v.Text...)
		case contents.OpMoveSetShowText:
			out = append(out, '\n')
			out = append(out, v.Text...)
		case contents.OpTextNextLine:
			out = append(out, '\n')
		case contents.OpShowSpaceText:
			for _, ts := range v.Texts {
				out = append(out, ts.Text...)
			}
		}
	}
	return string(out), nil
}
