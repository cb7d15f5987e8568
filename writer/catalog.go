package writer

import (
	"sort"

	"github.com/vellumpdf/pdf/model"
	"github.com/vellumpdf/pdf/pages"
)

// buildCatalog finalizes the /Pages tree's /Kids and /Count and assembles
// the document catalog, allocating it as the trailer's /Root. Called once,
// from Write, after every page/destination/bookmark has been registered.
func (w *Writer) buildCatalog() {
	w.ensurePagesRoot()

	kids := make(model.Array, len(w.pageRefs))
	for i, n := range w.pageRefs {
		kids[i] = model.IndirectRef{Ref: model.Reference{Number: n}}
	}
	w.set(w.pagesRoot, model.Dict{
		"Type":  model.Name("Pages"),
		"Kids":  kids,
		"Count": model.Integer(len(kids)),
	})

	catalog := model.Dict{
		"Type":  model.Name("Catalog"),
		"Pages": model.IndirectRef{Ref: model.Reference{Number: w.pagesRoot}},
	}
	if len(w.namedDests) > 0 {
		catalog["Names"] = model.Dict{"Dests": model.IndirectRef{Ref: model.Reference{Number: w.buildNameTree()}}}
	}
	if w.outlineFirst != 0 {
		catalog["Outlines"] = model.IndirectRef{Ref: model.Reference{Number: w.outlineRootObj()}}
	}
	w.root = w.NewObject(catalog).Number
}

// buildNameTree emits a single-level name tree (PDF §7.9.6) holding every
// registered named destination, sorted by name as name trees require.
func (w *Writer) buildNameTree() int {
	names := make([]string, 0, len(w.namedDests))
	for k := range w.namedDests {
		names = append(names, k)
	}
	sort.Strings(names)

	arr := make(model.Array, 0, len(names)*2)
	for _, name := range names {
		arr = append(arr, model.NewRawString([]byte(name)), w.namedDests[name].Format())
	}
	return w.NewObject(model.Dict{"Names": arr}).Number
}

// AddNamedDestination registers name as resolving to dest once written.
// dest.Page is overwritten with page's own reference regardless of what it
// was set to, since a destination created this way always targets an
// already-known writer page.
func (w *Writer) AddNamedDestination(name string, page *pages.Page, dest pages.Destination) error {
	if !w.sameWriter(page.Resolver) {
		return model.NewError(model.KindMalformed, "writer", "destination page must belong to this writer")
	}
	dest.Page = model.IndirectRef{Ref: page.Ref}
	if w.namedDests == nil {
		w.namedDests = map[string]pages.Destination{}
	}
	w.namedDests[name] = dest
	return nil
}

// AddBookmark appends an outline entry titled title that opens on page,
// fit with /FitH 826 (the conventional "top of page, fit width" view used
// throughout this helper). parent is the object number returned by an
// earlier AddBookmark call to nest under it, or 0 for a top-level entry.
// It returns this bookmark's object number so a later call can nest under
// it in turn.
func (w *Writer) AddBookmark(title string, page *pages.Page, parent int) (int, error) {
	if !w.sameWriter(page.Resolver) {
		return 0, model.NewError(model.KindMalformed, "writer", "bookmark page must belong to this writer")
	}
	dest := pages.Destination{
		Page:     model.IndirectRef{Ref: page.Ref},
		Fit:      pages.FitFitH,
		Operands: []model.Object{model.Integer(826)},
	}
	num := w.allocate()
	w.set(num, model.Dict{
		"Title": model.NewDecodedTextString(model.EncodeTextString(title)),
		"A":     model.Dict{"S": model.Name("GoTo"), "D": dest.Format()},
	})

	if parent != 0 {
		w.linkOutlineChild(parent, num)
	} else {
		w.linkOutlineSibling(num)
	}
	return num, nil
}

func (w *Writer) cloneDict(num int) model.Dict {
	return w.objects[num].(model.Dict).Clone().(model.Dict)
}

func (w *Writer) linkOutlineSibling(num int) {
	if w.outlineFirst == 0 {
		w.outlineFirst = num
	} else {
		prev := w.cloneDict(w.outlineLast)
		prev["Next"] = model.IndirectRef{Ref: model.Reference{Number: num}}
		w.set(w.outlineLast, prev)

		cur := w.cloneDict(num)
		cur["Prev"] = model.IndirectRef{Ref: model.Reference{Number: w.outlineLast}}
		w.set(num, cur)
	}
	w.outlineLast = num
	w.outlineCount++
}

func (w *Writer) linkOutlineChild(parent, num int) {
	parentDict := w.cloneDict(parent)

	if _, hasChildren := parentDict["First"]; !hasChildren {
		parentDict["First"] = model.IndirectRef{Ref: model.Reference{Number: num}}
	} else {
		lastNum := parentDict["Last"].(model.IndirectRef).Ref.Number
		lastDict := w.cloneDict(lastNum)
		lastDict["Next"] = model.IndirectRef{Ref: model.Reference{Number: num}}
		w.set(lastNum, lastDict)

		cur := w.cloneDict(num)
		cur["Prev"] = model.IndirectRef{Ref: model.Reference{Number: lastNum}}
		w.set(num, cur)
	}
	parentDict["Last"] = model.IndirectRef{Ref: model.Reference{Number: num}}
	count, _ := parentDict["Count"].(model.Integer)
	parentDict["Count"] = count + 1
	w.set(parent, parentDict)

	cur := w.cloneDict(num)
	cur["Parent"] = model.IndirectRef{Ref: model.Reference{Number: parent}}
	w.set(num, cur)
}

func (w *Writer) outlineRootObj() int {
	if w.outlineRoot != 0 {
		return w.outlineRoot
	}
	w.outlineRoot = w.NewObject(model.Dict{
		"Type":  model.Name("Outlines"),
		"First": model.IndirectRef{Ref: model.Reference{Number: w.outlineFirst}},
		"Last":  model.IndirectRef{Ref: model.Reference{Number: w.outlineLast}},
		"Count": model.Integer(w.outlineCount),
	}).Number
	return w.outlineRoot
}
