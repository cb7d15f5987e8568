package writer

import (
	"github.com/vellumpdf/pdf/model"
	"github.com/vellumpdf/pdf/pages"
)

// ensurePagesRoot allocates the /Pages tree root the first time it is
// needed; its /Kids and /Count are filled in lazily by buildCatalog once
// every page has been added.
func (w *Writer) ensurePagesRoot() {
	if w.pagesRoot != 0 {
		return
	}
	w.pagesRoot = w.allocate()
	w.set(w.pagesRoot, model.Dict{"Type": model.Name("Pages")})
}

// AddPage registers p as the next page of the output document. When p
// already lives in this Writer (e.g. it was built with CreateBlankPage, or
// came from an earlier AddPage call), it is registered in place; otherwise
// its dict and everything it transitively references is imported from its
// own Resolver.
func (w *Writer) AddPage(p *pages.Page) (*pages.Page, error) {
	w.ensurePagesRoot()

	var localNum int
	if w.sameWriter(p.Resolver) {
		localNum = p.Ref.Number
		if localNum <= 0 || localNum >= len(w.objects) || w.objects[localNum] == nil {
			return nil, model.NewError(model.KindMalformed, "writer", "page is not a registered writer object")
		}
	} else {
		// seed the extern map with the page itself before importing, so
		// anything referencing the page back (annotations, the /Parent
		// chain) resolves to this copy instead of importing a second one
		localNum = w.allocate()
		w.extern[externKey{src: p.Resolver, ref: p.Ref}] = localNum
		imported, err := w.importValue(p.Resolver, p.Dict)
		if err != nil {
			return nil, err
		}
		dict, ok := imported.(model.Dict)
		if !ok {
			return nil, model.NewError(model.KindMalformed, "writer", "page is not a dict")
		}
		w.set(localNum, dict)
	}

	dict := w.objects[localNum].(model.Dict).Clone().(model.Dict)
	dict["Parent"] = model.IndirectRef{Ref: model.Reference{Number: w.pagesRoot}}
	w.set(localNum, dict)
	w.pageRefs = append(w.pageRefs, localNum)

	return &pages.Page{Resolver: w, Ref: model.Reference{Number: localNum}, Dict: dict}, nil
}

// CreateBlankPage allocates a fresh, empty page sized box, without adding
// it to the document yet (callers typically draw into it or merge another
// page into it before calling AddPage). mediaBox is required: unlike
// AddBlankPage there is no page to inherit a size from.
func (w *Writer) CreateBlankPage(mediaBox model.Rectangle) *pages.Page {
	num := w.allocate()
	dict := model.Dict{
		"Type":      model.Name("Page"),
		"MediaBox":  mediaBox.ToArray(),
		"Resources": model.Dict{},
		"Contents":  model.NewStream(nil, nil),
	}
	w.set(num, dict)
	return &pages.Page{Resolver: w, Ref: model.Reference{Number: num}, Dict: dict}
}

// AddBlankPage creates a blank page and appends it directly. When
// mediaBox is nil, the size is inherited from the most recently added
// page; if there is no prior page to inherit from, the page size is
// genuinely undefined and AddBlankPage fails with KindPageSizeNotDefined
// rather than guessing a paper size.
func (w *Writer) AddBlankPage(mediaBox *model.Rectangle) (*pages.Page, error) {
	box, err := w.resolveBlankPageSize(mediaBox)
	if err != nil {
		return nil, err
	}
	return w.AddPage(w.CreateBlankPage(box))
}

func (w *Writer) resolveBlankPageSize(explicit *model.Rectangle) (model.Rectangle, error) {
	if explicit != nil {
		return *explicit, nil
	}
	if len(w.pageRefs) > 0 {
		last, _ := w.objects[w.pageRefs[len(w.pageRefs)-1]].(model.Dict)
		if arr, ok := last["MediaBox"].(model.Array); ok {
			if rect, ok := model.RectangleFromArray(arr); ok {
				return rect, nil
			}
		}
	}
	return model.Rectangle{}, model.NewError(model.KindPageSizeNotDefined, "writer", "no explicit page size given and no prior page to inherit one from")
}
