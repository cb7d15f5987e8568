package reader

import (
	"github.com/vellumpdf/pdf/model"
	"github.com/vellumpdf/pdf/pages"
)

// Pages walks the document's /Pages tree and returns every leaf page in
// document order.
func (d *Document) Pages() ([]*pages.Page, error) {
	root, err := d.Root()
	if err != nil {
		return nil, err
	}
	ref, ok := root.Lookup("Pages").(model.IndirectRef)
	if !ok {
		return nil, model.NewError(model.KindMalformed, "catalog", "/Root/Pages is not an indirect reference")
	}
	return pages.Flatten(d, ref.Ref)
}

// NumPages is len(Pages()).
func (d *Document) NumPages() (int, error) {
	p, err := d.Pages()
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

// GetPage returns the 0-indexed page.
func (d *Document) GetPage(index int) (*pages.Page, error) {
	all, err := d.Pages()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(all) {
		return nil, model.NewError(model.KindMalformed, "pages", "page index %d out of range (%d pages)", index, len(all))
	}
	return all[index], nil
}
