package pages

import (
	"math"

	"github.com/vellumpdf/pdf/contents"
	"github.com/vellumpdf/pdf/model"
)

// The Merge*Page family wraps MergePage with a precomposed transformation
// matrix. Angles are in degrees, counter-clockwise positive, and are not
// restricted to multiples of 90 (unlike the page /Rotate attribute).

func rotationMatrixDeg(degrees model.Fl) model.Matrix {
	r := degrees * math.Pi / 180
	c, s := math.Cos(r), math.Sin(r)
	return model.Matrix{c, s, -s, c, 0, 0}
}

// MergeTransformedPage merges other into p with its content transformed
// by ctm.
func (p *Page) MergeTransformedPage(other *Page, ctm model.Matrix, expand bool) error {
	return p.MergePage(other, &ctm, expand)
}

// MergeScaledPage merges other scaled uniformly by factor.
func (p *Page) MergeScaledPage(other *Page, factor model.Fl, expand bool) error {
	return p.MergeTransformedPage(other, model.Scaling(factor, factor), expand)
}

// MergeRotatedPage merges other rotated by the given angle about the
// origin.
func (p *Page) MergeRotatedPage(other *Page, degrees model.Fl, expand bool) error {
	return p.MergeTransformedPage(other, rotationMatrixDeg(degrees), expand)
}

// MergeTranslatedPage merges other shifted by (tx, ty).
func (p *Page) MergeTranslatedPage(other *Page, tx, ty model.Fl, expand bool) error {
	return p.MergeTransformedPage(other, model.Translation(tx, ty), expand)
}

// MergeRotatedScaledPage rotates, then scales, other's content before
// merging.
func (p *Page) MergeRotatedScaledPage(other *Page, degrees, scale model.Fl, expand bool) error {
	ctm := rotationMatrixDeg(degrees).Mul(model.Scaling(scale, scale))
	return p.MergeTransformedPage(other, ctm, expand)
}

// MergeScaledTranslatedPage scales, then translates, other's content
// before merging.
func (p *Page) MergeScaledTranslatedPage(other *Page, scale, tx, ty model.Fl, expand bool) error {
	ctm := model.Scaling(scale, scale).Mul(model.Translation(tx, ty))
	return p.MergeTransformedPage(other, ctm, expand)
}

// MergeRotatedScaledTranslatedPage rotates, scales and finally translates
// other's content before merging.
func (p *Page) MergeRotatedScaledTranslatedPage(other *Page, degrees, scale, tx, ty model.Fl, expand bool) error {
	ctm := rotationMatrixDeg(degrees).Mul(model.Scaling(scale, scale)).Mul(model.Translation(tx, ty))
	return p.MergeTransformedPage(other, ctm, expand)
}

// AddTransformation rewrites the page's content as `q <ctm> cm <content> Q`,
// transforming everything already drawn on it.
func (p *Page) AddTransformation(ctm model.Matrix) error {
	ops, err := p.decodedContentOps()
	if err != nil {
		return err
	}
	all := make([]contents.Operation, 0, len(ops)+3)
	all = append(all, contents.OpSave{}, contents.OpConcat{Matrix: ctm})
	all = append(all, ops...)
	all = append(all, contents.OpRestore{})
	p.SetContents(reserialize(all))
	return nil
}

// Scale transforms the page content by (sx, sy) and scales the MediaBox
// to match.
func (p *Page) Scale(sx, sy model.Fl) error {
	if err := p.AddTransformation(model.Scaling(sx, sy)); err != nil {
		return err
	}
	box, err := p.MediaBox()
	if err != nil {
		return err
	}
	p.SetMediaBox(model.Rectangle{
		Llx: box.Llx * sx,
		Lly: box.Lly * sy,
		Urx: box.Urx * sx,
		Ury: box.Ury * sy,
	})
	return nil
}

// ScaleBy scales the page uniformly.
func (p *Page) ScaleBy(factor model.Fl) error { return p.Scale(factor, factor) }

// ScaleTo scales the page to exactly width x height.
func (p *Page) ScaleTo(width, height model.Fl) error {
	box, err := p.MediaBox()
	if err != nil {
		return err
	}
	if box.Width() == 0 || box.Height() == 0 {
		return model.NewError(model.KindPageSizeNotDefined, "page", "cannot scale a degenerate MediaBox")
	}
	sx := width / (box.Urx - box.Llx)
	sy := height / (box.Ury - box.Lly)
	return p.Scale(sx, sy)
}
