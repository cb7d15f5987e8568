package pages

import (
	"github.com/vellumpdf/pdf/model"
)

// FitType is a destination's view-fit mode (PDF §12.3.2.2).
type FitType model.Name

const (
	FitXYZ   FitType = "XYZ"
	FitFit   FitType = "Fit"
	FitFitH  FitType = "FitH"
	FitFitV  FitType = "FitV"
	FitFitR  FitType = "FitR"
	FitFitB  FitType = "FitB"
	FitFitBH FitType = "FitBH"
	FitFitBV FitType = "FitBV"
)

// fitOperandCount is the number of tail operands each fit type carries.
// FitBH/FitBV take the same single "Top"/"Left" operand shape as FitH/FitV.
var fitOperandCount = map[FitType]int{
	FitXYZ: 3, FitFit: 0, FitFitH: 1, FitFitV: 1, FitFitR: 4, FitFitB: 0, FitFitBH: 1, FitFitBV: 1,
}

// Destination is a resolved named or explicit destination: the target
// page, a fit type, and that type's numeric tail operands (any of which
// may be null for /XYZ, per PDF §12.3.2.2).
type Destination struct {
	Title    string
	Page     model.Object // IndirectRef to the target page, or a Name for an unresolved named destination
	Fit      FitType
	Operands []model.Object
}

// ParseDestination reads a destination array: [page fit operand...].
// Unknown fit types are fatal. The canonical form has no leading slash at
// this layer - Name values never carry one (the tokenizer consumes it) -
// so there is no separate legacy form to normalize once the array has
// been parsed into objects; a producer emitting the bare keyword as a
// String rather than a Name would be noncompliant and is rejected like
// any other unknown fit type.
func ParseDestination(arr model.Array) (Destination, error) {
	if len(arr) < 2 {
		return Destination{}, model.NewError(model.KindMalformed, "destination", "array too short")
	}
	fitName, ok := arr[1].(model.Name)
	if !ok {
		return Destination{}, model.NewError(model.KindMalformed, "destination", "fit type is not a name")
	}
	fit := FitType(fitName)
	count, known := fitOperandCount[fit]
	if !known {
		return Destination{}, model.NewError(model.KindMalformed, "destination", "unknown fit type %q", fitName)
	}
	operands := arr[2:]
	if len(operands) < count {
		return Destination{}, model.NewError(model.KindMalformed, "destination", "fit type %q expects %d operands, got %d", fitName, count, len(operands))
	}
	return Destination{Page: arr[0], Fit: fit, Operands: append(model.Array(nil), operands[:count]...)}, nil
}

// Format reconstructs the destination array byte-for-byte with
// ParseDestination.
func (d Destination) Format() model.Array {
	out := model.Array{d.Page, model.Name(d.Fit)}
	out = append(out, d.Operands...)
	return out
}

// NamedDestinations resolves /Root/Dests (the legacy PDF 1.1 dict form)
// or /Root/Names/Dests (the PDF 1.2+ name tree form).
func NamedDestinations(r Resolver, root model.Dict) (map[string]Destination, error) {
	out := map[string]Destination{}

	if legacy := dictAt(root, r, "Dests"); len(legacy) > 0 {
		for k, v := range legacy {
			if err := addNamedDestination(r, out, string(k), v); err != nil {
				return nil, err
			}
		}
	}

	names := dictAt(root, r, "Names")
	destsRoot := dictAt(names, r, "Dests")
	if len(destsRoot) > 0 {
		if err := walkNameTree(r, destsRoot, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func walkNameTree(r Resolver, node model.Dict, out map[string]Destination) error {
	if namesArr := arrayAt(node, r, "Names"); namesArr != nil {
		for i := 0; i+1 < len(namesArr); i += 2 {
			key, ok := namesArr[i].(model.String)
			if !ok {
				continue
			}
			if err := addNamedDestination(r, out, string(key.Raw), namesArr[i+1]); err != nil {
				return err
			}
		}
	}
	if kids := arrayAt(node, r, "Kids"); kids != nil {
		for _, k := range kids {
			kidObj, err := r.Resolve(k)
			if err != nil {
				return err
			}
			kidDict, ok := kidObj.(model.Dict)
			if !ok {
				continue
			}
			if err := walkNameTree(r, kidDict, out); err != nil {
				return err
			}
		}
	}
	return nil
}

func addNamedDestination(r Resolver, out map[string]Destination, name string, value model.Object) error {
	resolved, err := r.Resolve(value)
	if err != nil {
		return err
	}
	if dict, ok := resolved.(model.Dict); ok {
		resolved, err = r.Resolve(dict.Lookup("D"))
		if err != nil {
			return err
		}
	}
	arr, ok := resolved.(model.Array)
	if !ok {
		return nil
	}
	dest, err := ParseDestination(arr)
	if err != nil {
		return nil // a destination that does not parse is skipped, with no error or warning
	}
	dest.Title = name
	out[name] = dest
	return nil
}

// Outline is one bookmark tree node: a title plus either an explicit
// destination or a /GoTo action, with sibling (/Next) and child (/First)
// chains already walked into Go slices.
type Outline struct {
	Title       string
	Destination *Destination
	Children    []*Outline
}

// Outlines walks /Root/Outlines/First, following /Next at each depth and
// recursing into /First for children.
func Outlines(r Resolver, root model.Dict) ([]*Outline, error) {
	outlinesDict := dictAt(root, r, "Outlines")
	if len(outlinesDict) == 0 {
		return nil, nil
	}
	first, ok := outlinesDict["First"]
	if !ok {
		return nil, nil
	}
	return walkOutlineSiblings(r, first)
}

func walkOutlineSiblings(r Resolver, first model.Object) ([]*Outline, error) {
	var out []*Outline
	cur := first
	visited := map[model.Reference]bool{}
	for {
		ref, isRef := cur.(model.IndirectRef)
		if isRef {
			if visited[ref.Ref] {
				break
			}
			visited[ref.Ref] = true
		}
		obj, err := r.Resolve(cur)
		if err != nil {
			return nil, err
		}
		dict, ok := obj.(model.Dict)
		if !ok {
			break
		}

		node := &Outline{}
		if title, ok := dict.Lookup("Title").(model.String); ok {
			node.Title = model.DecodeTextString(title.Raw)
		}

		dest, err := outlineDestination(r, dict)
		if err != nil {
			return nil, err
		}
		node.Destination = dest

		if firstChild, ok := dict["First"]; ok {
			children, err := walkOutlineSiblings(r, firstChild)
			if err != nil {
				return nil, err
			}
			node.Children = children
		}

		out = append(out, node)

		next, hasNext := dict["Next"]
		if !hasNext {
			break
		}
		cur = next
	}
	return out, nil
}

// outlineDestination accepts either a direct /Dest entry or a /GoTo
// action's /D entry (only /GoTo is supported).
func outlineDestination(r Resolver, dict model.Dict) (*Destination, error) {
	var destObj model.Object
	if d, ok := dict["Dest"]; ok {
		resolved, err := r.Resolve(d)
		if err != nil {
			return nil, err
		}
		destObj = resolved
	} else if a, ok := dict["A"]; ok {
		action, err := r.Resolve(a)
		if err != nil {
			return nil, err
		}
		actionDict, ok := action.(model.Dict)
		if !ok {
			return nil, nil
		}
		if s, _ := actionDict.Lookup("S").(model.Name); s != "GoTo" {
			return nil, nil
		}
		resolved, err := r.Resolve(actionDict.Lookup("D"))
		if err != nil {
			return nil, err
		}
		destObj = resolved
	} else {
		return nil, nil
	}

	arr, ok := destObj.(model.Array)
	if !ok {
		return nil, nil
	}
	dest, err := ParseDestination(arr)
	if err != nil {
		return nil, nil
	}
	return &dest, nil
}
