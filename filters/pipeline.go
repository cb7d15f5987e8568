package filters

import "github.com/vellumpdf/pdf/model"

// Pipeline reads the ordered /Filter names and their matching /DecodeParms
// from a stream dict, normalizing the single-filter and array-of-filters
// forms PDF allows for both entries.
func Pipeline(d model.Dict) ([]string, []Params) {
	var names []string
	switch f := d.Lookup("Filter").(type) {
	case model.Name:
		names = []string{string(f)}
	case model.Array:
		for _, el := range f {
			if n, ok := el.(model.Name); ok {
				names = append(names, string(n))
			}
		}
	}

	var paramsList []Params
	switch dp := d.Lookup("DecodeParms").(type) {
	case model.Dict:
		paramsList = []Params{paramsFromDict(dp)}
	case model.Array:
		for _, el := range dp {
			if pd, ok := el.(model.Dict); ok {
				paramsList = append(paramsList, paramsFromDict(pd))
			} else {
				paramsList = append(paramsList, Params{})
			}
		}
	}
	return names, paramsList
}

func paramsFromDict(d model.Dict) Params {
	var p Params
	p.Predictor, _ = model.AsInt(d.Lookup("Predictor"))
	p.Colors, _ = model.AsInt(d.Lookup("Colors"))
	p.BitsPerComponent, _ = model.AsInt(d.Lookup("BitsPerComponent"))
	p.Columns, _ = model.AsInt(d.Lookup("Columns"))
	if b, ok := d.Lookup("EarlyChange").(model.Integer); ok {
		v := b != 0
		p.EarlyChange = &v
	}
	return p
}

// DecodeStream runs every filter named in args' /Filter entry over content,
// in order, applying the matching /DecodeParms to each stage.
func DecodeStream(args model.Dict, content []byte) ([]byte, error) {
	names, paramsList := Pipeline(args)
	data := content
	for i, name := range names {
		var params Params
		if i < len(paramsList) {
			params = paramsList[i]
		}
		decoded, err := Decode(name, data, params)
		if err != nil {
			return nil, err
		}
		data = decoded
	}
	return data, nil
}
