package filters

import (
	"bytes"
	"fmt"
	"io"
)

// applyPredictor reverses the TIFF (predictor 2) or PNG (predictors
// 10-15) byte-differencing applied before Flate/LZW compression.
// Predictor 0 or 1 means no post-processing.
func applyPredictor(decoded []byte, p Params) ([]byte, error) {
	if p.Predictor == 0 || p.Predictor == 1 {
		return decoded, nil
	}
	switch p.Predictor {
	case 2, 10, 11, 12, 13, 14, 15:
	default:
		return nil, fmt.Errorf("filters: unsupported Predictor %d", p.Predictor)
	}

	bytesPerPixel := (p.BitsPerComponent*p.Colors + 7) / 8
	rowSize := p.BitsPerComponent * p.Colors * p.Columns / 8
	if p.Predictor != 2 {
		rowSize++ // PNG rows are prefixed with a filter-type byte
	}

	cr := make([]byte, rowSize)
	pr := make([]byte, rowSize)
	r := bytes.NewReader(decoded)

	var out []byte
	for {
		_, err := io.ReadFull(r, cr)
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("filters: predictor: %w", err)
		}

		row, err := processPredictorRow(pr, cr, p.Predictor, p.Colors, bytesPerPixel)
		if err != nil {
			return nil, err
		}
		out = append(out, row...)
		pr, cr = cr, pr
	}
	return out, nil
}

func processPredictorRow(pr, cr []byte, predictor, colors, bytesPerPixel int) ([]byte, error) {
	if predictor == 2 {
		return applyHorizontalDiff(cr, colors), nil
	}

	cdat := cr[1:]
	pdat := pr[1:]
	filterType := int(cr[0])

	switch filterType {
	case 0:
		// none
	case 1: // Sub
		for i := bytesPerPixel; i < len(cdat); i++ {
			cdat[i] += cdat[i-bytesPerPixel]
		}
	case 2: // Up
		for i, b := range pdat {
			cdat[i] += b
		}
	case 3: // Average
		for i := 0; i < bytesPerPixel; i++ {
			cdat[i] += pdat[i] / 2
		}
		for i := bytesPerPixel; i < len(cdat); i++ {
			cdat[i] += uint8((int(cdat[i-bytesPerPixel]) + int(pdat[i])) / 2)
		}
	case 4: // Paeth
		paethUnfilter(cdat, pdat, bytesPerPixel)
	default:
		return nil, fmt.Errorf("filters: predictor: unknown PNG filter type %d", filterType)
	}
	return cdat, nil
}

func applyHorizontalDiff(row []byte, colors int) []byte {
	for i := 1; i < len(row)/colors; i++ {
		for j := 0; j < colors; j++ {
			row[i*colors+j] += row[(i-1)*colors+j]
		}
	}
	return row
}

func paethUnfilter(cdat, pdat []byte, bytesPerPixel int) {
	var a, b, c, pa, pb, pc int32
	for i := 0; i < bytesPerPixel; i++ {
		a, c = 0, 0
		for j := i; j < len(cdat); j += bytesPerPixel {
			b = int32(pdat[j])
			pa, pb, pc = abs32(b-c), abs32(a-c), abs32(a+b-2*c)

			var pred int32
			switch {
			case pa <= pb && pa <= pc:
				pred = a
			case pb <= pc:
				pred = b
			default:
				pred = c
			}
			a = (int32(cdat[j]) + pred) & 0xff
			cdat[j] = uint8(a)
			c = b
		}
	}
}

func abs32(x int32) int32 {
	if x < 0 {
		return -x
	}
	return x
}
