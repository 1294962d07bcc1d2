package shapeload

import (
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// hifldUnknown is the sentinel HIFLD uses for missing voltage values.
const hifldUnknown = -999999

// ParseShapefile reads a shapefile and returns one row per shape, with the
// product's attribute columns followed by the EWKB-encoded geometry. Shapes
// that cannot be encoded are skipped.
func ParseShapefile(path string, product Product) ([][]any, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "shapeload: open %s", path)
	}
	defer reader.Close()

	// DBF field names are fixed-width and NUL padded.
	fieldIdx := make(map[string]int)
	for i, f := range reader.Fields() {
		name := strings.ToLower(strings.TrimRight(f.String(), "\x00"))
		fieldIdx[name] = i
	}

	var rows [][]any
	for reader.Next() {
		n, shape := reader.Shape()
		if shape == nil {
			continue
		}
		ewkb, err := EncodeWKB(shape)
		if err != nil {
			zap.L().Debug("skipping unencodable shape",
				zap.String("product", product.Name),
				zap.Int("index", n),
				zap.Error(err))
			continue
		}

		row := make([]any, 0, len(product.Columns)+1)
		for i, col := range product.Columns {
			idx, ok := fieldIdx[strings.ToLower(product.DBFNames[i])]
			if !ok {
				row = append(row, nil)
				continue
			}
			raw := strings.TrimSpace(reader.ReadAttribute(n, idx))
			row = append(row, attrValue(raw, product.Numeric[col]))
		}
		row = append(row, ewkb)
		rows = append(rows, row)
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "shapeload: read %s", path)
	}
	return rows, nil
}

// attrValue converts a raw DBF attribute into a load value. Numeric columns
// become float64 or nil; the HIFLD unknown sentinel maps to nil.
func attrValue(raw string, numeric bool) any {
	if raw == "" {
		return nil
	}
	if !numeric {
		return raw
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v == hifldUnknown {
		return nil
	}
	return v
}
