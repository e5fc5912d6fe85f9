// Package menuimport loads menu items in bulk from CSV exports.
package menuimport

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/tastetrack/internal/domain/catalog"
)

// Column order of a menu CSV file. The first line is a header.
const (
	colRestaurantID = iota
	colName
	colDescription
	colPrice
	colCategory
	colIsVeg
	colImage
	numColumns
)

// RowError describes a row that was skipped.
type RowError struct {
	Line int
	Err  error
}

// Result holds the rows parsed from one file.
type Result struct {
	Items   []catalog.MenuItem
	Skipped []RowError
}

// Parse reads a menu CSV from r. Rows with bad values are reported in
// Result.Skipped; a row with the wrong number of columns aborts the file.
func Parse(ctx context.Context, r io.Reader) (Result, error) {
	var res Result

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numColumns
	cr.ReuseRecord = true

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		return res, errors.Wrap(err, "read header")
	}

	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, errors.Wrapf(err, "read line %d", line)
		}

		item, err := ParseRecord(rec)
		if err != nil {
			res.Skipped = append(res.Skipped, RowError{Line: line, Err: err})
			continue
		}
		res.Items = append(res.Items, item)
	}

	return res, nil
}

// ParseRecord converts one CSV record into a menu item.
func ParseRecord(rec []string) (catalog.MenuItem, error) {
	var m catalog.MenuItem
	if len(rec) != numColumns {
		return m, errors.Errorf("expected %d columns, got %d", numColumns, len(rec))
	}

	id, err := strconv.ParseInt(strings.TrimSpace(rec[colRestaurantID]), 10, 64)
	if err != nil || id <= 0 {
		return m, errors.Errorf("invalid restaurant id %q", rec[colRestaurantID])
	}
	price, err := decimal.NewFromString(strings.TrimSpace(rec[colPrice]))
	if err != nil || price.IsNegative() {
		return m, errors.Errorf("invalid price %q", rec[colPrice])
	}
	name := strings.TrimSpace(rec[colName])
	if name == "" {
		return m, errors.New("empty name")
	}
	isVeg, err := strconv.ParseBool(strings.TrimSpace(rec[colIsVeg]))
	if err != nil {
		return m, errors.Errorf("invalid is_veg %q", rec[colIsVeg])
	}

	return catalog.MenuItem{
		RestaurantID: id,
		Name:         name,
		Description:  strings.TrimSpace(rec[colDescription]),
		Price:        price,
		Category:     strings.TrimSpace(rec[colCategory]),
		IsVeg:        isVeg,
		Image:        strings.TrimSpace(rec[colImage]),
	}, nil
}
