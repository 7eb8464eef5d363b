package feed

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"regexp"
	"strings"

	"beermap/internal/models"
)

var coordinatePattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// ValidCoordinate reports whether s is a non-negative decimal number.
// Negative coordinates are rejected; every point in the feeds lies in the
// north-eastern hemisphere.
func ValidCoordinate(s string) bool {
	return coordinatePattern.MatchString(s)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse decodes a CSV document whose first row is the header into one map
// per data row, keyed by header label. Short rows leave trailing columns
// absent; extra cells beyond the header are dropped. A blank line between
// data rows yields an empty row so that later rows keep their position.
func Parse(data []byte) ([]map[string]string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, parseError(err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []map[string]string
	end := r.InputOffset()
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, parseError(err)
		}
		line, _ := r.FieldPos(0)
		next := 1 + bytes.Count(data[:end], []byte("\n"))
		for ; next < line; next++ {
			rows = append(rows, map[string]string{})
		}
		end = r.InputOffset()
		row := make(map[string]string, len(header))
		for i, cell := range record {
			if i >= len(header) {
				break
			}
			row[header[i]] = cell
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseError(err error) error {
	pe := &ParseError{Err: err}
	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		pe.Line = csvErr.Line
	}
	return pe
}

// Decoder turns the row at index into a record, reporting false when the
// row should be dropped.
type Decoder[T any] func(index int, row map[string]string) (T, bool)

// Decode applies dec to every row in order. Indexes are positions in rows
// and are not renumbered after rows are dropped.
func Decode[T any](rows []map[string]string, dec Decoder[T]) []T {
	out := make([]T, 0, len(rows))
	for i, row := range rows {
		if rec, ok := dec(i, row); ok {
			out = append(out, rec)
		}
	}
	return out
}

// ShopDecoder keeps rows that have a name and valid coordinates.
func ShopDecoder(index int, row map[string]string) (models.Shop, bool) {
	lat, lng, name := row[models.ColLatitude], row[models.ColLongitude], row[models.ColName]
	if lat == "" || lng == "" || name == "" {
		return models.Shop{}, false
	}
	if !ValidCoordinate(lat) || !ValidCoordinate(lng) {
		return models.Shop{}, false
	}
	return models.NewShop(index, row), true
}

// EventDecoder keeps rows that have a name and a period.
func EventDecoder(index int, row map[string]string) (models.Event, bool) {
	if row[models.ColEventName] == "" || row[models.ColPeriod] == "" {
		return models.Event{}, false
	}
	return models.NewEvent(index, row), true
}
