// Package export renders a set of flat records as JSON, CSV or an XLSX
// workbook. Column order is the sorted union of field names so every format
// of the same records has the same header.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/catalog-api/internal/api"
)

// MaxRecords bounds every export.
const MaxRecords = 10000

var ErrTooManyRecords = errors.New("export: too many records")

type Format string

const (
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
)

// ParseFormat accepts json, csv and excel. The empty string means json.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatExcel:
		return FormatExcel, nil
	default:
		return "", api.Failf(api.ErrValidation, "export_as must be one of json, csv, excel (got %q)", s)
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/json"
	}
}

func (f Format) Extension() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatExcel:
		return "xlsx"
	default:
		return "json"
	}
}

// Filename is base_YYYYMMDD_HHMMSS.ext for the given instant.
func Filename(base string, f Format, now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", base, now.Format("20060102_150405"), f.Extension())
}

// Columns returns the sorted union of field names across records.
func Columns[R ~map[string]any](records []R) []string {
	seen := map[string]struct{}{}
	for _, r := range records {
		for k := range r {
			seen[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// Write renders records in format f. sheet names the worksheet for excel
// output and is ignored otherwise.
func Write[R ~map[string]any](w io.Writer, records []R, f Format, sheet string) error {
	if len(records) > MaxRecords {
		return fmt.Errorf("%w: %d > %d", ErrTooManyRecords, len(records), MaxRecords)
	}
	switch f {
	case FormatJSON:
		return writeJSON(w, records)
	case FormatCSV:
		return writeCSV(w, records)
	case FormatExcel:
		return writeExcel(w, records, sheet)
	default:
		return api.Failf(api.ErrValidation, "unsupported export format %q", f)
	}
}

func writeJSON[R ~map[string]any](w io.Writer, records []R) error {
	if records == nil {
		records = []R{}
	}
	return json.NewEncoder(w).Encode(records)
}

func writeCSV[R ~map[string]any](w io.Writer, records []R) error {
	cols := Columns(records)
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return err
	}
	row := make([]string, len(cols))
	for _, r := range records {
		for i, c := range cols {
			row[i] = cellText(r[c])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeExcel[R ~map[string]any](w io.Writer, records []R, sheet string) error {
	if sheet == "" {
		sheet = "Sheet1"
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("export: naming sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("export: stream writer: %w", err)
	}

	cols := Columns(records)
	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for n, r := range records {
		row := make([]any, len(cols))
		for i, c := range cols {
			row[i] = cellValue(r[c])
		}
		cell, err := excelize.CoordinatesToCellName(1, n+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("export: flush sheet: %w", err)
	}
	_, err = f.WriteTo(w)
	return err
}

// cellText renders scalars for CSV. Nested values and nulls are blank.
func cellText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	default:
		return ""
	}
}

// cellValue keeps numbers and booleans native so spreadsheets can sum them.
func cellValue(v any) any {
	switch t := v.(type) {
	case float64, float32, int, int64, bool:
		return t
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	default:
		return cellText(v)
	}
}
