package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DefaultFileName is looked up beside the executable when no path is configured.
const DefaultFileName = "Prepared_True_Dataset.csv"

// Load reads a dataset file. The format is chosen by extension: .xlsx reads the
// first sheet, everything else is parsed as CSV.
func Load(path string) (*Dataset, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("dataset file %s: %w", path, err)
	}

	var (
		ds  *Dataset
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		ds, err = LoadXLSX(path)
	default:
		var f *os.File
		f, err = os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening dataset %s: %w", path, err)
		}
		defer f.Close()
		ds, err = LoadCSV(f, path)
	}
	if err != nil {
		return nil, fmt.Errorf("loading dataset %s: %w", path, err)
	}
	return ds, nil
}

// LoadCSV parses CSV content. Every data row must have as many fields as the header.
func LoadCSV(r io.Reader, source string) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	cols, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	var records []Record
	row := 1
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", row, err)
		}
		if isBlank(fields) {
			continue
		}
		rec, err := parseRecord(fields, cols, row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return New(records, source), nil
}

// LoadXLSX parses the first sheet of a workbook with the same header rules as LoadCSV.
func LoadXLSX(path string) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}

	cols, err := mapColumns(rows[0])
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(rows)-1)
	for i, fields := range rows[1:] {
		if isBlank(fields) {
			continue
		}
		// excelize trims trailing empty cells
		for len(fields) < len(rows[0]) {
			fields = append(fields, "")
		}
		rec, err := parseRecord(fields, cols, i+2)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return New(records, path), nil
}

// mapColumns resolves each required column to its position in the header.
func mapColumns(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}

	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return cols, nil
}

func parseRecord(fields []string, cols map[string]int, row int) (Record, error) {
	var rec Record
	text := func(col string) string {
		return strings.TrimSpace(fields[cols[col]])
	}

	rec.Province = text(ColProvince)
	rec.District = text(ColDistrict)
	rec.SubDistrict = text(ColSubDistrict)
	rec.HappyBlock = text(ColHappyBlock)

	numeric := []struct {
		col string
		dst *float64
	}{
		{ColLatitude, &rec.Latitude},
		{ColLongitude, &rec.Longitude},
		{ColNetAdd, &rec.NetAdd},
		{ColPotentialScore, &rec.PotentialScore},
		{ColPortUse, &rec.PortUse},
		{ColInstall, &rec.Install},
		{ColMarketShareTrue, &rec.MarketShareTrue},
		{ColMarketShareAIS, &rec.MarketShareAIS},
		{ColMarketShare3BB, &rec.MarketShare3BB},
		{ColMarketShareNT, &rec.MarketShareNT},
	}
	for _, n := range numeric {
		raw := text(n.col)
		v, err := strconv.ParseFloat(raw, 64)
		if err == nil && (math.IsNaN(v) || math.IsInf(v, 0)) {
			err = errors.New("not a finite number")
		}
		if err != nil {
			return Record{}, &ParseError{Row: row, Column: n.col, Value: raw, Err: err}
		}
		*n.dst = v
	}

	shares := []struct {
		col string
		dst *float64
	}{
		{ColMarketShareTrue, &rec.MarketShareTrue},
		{ColMarketShareAIS, &rec.MarketShareAIS},
		{ColMarketShare3BB, &rec.MarketShare3BB},
		{ColMarketShareNT, &rec.MarketShareNT},
	}
	for _, s := range shares {
		pct := RatioToPercent(*s.dst)
		if pct < 0 || pct > 100 {
			return Record{}, &ParseError{
				Row:    row,
				Column: s.col,
				Value:  text(s.col),
				Err:    fmt.Errorf("%w: %.2f%% is outside [0,100]", ErrOutOfRange, pct),
			}
		}
		*s.dst = pct
	}

	return rec, nil
}

// RatioToPercent converts a 0-1 ratio to a percentage rounded to 2 decimals.
func RatioToPercent(ratio float64) float64 {
	return math.Round(ratio*100*100) / 100
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// ResolvePath picks the dataset location: an explicit path wins, otherwise
// DefaultFileName beside the executable, otherwise in the working directory.
func ResolvePath(configured string) string {
	if configured != "" {
		return configured
	}
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), DefaultFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return DefaultFileName
}
