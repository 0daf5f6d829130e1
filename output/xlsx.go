package output

import (
	"fmt"
	"io"

	"github.com/southsales/tolmap/dataset"
	"github.com/southsales/tolmap/filter"
	"github.com/xuri/excelize/v2"
)

const (
	recordsSheet = "Records"
	summarySheet = "Summary"
)

// Workbook builds an XLSX file with the filtered rows (shares as percentages)
// and a summary sheet describing the filters.
func Workbook(rows []dataset.Record, sel filter.Selection, summary filter.Summary) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", recordsSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	for i, header := range dataset.RequiredColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(recordsSheet, cell, header)
	}
	f.SetColWidth(recordsSheet, "A", "D", 18)
	f.SetColWidth(recordsSheet, "E", "N", 14)

	for i := range rows {
		r := &rows[i]
		values := []any{
			r.Province, r.District, r.SubDistrict, r.HappyBlock,
			r.Latitude, r.Longitude,
			r.NetAdd, r.PotentialScore, r.PortUse, r.Install,
			r.MarketShareTrue, r.MarketShareAIS, r.MarketShare3BB, r.MarketShareNT,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			f.SetCellValue(recordsSheet, cell, v)
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("creating summary sheet: %w", err)
	}
	lines := [][2]any{
		{"Province", orAll(sel.Province)},
		{"District", orAll(sel.District)},
		{"Sub-district", orAll(sel.SubDistrict)},
		{"Happy Block", orAll(sel.HappyBlock)},
		{"Net Add", rangeText(sel.NetAdd)},
		{"Potential Score", rangeText(sel.PotentialScore)},
		{"Market Share True (%)", rangeText(sel.MarketShareTrue)},
		{"Rows", summary.Count},
		{"Total Port Use", summary.PortUse},
		{"Total Install", summary.Install},
		{"Total Net Add", summary.NetAdd},
		{"Mean Potential Score", summary.MeanPotentialScore},
		{"Mean Market Share True (%)", summary.MeanMarketShareTrue},
	}
	for i, line := range lines {
		f.SetCellValue(summarySheet, fmt.Sprintf("A%d", i+1), line[0])
		f.SetCellValue(summarySheet, fmt.Sprintf("B%d", i+1), line[1])
	}
	f.SetColWidth(summarySheet, "A", "A", 28)
	f.SetColWidth(summarySheet, "B", "B", 20)

	return f, nil
}

// WriteXLSX streams the workbook to w.
func WriteXLSX(w io.Writer, rows []dataset.Record, sel filter.Selection, summary filter.Summary) error {
	f, err := Workbook(rows, sel, summary)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// SaveXLSX writes the workbook to filename.
func SaveXLSX(filename string, rows []dataset.Record, sel filter.Selection, summary filter.Summary) error {
	f, err := Workbook(rows, sel, summary)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(filename); err != nil {
		return fmt.Errorf("saving workbook %s: %w", filename, err)
	}
	return nil
}

func orAll(v string) string {
	if v == "" {
		return "All"
	}
	return v
}

func rangeText(r *filter.Range) string {
	if r == nil {
		return "Any"
	}
	return fmt.Sprintf("%s to %s", formatNumber(r.Min), formatNumber(r.Max))
}
