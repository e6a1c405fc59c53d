package report

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/yourorg/apicheck/pkg/types"
)

const (
	sheetName    = "Report"
	minColumn    = 'A'
	maxColumn    = 'I'
	columnWidth  = 18
	patternType  = "pattern"
	patternValue = 1
	errorColor   = "FF5900"
	gapColor     = "FFEB9C"
)

var excelHeaders = []string{
	"#", "ID", "Check", "Result", "Outcome", "Status", "Detail", "Duration (ms)", "Request",
}

// WriteExcel exports the report to an xlsx workbook at path. Failed rows are
// filled red, environment gaps yellow.
func WriteExcel(path string, rep *types.RunReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for col := minColumn; col <= maxColumn; col++ {
		name := string(col)
		if err := f.SetColWidth(sheetName, name, name, columnWidth); err != nil {
			return err
		}
	}
	for i, h := range excelHeaders {
		if err := f.SetCellValue(sheetName, fmt.Sprintf("%c1", minColumn+i), h); err != nil {
			return err
		}
	}

	errorStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: patternType, Pattern: patternValue, Color: []string{errorColor}},
	})
	if err != nil {
		return err
	}
	gapStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: patternType, Pattern: patternValue, Color: []string{gapColor}},
	})
	if err != nil {
		return err
	}

	for i, res := range rep.Results {
		row := i + 2
		result := "PASS"
		if !res.Success {
			result = "FAIL"
		}
		cells := []interface{}{
			i + 1, res.ID, res.Name, result, string(res.Outcome), res.Status, res.Detail,
			res.Duration.Milliseconds(), res.Request,
		}
		for j, v := range cells {
			ref := fmt.Sprintf("%c%d", minColumn+j, row)
			if err := f.SetCellValue(sheetName, ref, v); err != nil {
				return err
			}
		}
		if res.Success {
			continue
		}
		style := errorStyle
		if res.Outcome == types.OutcomeEnvironment {
			style = gapStyle
		}
		first := fmt.Sprintf("%c%d", minColumn, row)
		last := fmt.Sprintf("%c%d", maxColumn, row)
		if err := f.SetCellStyle(sheetName, first, last, style); err != nil {
			return err
		}
	}

	summary := len(rep.Results) + 3
	lines := []string{
		"Summary",
		fmt.Sprintf("Suite: %s", rep.Suite),
		fmt.Sprintf("Target: %s", rep.BaseURL),
		fmt.Sprintf("Started: %s", rep.StartedAt.UTC().Format(time.RFC3339)),
		fmt.Sprintf("Passed: %d/%d (%s)", rep.Passed(), rep.Total(), Percent(rep)),
		fmt.Sprintf("Environment gaps: %d", rep.EnvironmentGaps()),
	}
	for i, l := range lines {
		if err := f.SetCellValue(sheetName, fmt.Sprintf("A%d", summary+i), l); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
