// Package importer converts broker-exported P&L workbooks into the return
// series format used by the log store.
package importer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/neilchentw7/alpha-beta-dashboard/internal/returns"
)

// dateLayouts covers the formats brokers commonly emit in export sheets.
var dateLayouts = []string{
	returns.DateFormat,
	"2006/01/02",
	"01-02-06",
	"1/2/2006",
	"2006-01-02 15:04:05",
}

// ReadReturns parses a two-column (date, return) sheet from an xlsx
// workbook into a return series. When sheetName is empty the first sheet
// is used. A header row is skipped when its first cell is not a date.
func ReadReturns(filePath, sheetName string) (returns.Series, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheetName == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheetName = sheets[0]
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheetName, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheetName)
	}

	var series returns.Series
	for i, row := range rows {
		if len(row) < 2 {
			continue
		}
		dateCell := strings.TrimSpace(row[0])
		valueCell := strings.TrimSpace(row[1])
		if dateCell == "" || valueCell == "" {
			continue
		}

		date, err := parseCellDate(dateCell)
		if err != nil {
			if i == 0 {
				continue // header row
			}
			return nil, fmt.Errorf("row %d: parse date %q: %w", i+1, dateCell, err)
		}

		value, err := strconv.ParseFloat(valueCell, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: parse return %q: %w", i+1, valueCell, err)
		}

		series = append(series, returns.DailyReturn{Date: returns.Day(date), Value: value})
	}

	if len(series) == 0 {
		return nil, fmt.Errorf("sheet %q contains no return rows", sheetName)
	}
	if err := series.Validate(); err != nil {
		return nil, err
	}
	series.Sort()
	return series, nil
}

func parseCellDate(cell string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, cell); err == nil {
			return d, nil
		}
	}
	// Excel sometimes hands back the raw serial number for date cells.
	if serial, err := strconv.ParseFloat(cell, 64); err == nil {
		if d, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format")
}
