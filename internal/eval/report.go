package eval

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet        = "Summary"
	classificationSheet = "Classification"
	listingsSheet       = "Listings"
)

// WriteReport writes an XLSX workbook with a Summary, a Classification and a
// Listings sheet. Either input may be nil.
func WriteReport(path string, classification *ClassificationReport, listings *ListingVerdict, now time.Time) (err error) {
	if !strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		path += ".xlsx"
	}
	path = filepath.Clean(path)

	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	for _, name := range []string{classificationSheet, listingsSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create %s sheet: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	if err := writeSummary(f, header, classification, listings, now); err != nil {
		return fmt.Errorf("summary sheet: %w", err)
	}
	if err := writeClassification(f, header, classification); err != nil {
		return fmt.Errorf("classification sheet: %w", err)
	}
	if err := writeListings(f, header, listings); err != nil {
		return fmt.Errorf("listings sheet: %w", err)
	}

	return f.SaveAs(path)
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func writeHeader(f *excelize.File, sheet string, style int, columns ...any) error {
	if err := writeRow(f, sheet, 1, columns...); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(columns), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

func writeSummary(f *excelize.File, style int, c *ClassificationReport, l *ListingVerdict, now time.Time) error {
	if err := f.SetColWidth(summarySheet, "A", "A", 28); err != nil {
		return err
	}
	if err := f.SetColWidth(summarySheet, "B", "B", 60); err != nil {
		return err
	}
	if err := writeHeader(f, summarySheet, style, "Metric", "Value"); err != nil {
		return err
	}

	rows := [][]any{{"Generated", now.UTC().Format(time.RFC3339)}}
	if c != nil {
		rows = append(rows,
			[]any{"Classification cases", len(c.Cases)},
			[]any{"Classification mean score", c.Mean},
			[]any{"Exact (1.0)", c.Exact},
			[]any{"Miscalibrated (0.5)", c.Half},
			[]any{"Wrong (0)", c.Wrong},
		)
		if c.Reason != "" {
			rows = append(rows, []any{"Classification note", c.Reason})
		}
	}
	if l != nil {
		rows = append(rows,
			[]any{"Listings", l.Diagnostics.Total},
			[]any{"Listings passing", l.Diagnostics.Passed},
			[]any{"Listing score", l.Score},
		)
		if l.Diagnostics.Reason != "" {
			rows = append(rows, []any{"Listing note", l.Diagnostics.Reason})
		}
	}

	for i, r := range rows {
		if err := writeRow(f, summarySheet, i+2, r...); err != nil {
			return err
		}
	}
	return nil
}

func writeClassification(f *excelize.File, style int, c *ClassificationReport) error {
	if err := writeHeader(f, classificationSheet, style,
		"Case", "Score", "Expected EU", "Actual EU", "Expected confidence", "Actual confidence", "Reason", "Error"); err != nil {
		return err
	}
	if c == nil {
		return nil
	}
	if err := f.SetColWidth(classificationSheet, "G", "G", 60); err != nil {
		return err
	}
	for i, r := range c.Cases {
		m := r.Score.Metadata
		if err := writeRow(f, classificationSheet, i+2,
			r.ID, r.Score.Score,
			m.Expected.IsRemoteEU, m.Actual.IsRemoteEU,
			string(m.Expected.Confidence), string(m.Actual.Confidence),
			m.Actual.Reason, r.Err,
		); err != nil {
			return err
		}
	}
	return nil
}

func writeListings(f *excelize.File, style int, l *ListingVerdict) error {
	if err := writeHeader(f, listingsSheet, style,
		"#", "Bucket", "Title", "URL", "Remote", "Region", "Fresh", "Age (h)", "Rules"); err != nil {
		return err
	}
	if l == nil {
		return nil
	}
	for i, c := range l.Diagnostics.Listings {
		var age any
		if c.AgeHours != nil {
			age = *c.AgeHours
		}
		rules := append(append(append([]string{}, c.RemoteRules...), c.RegionRules...), c.LockRules...)
		if err := writeRow(f, listingsSheet, i+2,
			c.Index, string(c.Bucket), c.Title, c.CanonicalURL,
			c.RemotePositive, c.RegionConsistent, c.Fresh, age,
			strings.Join(rules, ", "),
		); err != nil {
			return err
		}
	}
	return nil
}
