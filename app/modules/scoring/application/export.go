package scoringservice

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	flagsSheet    = "Flags"
	segmentsSheet = "Segments"
)

// ExportStandings writes standings to an XLSX workbook with a Flags sheet and
// a per-segment Segments sheet.
func ExportStandings(standings *Standings) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), flagsSheet); err != nil {
		return nil, fmt.Errorf("failed to name flags sheet: %w", err)
	}
	if err := writeRows(f, flagsSheet, flagRows(standings)); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(segmentsSheet); err != nil {
		return nil, fmt.Errorf("failed to add segments sheet: %w", err)
	}
	if err := writeRows(f, segmentsSheet, segmentRows(standings)); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func flagRows(standings *Standings) [][]any {
	rows := [][]any{{"Team", "Flags"}}
	for _, team := range standings.Teams {
		rows = append(rows, []any{team, standings.Flags[team]})
	}
	return rows
}

func segmentRows(standings *Standings) [][]any {
	header := []any{"Segment ID", "Segment", "Owner", "Policy", "Efforts", "Winner", "Result", "Flags"}
	for _, team := range standings.Teams {
		header = append(header, team+" points")
	}

	rows := [][]any{header}
	for _, o := range standings.Segments {
		row := []any{o.SegmentID, o.SegmentName, o.Owner, o.Policy, o.Efforts, o.Winner, o.Result, o.Flags}
		for _, team := range standings.Teams {
			row = append(row, o.Points[team])
		}
		rows = append(rows, row)
	}
	return rows
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for idx, row := range rows {
		axis, err := excelize.CoordinatesToCellName(1, idx+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, axis, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, idx+1, err)
		}
	}
	return nil
}
