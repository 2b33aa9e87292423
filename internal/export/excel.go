package export

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"github.com/cdacos/sql-info-streamer/internal/events"
)

// record is the subset of the event wire format the exporter consumes.
type record struct {
	Type           events.Type        `json:"type"`
	ResultSetIndex int                `json:"resultSetIndex"`
	RowIndex       int                `json:"rowIndex"`
	Columns        []string           `json:"columns"`
	Data           map[string]*string `json:"data"`
	TotalRows      int                `json:"totalRows"`
}

// Excel converts captured event-stream files into xlsx workbooks, one
// sheet per result set. Multiple captures are converted in parallel,
// each into its own workbook.
func Excel(ctx context.Context, captures []string, output string, workers int) error {
	if workers < 1 {
		workers = 1
	}

	// Captures in different directories can share a basename; refuse up
	// front rather than let one workbook silently overwrite another.
	multi := len(captures) > 1
	outputs := make(map[string]string, len(captures))
	for _, capture := range captures {
		out := outputPath(output, capture, multi)
		if prev, ok := outputs[out]; ok {
			return fmt.Errorf("captures %s and %s would both write %s", prev, capture, out)
		}
		outputs[out] = capture
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for out, capture := range outputs {
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return excelFile(ctx, capture, out)
		})
	}

	return g.Wait()
}

// outputPath suffixes the output name with the capture name when several
// captures are exported at once.
func outputPath(output, capture string, multi bool) string {
	if !multi {
		return output
	}
	base := strings.TrimSuffix(filepath.Base(capture), filepath.Ext(capture))
	ext := filepath.Ext(output)
	return strings.TrimSuffix(output, ext) + "_" + base + ext
}

func excelFile(ctx context.Context, capture, output string) error {
	in, err := os.Open(capture)
	if err != nil {
		return fmt.Errorf("error opening capture %s: %w", capture, err)
	}
	defer in.Close()

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.ErrorContext(ctx, "Error closing workbook", "error", err)
		}
	}()

	var (
		sw        *excelize.StreamWriter
		sheetName string
		columns   []string
		colsWidth map[int]float64
		sheets    int
	)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return fmt.Errorf("error decoding capture %s: %w", capture, err)
		}

		switch rec.Type {
		case events.TypeResultSetStart:
			sheetName = fmt.Sprintf("ResultSet%d", rec.ResultSetIndex)
			if _, err := f.NewSheet(sheetName); err != nil {
				return err
			}
			sw, err = f.NewStreamWriter(sheetName)
			if err != nil {
				return err
			}
			columns = rec.Columns
			colsWidth = make(map[int]float64, len(columns))

			headers := make([]any, len(columns))
			for i, name := range columns {
				headers[i] = name
				colsWidth[i] = float64(len(name))
			}
			if err := sw.SetRow("A1", headers); err != nil {
				return err
			}
			sheets++

		case events.TypeRow:
			if sw == nil {
				return fmt.Errorf("capture %s: row event before resultSetStart", capture)
			}
			rowData := make([]any, len(columns))
			for i, name := range columns {
				if v := rec.Data[name]; v != nil {
					rowData[i] = *v
					colsWidth[i] = max(colsWidth[i], float64(len(*v)))
				}
			}
			cell, _ := excelize.CoordinatesToCellName(1, rec.RowIndex+2)
			if err := sw.SetRow(cell, rowData); err != nil {
				return err
			}

		case events.TypeResultSetEnd:
			if sw == nil {
				continue
			}
			if err := finishSheet(f, sw, sheetName, columns, colsWidth, rec.TotalRows); err != nil {
				return err
			}
			sw = nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading capture %s: %w", capture, err)
	}

	if sheets == 0 {
		return fmt.Errorf("capture %s contains no result sets", capture)
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	if err := f.SaveAs(output); err != nil {
		slog.ErrorContext(ctx, "Error saving workbook", "output", output, "error", err)
		return err
	}
	slog.InfoContext(ctx, "Exported capture", "capture", capture, "output", output, "sheets", sheets)

	return nil
}

func finishSheet(
	f *excelize.File, sw *excelize.StreamWriter, sheetName string,
	columns []string, colsWidth map[int]float64, totalRows int,
) error {
	if totalRows > 0 {
		lastCell, _ := excelize.CoordinatesToCellName(len(columns), totalRows+1)
		enabled := true
		if err := sw.AddTable(&excelize.Table{
			Range:          fmt.Sprintf("A1:%s", lastCell),
			Name:           fmt.Sprintf("Table_%s", sheetName),
			StyleName:      "TableStyleMedium2",
			ShowRowStripes: &enabled,
		}); err != nil {
			return err
		}
	}

	if err := sw.Flush(); err != nil {
		return err
	}

	for i, width := range colsWidth {
		colName, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheetName, colName, colName, width+2); err != nil {
			return err
		}
	}

	return freezeHeader(f, sheetName)
}

func freezeHeader(f *excelize.File, sheetName string) error {
	return f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomRight",
	})
}
