package export

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xuri/excelize/v2"
)

const sampleCapture = `{"type":"started","timestamp":"2024-03-15T10:30:45.000Z"}
{"type":"info","timestamp":"2024-03-15T10:30:45.100Z","message":"working"}
{"type":"resultSetStart","timestamp":"2024-03-15T10:30:45.200Z","resultSetIndex":0,"columns":["id","name"]}
{"type":"row","timestamp":"2024-03-15T10:30:45.300Z","resultSetIndex":0,"rowIndex":0,"data":{"id":"1","name":"alpha"}}
{"type":"row","timestamp":"2024-03-15T10:30:45.400Z","resultSetIndex":0,"rowIndex":1,"data":{"id":"2","name":null}}
{"type":"resultSetEnd","timestamp":"2024-03-15T10:30:45.500Z","resultSetIndex":0,"totalRows":2}
{"type":"completed","timestamp":"2024-03-15T10:30:45.600Z","message":"ok"}
`

func writeCapture(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestExcelExport(t *testing.T) {
	dir := t.TempDir()
	capture := writeCapture(t, dir, "run.ndjson", sampleCapture)
	output := filepath.Join(dir, "run.xlsx")

	require.NoError(t, Excel(context.Background(), []string{capture}, output, 2))

	f, err := excelize.OpenFile(output)
	require.NoError(t, err)
	defer f.Close()

	assert.Contains(t, f.GetSheetList(), "ResultSet0")
	assert.NotContains(t, f.GetSheetList(), "Sheet1", "the default sheet is removed")

	header, err := f.GetCellValue("ResultSet0", "A1")
	require.NoError(t, err)
	assert.Equal(t, "id", header)

	v, err := f.GetCellValue("ResultSet0", "B2")
	require.NoError(t, err)
	assert.Equal(t, "alpha", v)

	v, err = f.GetCellValue("ResultSet0", "B3")
	require.NoError(t, err)
	assert.Equal(t, "", v, "null cells export as empty")
}

func TestExcelExportMultipleCaptures(t *testing.T) {
	dir := t.TempDir()
	first := writeCapture(t, dir, "first.ndjson", sampleCapture)
	second := writeCapture(t, dir, "second.ndjson", sampleCapture)
	output := filepath.Join(dir, "out.xlsx")

	require.NoError(t, Excel(context.Background(), []string{first, second}, output, 2))

	assert.FileExists(t, filepath.Join(dir, "out_first.xlsx"))
	assert.FileExists(t, filepath.Join(dir, "out_second.xlsx"))
}

func TestExcelExportRejectsCollidingBasenames(t *testing.T) {
	dir := t.TempDir()
	aDir := filepath.Join(dir, "a")
	bDir := filepath.Join(dir, "b")
	require.NoError(t, os.Mkdir(aDir, 0o755))
	require.NoError(t, os.Mkdir(bDir, 0o755))
	first := writeCapture(t, aDir, "run.ndjson", sampleCapture)
	second := writeCapture(t, bDir, "run.ndjson", sampleCapture)
	output := filepath.Join(dir, "out.xlsx")

	err := Excel(context.Background(), []string{first, second}, output, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both write")
	assert.NoFileExists(t, filepath.Join(dir, "out_run.xlsx"))
}

func TestExcelExportNoResultSets(t *testing.T) {
	dir := t.TempDir()
	capture := writeCapture(t, dir, "empty.ndjson",
		`{"type":"started","timestamp":"2024-03-15T10:30:45.000Z"}`+"\n")

	err := Excel(context.Background(), []string{capture}, filepath.Join(dir, "x.xlsx"), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no result sets")
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, "out.xlsx", outputPath("out.xlsx", "a.ndjson", false))
	assert.Equal(t, "out_a.xlsx", outputPath("out.xlsx", "a.ndjson", true))
	assert.Equal(t, "dir/out_b.xlsx", outputPath("dir/out.xlsx", "caps/b.ndjson", true))
}
