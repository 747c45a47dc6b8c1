package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/studentperf/analysis"
	"github.com/spektr-org/studentperf/fetch"
	"github.com/spektr-org/studentperf/store"
)

const sampleCSV = `school;sex;Mjob;studytime;internet;G3
GP;F;teacher;2;yes;15
GP;M;health;3;no;12
MS;F;teacher;1;yes;10
MS;M;other;4;yes;17
`

var downloaded = fetch.Source{URL: "https://example.org/student.zip", Member: "student-mat.csv"}

func TestExplainMemberNotFound(t *testing.T) {
	err := &analysis.StageError{Stage: analysis.StageLoading, Err: &fetch.MemberNotFoundError{
		Member: "student-mat.csv",
		Found:  []string{"student-por.csv", "student.txt"},
	}}
	lines := explain(err, downloaded)
	require.Len(t, lines, 2)
	assert.Equal(t, "Error: 'student-mat.csv' not found inside the downloaded ZIP archive.", lines[0])
	assert.Equal(t, "Files found: [student-por.csv student.txt]", lines[1])
}

func TestExplainBadArchive(t *testing.T) {
	err := fmt.Errorf("%w: zip: not a valid zip file", fetch.ErrBadArchive)
	assert.Equal(t,
		[]string{"Error: Failed to open the downloaded file as a ZIP archive. It might be corrupted or incomplete."},
		explain(err, downloaded))
}

func TestExplainDownload(t *testing.T) {
	err := &analysis.StageError{Stage: analysis.StageLoading, Err: fmt.Errorf("%w: connection refused", fetch.ErrDownload)}
	lines := explain(err, downloaded)
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "An error occurred while downloading the ZIP file: "))
	assert.Contains(t, lines[0], "connection refused")
	assert.Equal(t, "Please check your internet connection and the URL.", lines[1])
}

func TestExplainLocalArchive(t *testing.T) {
	local := fetch.Source{Path: "data/student.zip", Member: "student-mat.csv"}

	lines := explain(&fetch.MemberNotFoundError{Member: "student-mat.csv", Found: []string{"a.csv"}}, local)
	require.Len(t, lines, 2)
	assert.Equal(t, "Error: 'student-mat.csv' not found inside the ZIP archive 'data/student.zip'.", lines[0])

	lines = explain(fmt.Errorf("%w: zip: not a valid zip file", fetch.ErrBadArchive), local)
	assert.Equal(t,
		[]string{"Error: Failed to open 'data/student.zip' as a ZIP archive. It might be corrupted or incomplete."},
		lines)
}

func TestExplainStage(t *testing.T) {
	err := &analysis.StageError{Stage: analysis.StageVisualization, Err: errors.New("disk full")}
	assert.Equal(t, []string{"An unexpected error occurred during visualization: disk full"}, explain(err, downloaded))
}

func TestExplainOther(t *testing.T) {
	assert.Equal(t, []string{"An unexpected error occurred: boom"}, explain(errors.New("boom"), downloaded))
	assert.Equal(t, []string{"Interrupted."}, explain(fmt.Errorf("load: %w", context.Canceled), downloaded))
}

func TestRunVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-version"}, &stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.Equal(t, "studentperf "+version+"\n", stdout.String())
}

func TestRunBadFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-no-such-flag"}, &stdout, &stderr)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "no-such-flag")
}

func TestRunBadFilter(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-filter", "school"}, &stdout, &stderr)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "expected dimension=value")
}

func TestRunHistoryRequiresDB(t *testing.T) {
	t.Setenv("DB_PATH", "")
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-history", "5"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "--history requires --db")
}

func TestRunLocalFileRecordsHistory(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "student-mat.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(sampleCSV), 0o644))
	dbPath := filepath.Join(dir, "runs.db")
	t.Setenv("LOG_LEVEL", "error")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{
		"-file", csvPath, "-no-plots", "-db", dbPath, "-csv", filepath.Join(dir, "means.csv"), "-filter", "school=GP",
	}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	out := stdout.String()
	assert.Contains(t, out, "--- Loading Data from "+csvPath+" ---")
	assert.Contains(t, out, "Run recorded as ")
	assert.Contains(t, out, "Rows matching school=GP: 2")
	assert.True(t, strings.HasSuffix(out, "\nAnalysis and Visualization Complete.\n"))
	assert.FileExists(t, filepath.Join(dir, "means.csv"))

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	runs, err := st.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.NoError(t, st.Close())
	require.Len(t, runs, 1)
	assert.Equal(t, 4, runs[0].RowsAfter)

	means, err := os.ReadFile(filepath.Join(dir, "means.csv"))
	require.NoError(t, err)
	assert.Equal(t, "Mjob,Average G3,Count\nhealth,12.000000,1\nteacher,15.000000,1\n", string(means))

	stdout.Reset()
	code = run(context.Background(), []string{"-db", dbPath, "-history", "3"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), runs[0].ID)
	assert.Contains(t, stdout.String(), "mean G3 by Mjob")
}

func TestRunDiscover(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "student-mat.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(sampleCSV), 0o644))
	t.Setenv("LOG_LEVEL", "error")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-file", csvPath, "-discover"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), `"key": "G3"`)
	assert.Contains(t, stdout.String(), `"dtype": "int64"`)
}

func TestRunUnknownFilterColumn(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "student-mat.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(sampleCSV), 0o644))
	t.Setenv("LOG_LEVEL", "error")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-file", csvPath, "-no-plots", "-filter", "shcool=GP"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "An unexpected error occurred during data analysis")
	assert.Contains(t, stderr.String(), `filter column "shcool" does not exist`)
}

func TestRunMissingFile(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-file", filepath.Join(t.TempDir(), "nope.csv"), "-no-plots"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "An unexpected error occurred during data loading")
	assert.NotContains(t, stdout.String(), "An unexpected error")
}
