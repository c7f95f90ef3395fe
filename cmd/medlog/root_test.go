package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/medlog/analytics"
	"github.com/eringen/medlog/visits"
)

const sampleImport = `visits:
  - visit_date: "2024-03-05"
    doctor_name: Dr. Smith
    reason: Persistent cough
    category: Flu/Cold
    follow_up_date: "2024-04-15"
    medications:
      - Amoxicillin
    symptoms:
      - name: Cough
        severity: 6
        category: Respiratory
  - visit_date: "2024-02-10"
    doctor_name: Dr. Jones
    reason: Annual checkup
    category: Checkup
    symptoms:
      - name: Fatigue
        severity: 3
`

func testOptions(t *testing.T, extraConfig ...string) *rootOptions {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "medlog.yaml")
	cfg := "database_path: " + filepath.Join(dir, "medlog.db") + "\n"
	for _, line := range extraConfig {
		cfg += line + "\n"
	}
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))

	return &rootOptions{
		ConfigPath: cfgPath,
		now:        func() time.Time { return time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func run(t *testing.T, opts *rootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := newRootCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append([]string{"--config", opts.ConfigPath}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func writeImportFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "visits.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, testOptions(t), "version")
	require.NoError(t, err)
	assert.Equal(t, "medlog dev\n", out)
}

func TestInvalidFormat(t *testing.T) {
	_, err := run(t, testOptions(t), "--format", "xml", "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestImportThenExport(t *testing.T) {
	opts := testOptions(t)
	file := writeImportFile(t, sampleImport)

	out, err := run(t, opts, "import", file, "--user", "Alice@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "Imported 2 visit(s)\n", out)

	out, err = run(t, opts, "export", "--user", "alice@example.com")
	require.NoError(t, err)

	exported, err := visits.ReadYAML(bytes.NewBufferString(out))
	require.NoError(t, err)
	require.Len(t, exported, 2)
	assert.Equal(t, "2024-03-05", exported[0].Date)
	assert.Equal(t, "2024-02-10", exported[1].Date)
	assert.NotEmpty(t, exported[0].ID)
	assert.Equal(t, []string{"Amoxicillin"}, exported[0].Medications)
	assert.Equal(t, visits.SymptomGeneral, exported[1].Symptoms[0].Category)
	assert.Equal(t, time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC), exported[0].CreatedAt)

	// another user sees nothing
	out, err = run(t, opts, "export", "--user", "bob@example.com")
	require.NoError(t, err)
	empty, err := visits.ReadYAML(bytes.NewBufferString(out))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestImportRejectsInvalidVisit(t *testing.T) {
	opts := testOptions(t)
	file := writeImportFile(t, `visits:
  - visit_date: "2024-03-05"
    doctor_name: Dr. Smith
    reason: Cough
    category: Flu/Cold
    symptoms:
      - name: Cough
        severity: 6
  - visit_date: "not a date"
    doctor_name: Dr. Jones
    reason: Checkup
    category: Checkup
    symptoms:
      - name: Fatigue
        severity: 3
`)

	_, err := run(t, opts, "import", file, "--user", "alice@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "visit 2")

	// nothing is written when any visit is invalid
	out, err := run(t, opts, "export", "--user", "alice@example.com")
	require.NoError(t, err)
	vs, err := visits.ReadYAML(bytes.NewBufferString(out))
	require.NoError(t, err)
	assert.Empty(t, vs)
}

func TestUserFlagMatchesSignInParsing(t *testing.T) {
	opts := testOptions(t)
	_, err := run(t, opts, "import", writeImportFile(t, sampleImport), "--user", "Alice <Alice@Example.com>")
	require.NoError(t, err)

	out, err := run(t, opts, "export", "--user", "alice@example.com")
	require.NoError(t, err)
	vs, err := visits.ReadYAML(bytes.NewBufferString(out))
	require.NoError(t, err)
	assert.Len(t, vs, 2)

	_, err = run(t, opts, "export", "--user", "not-an-email")
	require.Error(t, err)
	assert.ErrorIs(t, err, visits.ErrInvalidEmail)
}

func TestUserFlagRequired(t *testing.T) {
	_, err := run(t, testOptions(t), "export")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--user is required")
}

func TestStatsJSON(t *testing.T) {
	opts := testOptions(t)
	_, err := run(t, opts, "import", writeImportFile(t, sampleImport), "--user", "alice@example.com")
	require.NoError(t, err)

	out, err := run(t, opts, "--format", "json", "stats", "--user", "alice@example.com", "--range", "3")
	require.NoError(t, err)

	var rep analytics.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, 3, rep.RangeMonths)
	assert.Equal(t, 2, rep.Summary.TotalVisits)
	assert.InDelta(t, 4.5, rep.Summary.AvgSeverity, 0.001)
	require.Len(t, rep.Monthly, 3)
	assert.Equal(t, "2024-02", rep.Monthly[0].Month)
	assert.Equal(t, 0, rep.Monthly[2].Visits)
}

func TestStatsUsesConfiguredDefaultRange(t *testing.T) {
	opts := testOptions(t, "default_range_months: 12")
	_, err := run(t, opts, "import", writeImportFile(t, sampleImport), "--user", "alice@example.com")
	require.NoError(t, err)

	out, err := run(t, opts, "--format", "json", "stats", "--user", "alice@example.com")
	require.NoError(t, err)
	var rep analytics.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, 12, rep.RangeMonths)

	out, err = run(t, opts, "--format", "json", "stats", "--user", "alice@example.com", "--range", "24")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, 24, rep.RangeMonths)
}

func TestStatsText(t *testing.T) {
	opts := testOptions(t)
	_, err := run(t, opts, "import", writeImportFile(t, sampleImport), "--user", "alice@example.com")
	require.NoError(t, err)

	out, err := run(t, opts, "stats", "--user", "alice@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Total visits:   2")
	assert.Contains(t, out, "Feb 2024")
	assert.Contains(t, out, analytics.Disclaimer)

	out, err = run(t, opts, "stats", "--user", "nobody@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "No data available for the selected time period.")
}
