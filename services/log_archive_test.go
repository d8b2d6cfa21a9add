package services

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLogArchive(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	logs := []ArchivedLog{
		{ID: 1, UserID: 2, Email: "a@x.io", Action: "CREATE", Resource: "bookings", ResourceID: 9,
			Details: map[string]interface{}{"note": `say "hi", ok`}, CreatedAt: created},
		{ID: 2, Action: "DELETE", Resource: "forums", CreatedAt: created.Add(time.Hour)},
	}
	buf, err := BuildLogArchive(logs, "activity_logs_test.zip")
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	files := map[string][]byte{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		files[f.Name] = b
	}
	require.Contains(t, files, "activity_logs.json")
	require.Contains(t, files, "activity_logs.csv")
	require.Contains(t, files, "metadata.json")

	var payload struct {
		RecordCount int           `json:"record_count"`
		Logs        []ArchivedLog `json:"logs"`
	}
	require.NoError(t, json.Unmarshal(files["activity_logs.json"], &payload))
	assert.Equal(t, 2, payload.RecordCount)
	assert.Equal(t, "bookings", payload.Logs[0].Resource)

	rows, err := csv.NewReader(bytes.NewReader(files["activity_logs.csv"])).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "a@x.io", rows[1][2])
	assert.Equal(t, "2026-01-02 03:04:05", rows[1][9])
	assert.JSONEq(t, `{"note":"say \"hi\", ok"}`, rows[1][10])
	assert.Equal(t, "", rows[2][10])
}

func TestCronSpec(t *testing.T) {
	assert.Equal(t, "@hourly", cronSpec("", "@hourly"))
	assert.Equal(t, "*/5 * * * *", cronSpec("*/5 * * * *", "@hourly"))
}
