package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/saythanks/saythanks/internal/common"
	"github.com/saythanks/saythanks/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

var ts = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleNotes() []*models.Note {
	return []*models.Note{
		models.NewNote("alice", "Thanks, \"really\"", "Bob",
			models.WithID("11111111-1111-1111-1111-111111111111"),
			models.WithTimestamp(ts)),
		models.NewNote("alice", "multi\nline", "Carol",
			models.WithID("22222222-2222-2222-2222-222222222222"),
			models.WithTimestamp(ts.Add(-time.Hour)),
			models.WithAudioPath("notes/2024/3/1/x")),
	}
}

func TestEncode_CSV(t *testing.T) {
	out, err := Encode(sampleNotes(), "CSV")
	require.NoError(t, err)

	recs, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, Header, recs[0])
	assert.Equal(t, "Thanks, \"really\"", recs[1][1])
	assert.Equal(t, "multi\nline", recs[2][1])
	assert.Equal(t, "2024-03-01T12:00:00Z", recs[1][5])
	assert.Equal(t, "notes/2024/3/1/x", recs[2][6])
}

func TestEncode_TSV(t *testing.T) {
	out, err := Encode(sampleNotes(), FormatTSV)
	require.NoError(t, err)

	r := csv.NewReader(bytes.NewReader(out))
	r.Comma = '\t'
	recs, err := r.ReadAll()
	require.NoError(t, err)
	assert.Len(t, recs, 3)
	assert.Equal(t, "Carol", recs[2][2])
}

func TestEncode_JSON(t *testing.T) {
	out, err := Encode(sampleNotes(), FormatJSON)
	require.NoError(t, err)

	var rows []Row
	require.NoError(t, json.Unmarshal(out, &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "Bob", rows[0].Byline)
	assert.True(t, rows[0].Timestamp.Equal(ts))
}

func TestEncode_YAML(t *testing.T) {
	out, err := Encode(sampleNotes(), FormatYAML)
	require.NoError(t, err)

	var rows []map[string]any
	require.NoError(t, yaml.Unmarshal(out, &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "alice", rows[1]["inbox"])
	assert.NotContains(t, rows[0], "audio_path")
}

func TestEncode_XLSX(t *testing.T) {
	out, err := Encode(sampleNotes(), FormatXLSX)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, "Bob", rows[1][2])
}

func TestEncode_Empty(t *testing.T) {
	out, err := Encode(nil, FormatJSON)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(out))

	out, err = Encode(nil, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "uuid,body,byline,inbox,archived,timestamp,audio_path\n", string(out))
}

func TestEncode_UnsupportedFormat(t *testing.T) {
	_, err := Encode(sampleNotes(), "pdf")
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
}

func TestContentType(t *testing.T) {
	for _, f := range Formats() {
		assert.NotEmpty(t, ContentType(f), f)
	}
	assert.Empty(t, ContentType("pdf"))
}
