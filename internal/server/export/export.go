// Package export encodes notes into downloadable tabular formats.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/saythanks/saythanks/internal/common"
	"github.com/saythanks/saythanks/internal/server/models"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

const (
	FormatCSV  = "csv"
	FormatTSV  = "tsv"
	FormatXLSX = "xlsx"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Header is the column order shared by every tabular format.
var Header = []string{"uuid", "body", "byline", "inbox", "archived", "timestamp", "audio_path"}

const sheetName = "notes"

// Row is the serialized form of a note in json and yaml exports.
type Row struct {
	UUID      string    `json:"uuid" yaml:"uuid"`
	Body      string    `json:"body" yaml:"body"`
	Byline    string    `json:"byline" yaml:"byline"`
	Inbox     string    `json:"inbox" yaml:"inbox"`
	Archived  bool      `json:"archived" yaml:"archived"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	AudioPath string    `json:"audio_path,omitempty" yaml:"audio_path,omitempty"`
}

func toRow(n *models.Note) Row {
	return Row{
		UUID:      n.ID,
		Body:      n.Body,
		Byline:    n.Byline,
		Inbox:     n.Inbox,
		Archived:  n.Archived,
		Timestamp: n.Timestamp.UTC(),
		AudioPath: n.AudioPath,
	}
}

func (r Row) fields() []string {
	return []string{
		r.UUID,
		r.Body,
		r.Byline,
		r.Inbox,
		strconv.FormatBool(r.Archived),
		r.Timestamp.Format(time.RFC3339),
		r.AudioPath,
	}
}

// Formats lists the accepted format names.
func Formats() []string {
	return []string{FormatCSV, FormatTSV, FormatXLSX, FormatJSON, FormatYAML}
}

// ContentType returns the MIME type for a format, or "" if unknown.
func ContentType(format string) string {
	switch strings.ToLower(format) {
	case FormatCSV:
		return "text/csv"
	case FormatTSV:
		return "text/tab-separated-values"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatJSON:
		return "application/json"
	case FormatYAML:
		return "application/yaml"
	}
	return ""
}

// Encode renders notes in the named format. Format names are case-insensitive.
func Encode(notes []*models.Note, format string) ([]byte, error) {
	rows := make([]Row, 0, len(notes))
	for _, n := range notes {
		rows = append(rows, toRow(n))
	}

	switch strings.ToLower(format) {
	case FormatCSV:
		return encodeDelimited(rows, ',')
	case FormatTSV:
		return encodeDelimited(rows, '\t')
	case FormatXLSX:
		return encodeXLSX(rows)
	case FormatJSON:
		return json.MarshalIndent(rows, "", "  ")
	case FormatYAML:
		return yaml.Marshal(rows)
	default:
		return nil, fmt.Errorf("%w: %q", common.ErrUnsupportedFormat, format)
	}
}

func encodeDelimited(rows []Row, comma rune) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = comma

	if err := w.Write(Header); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := w.Write(r.fields()); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeXLSX(rows []Row) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	if err := f.SetSheetRow(sheetName, "A1", &Header); err != nil {
		return nil, err
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := []any{r.UUID, r.Body, r.Byline, r.Inbox, r.Archived, r.Timestamp, r.AudioPath}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
