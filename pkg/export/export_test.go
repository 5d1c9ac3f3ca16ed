package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Transcript - Semestre 1",
		Headers: []string{"Class", "Module", "Average"},
		Rows: []map[string]string{
			{"Class": "Maths", "Module": "Algèbre", "Average": "14.80"},
			{"Class": "Maths", "Module": "Analyse", "Average": "--"},
		},
		Summary: []SummaryLine{{Label: "Semester average", Value: "14.80"}},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, []string{"Class", "Module", "Average"}, records[0])
	assert.Equal(t, []string{"Maths", "Analyse", "--"}, records[2])
	assert.Equal(t, []string{"", "", ""}, records[3])
	assert.Equal(t, []string{"Semester average", "14.80", ""}, records[4])
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset())
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	reader, err := pdf.NewReader(bytes.NewReader(out), int64(len(out)))
	require.NoError(t, err)
	assert.Equal(t, 1, reader.NumPage())
}

func TestRenderersDescribeThemselves(t *testing.T) {
	var renderers = []Renderer{NewCSVExporter(), NewPDFExporter()}
	assert.Equal(t, "csv", renderers[0].Extension())
	assert.Equal(t, "application/pdf", renderers[1].ContentType())
}
