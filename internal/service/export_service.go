package service

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/gradebook-api/internal/dto"
	appErrors "github.com/noah-isme/gradebook-api/pkg/errors"
	"github.com/noah-isme/gradebook-api/pkg/export"
)

var transcriptHeaders = []string{"Class", "Module", "Assignment", "Exam", "Coefficient", "Average"}

// ExportFile is a rendered transcript ready to be downloaded.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders semester reports as downloadable transcripts.
type ExportService struct {
	renderers   map[string]export.Renderer
	titlePrefix string
	logger      *zap.Logger
}

// NewExportService constructs an ExportService. CSV and PDF are registered when no renderer is given.
func NewExportService(titlePrefix string, logger *zap.Logger, renderers ...export.Renderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(renderers) == 0 {
		renderers = []export.Renderer{export.NewCSVExporter(), export.NewPDFExporter()}
	}
	byFormat := make(map[string]export.Renderer, len(renderers))
	for _, renderer := range renderers {
		byFormat[renderer.Extension()] = renderer
	}
	return &ExportService{renderers: byFormat, titlePrefix: strings.TrimSpace(titlePrefix), logger: logger}
}

// Formats lists the supported export formats.
func (s *ExportService) Formats() []string {
	formats := make([]string, 0, len(s.renderers))
	for format := range s.renderers {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

// Render builds the transcript dataset for report and renders it in format.
func (s *ExportService) Render(report dto.SemesterReport, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedFormat, fmt.Sprintf("unsupported export format %q, use one of %s", format, strings.Join(s.Formats(), ", ")))
	}

	payload, err := renderer.Render(s.buildTranscript(report))
	if err != nil {
		s.logger.Error("render transcript failed", zap.String("semester_id", report.SemesterID), zap.String("format", format), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ExportFile{
		Filename:    s.buildFilename(report, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Data:        payload,
	}, nil
}

func (s *ExportService) buildTranscript(report dto.SemesterReport) export.Dataset {
	rows := make([]map[string]string, 0)
	summary := make([]export.SummaryLine, 0, len(report.Classes)+2)
	for _, class := range report.Classes {
		for _, module := range class.Modules {
			rows = append(rows, map[string]string{
				"Class":       class.Name,
				"Module":      module.Name,
				"Assignment":  module.AssignmentDisplay,
				"Exam":        module.ExamDisplay,
				"Coefficient": strconv.FormatFloat(module.Coefficient, 'f', -1, 64),
				"Average":     module.AverageDisplay,
			})
		}
		summary = append(summary, export.SummaryLine{
			Label: "Class average: " + class.Name,
			Value: formatStats(class.Stats),
		})
	}
	summary = append(summary,
		export.SummaryLine{Label: "Semester average", Value: formatStats(report.Stats)},
		export.SummaryLine{Label: "Weighted average", Value: report.WeightedAverageDisplay + "/20"},
	)

	title := report.Name
	if s.titlePrefix != "" {
		title = s.titlePrefix + " - " + report.Name
	}
	return export.Dataset{Title: title, Headers: transcriptHeaders, Rows: rows, Summary: summary}
}

func (s *ExportService) buildFilename(report dto.SemesterReport, extension string) string {
	return fmt.Sprintf("%s_%s.%s", sanitizeFilename(report.Name), report.GeneratedAt.UTC().Format("20060102_150405"), extension)
}

func formatStats(stats dto.StatsView) string {
	return fmt.Sprintf("%s/20 (%d/%d completed)", stats.AverageDisplay, stats.CompletedModules, stats.TotalModules)
}

func sanitizeFilename(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return "semester"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "\"", "", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
