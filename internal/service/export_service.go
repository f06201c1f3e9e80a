package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/gigboard/internal/codec"
	"github.com/noah-isme/gigboard/internal/models"
	"github.com/noah-isme/gigboard/pkg/export"
)

// ExportFormat names a supported export document type.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

// ErrUnknownExportFormat is returned by ParseExportFormat.
var ErrUnknownExportFormat = errors.New("unknown export format")

// ParseExportFormat reads a format name. An empty name means CSV.
func ParseExportFormat(name string) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(strings.TrimSpace(name))); f {
	case "":
		return ExportCSV, nil
	case ExportCSV, ExportPDF:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownExportFormat, name)
}

// ExportHeaders are the columns of an event export.
var ExportHeaders = []string{"Title", "Date", "Time", "Venue", "Address", "Tickets"}

type renderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// ExportResult is a rendered export ready to be sent as an attachment.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders event lists as downloadable documents.
type ExportService struct {
	codec     *codec.Codec
	renderers map[ExportFormat]renderer
	logger    *zap.Logger
}

// NewExportService constructs an ExportService with the CSV and PDF
// renderers.
func NewExportService(c *codec.Codec, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		codec: c,
		renderers: map[ExportFormat]renderer{
			ExportCSV: export.NewCSVExporter(),
			ExportPDF: export.NewPDFExporter(),
		},
		logger: logger,
	}
}

// Dataset converts events into export rows in display format. Events whose
// dates cannot be read keep their raw date text.
func (s *ExportService) Dataset(events []models.Event, filter Filter) export.Dataset {
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		date, startTime, err := s.codec.DisplayRange(e)
		if err != nil {
			s.logger.Debug("export keeps raw event date", zap.String("event_id", e.ID.String()), zap.Error(err))
			date = e.Date
		}
		rows = append(rows, []string{
			e.Title,
			date,
			startTime,
			deref(e.Venue),
			deref(e.Location),
			deref(e.TicketURL),
		})
	}

	title := "Events"
	if filter != "" && filter != FilterAll {
		title += " – " + strings.ToUpper(string(filter[:1])) + string(filter[1:])
	}
	return export.Dataset{Title: title, Headers: ExportHeaders, Rows: rows}
}

// Export renders events in the requested format.
func (s *ExportService) Export(events []models.Event, filter Filter, format ExportFormat, now time.Time) (*ExportResult, error) {
	r, ok := s.renderers[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownExportFormat, format)
	}
	body, err := r.Render(s.Dataset(events, filter))
	if err != nil {
		return nil, fmt.Errorf("render %s export: %w", format, err)
	}
	if filter == "" {
		filter = FilterAll
	}
	return &ExportResult{
		Filename:    fmt.Sprintf("events-%s-%s.%s", filter, now.In(s.codec.Location()).Format("20060102"), r.Extension()),
		ContentType: r.ContentType(),
		Body:        body,
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
