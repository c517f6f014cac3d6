package export

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/mano-sesan/mano-stats/internal/domain"
	"github.com/mano-sesan/mano-stats/internal/repository"
	"github.com/mano-sesan/mano-stats/internal/stats"
)

// Format selects the output encoding of an export.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ErrUnsupportedFormat is returned when the requested format is not known.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Service streams cohort results as downloadable files.
type Service struct {
	organizations repository.OrganizationRepository
	stats         *stats.Service

	now func() time.Time
}

type Option func(*Service)

// WithClock overrides the time source used for file names.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(organizations repository.OrganizationRepository, statsService *stats.Service, opts ...Option) *Service {
	service := &Service{
		organizations: organizations,
		stats:         statsService,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	if service.now == nil {
		service.now = time.Now
	}
	return service
}

// Request describes one cohort export.
type Request struct {
	OrganizationID uuid.UUID
	Query          domain.CohortQuery
	Format         Format
}

// Result reports what was written.
type Result struct {
	FileName     string `json:"fileName"`
	MimeType     string `json:"mimeType"`
	Rows         int    `json:"rows"`
	BytesWritten int64  `json:"bytesWritten"`
}

// ExportCohort classifies the organization's persons and writes the cohort
// list to w in the requested format.
func (s *Service) ExportCohort(ctx context.Context, req Request, w io.Writer) (Result, error) {
	if req.OrganizationID == uuid.Nil {
		return Result{}, errors.New("organization ID is required")
	}

	org, err := s.organizations.GetByID(ctx, req.OrganizationID)
	if err != nil {
		return Result{}, fmt.Errorf("validate organization: %w", err)
	}

	cohort, err := s.stats.CohortStats(ctx, req.OrganizationID, req.Query)
	if err != nil {
		return Result{}, err
	}

	headers := exportHeaders(org)
	rows := make([][]string, 0, len(cohort.PersonsForStats))
	for _, person := range cohort.PersonsForStats {
		rows = append(rows, personRow(person, headers))
	}

	result := Result{
		FileName: s.fileName(org, req),
		Rows:     len(rows),
	}

	buffered := bufio.NewWriterSize(w, 1<<20)
	counter := &countingWriter{writer: buffered}

	switch req.Format {
	case FormatCSV, "":
		result.MimeType = "text/csv"
		err = writeCSV(counter, headers, rows)
	case FormatXLSX:
		result.MimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		err = writeXLSX(counter, headers, rows)
	default:
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Format)
	}
	if err != nil {
		return Result{}, err
	}
	if err := buffered.Flush(); err != nil {
		return Result{}, fmt.Errorf("flush export: %w", err)
	}

	result.BytesWritten = counter.count
	log.Printf("[export] cohort export for organization %s completed (mode=%s rows=%d bytes=%d)",
		req.OrganizationID, req.Query.Mode, result.Rows, result.BytesWritten)
	return result, nil
}

// describe resolves the file name and MIME type for a request without
// running the export, so HTTP headers can be set before streaming.
func (s *Service) describe(ctx context.Context, req Request) (string, string, error) {
	if req.OrganizationID == uuid.Nil {
		return "", "", errors.New("organization ID is required")
	}
	var mime string
	switch req.Format {
	case FormatCSV, "":
		mime = "text/csv"
	case FormatXLSX:
		mime = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Format)
	}
	org, err := s.organizations.GetByID(ctx, req.OrganizationID)
	if err != nil {
		return "", "", fmt.Errorf("validate organization: %w", err)
	}
	return s.fileName(org, req), mime, nil
}

func (s *Service) fileName(org domain.Organization, req Request) string {
	ext := "csv"
	if req.Format == FormatXLSX {
		ext = "xlsx"
	}
	mode := req.Query.Mode
	if mode == "" {
		mode = domain.CohortModeAll
	}
	return fmt.Sprintf("cohort_%s_%s_%s.%s",
		sanitizeFileComponent(org.Name),
		sanitizeFileComponent(string(mode)),
		s.now().UTC().Format("20060102-150405"),
		ext)
}

// exportHeaders returns the fixed person columns followed by the
// organization's custom fields in alphabetical order.
func exportHeaders(org domain.Organization) []string {
	headers := []string{"id", "name", "followedSince", "outOfActiveList", "assignedTeams"}

	custom := make([]string, 0, len(org.CustomFields))
	for _, field := range org.CustomFields {
		custom = append(custom, field.Name)
	}
	sort.Strings(custom)
	return append(headers, custom...)
}

func personRow(person domain.Person, headers []string) []string {
	row := make([]string, len(headers))
	for i, header := range headers {
		switch header {
		case "id":
			row[i] = person.ID.String()
		case "name":
			row[i] = formatValue(person.Fields["name"])
		case "followedSince":
			if !person.FollowedSince.IsZero() {
				row[i] = person.FollowedSince.UTC().Format(time.DateOnly)
			}
		case "outOfActiveList":
			row[i] = formatValue(person.OutOfActiveList)
		case "assignedTeams":
			row[i] = strings.Join(person.AssignedTeams, "; ")
		default:
			row[i] = formatValue(person.Fields[header])
		}
	}
	return row
}

func writeCSV(w io.Writer, headers []string, rows [][]string) error {
	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write(headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func writeXLSX(w io.Writer, headers []string, rows [][]string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	stream, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("open stream writer: %w", err)
	}

	cell, err := excelize.CoordinatesToCellName(1, 1)
	if err != nil {
		return fmt.Errorf("resolve header cell: %w", err)
	}
	if err := stream.SetRow(cell, toCells(headers)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for idx, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, idx+2)
		if err != nil {
			return fmt.Errorf("resolve row cell: %w", err)
		}
		if err := stream.SetRow(cell, toCells(row)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	if err := stream.Flush(); err != nil {
		return fmt.Errorf("flush stream writer: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func toCells(values []string) []any {
	cells := make([]any, len(values))
	for i, value := range values {
		cells[i] = value
	}
	return cells
}

func sanitizeFileComponent(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return ""
	}
	builder := strings.Builder{}
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
			builder.WriteRune(r)
		case r >= '0' && r <= '9':
			builder.WriteRune(r)
		case r == '-' || r == '_':
			builder.WriteRune(r)
		case r == ' ':
			builder.WriteRune('-')
		default:
			builder.WriteRune('-')
		}
	}
	result := builder.String()
	result = strings.Trim(result, "-")
	if result == "" {
		return "export"
	}
	return result
}

type countingWriter struct {
	writer *bufio.Writer
	count  int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.writer.Write(p)
	c.count += int64(n)
	return n, err
}

func formatValue(value any) string {
	if value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case *time.Time:
		if v == nil {
			return ""
		}
		return v.UTC().Format(time.RFC3339)
	case bool:
		if v {
			return "Oui"
		}
		return "Non"
	case json.Number:
		return v.String()
	case float32, float64, int, int32, int64, uint, uint32, uint64:
		return fmt.Sprintf("%v", v)
	case []byte:
		return string(v)
	case map[string]any, []any:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	case []string:
		return strings.Join(v, "; ")
	default:
		return fmt.Sprintf("%v", v)
	}
}
