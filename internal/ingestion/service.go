package ingestion

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mano-sesan/mano-stats/internal/domain"
	"github.com/mano-sesan/mano-stats/internal/repository"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

var (
	// ErrUnsupportedFormat is returned when an uploaded file is not supported.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrUnknownKind is returned when the import kind is not recognized.
	ErrUnknownKind = errors.New("unknown import kind")

	byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

	timeLayouts = []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04:05.000",
		"2006-01-02 15:04:05.000000",
		"2006/01/02",
		"02/01/2006",
	}
)

// Kind selects which person data set an uploaded file feeds.
type Kind string

const (
	KindPersons      Kind = "persons"
	KindInteractions Kind = "interactions"
	KindTeamChanges  Kind = "team-changes"
)

// Service imports tabular person data from CSV and XLSX uploads.
type Service struct {
	persons repository.PersonRepository
	logRepo repository.IngestionLogRepository
}

// NewService creates a new ingestion service.
func NewService(persons repository.PersonRepository, logRepo repository.IngestionLogRepository) *Service {
	return &Service{
		persons: persons,
		logRepo: logRepo,
	}
}

// Request describes the ingestion input.
type Request struct {
	OrganizationID uuid.UUID
	Kind           Kind
	FileName       string
	HeaderRowIndex *int
	Data           io.Reader
}

// Summary returns ingestion level metrics.
type Summary struct {
	TotalRows   int `json:"totalRows"`
	ValidRows   int `json:"validRows"`
	InvalidRows int `json:"invalidRows"`
}

type tableData struct {
	headers        []string
	rawHeaders     []string
	rows           [][]string
	headerRowIndex int
}

// Ingest reads the uploaded file and persists the rows it can parse. Row
// level failures are recorded through the ingestion log repository and do not
// abort the import.
func (s *Service) Ingest(ctx context.Context, req Request) (Summary, error) {
	var summary Summary

	if req.OrganizationID == uuid.Nil {
		return summary, errors.New("organization id is required")
	}
	if req.Data == nil {
		return summary, errors.New("data reader is required")
	}

	payload, err := io.ReadAll(req.Data)
	if err != nil {
		return summary, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(payload) == 0 {
		return summary, errors.New("file is empty")
	}

	table, err := parseTable(req.FileName, payload, req.HeaderRowIndex)
	if err != nil {
		return summary, err
	}
	if len(table.headers) == 0 {
		return summary, errors.New("no header row detected")
	}

	summary.TotalRows = len(table.rows)

	switch req.Kind {
	case KindPersons:
		err = s.ingestPersons(ctx, req, table, &summary)
	case KindInteractions:
		err = s.ingestInteractions(ctx, req, table, &summary)
	case KindTeamChanges:
		err = s.ingestTeamChanges(ctx, req, table, &summary)
	default:
		return summary, fmt.Errorf("%w: %s", ErrUnknownKind, req.Kind)
	}
	if err != nil {
		return summary, err
	}

	log.Printf("[ingest] imported %s file %q: %d rows, %d valid, %d invalid",
		req.Kind, req.FileName, summary.TotalRows, summary.ValidRows, summary.InvalidRows)
	return summary, nil
}

func (s *Service) ingestPersons(ctx context.Context, req Request, table tableData, summary *Summary) error {
	nameCol := findColumn(table.headers, "name", "nom")
	if nameCol < 0 {
		return errors.New("persons file requires a name column")
	}
	followedCol := findColumn(table.headers, "followed_since", "followedSince", "suivi_depuis")
	outCol := findColumn(table.headers, "out_of_active_list", "outOfActiveList")
	teamsCol := findColumn(table.headers, "assigned_teams", "assignedTeams", "teams")

	reserved := map[int]bool{nameCol: true}
	if followedCol >= 0 {
		reserved[followedCol] = true
	}
	if outCol >= 0 {
		reserved[outCol] = true
	}
	if teamsCol >= 0 {
		reserved[teamsCol] = true
	}

	for rowIdx, row := range table.rows {
		rowNumber := table.headerRowIndex + rowIdx + 2 // include header row (1-based)

		name := strings.TrimSpace(row[nameCol])
		if name == "" {
			summary.InvalidRows++
			s.rowError(ctx, req, rowNumber, errors.New("name is required"))
			continue
		}

		person := domain.Person{
			OrganizationID: req.OrganizationID,
			Fields:         map[string]any{"name": name},
		}

		if followedCol >= 0 {
			raw := strings.TrimSpace(row[followedCol])
			if raw != "" {
				ts, err := parseTimestamp(raw)
				if err != nil {
					summary.InvalidRows++
					s.rowError(ctx, req, rowNumber, fmt.Errorf("followed_since: %w", err))
					continue
				}
				person.FollowedSince = ts
			}
		}
		if outCol >= 0 {
			person.OutOfActiveList = parseFlag(row[outCol])
		}
		if teamsCol >= 0 {
			person.AssignedTeams = splitList(row[teamsCol])
		}

		for colIdx, header := range table.headers {
			if reserved[colIdx] || colIdx >= len(row) {
				continue
			}
			raw := strings.TrimSpace(row[colIdx])
			if raw == "" {
				continue
			}
			person.Fields[header] = raw
		}

		if _, err := s.persons.Create(ctx, person); err != nil {
			summary.InvalidRows++
			s.rowError(ctx, req, rowNumber, fmt.Errorf("failed to persist person: %w", err))
			continue
		}
		summary.ValidRows++
	}

	return nil
}

func (s *Service) ingestInteractions(ctx context.Context, req Request, table tableData, summary *Summary) error {
	personCol := findColumn(table.headers, "person_id", "personId", "person")
	dateCol := findColumn(table.headers, "date")
	if personCol < 0 || dateCol < 0 {
		return errors.New("interactions file requires person_id and date columns")
	}

	grouped := make(map[uuid.UUID][]time.Time)
	for rowIdx, row := range table.rows {
		rowNumber := table.headerRowIndex + rowIdx + 2

		personID, ts, err := parsePersonDate(row, personCol, dateCol)
		if err != nil {
			summary.InvalidRows++
			s.rowError(ctx, req, rowNumber, err)
			continue
		}

		grouped[personID] = append(grouped[personID], ts)
		summary.ValidRows++
	}

	for personID, dates := range grouped {
		if err := s.persons.AddInteractions(ctx, personID, dates); err != nil {
			return fmt.Errorf("failed to persist interactions for %s: %w", personID, err)
		}
	}
	return nil
}

func (s *Service) ingestTeamChanges(ctx context.Context, req Request, table tableData, summary *Summary) error {
	personCol := findColumn(table.headers, "person_id", "personId", "person")
	dateCol := findColumn(table.headers, "date")
	teamsCol := findColumn(table.headers, "assigned_teams", "assignedTeams", "teams")
	if personCol < 0 || dateCol < 0 || teamsCol < 0 {
		return errors.New("team changes file requires person_id, date and assigned_teams columns")
	}

	grouped := make(map[uuid.UUID][]domain.TeamChange)
	for rowIdx, row := range table.rows {
		rowNumber := table.headerRowIndex + rowIdx + 2

		personID, ts, err := parsePersonDate(row, personCol, dateCol)
		if err != nil {
			summary.InvalidRows++
			s.rowError(ctx, req, rowNumber, err)
			continue
		}

		grouped[personID] = append(grouped[personID], domain.TeamChange{
			Date:          ts,
			AssignedTeams: splitList(row[teamsCol]),
		})
		summary.ValidRows++
	}

	for personID, changes := range grouped {
		// The membership log is consumed in chronological order.
		sort.Slice(changes, func(i, j int) bool {
			return changes[i].Date.Before(changes[j].Date)
		})
		if err := s.persons.AddTeamChanges(ctx, personID, changes); err != nil {
			return fmt.Errorf("failed to persist team changes for %s: %w", personID, err)
		}
	}
	return nil
}

func parsePersonDate(row []string, personCol, dateCol int) (uuid.UUID, time.Time, error) {
	personID, err := uuid.Parse(strings.TrimSpace(row[personCol]))
	if err != nil {
		return uuid.Nil, time.Time{}, fmt.Errorf("invalid person id: %w", err)
	}
	ts, err := parseTimestamp(row[dateCol])
	if err != nil {
		return uuid.Nil, time.Time{}, fmt.Errorf("date: %w", err)
	}
	return personID, ts, nil
}

func findColumn(headers []string, names ...string) int {
	for idx, header := range headers {
		for _, name := range names {
			if strings.EqualFold(header, name) {
				return idx
			}
		}
	}
	return -1
}

func parseFlag(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "oui":
		return true
	default:
		return false
	}
}

func splitList(raw string) []string {
	var values []string
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part != "" {
			values = append(values, part)
		}
	}
	return values
}

func parseTable(fileName string, payload []byte, headerRowIndex *int) (tableData, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv":
		return parseCSV(payload, headerRowIndex)
	case ".xlsx":
		return parseExcel(payload, headerRowIndex)
	default:
		return tableData{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

func parseCSV(payload []byte, headerRowIndex *int) (tableData, error) {
	reader := bufio.NewReader(bytes.NewReader(payload))
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return tableData{}, fmt.Errorf("failed to read csv: %w", err)
	}

	return normalizeTable(records, headerRowIndex)
}

func parseExcel(payload []byte, headerRowIndex *int) (tableData, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return tableData{}, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return tableData{}, errors.New("excel file has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return tableData{}, fmt.Errorf("failed to read rows from xlsx: %w", err)
	}

	return normalizeTable(rows, headerRowIndex)
}

func normalizeTable(records [][]string, headerRowIndex *int) (tableData, error) {
	if len(records) == 0 {
		return tableData{}, errors.New("no rows found in file")
	}

	var headerRow []string
	var dataRows [][]string
	headerIndex := -1

	if headerRowIndex != nil {
		if *headerRowIndex < 0 || *headerRowIndex >= len(records) {
			return tableData{}, fmt.Errorf("header row index %d out of range", *headerRowIndex)
		}
		selected := cleanRow(records[*headerRowIndex])
		if len(selected) == 0 {
			return tableData{}, fmt.Errorf("selected header row %d is empty", *headerRowIndex+1)
		}
		headerRow = records[*headerRowIndex]
		headerIndex = *headerRowIndex
		for idx := *headerRowIndex + 1; idx < len(records); idx++ {
			row := records[idx]
			if len(cleanRow(row)) == 0 {
				continue
			}
			dataRows = append(dataRows, row)
		}
	} else {
		for idx, row := range records {
			if len(cleanRow(row)) == 0 {
				continue
			}
			if headerRow == nil {
				headerRow = row
				headerIndex = idx
				continue
			}
			dataRows = append(dataRows, row)
		}
	}

	if headerRow == nil {
		return tableData{}, errors.New("header row could not be detected")
	}

	headers := sanitizeHeaders(headerRow)
	rawHeaders := make([]string, len(headerRow))
	for i, value := range headerRow {
		rawHeaders[i] = strings.TrimSpace(value)
	}

	for i := range dataRows {
		dataRows[i] = padRow(dataRows[i], len(headers))
	}

	dataRows = filterEmptyRows(dataRows)

	return tableData{
		headers:        headers,
		rawHeaders:     rawHeaders,
		rows:           dataRows,
		headerRowIndex: headerIndex,
	}, nil
}

func cleanRow(row []string) []string {
	var cleaned []string
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			cleaned = append(cleaned, cell)
		}
	}
	return cleaned
}

func sanitizeHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	seen := make(map[string]int)

	for idx, value := range raw {
		name := strings.TrimSpace(value)
		name = strings.ReplaceAll(name, " ", "_")
		name = strings.ReplaceAll(name, ".", "_")
		name = strings.ReplaceAll(name, "-", "_")
		name = strings.Trim(name, "_")
		if name == "" {
			name = fmt.Sprintf("column_%d", idx+1)
		}

		base := name
		count := seen[base]
		if count > 0 {
			name = fmt.Sprintf("%s_%d", base, count+1)
		}
		seen[base] = count + 1

		headers[idx] = name
	}

	return headers
}

func padRow(row []string, length int) []string {
	if len(row) >= length {
		return row[:length]
	}
	padded := make([]string, length)
	copy(padded, row)
	for i := len(row); i < length; i++ {
		padded[i] = ""
	}
	return padded
}

func filterEmptyRows(rows [][]string) [][]string {
	var filtered [][]string
	for _, row := range rows {
		keep := false
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				keep = true
				break
			}
		}
		if keep {
			filtered = append(filtered, row)
		}
	}
	return filtered
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format")
}

func (s *Service) rowError(ctx context.Context, req Request, rowNumber int, err error) {
	if s.logRepo == nil || err == nil {
		return
	}
	entry := domain.IngestionLogEntry{
		OrganizationID: req.OrganizationID,
		FileName:       req.FileName,
		RowNumber:      &rowNumber,
		ErrorMessage:   err.Error(),
	}
	_ = s.logRepo.Record(ctx, entry)
}
