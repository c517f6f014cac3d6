package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mano-sesan/mano-stats/internal/auth"
	"github.com/mano-sesan/mano-stats/internal/domain"
)

type Handler struct {
	service *Service
}

func NewHTTPHandler(service *Service) http.Handler {
	return &Handler{service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/cohort") {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	h.handleCohortExport(w, r)
}

type periodPayload struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type teamPeriodPayload struct {
	IsoStartDate string `json:"isoStartDate"`
	IsoEndDate   string `json:"isoEndDate"`
}

type cohortExportPayload struct {
	OrganizationID          string                       `json:"organizationId"`
	Period                  *periodPayload               `json:"period"`
	Mode                    string                       `json:"mode"`
	TeamPeriods             map[string]teamPeriodPayload `json:"teamPeriods"`
	ViewAllOrganisationData bool                         `json:"viewAllOrganisationData"`
	Format                  string                       `json:"format"`
}

func (h *Handler) handleCohortExport(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var payload cohortExportPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}
	orgID, err := uuid.Parse(strings.TrimSpace(payload.OrganizationID))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid organizationId: %v", err), http.StatusBadRequest)
		return
	}
	if err := auth.EnforceOrganizationScope(r.Context(), orgID); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	query := domain.CohortQuery{
		Mode:                    domain.CohortMode(strings.TrimSpace(payload.Mode)),
		TeamPeriods:             map[string]domain.Period{},
		ViewAllOrganisationData: payload.ViewAllOrganisationData,
	}
	if query.Mode == "" {
		query.Mode = domain.CohortModeAll
	}
	if payload.Period != nil {
		start, err := parseDate(payload.Period.StartDate)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid period start: %v", err), http.StatusBadRequest)
			return
		}
		end, err := parseDate(payload.Period.EndDate)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid period end: %v", err), http.StatusBadRequest)
			return
		}
		query.Period = &domain.QueryPeriod{StartDate: start, EndDate: end}
	}
	for team, period := range payload.TeamPeriods {
		converted, err := parseTeamPeriod(period)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid period for team %s: %v", team, err), http.StatusBadRequest)
			return
		}
		query.TeamPeriods[team] = converted
	}

	req := Request{
		OrganizationID: orgID,
		Query:          query,
		Format:         Format(strings.ToLower(strings.TrimSpace(payload.Format))),
	}

	// Plan the file name and content type before streaming the body.
	fileName, mimeType, err := h.service.describe(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))

	if _, err := h.service.ExportCohort(r.Context(), req, w); err != nil {
		// Headers are already out; the truncated body is the best signal left.
		writeError(w, err)
		return
	}
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("date is required")
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if date, err := time.Parse(layout, raw); err == nil {
			return date, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

func parseTeamPeriod(payload teamPeriodPayload) (domain.Period, error) {
	var period domain.Period
	if strings.TrimSpace(payload.IsoStartDate) == "" && strings.TrimSpace(payload.IsoEndDate) == "" {
		return period, nil
	}
	start, err := parseDate(payload.IsoStartDate)
	if err != nil {
		return period, err
	}
	end, err := parseDate(payload.IsoEndDate)
	if err != nil {
		return period, err
	}
	period.Start = start
	period.End = end
	return period, nil
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrMalformedQuery), errors.Is(err, ErrUnsupportedFormat):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
