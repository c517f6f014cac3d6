package stats

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

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
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/cohort"):
		h.handleCohort(w, r)
		return
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/transition"):
		h.handleTransition(w, r)
		return
	case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/persons/"):
		h.handlePerson(w, r)
		return
	default:
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
}

type periodPayload struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type teamPeriodPayload struct {
	IsoStartDate string `json:"isoStartDate"`
	IsoEndDate   string `json:"isoEndDate"`
}

type cohortPayload struct {
	OrganizationID          string                       `json:"organizationId"`
	Period                  *periodPayload               `json:"period"`
	Mode                    string                       `json:"mode"`
	TeamPeriods             map[string]teamPeriodPayload `json:"teamPeriods"`
	ViewAllOrganisationData bool                         `json:"viewAllOrganisationData"`
}

type transitionPayload struct {
	OrganizationID string `json:"organizationId"`
	StartDate      string `json:"startDate"`
	EndDate        string `json:"endDate"`
	Field          string `json:"fieldName"`
	FromValue      string `json:"fromValue"`
	ToValue        string `json:"toValue"`
}

func (h *Handler) handleCohort(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var payload cohortPayload
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
	if teams, ok := auth.TeamScopeFromContext(r.Context()); ok && !query.ViewAllOrganisationData {
		for team := range query.TeamPeriods {
			if !containsTeam(teams, team) {
				http.Error(w, fmt.Sprintf("team %s is outside the authenticated scope", team), http.StatusForbidden)
				return
			}
		}
	}

	result, err := h.service.CohortStats(r.Context(), orgID, query)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var payload transitionPayload
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
	start, err := parseDate(payload.StartDate)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid startDate: %v", err), http.StatusBadRequest)
		return
	}
	end, err := parseDate(payload.EndDate)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid endDate: %v", err), http.StatusBadRequest)
		return
	}
	req := domain.TransitionRequest{
		StartDate: start,
		EndDate:   end,
		Field:     strings.TrimSpace(payload.Field),
		FromValue: payload.FromValue,
		ToValue:   payload.ToValue,
	}

	result, err := h.service.TransitionStats(r.Context(), orgID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handlePerson(w http.ResponseWriter, r *http.Request) {
	segments := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	idRaw := segments[len(segments)-1]
	personID, err := uuid.Parse(idRaw)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid person id: %v", err), http.StatusBadRequest)
		return
	}
	orgID, err := uuid.Parse(strings.TrimSpace(r.URL.Query().Get("organizationId")))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid organizationId: %v", err), http.StatusBadRequest)
		return
	}
	if err := auth.EnforceOrganizationScope(r.Context(), orgID); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	person, err := h.service.Person(r.Context(), orgID, personID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, person)
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

func containsTeam(teams []string, team string) bool {
	for _, known := range teams {
		if known == team {
			return true
		}
	}
	return false
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrMalformedQuery) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
