package tests

import (
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestCohortRejectsInvertedPeriod(t *testing.T) {
	requireServer(t)

	status, body := postJSON(t, "/stats/cohort", map[string]any{
		"organizationId": uuid.New().String(),
		"mode":           "all",
		"period": map[string]string{
			"startDate": "2024-04-01",
			"endDate":   "2024-01-01",
		},
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", status, body)
	}
}

func TestCohortRejectsInvalidOrganizationID(t *testing.T) {
	requireServer(t)

	status, body := postJSON(t, "/stats/cohort", map[string]any{
		"organizationId": "not-a-uuid",
		"mode":           "all",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", status, body)
	}
	if !strings.Contains(string(body), "organizationId") {
		t.Fatalf("expected organizationId error, got: %s", body)
	}
}

func TestTransitionRejectsMissingField(t *testing.T) {
	requireServer(t)

	status, body := postJSON(t, "/stats/transition", map[string]any{
		"organizationId": uuid.New().String(),
		"startDate":      "2024-01-01",
		"endDate":        "2024-04-01",
		"fieldName":      "",
		"fromValue":      "Rue",
		"toValue":        "Logé",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", status, body)
	}
}

func TestTransitionRejectsMalformedDate(t *testing.T) {
	requireServer(t)

	status, body := postJSON(t, "/stats/transition", map[string]any{
		"organizationId": uuid.New().String(),
		"startDate":      "yesterday",
		"endDate":        "2024-04-01",
		"fieldName":      "housing",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", status, body)
	}
}

func TestCohortExportRejectsUnknownFormat(t *testing.T) {
	requireServer(t)

	status, body := postJSON(t, "/exports/cohort", map[string]any{
		"organizationId": uuid.New().String(),
		"mode":           "all",
		"format":         "pdf",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", status, body)
	}
}
