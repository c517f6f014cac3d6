package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"
)

const baseURL = "http://localhost:8080"

// requireServer skips the test when no server is listening. These tests are
// meant to run against a locally started instance with a live database.
func requireServer(t *testing.T) {
	t.Helper()

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/healthz")
	if err != nil {
		t.Skipf("server not reachable at %s: %v", baseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Skipf("server at %s returned %d for healthz", baseURL, resp.StatusCode)
	}
}

// postJSON posts a JSON payload and returns the status code and raw body.
func postJSON(t *testing.T, path string, payload any) (int, []byte) {
	t.Helper()

	reqBody, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}

	resp, err := http.Post(baseURL+path, "application/json", bytes.NewBuffer(reqBody))
	if err != nil {
		t.Fatalf("failed to make request: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	return resp.StatusCode, body
}
