package e2e

import (
	"net/http"
	"testing"
)

func TestT2VAccounts_AddRemove(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/t2v/accounts", `{"name":"alpha"}`, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusCreated)

	body := parseJSON(t, resp)
	if body["name"] != "alpha" {
		t.Errorf("expected name 'alpha', got %v", body["name"])
	}

	// Duplicate name conflicts.
	resp, err = doRequest(ta.app, http.MethodPost, "/api/t2v/accounts", `{"name":"alpha"}`, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusConflict)

	body = parseJSON(t, resp)
	if code := errorCode(t, body); code != "CONFLICT" {
		t.Errorf("expected error code CONFLICT, got %q", code)
	}

	resp, err = doRequest(ta.app, http.MethodDelete, "/api/t2v/accounts/alpha", "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusNoContent)

	resp, err = doRequest(ta.app, http.MethodDelete, "/api/t2v/accounts/alpha", "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusNotFound)
}

func TestT2VAccounts_MissingName(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/t2v/accounts", `{}`, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestT2VStatus_EmptyBoard(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodGet, "/api/t2v/status", "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	body := parseJSON(t, resp)
	if body["running"] != false {
		t.Errorf("expected running false, got %v", body["running"])
	}
	if body["totalPrompts"] != float64(0) {
		t.Errorf("expected 0 prompts, got %v", body["totalPrompts"])
	}
}

func TestT2VStart_NoAccounts(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/t2v/start",
		`{"prompts":"a cat\na dog","outputDir":"/tmp/out"}`, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusConflict)
}

func TestT2VStart_MissingFields(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/t2v/start", `{"prompts":"a cat"}`, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusBadRequest)

	body := parseJSON(t, resp)
	if code := errorCode(t, body); code != "VALIDATION_ERROR" {
		t.Errorf("expected error code VALIDATION_ERROR, got %q", code)
	}
}

func TestT2VTransfer_UnknownAccounts(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/t2v/transfer",
		`{"from":"ghost","to":"phantom"}`, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestT2VEditPrompt_BadIndex(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/t2v/prompts/abc",
		`{"account":"alpha","prompt":"new text"}`, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusBadRequest)

	resp, err = doRequest(ta.app, http.MethodPost, "/api/t2v/prompts/0",
		`{"account":"alpha","prompt":"new text"}`, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestT2VStopAll_Idle(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/t2v/stop", "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
}

func TestT2VStopAccount_Unknown(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/t2v/accounts/ghost/stop", "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusNotFound)
}

func TestT2VRetryFailed_NothingToRetry(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/t2v/accounts", `{"name":"alpha"}`, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusCreated)

	resp, err = doRequest(ta.app, http.MethodPost, "/api/t2v/retry-failed",
		`{"outputDir":"/tmp/out"}`, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusConflict)

	body := parseJSON(t, resp)
	if code := errorCode(t, body); code != "CONFLICT" {
		t.Errorf("expected error code CONFLICT, got %q", code)
	}
}
