package testutil

import (
	"net/http"
	"testing"
)

func TestNewTestRequest(t *testing.T) {
	req := NewTestRequest(http.MethodGet, "/api/transactions")
	if req.Method != http.MethodGet {
		t.Errorf("method = %s, want %s", req.Method, http.MethodGet)
	}
	if req.URL.Path != "/api/transactions" {
		t.Errorf("path = %s, want /api/transactions", req.URL.Path)
	}
}

func TestNewTestRecorder(t *testing.T) {
	rec := NewTestRecorder()
	rec.WriteHeader(http.StatusNoContent)
	if rec.Code != http.StatusNoContent {
		t.Errorf("code = %d, want %d", rec.Code, http.StatusNoContent)
	}
}
