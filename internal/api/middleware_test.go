package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAuthMiddleware(t *testing.T) {
	called := false
	handler := AuthMiddleware("secret", discardLogger())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusNoContent)
		}))

	cases := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic secret", http.StatusUnauthorized},
		{"wrong key", "Bearer nope", http.StatusUnauthorized},
		{"valid key", "Bearer secret", http.StatusNoContent},
	}
	for _, tc := range cases {
		called = false
		req := httptest.NewRequest(http.MethodPost, "/api/parse", nil)
		if tc.authHeader != "" {
			req.Header.Set("Authorization", tc.authHeader)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != tc.wantStatus {
			t.Errorf("%s: expected status %d, got %d", tc.name, tc.wantStatus, rec.Code)
		}
		if wantCalled := tc.wantStatus == http.StatusNoContent; called != wantCalled {
			t.Errorf("%s: handler called = %v", tc.name, called)
		}
		if rec.Code == http.StatusUnauthorized {
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Errorf("%s: rejection body is not JSON: %v", tc.name, err)
			} else if body["error"] == "" {
				t.Errorf("%s: rejection body has no error field", tc.name)
			}
		}
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := RequestLogger(log)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusAccepted)
			w.Write([]byte("hello"))
		}))

	req := httptest.NewRequest(http.MethodPost, "/api/parse", strings.NewReader("<p>doc</p>"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var line struct {
		Status   int    `json:"status"`
		BytesIn  int64  `json:"bytes_in"`
		BytesOut int    `json:"bytes_out"`
		Path     string `json:"path"`
	}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if line.Status != http.StatusAccepted {
		t.Errorf("logged status = %d", line.Status)
	}
	if line.Path != "/api/parse" {
		t.Errorf("logged path = %q", line.Path)
	}
	if line.BytesIn != int64(len("<p>doc</p>")) {
		t.Errorf("logged bytes_in = %d", line.BytesIn)
	}
	if line.BytesOut != len("hello") {
		t.Errorf("logged bytes_out = %d", line.BytesOut)
	}
}
