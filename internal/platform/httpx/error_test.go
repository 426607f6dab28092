package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Genoux/website/internal/platform/requestctx"
)

func TestWriteErrorEnvelope(t *testing.T) {
	ctx := requestctx.WithRequestID(context.Background(), "req-1")
	ctx = requestctx.WithTrace(ctx, requestctx.TraceInfo{TraceID: "abc"})

	rec := httptest.NewRecorder()
	err := NewError("invalid_input", "bad\nthing", http.StatusUnprocessableEntity).
		WithDetails(map[string]any{"fields": map[string]string{"email": "required"}, "status": 1})
	WriteError(ctx, rec, err)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "invalid_input" || body["message"] != "bad thing" {
		t.Fatalf("unexpected body %#v", body)
	}
	if body["request_id"] != "req-1" || body["trace_id"] != "abc" {
		t.Fatalf("missing ids in %#v", body)
	}
	if body["status"].(float64) != 422 {
		t.Fatalf("details must not override status: %#v", body)
	}
	if _, ok := body["fields"]; !ok {
		t.Fatalf("details missing: %#v", body)
	}
}

func TestNewErrorDefaults(t *testing.T) {
	err := NewError(strings.Repeat("x", 100), "", 0)
	if err.Status != http.StatusInternalServerError {
		t.Fatalf("expected default 500, got %d", err.Status)
	}
	if len(err.Code) != 80 {
		t.Fatalf("expected code truncated to 80, got %d", len(err.Code))
	}
}
