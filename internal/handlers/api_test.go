package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/Genoux/website/internal/motion"
	"github.com/Genoux/website/internal/services"
)

func newAPIRouter(t *testing.T, svc *stubEventService) chi.Router {
	t.Helper()
	registry, err := motion.NewDefaultRegistry()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	api, err := NewAPIHandlers(APIDeps{
		Events:        svc,
		Registry:      registry,
		Timeline:      motion.DefaultTimeline(),
		AssetBaseURL:  "https://cdn.lowping.test",
		Currency:      "CAD",
		DefaultLocale: "en-CA",
	})
	if err != nil {
		t.Fatalf("api: %v", err)
	}
	return NewRouter(WithAPIRoutes(api.Routes))
}

func TestAPIListEvents(t *testing.T) {
	svc := newStubEventService()
	router := newAPIRouter(t, svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events?filter=upcoming", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Filter string         `json:"filter"`
		Events []eventPayload `json:"events"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Filter != "upcoming" {
		t.Fatalf("unexpected filter %q", body.Filter)
	}
	if len(body.Events) != 2 {
		t.Fatalf("expected 2 upcoming events, got %d", len(body.Events))
	}
	first := body.Events[0]
	if first.ID != "evt-1" || first.Status != "upcoming" || first.RegisterURL != "/lol-cup/register" {
		t.Fatalf("unexpected event %#v", first)
	}
	if first.StartsAt != "2099-03-15T19:00:00-05:00" {
		t.Fatalf("unexpected start %q", first.StartsAt)
	}
	if first.TimeLabel != "19:00 EST" {
		t.Fatalf("unexpected time label %q", first.TimeLabel)
	}
	if first.PosterURL != "https://cdn.lowping.test/posters/lol-cup.png" {
		t.Fatalf("unexpected poster %q", first.PosterURL)
	}
	if first.DescriptionHTML != "" {
		t.Fatalf("list payload should not render descriptions")
	}
}

func TestAPIListEventsErrors(t *testing.T) {
	svc := newStubEventService()
	router := newAPIRouter(t, svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events?filter=game:chess", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"invalid_filter"`) {
		t.Fatalf("expected invalid_filter code, got %s", rec.Body.String())
	}

	svc.listErr = errors.Join(services.ErrStoreUnavailable, errors.New("deadline"))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestAPIGetEvent(t *testing.T) {
	router := newAPIRouter(t, newStubEventService())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events/lol-cup", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body eventPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ID != "evt-1" || !strings.Contains(body.DescriptionHTML, "<strong>Format</strong>") {
		t.Fatalf("unexpected payload %#v", body)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"event_not_found"`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestAPIMotionManifest(t *testing.T) {
	router := newAPIRouter(t, newStubEventService())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/motion", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		ScrollLockMs int                          `json:"scrollLockMs"`
		Intro        []map[string]any             `json:"intro"`
		Phases       map[string][]json.RawMessage `json:"phases"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ScrollLockMs != motion.DefaultTimeline().Intro.ScrollLockMs {
		t.Fatalf("unexpected scroll lock %d", body.ScrollLockMs)
	}
	if len(body.Intro) != len(motion.IntroOrder()) {
		t.Fatalf("expected %d intro cues, got %d", len(motion.IntroOrder()), len(body.Intro))
	}
	if body.Intro[0]["name"] != string(motion.IntroOverlay) {
		t.Fatalf("intro must start with the overlay, got %v", body.Intro[0]["name"])
	}
	for _, phase := range []string{"intro", "stagger", "base", "hover", "ambient"} {
		if len(body.Phases[phase]) == 0 {
			t.Fatalf("missing phase %q", phase)
		}
	}
	if len(body.Phases["intro"]) != len(motion.IntroOrder()) {
		t.Fatalf("expected every intro variant, got %d", len(body.Phases["intro"]))
	}
}
