package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Genoux/website/internal/domain"
	"github.com/Genoux/website/internal/events"
	"github.com/Genoux/website/internal/motion"
	"github.com/Genoux/website/internal/platform/httpx"
	"github.com/Genoux/website/internal/platform/markdown"
	"github.com/Genoux/website/internal/platform/requestctx"
	"github.com/Genoux/website/internal/services"
)

var (
	errBodyTooLarge = errors.New("request body too large")
	errEmptyBody    = errors.New("request body is required")
)

// APIDeps bundles the collaborators of the JSON API.
type APIDeps struct {
	Events        services.EventService
	Registry      *motion.Registry
	Timeline      motion.Timeline
	Markdown      *markdown.Renderer
	AssetBaseURL  string
	Currency      string
	DefaultLocale string
}

// APIHandlers exposes the catalogue and the motion manifest as JSON.
type APIHandlers struct {
	events   services.EventService
	registry *motion.Registry
	timeline motion.Timeline
	markdown *markdown.Renderer
	assets   string
	currency string
	locale   string
}

// NewAPIHandlers constructs the JSON API handlers.
func NewAPIHandlers(deps APIDeps) (*APIHandlers, error) {
	if deps.Events == nil {
		return nil, errors.New("api: event service is required")
	}
	if deps.Registry == nil {
		return nil, errors.New("api: motion registry is required")
	}
	md := deps.Markdown
	if md == nil {
		md = markdown.New()
	}
	locale := deps.DefaultLocale
	if locale == "" {
		locale = "fr-CA"
	}
	return &APIHandlers{
		events:   deps.Events,
		registry: deps.Registry,
		timeline: deps.Timeline,
		markdown: md,
		assets:   deps.AssetBaseURL,
		currency: deps.Currency,
		locale:   locale,
	}, nil
}

// Routes registers the API endpoints under the provided router.
func (h *APIHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/events", h.listEvents)
	r.Get("/events/{eventId}", h.getEvent)
	r.Get("/motion", h.motionManifest)
}

type eventPayload struct {
	ID              string `json:"id"`
	Slug            string `json:"slug,omitempty"`
	Name            string `json:"name"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	StartsAt        string `json:"startsAt,omitempty"`
	Status          string `json:"status"`
	Price           int64  `json:"price"`
	Currency        string `json:"currency"`
	PriceLabel      string `json:"priceLabel"`
	DateLabel       string `json:"dateLabel"`
	TimeLabel       string `json:"timeLabel"`
	PosterURL       string `json:"posterUrl,omitempty"`
	RegisterURL     string `json:"registerUrl,omitempty"`
	Game            string `json:"game,omitempty"`
	FormType        string `json:"formType,omitempty"`
	Location        string `json:"location,omitempty"`
	Description     string `json:"description,omitempty"`
	DescriptionHTML string `json:"descriptionHtml,omitempty"`
}

type eventListResponse struct {
	Filter string         `json:"filter"`
	Events []eventPayload `json:"events"`
}

func (h *APIHandlers) listEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	selection := events.All
	if raw := r.URL.Query().Get("filter"); raw != "" {
		parsed, err := events.ParseFilter(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_filter", "filter must be all, upcoming, past or game:<tag>", http.StatusBadRequest))
			return
		}
		selection = parsed
	}

	list, err := h.events.ListEvents(ctx, selection)
	if err != nil {
		writeEventError(w, r, err)
		return
	}

	formatter := h.formatter(r)
	payload := eventListResponse{Filter: selection.String(), Events: make([]eventPayload, 0, len(list))}
	for _, ev := range list {
		payload.Events = append(payload.Events, h.eventPayload(ev, formatter))
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *APIHandlers) getEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ref := strings.TrimSpace(chi.URLParam(r, "eventId"))
	if ref == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_event_id", "event id is required", http.StatusBadRequest))
		return
	}
	ev, err := h.events.GetEvent(ctx, ref)
	if err != nil {
		writeEventError(w, r, err)
		return
	}
	payload := h.eventPayload(ev, h.formatter(r))
	payload.Description = ev.Description
	if rendered, err := h.markdown.Render(ev.Description); err == nil {
		payload.DescriptionHTML = string(rendered)
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

type motionVariant struct {
	Name    motion.Name    `json:"name"`
	Variant motion.Variant `json:"variant"`
}

type motionResponse struct {
	ScrollLockMs int                        `json:"scrollLockMs"`
	Intro        []motion.Cue               `json:"intro"`
	Phases       map[string][]motionVariant `json:"phases"`
}

// motionManifest lists every registered variant in registration order,
// grouped by phase (the name prefix before the first dot).
func (h *APIHandlers) motionManifest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cues, err := h.registry.Sequence(motion.IntroOrder()...)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("motion_unavailable", "motion registry incomplete", http.StatusInternalServerError))
		return
	}
	phases := map[string][]motionVariant{}
	for _, name := range h.registry.Names() {
		v, err := h.registry.Lookup(name)
		if err != nil {
			continue
		}
		phase, _, _ := strings.Cut(string(name), ".")
		phases[phase] = append(phases[phase], motionVariant{Name: name, Variant: v})
	}
	writeJSONResponse(w, http.StatusOK, motionResponse{
		ScrollLockMs: h.timeline.Intro.ScrollLockMs,
		Intro:        cues,
		Phases:       phases,
	})
}

func (h *APIHandlers) formatter(r *http.Request) events.Formatter {
	locale := requestctx.ClientInfo(r.Context()).Locale
	if locale == "" {
		locale = h.locale
	}
	return events.NewFormatter(locale, h.events.Location())
}

func (h *APIHandlers) eventPayload(ev domain.Event, formatter events.Formatter) eventPayload {
	loc := h.events.Location()
	currency := ev.Currency
	if currency == "" {
		currency = h.currency
	}
	payload := eventPayload{
		ID:          ev.ID,
		Slug:        ev.Slug,
		Name:        ev.Name,
		Date:        ev.Date,
		Time:        ev.Time,
		Status:      string(events.ClassifyEvent(ev, h.events.Now(), loc)),
		Price:       ev.Price,
		Currency:    currency,
		PriceLabel:  formatter.EventPrice(ev, h.currency),
		DateLabel:   formatter.Date(ev),
		TimeLabel:   formatter.Time(ev),
		PosterURL:   events.PosterURL(h.assets, ev.Poster),
		RegisterURL: events.RegisterPath(ev),
		Game:        string(ev.Game),
		FormType:    string(ev.FormType),
		Location:    ev.Location,
	}
	if start, err := events.StartsAt(ev, loc); err == nil {
		payload.StartsAt = start.Format(time.RFC3339)
	}
	return payload
}

func writeEventError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrEventNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("event_not_found", "event not found", http.StatusNotFound))
	case errors.Is(err, services.ErrStoreUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("store_unavailable", "event store unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "failed to load events", http.StatusInternalServerError))
	}
}

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	reader := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
