package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Genoux/website/internal/domain"
	"github.com/Genoux/website/internal/events"
	"github.com/Genoux/website/internal/platform/httpx"
	"github.com/Genoux/website/internal/platform/markdown"
	"github.com/Genoux/website/internal/services"
)

// defaultEventDuration is used for DTEND; events carry no end time.
const defaultEventDuration = 3 * time.Hour

const icsTimestamp = "20060102T150405Z"

// CalendarHandlers serves iCalendar downloads for events.
type CalendarHandlers struct {
	events   services.EventService
	markdown *markdown.Renderer
	baseURL  string
	clock    func() time.Time
}

// NewCalendarHandlers constructs the calendar handlers.
func NewCalendarHandlers(eventsSvc services.EventService, md *markdown.Renderer, baseURL string, clock func() time.Time) (*CalendarHandlers, error) {
	if eventsSvc == nil {
		return nil, errors.New("calendar: event service is required")
	}
	if md == nil {
		md = markdown.New()
	}
	if clock == nil {
		clock = time.Now
	}
	return &CalendarHandlers{
		events:   eventsSvc,
		markdown: md,
		baseURL:  strings.TrimRight(baseURL, "/"),
		clock:    clock,
	}, nil
}

// Routes registers the calendar endpoint.
func (h *CalendarHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/events/{eventId}/calendar.ics", h.download)
}

func calendarPath(ev domain.Event) string {
	return "/events/" + url.PathEscape(ev.ID) + "/calendar.ics"
}

func (h *CalendarHandlers) download(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ev, err := h.events.GetEvent(ctx, chi.URLParam(r, "eventId"))
	if err != nil {
		writeEventError(w, r, err)
		return
	}
	start, err := events.StartsAt(ev, h.events.Location())
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_schedule", "event has no valid start time", http.StatusUnprocessableEntity))
		return
	}

	body := h.render(ev, start)
	name := ev.Slug
	if name == "" {
		name = ev.ID
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".ics"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func (h *CalendarHandlers) render(ev domain.Event, start time.Time) string {
	host := "lowping"
	if u, err := url.Parse(h.baseURL); err == nil && u.Host != "" {
		host = u.Host
	}
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//Lowping//Tournaments//FR",
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
		"BEGIN:VEVENT",
		"UID:" + ev.ID + "@" + host,
		"DTSTAMP:" + h.clock().UTC().Format(icsTimestamp),
		"DTSTART:" + start.UTC().Format(icsTimestamp),
		"DTEND:" + start.Add(defaultEventDuration).UTC().Format(icsTimestamp),
		"SUMMARY:" + escapeICS(ev.Name),
	}
	if ev.Location != "" {
		lines = append(lines, "LOCATION:"+escapeICS(ev.Location))
	}
	if plain := h.markdown.Plain(ev.Description); plain != "" {
		lines = append(lines, "DESCRIPTION:"+escapeICS(plain))
	}
	if h.baseURL != "" {
		lines = append(lines, "URL:"+h.baseURL+events.RegisterPath(ev))
	}
	lines = append(lines, "END:VEVENT", "END:VCALENDAR")

	var b strings.Builder
	for _, line := range lines {
		b.WriteString(foldICS(line))
		b.WriteString("\r\n")
	}
	return b.String()
}

var icsEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\r\n", `\n`, "\n", `\n`)

func escapeICS(value string) string {
	return icsEscaper.Replace(value)
}

// foldICS splits content lines longer than 75 octets without breaking a
// multi-byte rune.
func foldICS(line string) string {
	const limit = 75
	if len(line) <= limit {
		return line
	}
	var b strings.Builder
	width := 0
	for _, r := range line {
		size := len(string(r))
		if width+size > limit {
			b.WriteString("\r\n ")
			width = 1
		}
		b.WriteRune(r)
		width += size
	}
	return b.String()
}
