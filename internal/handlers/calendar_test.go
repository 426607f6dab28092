package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCalendarDownload(t *testing.T) {
	stamp := time.Date(2025, 6, 1, 16, 0, 0, 0, time.UTC)
	cal, err := NewCalendarHandlers(newStubEventService(), nil, "https://lowping.test", func() time.Time { return stamp })
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	router := NewRouter(WithCalendarRoutes(cal.Routes))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events/evt-1/calendar.ics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/calendar; charset=utf-8" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="lol-cup.ics"` {
		t.Fatalf("unexpected disposition %q", cd)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"BEGIN:VCALENDAR\r\n",
		"UID:evt-1@lowping.test\r\n",
		"DTSTAMP:20250601T160000Z\r\n",
		"DTSTART:20990316T000000Z\r\n",
		"DTEND:20990316T030000Z\r\n",
		"SUMMARY:Coupe LoL\r\n",
		"LOCATION:Salle A\\, Montréal\r\n",
		"DESCRIPTION:Format BO3\r\n",
		"URL:https://lowping.test/lol-cup/register\r\n",
		"END:VCALENDAR\r\n",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("calendar missing %q in:\n%s", want, body)
		}
	}
}

func TestCalendarUnknownEvent(t *testing.T) {
	cal, err := NewCalendarHandlers(newStubEventService(), nil, "", nil)
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	router := NewRouter(WithCalendarRoutes(cal.Routes))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events/nope/calendar.ics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestFoldICS(t *testing.T) {
	line := "DESCRIPTION:" + strings.Repeat("é", 60)
	folded := foldICS(line)
	for _, part := range strings.Split(folded, "\r\n") {
		if len(part) > 75 {
			t.Fatalf("folded line exceeds 75 octets: %d", len(part))
		}
	}
	if strings.ReplaceAll(folded, "\r\n ", "") != line {
		t.Fatalf("unfolding must restore the original line")
	}
	if foldICS("SHORT:x") != "SHORT:x" {
		t.Fatalf("short lines must not fold")
	}
}

func TestEscapeICS(t *testing.T) {
	got := escapeICS("a,b;c\\d\ne")
	if got != `a\,b\;c\\d\ne` {
		t.Fatalf("unexpected escape %q", got)
	}
}
