package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Genoux/website/internal/domain"
	"github.com/Genoux/website/internal/events"
	"github.com/Genoux/website/internal/registration"
	"github.com/Genoux/website/internal/services"
)

var testLocation = time.FixedZone("EST", -5*60*60)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, testLocation)

func fixtureEvents() []domain.Event {
	return []domain.Event{
		{
			ID:          "evt-1",
			Slug:        "lol-cup",
			Name:        "Coupe LoL",
			Date:        "2099-03-15",
			Time:        "19:00",
			Price:       1500,
			Currency:    "CAD",
			Poster:      "posters/lol-cup.png",
			Game:        domain.GameLeagueOfLegends,
			FormType:    domain.FormTypeSummoner,
			Description: "**Format** BO3",
			Location:    "Salle A, Montréal",
		},
		{
			ID:       "evt-2",
			Name:     "Ancien Tournoi",
			Date:     "2020-01-10",
			Time:     "18:00",
			Game:     domain.GameTeamfightTactics,
			FormType: domain.FormTypeTFT,
		},
		{
			ID:       "evt-3",
			Slug:     "val-open",
			Name:     "Valorant Open",
			Date:     "2099-05-01",
			Time:     "12:00",
			Game:     domain.GameValorant,
			FormType: domain.FormType("valorant"),
		},
	}
}

type stubEventService struct {
	list       []domain.Event
	listErr    error
	selections []events.Selection
	schemas    *registration.Schemas
}

func newStubEventService() *stubEventService {
	return &stubEventService{list: fixtureEvents(), schemas: registration.DefaultSchemas()}
}

func (s *stubEventService) ListEvents(_ context.Context, sel events.Selection) ([]domain.Event, error) {
	s.selections = append(s.selections, sel)
	if s.listErr != nil {
		return nil, s.listErr
	}
	return events.Filter(s.list, sel, testNow, testLocation)
}

func (s *stubEventService) ListEventIDs(context.Context) ([]string, error) {
	ids := make([]string, 0, len(s.list))
	for _, ev := range s.list {
		ids = append(ids, ev.ID)
	}
	return ids, nil
}

func (s *stubEventService) GetEvent(_ context.Context, ref string) (domain.Event, error) {
	if s.listErr != nil {
		return domain.Event{}, s.listErr
	}
	for _, ev := range s.list {
		if ev.ID == ref || (ev.Slug != "" && ev.Slug == ref) {
			return ev, nil
		}
	}
	return domain.Event{}, services.ErrEventNotFound
}

func (s *stubEventService) RegistrableEvent(ctx context.Context, ref string) (domain.Event, registration.Schema, error) {
	ev, err := s.GetEvent(ctx, ref)
	if err != nil {
		return domain.Event{}, registration.Schema{}, err
	}
	schema, err := s.schemas.Lookup(ev.FormType)
	if err != nil {
		return domain.Event{}, registration.Schema{}, services.ErrFormUnsupported
	}
	return ev, schema, nil
}

func (s *stubEventService) Location() *time.Location { return testLocation }

func (s *stubEventService) Now() time.Time { return testNow }

type stubCheckoutService struct {
	startFunc    func(ctx context.Context, cmd services.StartCheckoutCommand) (domain.CheckoutRedirect, error)
	completeFunc func(ctx context.Context, cmd services.CompleteCheckoutCommand) (domain.RegistrationDetails, error)
	cancelFunc   func(ctx context.Context, cmd services.CancelCheckoutCommand) (domain.RegistrationDetails, error)
	webhookFunc  func(ctx context.Context, provider string, payload []byte, signature string) error

	starts  []services.StartCheckoutCommand
	cancels []services.CancelCheckoutCommand
}

func (s *stubCheckoutService) StartCheckout(ctx context.Context, cmd services.StartCheckoutCommand) (domain.CheckoutRedirect, error) {
	s.starts = append(s.starts, cmd)
	if s.startFunc == nil {
		return domain.CheckoutRedirect{RegistrationID: "reg-1", SessionID: "cs_1", RedirectURL: "https://checkout.test/cs_1"}, nil
	}
	return s.startFunc(ctx, cmd)
}

func (s *stubCheckoutService) CompleteCheckout(ctx context.Context, cmd services.CompleteCheckoutCommand) (domain.RegistrationDetails, error) {
	if s.completeFunc == nil {
		return domain.RegistrationDetails{}, services.ErrRegistrationNotFound
	}
	return s.completeFunc(ctx, cmd)
}

func (s *stubCheckoutService) CancelCheckout(ctx context.Context, cmd services.CancelCheckoutCommand) (domain.RegistrationDetails, error) {
	s.cancels = append(s.cancels, cmd)
	if s.cancelFunc == nil {
		return domain.RegistrationDetails{}, nil
	}
	return s.cancelFunc(ctx, cmd)
}

func (s *stubCheckoutService) HandleWebhook(ctx context.Context, provider string, payload []byte, signature string) error {
	if s.webhookFunc == nil {
		return nil
	}
	return s.webhookFunc(ctx, provider, payload, signature)
}

type stubSystemService struct {
	report domain.SystemHealthReport
	err    error
}

func (s *stubSystemService) HealthReport(context.Context) (domain.SystemHealthReport, error) {
	return s.report, s.err
}

type countingFunnel struct {
	submitted   map[string]int
	transitions []string
}

func newCountingFunnel() *countingFunnel {
	return &countingFunnel{submitted: map[string]int{}}
}

func (c *countingFunnel) RegistrationSubmitted(outcome string) { c.submitted[outcome]++ }

func (c *countingFunnel) StepTransition(from, to string) {
	c.transitions = append(c.transitions, from+"->"+to)
}

// cookieJar replays Set-Cookie headers onto later requests, like a browser
// talking to a single host.
type cookieJar struct {
	cookies map[string]*http.Cookie
}

func newCookieJar() *cookieJar {
	return &cookieJar{cookies: map[string]*http.Cookie{}}
}

func (j *cookieJar) do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	for _, c := range j.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(j.cookies, c.Name)
			continue
		}
		j.cookies[c.Name] = &http.Cookie{Name: c.Name, Value: c.Value}
	}
	return rec
}
