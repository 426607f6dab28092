package handlers

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Genoux/website/internal/domain"
	"github.com/Genoux/website/internal/events"
	"github.com/Genoux/website/internal/motion"
	"github.com/Genoux/website/internal/payments"
	"github.com/Genoux/website/internal/platform/markdown"
	"github.com/Genoux/website/internal/platform/observability"
	"github.com/Genoux/website/internal/platform/requestctx"
	"github.com/Genoux/website/internal/platform/session"
	"github.com/Genoux/website/internal/registration"
	"github.com/Genoux/website/internal/services"
)

const maxFormBody = 16 * 1024

// Form actions posted by the registration page.
const (
	actionSubmit   = "submit"
	actionBack     = "back"
	actionCheckout = "checkout"
)

// FunnelRecorder counts registration funnel activity.
type FunnelRecorder interface {
	RegistrationSubmitted(outcome string)
	StepTransition(from, to string)
}

type noopFunnel struct{}

func (noopFunnel) RegistrationSubmitted(string) {}
func (noopFunnel) StepTransition(string, string) {}

// introElements maps the landing page phases to their element ids.
var introElements = map[motion.Name]string{
	motion.IntroOverlay:          "intro-overlay",
	motion.IntroBackground:       "intro-background",
	motion.IntroLogo:             "intro-logo",
	motion.IntroTitleContainer:   "intro-title",
	motion.IntroTitleText:        "intro-title-text",
	motion.IntroContentContainer: "intro-content",
	motion.IntroContentButton:    "intro-cta",
	motion.IntroEvents:           "events",
	motion.IntroFooter:           "site-footer",
}

// PageDeps bundles the collaborators of the server-rendered pages.
type PageDeps struct {
	Events        services.EventService
	Checkout      services.CheckoutService
	Sessions      *session.Store
	Renderer      *Renderer
	Markdown      *markdown.Renderer
	Choreographer *motion.Choreographer
	Copy          registration.Copy
	BaseURL       string
	AssetBaseURL  string
	Currency      string
	Funnel        FunnelRecorder
}

// PageHandlers serves the landing page and the registration funnel.
type PageHandlers struct {
	events   services.EventService
	checkout services.CheckoutService
	sessions *session.Store
	renderer *Renderer
	markdown *markdown.Renderer
	choreo   *motion.Choreographer
	wording  registration.Copy
	baseURL  string
	assets   string
	currency string
	funnel   FunnelRecorder
}

// NewPageHandlers validates deps and builds the page handlers.
func NewPageHandlers(deps PageDeps) (*PageHandlers, error) {
	switch {
	case deps.Events == nil:
		return nil, errors.New("pages: event service is required")
	case deps.Checkout == nil:
		return nil, errors.New("pages: checkout service is required")
	case deps.Sessions == nil:
		return nil, errors.New("pages: session store is required")
	case deps.Renderer == nil:
		return nil, errors.New("pages: renderer is required")
	case deps.Choreographer == nil:
		return nil, errors.New("pages: choreographer is required")
	}
	md := deps.Markdown
	if md == nil {
		md = markdown.New()
	}
	funnel := deps.Funnel
	if funnel == nil {
		funnel = noopFunnel{}
	}
	wording := deps.Copy
	if wording.Preset == "" {
		wording = registration.CopyFor(registration.CopyFrench)
	}
	return &PageHandlers{
		events:   deps.Events,
		checkout: deps.Checkout,
		sessions: deps.Sessions,
		renderer: deps.Renderer,
		markdown: md,
		choreo:   deps.Choreographer,
		wording:  wording,
		baseURL:  strings.TrimRight(deps.BaseURL, "/"),
		assets:   deps.AssetBaseURL,
		currency: deps.Currency,
		funnel:   funnel,
	}, nil
}

// Routes registers the page endpoints.
func (h *PageHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.landing)
	r.Get("/{event}/register", h.registerForm)
	r.Post("/{event}/register", h.registerAction)
	r.Get("/{event}/register/success", h.checkoutSuccess)
	r.Get("/{event}/register/cancelled", h.checkoutCancelled)
}

// NotFound renders the not found page for unmatched page routes.
func (h *PageHandlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.renderStatus(w, r, http.StatusNotFound, "not-found", h.wording.NotFoundTitle, h.wording.NotFoundDetail)
}

func (h *PageHandlers) formatter() events.Formatter {
	return events.NewFormatter(h.wording.Locale, h.events.Location())
}

type filterOption struct {
	Value    string
	Label    string
	Selected bool
}

type landingPage struct {
	layout
	Filters  []filterOption
	Cards    []events.Card
	Manifest template.JS
}

func (h *PageHandlers) landing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.FromContext(ctx)

	selection := events.All
	if raw := r.URL.Query().Get("filter"); raw != "" {
		if parsed, err := events.ParseFilter(raw); err == nil {
			selection = parsed
		}
	}

	list, err := h.events.ListEvents(ctx, selection)
	if err != nil {
		// The catalogue degrades to empty; the intro still plays.
		logger.Warn("catalogue unavailable", zap.Error(err))
		list = nil
	}

	timeline := h.choreo.Timeline()
	cards, err := events.Cards(list, events.CardOptions{
		Now:             h.events.Now(),
		Location:        h.events.Location(),
		Desktop:         requestctx.ClientInfo(ctx).Desktop,
		AssetBaseURL:    h.assets,
		DefaultCurrency: h.currency,
		Formatter:       h.formatter(),
		Timeline:        timeline,
	})
	if err != nil {
		logger.Error("card derivation failed", zap.Error(err))
		h.renderUnavailable(w, r)
		return
	}

	driver := motion.NewManifestDriver()
	if err := h.choreo.Intro(driver, introElements); err != nil {
		logger.Error("intro choreography failed", zap.Error(err))
		h.renderUnavailable(w, r)
		return
	}
	if len(cards) > 0 {
		if err := h.choreo.Bind(driver, "event-list", motion.StaggerList, motion.PoseAnimate); err != nil {
			logger.Error("catalogue choreography failed", zap.Error(err))
			h.renderUnavailable(w, r)
			return
		}
	}
	manifest, err := driver.JSON()
	if err != nil {
		logger.Error("manifest encoding failed", zap.Error(err))
		h.renderUnavailable(w, r)
		return
	}

	options := make([]filterOption, 0, len(events.Selections()))
	for _, sel := range events.Selections() {
		label := h.wording.Filters[sel.String()]
		if label == "" {
			label = sel.String()
		}
		options = append(options, filterOption{Value: sel.String(), Label: label, Selected: sel == selection})
	}

	h.render(w, r, http.StatusOK, pageLanding, landingPage{
		layout:   h.renderer.layout(h.wording),
		Filters:  options,
		Cards:    cards,
		Manifest: template.JS(manifest),
	})
}

type registerPage struct {
	layout
	Event       domain.Event
	Step        registration.Step
	Action      string
	CSRFToken   string
	Alert       string
	Rows        []registration.RowView
	Review      []registration.FieldView
	PosterURL   string
	DateLabel   string
	TimeLabel   string
	PriceLabel  string
	Description template.HTML

	SlideUp  motion.Variant
	Float    motion.Variant
	Form     motion.Variant
	FormItem motion.Variant
}

func (h *PageHandlers) registerForm(w http.ResponseWriter, r *http.Request) {
	ev, schema, ok := h.resolveRegistrable(w, r)
	if !ok {
		return
	}
	st := h.sessions.Load(r, ev.ID)
	if err := h.sessions.Save(w, st); err != nil {
		observability.FromContext(r.Context()).Error("session save failed", zap.Error(err))
	}
	h.renderRegister(w, r, http.StatusOK, ev, schema, st, nil, "")
}

func (h *PageHandlers) registerAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.FromContext(ctx)

	ev, schema, ok := h.resolveRegistrable(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBody)
	if err := r.ParseForm(); err != nil {
		httpErrorPage(w, http.StatusBadRequest)
		return
	}

	st := h.sessions.Load(r, ev.ID)
	registerURL := events.RegisterPath(ev)
	if st.Fresh() || !st.VerifyCSRF(r.PostFormValue("csrf_token")) {
		// Expired or forged: start over on a fresh cookie.
		logger.Info("registration session rejected", zap.Bool("fresh", st.Fresh()), zap.String("event_id", ev.ID))
		h.saveAndRedirect(w, r, st, registerURL)
		return
	}
	flow := st.Registration
	from := flow.Step

	switch r.PostFormValue("action") {
	case actionSubmit:
		values := make(map[string]string, len(schema.Fields))
		for _, field := range schema.Fields {
			values[field.Name] = r.PostFormValue(field.Name)
		}
		clean, err := schema.Validate(values, h.wording)
		var invalid *registration.ValidationError
		if errors.As(err, &invalid) {
			h.funnel.RegistrationSubmitted("invalid")
			h.renderRegister(w, r, http.StatusUnprocessableEntity, ev, schema, st, clean, "", invalid.Fields)
			return
		}
		if err != nil {
			logger.Error("registration validation failed", zap.Error(err))
			h.renderUnavailable(w, r)
			return
		}
		to := flow.SubmitDataEntry(clean)
		h.funnel.RegistrationSubmitted("accepted")
		h.recordTransition(from, to)
	case actionBack:
		h.recordTransition(from, flow.GoBack())
	case actionCheckout:
		if flow.Step != registration.StepCheckoutReview {
			break
		}
		if flow.RegistrationID != "" && flow.CheckoutURL != "" {
			http.Redirect(w, r, flow.CheckoutURL, http.StatusSeeOther)
			return
		}
		redirect, err := h.checkout.StartCheckout(ctx, services.StartCheckoutCommand{
			EventRef:       ev.ID,
			Answers:        flow.Answers(),
			RegistrationID: flow.RegistrationID,
			SuccessURL:     h.absolute(registerURL + "/success?session_id=" + payments.SessionIDPlaceholder),
			CancelURL:      h.absolute(registerURL + "/cancelled"),
		})
		if err != nil {
			h.checkoutFailed(w, r, ev, schema, st, err)
			return
		}
		flow.RegistrationID = redirect.RegistrationID
		flow.CheckoutURL = redirect.RedirectURL
		h.saveAndRedirect(w, r, st, redirect.RedirectURL)
		return
	}

	h.saveAndRedirect(w, r, st, registerURL)
}

func (h *PageHandlers) checkoutFailed(w http.ResponseWriter, r *http.Request, ev domain.Event, schema registration.Schema, st *session.State, err error) {
	logger := observability.FromContext(r.Context())
	var invalid *registration.ValidationError
	if errors.As(err, &invalid) {
		// Stored answers no longer pass validation; send the user back to fix them.
		h.recordTransition(st.Registration.Step, st.Registration.GoBack())
		if saveErr := h.sessions.Save(w, st); saveErr != nil {
			logger.Error("session save failed", zap.Error(saveErr))
		}
		h.renderRegister(w, r, http.StatusUnprocessableEntity, ev, schema, st, st.Registration.FormData, "", invalid.Fields)
		return
	}
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, services.ErrEventNotFound), errors.Is(err, services.ErrFormUnsupported):
		h.NotFound(w, r)
		return
	case errors.Is(err, services.ErrPaymentFailed):
		status = http.StatusPaymentRequired
	case errors.Is(err, services.ErrCheckoutUnavailable):
		status = http.StatusServiceUnavailable
	}
	logger.Warn("checkout start failed", zap.Error(err), zap.String("event_id", ev.ID))
	h.render(w, r, status, pageCancelled, cancelledPage{
		layout:      h.renderer.layout(h.wording),
		Detail:      h.wording.CheckoutFailed,
		RegisterURL: events.RegisterPath(ev),
	})
}

type successPage struct {
	layout
	Event       domain.Event
	DateLabel   string
	TimeLabel   string
	Email       string
	EmailNotice string
	ReceiptURL  string
	CalendarURL string
}

func (h *PageHandlers) checkoutSuccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		h.NotFound(w, r)
		return
	}
	details, err := h.checkout.CompleteCheckout(ctx, services.CompleteCheckoutCommand{
		EventRef:  chi.URLParam(r, "event"),
		SessionID: sessionID,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEventNotFound), errors.Is(err, services.ErrRegistrationNotFound):
			h.NotFound(w, r)
		case errors.Is(err, services.ErrPaymentFailed):
			h.render(w, r, http.StatusPaymentRequired, pageCancelled, cancelledPage{
				layout: h.renderer.layout(h.wording),
				Detail: h.wording.CheckoutFailed,
			})
		default:
			observability.FromContext(ctx).Error("checkout completion failed", zap.Error(err))
			h.renderUnavailable(w, r)
		}
		return
	}

	h.sessions.Clear(w, details.Event.ID)
	formatter := h.formatter()
	email := details.Registration.Email
	page := successPage{
		layout:      h.renderer.layout(h.wording),
		Event:       details.Event,
		DateLabel:   formatter.Date(details.Event),
		TimeLabel:   formatter.Time(details.Event),
		Email:       email,
		ReceiptURL:  details.ReceiptURL,
		CalendarURL: calendarPath(details.Event),
	}
	if email != "" {
		page.EmailNotice = fmt.Sprintf(h.wording.SuccessEmail, email)
	}
	h.render(w, r, http.StatusOK, pageSuccess, page)
}

type cancelledPage struct {
	layout
	Detail      string
	RegisterURL string
}

func (h *PageHandlers) checkoutCancelled(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.FromContext(ctx)

	ev, err := h.events.GetEvent(ctx, chi.URLParam(r, "event"))
	if err != nil {
		h.eventError(w, r, err)
		return
	}

	st := h.sessions.Load(r, ev.ID)
	registrationID := st.Registration.RegistrationID
	if registrationID == "" {
		registrationID = strings.TrimSpace(r.URL.Query().Get("registration_id"))
	}
	if registrationID != "" {
		if _, err := h.checkout.CancelCheckout(ctx, services.CancelCheckoutCommand{
			EventRef:       ev.ID,
			RegistrationID: registrationID,
		}); err != nil {
			logger.Warn("checkout cancel failed", zap.Error(err), zap.String("registration_id", registrationID))
		}
	}

	// Keep the answers so the user can retry from the form.
	h.recordTransition(st.Registration.Step, st.Registration.GoBack())
	if err := h.sessions.Save(w, st); err != nil {
		logger.Error("session save failed", zap.Error(err))
	}

	h.render(w, r, http.StatusOK, pageCancelled, cancelledPage{
		layout:      h.renderer.layout(h.wording),
		Detail:      h.wording.CancelledDetail,
		RegisterURL: events.RegisterPath(ev),
	})
}

func (h *PageHandlers) resolveRegistrable(w http.ResponseWriter, r *http.Request) (domain.Event, registration.Schema, bool) {
	ev, schema, err := h.events.RegistrableEvent(r.Context(), chi.URLParam(r, "event"))
	if err != nil {
		h.eventError(w, r, err)
		return domain.Event{}, registration.Schema{}, false
	}
	return ev, schema, true
}

func (h *PageHandlers) eventError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrEventNotFound), errors.Is(err, services.ErrFormUnsupported):
		h.NotFound(w, r)
	default:
		observability.FromContext(r.Context()).Error("event lookup failed", zap.Error(err))
		h.renderUnavailable(w, r)
	}
}

func (h *PageHandlers) renderRegister(w http.ResponseWriter, r *http.Request, status int, ev domain.Event, schema registration.Schema, st *session.State, values map[string]string, alert string, errs ...registration.FieldErrors) {
	flow := st.Registration
	if values == nil {
		values = flow.FormData
	}
	var fieldErrs registration.FieldErrors
	if len(errs) > 0 {
		fieldErrs = errs[0]
	}

	formatter := h.formatter()
	page := registerPage{
		layout:     h.renderer.layout(h.wording),
		Event:      ev,
		Step:       flow.Step,
		Action:     events.RegisterPath(ev),
		CSRFToken:  st.CSRFToken,
		Alert:      alert,
		PosterURL:  events.PosterURL(h.assets, ev.Poster),
		DateLabel:  formatter.Date(ev),
		TimeLabel:  formatter.Time(ev),
		PriceLabel: formatter.EventPrice(ev, h.currency),
	}
	if flow.Step == registration.StepCheckoutReview && len(fieldErrs) == 0 {
		page.Review = schema.Review(h.wording, values)
	} else {
		page.Step = registration.StepDataEntry
		page.Rows = schema.Render(h.wording, values, fieldErrs)
	}
	if h.wording.ShowSummary && ev.Description != "" {
		if html, err := h.markdown.Render(ev.Description); err == nil {
			page.Description = html
		}
	}

	registry := h.choreo.Registry()
	for name, target := range map[motion.Name]*motion.Variant{
		motion.BaseSlideUp:     &page.SlideUp,
		motion.AmbientFloat:    &page.Float,
		motion.StaggerForm:     &page.Form,
		motion.StaggerFormItem: &page.FormItem,
	} {
		v, err := registry.Lookup(name)
		if err != nil {
			observability.FromContext(r.Context()).Error("variant lookup failed", zap.Error(err), zap.String("variant", string(name)))
			h.renderUnavailable(w, r)
			return
		}
		*target = v
	}

	h.render(w, r, status, pageRegister, page)
}

type statusPage struct {
	layout
	Kind   string
	Title  string
	Detail string
}

func (h *PageHandlers) renderUnavailable(w http.ResponseWriter, r *http.Request) {
	h.renderStatus(w, r, http.StatusServiceUnavailable, "unavailable", h.wording.UnavailableTitle, h.wording.UnavailableDetail)
}

func (h *PageHandlers) renderStatus(w http.ResponseWriter, r *http.Request, status int, kind, title, detail string) {
	h.render(w, r, status, pageStatus, statusPage{
		layout: h.renderer.layout(h.wording),
		Kind:   kind,
		Title:  title,
		Detail: detail,
	})
}

func (h *PageHandlers) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	if err := h.renderer.Render(w, status, page, data); err != nil {
		observability.FromContext(r.Context()).Error("page render failed", zap.Error(err), zap.String("page", page))
		httpErrorPage(w, http.StatusInternalServerError)
	}
}

func (h *PageHandlers) saveAndRedirect(w http.ResponseWriter, r *http.Request, st *session.State, target string) {
	if err := h.sessions.Save(w, st); err != nil {
		observability.FromContext(r.Context()).Error("session save failed", zap.Error(err))
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *PageHandlers) recordTransition(from, to registration.Step) {
	if from != to {
		h.funnel.StepTransition(string(from), string(to))
	}
}

func (h *PageHandlers) absolute(path string) string {
	if h.baseURL == "" {
		return path
	}
	if base, err := url.Parse(h.baseURL); err == nil && base.IsAbs() {
		return h.baseURL + path
	}
	return path
}

func httpErrorPage(w http.ResponseWriter, status int) {
	http.Error(w, http.StatusText(status), status)
}
