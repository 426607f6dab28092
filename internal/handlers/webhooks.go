package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Genoux/website/internal/payments"
	"github.com/Genoux/website/internal/platform/httpx"
	"github.com/Genoux/website/internal/platform/observability"
	"github.com/Genoux/website/internal/services"
)

const maxWebhookBody = 256 * 1024

// WebhookHandlers receives payment provider callbacks.
type WebhookHandlers struct {
	checkout services.CheckoutService
}

// NewWebhookHandlers constructs webhook handlers backed by the checkout service.
func NewWebhookHandlers(checkout services.CheckoutService) *WebhookHandlers {
	return &WebhookHandlers{checkout: checkout}
}

// Routes registers the provider webhook endpoint.
func (h *WebhookHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/{provider}", h.receive)
}

func (h *WebhookHandlers) receive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
		return
	}
	provider := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "provider")))

	body, err := readLimitedBody(r, maxWebhookBody)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), status))
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		signature = r.Header.Get("X-Webhook-Signature")
	}

	if err := h.checkout.HandleWebhook(ctx, provider, body, signature); err != nil {
		logger := observability.FromContext(ctx)
		switch {
		case errors.Is(err, payments.ErrUnsupportedProvider):
			httpx.WriteError(ctx, w, httpx.NewError("unsupported_provider", "unknown payment provider", http.StatusNotFound))
		case errors.Is(err, services.ErrWebhookRejected):
			logger.Warn("webhook rejected", zap.String("provider", provider), zap.Error(err))
			httpx.WriteError(ctx, w, httpx.NewError("webhook_rejected", "webhook verification failed", http.StatusBadRequest))
		default:
			// Non-2xx makes the provider redeliver.
			logger.Error("webhook processing failed", zap.String("provider", provider), zap.Error(err))
			httpx.WriteError(ctx, w, httpx.NewError("webhook_failed", "webhook processing failed", http.StatusInternalServerError))
		}
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]bool{"received": true})
}
