package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Site.Timezone != "America/Toronto" {
		t.Errorf("unexpected timezone %s", cfg.Site.Timezone)
	}
	if cfg.Site.RegistrationCopy != "fr" {
		t.Errorf("expected french copy by default, got %s", cfg.Site.RegistrationCopy)
	}
	if cfg.Store.Backend != StoreSQLite {
		t.Errorf("expected sqlite backend, got %s", cfg.Store.Backend)
	}
	if cfg.Session.SigningKey != localSessionKey {
		t.Errorf("expected local session key in local environment")
	}
	if cfg.Session.SecureCookies {
		t.Errorf("expected insecure cookies locally")
	}
	if !cfg.IsLocal() {
		t.Errorf("expected local environment")
	}
}

func TestLoadWithOverridesAndSecrets(t *testing.T) {
	env := map[string]string{
		"SITE_PORT":                      "9090",
		"SITE_SERVER_READ_TIMEOUT":       "20s",
		"SITE_BASE_URL":                  "https://lowping.gg/",
		"SITE_ASSET_BASE_URL":            "https://cdn.lowping.gg",
		"SITE_REGISTRATION_COPY":         "EN",
		"SITE_CURRENCY":                  "usd",
		"SITE_STORE_BACKEND":             "firestore",
		"SITE_FIRESTORE_PROJECT_ID":      "lowping-prod",
		"SITE_PSP_STRIPE_API_KEY":        "secret://stripe/api",
		"SITE_PSP_STRIPE_WEBHOOK_SECRET": "sm://stripe/webhook",
		"SITE_SESSION_SIGNING_KEY":       "secret://session/key",
		"SITE_ENVIRONMENT":               "prod",
	}
	secrets := map[string]string{
		"secret://stripe/api":     "sk_test_123",
		"secret://stripe/webhook": "whsec_123",
		"secret://session/key":    "0123456789abcdef0123",
	}
	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		if v, ok := secrets[ref]; ok {
			return v, nil
		}
		return "", errors.New("not found")
	})

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithSecretResolver(resolver),
		WithRequiredSecrets("PSP.StripeAPIKey"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" || cfg.Server.ReadTimeout != 20*time.Second {
		t.Errorf("unexpected server config %+v", cfg.Server)
	}
	if cfg.Site.BaseURL != "https://lowping.gg" {
		t.Errorf("expected trailing slash trimmed, got %s", cfg.Site.BaseURL)
	}
	if cfg.Site.RegistrationCopy != "en" || cfg.Site.Currency != "USD" {
		t.Errorf("unexpected site config %+v", cfg.Site)
	}
	if cfg.PSP.StripeAPIKey != "sk_test_123" || cfg.PSP.StripeWebhookSecret != "whsec_123" {
		t.Errorf("secrets not resolved: %+v", cfg.PSP)
	}
	if cfg.PubSub.ProjectID != "lowping-prod" {
		t.Errorf("expected pubsub project to default to firestore project, got %s", cfg.PubSub.ProjectID)
	}
	if !cfg.Session.SecureCookies {
		t.Errorf("expected secure cookies outside local")
	}
}

func TestLoadPortFallsBackToUnprefixedPort(t *testing.T) {
	cfg, err := Load(context.Background(), WithEnvMap(map[string]string{"PORT": "3000"}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "3000" {
		t.Errorf("expected PORT fallback, got %s", cfg.Server.Port)
	}
}

func TestLoadValidationErrors(t *testing.T) {
	env := map[string]string{
		"SITE_REGISTRATION_COPY": "de",
		"SITE_STORE_BACKEND":     "firestore",
		"SITE_TIMEZONE":          "Mars/Olympus",
		"SITE_ENVIRONMENT":       "prod",
	}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, field := range []string{"Site.RegistrationCopy", "Firestore.ProjectID", "Site.Timezone", "Session.SigningKey"} {
		if !slices.Contains(verr.Fields(), field) {
			t.Errorf("expected %s in %v", field, verr.Fields())
		}
	}
}

func TestLoadSecretWithoutResolver(t *testing.T) {
	env := map[string]string{"SITE_PSP_STRIPE_API_KEY": "sm://stripe/api"}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var serr *SecretError
	if !errors.As(err, &serr) {
		t.Fatalf("expected secret error, got %v", err)
	}
	if serr.Ref != "secret://stripe/api" {
		t.Errorf("expected normalised ref, got %s", serr.Ref)
	}
}

func TestLoadMissingRequiredSecret(t *testing.T) {
	_, err := Load(context.Background(), WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""),
		WithRequiredSecrets("PSP.StripeWebhookSecret"))
	var missing *MissingSecretsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected missing secrets error, got %v", err)
	}
	if got := missing.Names(); len(got) != 1 || got[0] != "PSP.StripeWebhookSecret" {
		t.Errorf("unexpected names %v", got)
	}
	if len(missing.RedactedNames()[0]) != 16 {
		t.Errorf("expected redacted hash")
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# local\nexport SITE_PORT=7070\nSITE_CURRENCY=\"eur\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}

	cfg, err := Load(context.Background(), WithoutSystemEnv(), WithEnvFile(path), WithEnvMap(map[string]string{"SITE_PORT": "6060"}))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "6060" {
		t.Errorf("explicit map should win over .env, got %s", cfg.Server.Port)
	}
	if cfg.Site.Currency != "EUR" {
		t.Errorf("expected currency from .env, got %s", cfg.Site.Currency)
	}

	v, err := Lookup("CURRENCY", WithoutSystemEnv(), WithEnvFile(path))
	if err != nil || v != "eur" {
		t.Errorf("Lookup = %q, %v", v, err)
	}
}
