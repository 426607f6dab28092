package config

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	envPrefix               = "SITE_"
	defaultEnvFile          = ".env"
	defaultPort             = "8080"
	defaultReadTimeout      = 15 * time.Second
	defaultWriteTimeout     = 30 * time.Second
	defaultIdleTimeout      = 120 * time.Second
	defaultShutdownTimeout  = 10 * time.Second
	defaultBaseURL          = "http://localhost:8080"
	defaultTimezone         = "America/Toronto"
	defaultRegistrationCopy = "fr"
	defaultCurrency         = "CAD"
	defaultStoreBackend     = StoreSQLite
	defaultSQLitePath       = "data/lowping.db"
	defaultConfirmTopic     = "registration-confirmations"
	defaultSessionCookie    = "lowping_session"
	defaultSessionTTL       = 2 * time.Hour
	defaultEnvironment      = "local"
	defaultLocalSecretsFile = ".secrets.local"
	localSessionKey         = "local-development-session-key-change-me"
)

// Store backends.
const (
	StoreFirestore = "firestore"
	StoreSQLite    = "sqlite"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server    ServerConfig
	Site      SiteConfig
	Store     StoreConfig
	Firestore FirestoreConfig
	PSP       PSPConfig
	PubSub    PubSubConfig
	Session   SessionConfig
	Secrets   SecretsConfig
	Security  SecurityConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// SiteConfig holds what the public pages need to render links and labels.
type SiteConfig struct {
	BaseURL          string
	AssetBaseURL     string
	Timezone         string
	RegistrationCopy string
	Currency         string
}

// StoreConfig selects the event and registration backend.
type StoreConfig struct {
	Backend    string
	SQLitePath string
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// PSPConfig collects payment provider secrets.
type PSPConfig struct {
	StripeAPIKey        string
	StripeWebhookSecret string
}

// PubSubConfig points at the confirmation topic.
type PubSubConfig struct {
	ProjectID         string
	ConfirmationTopic string
	EmulatorHost      string
}

// SessionConfig controls the signed registration cookie.
type SessionConfig struct {
	SigningKey    string
	CookieName    string
	SecureCookies bool
	TTL           time.Duration
}

// SecretsConfig configures Secret Manager lookups.
type SecretsConfig struct {
	ProjectID string
	LocalFile string
}

// SecurityConfig carries the deployment environment name.
type SecurityConfig struct {
	Environment string
}

// IsLocal reports whether the service runs on a developer machine.
func (c Config) IsLocal() bool {
	return c.Security.Environment == "local" || c.Security.Environment == "dev"
}

// Location resolves the configured timezone.
func (c SiteConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// SecretResolver resolves references to external secrets (e.g. Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	return append([]string(nil), e.fields...)
}

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

func (e *SecretError) Unwrap() error { return e.Err }

// MissingSecretsError indicates that one or more required secrets resolved empty.
type MissingSecretsError struct {
	names []string
}

func (e *MissingSecretsError) Error() string {
	return fmt.Sprintf("missing required secrets [%s]", strings.Join(e.RedactedNames(), ", "))
}

// Names returns the config field names that were missing.
func (e *MissingSecretsError) Names() []string {
	if e == nil {
		return nil
	}
	out := append([]string(nil), e.names...)
	sort.Strings(out)
	return out
}

// RedactedNames hashes the names so they can be logged.
func (e *MissingSecretsError) RedactedNames() []string {
	if e == nil {
		return nil
	}
	out := make([]string, 0, len(e.names))
	for _, name := range e.names {
		sum := sha256.Sum256([]byte(name))
		out = append(out, hex.EncodeToString(sum[:8]))
	}
	sort.Strings(out)
	return out
}

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile         string
	envMap          map[string]string
	useSystemEnv    bool
	secret          SecretResolver
	requiredSecrets []string
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) { o.envFile = path }
}

// WithEnvMap injects explicit values that win over the process environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) { o.envMap = values }
}

// WithoutSystemEnv ignores the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) { o.useSystemEnv = false }
}

// WithSecretResolver sets the resolver used for secret:// and sm:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) { o.secret = resolver }
}

// WithRequiredSecrets marks config fields (e.g. "PSP.StripeAPIKey") that must resolve non-empty.
func WithRequiredSecrets(names ...string) Option {
	return func(o *loaderOptions) { o.requiredSecrets = append(o.requiredSecrets, names...) }
}

func newOptions(opts []Option) loaderOptions {
	options := loaderOptions{envFile: defaultEnvFile, useSystemEnv: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return options
}

// source resolves keys with precedence explicit map > OS env > .env file.
type source struct {
	lookup func(string) (string, bool)
}

func newSource(options loaderOptions) (source, error) {
	dotEnv, err := loadDotEnv(options.envFile)
	if err != nil {
		return source{}, err
	}
	return source{lookup: func(key string) (string, bool) {
		if v, ok := options.envMap[key]; ok {
			return v, true
		}
		if options.useSystemEnv {
			if v, ok := os.LookupEnv(key); ok {
				return v, true
			}
		}
		v, ok := dotEnv[key]
		return v, ok
	}}, nil
}

// Lookup returns a prefixed value as Load would see it. The secrets fetcher
// uses it to find its project before Load runs.
func Lookup(key string, opts ...Option) (string, error) {
	src, err := newSource(newOptions(opts))
	if err != nil {
		return "", err
	}
	v, _ := src.lookup(envPrefix + key)
	return strings.TrimSpace(v), nil
}

func (s source) str(key, fallback string) string {
	if v, ok := s.lookup(envPrefix + key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func (s source) duration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(s.str(key, "")); err == nil {
		return d
	}
	return fallback
}

func (s source) boolean(key string, fallback bool) bool {
	switch strings.ToLower(s.str(key, "")) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	return fallback
}

// Load assembles configuration from defaults, the .env file, the environment
// and Secret Manager references.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := newOptions(opts)
	src, err := newSource(options)
	if err != nil {
		return Config{}, err
	}

	port := src.str("PORT", "")
	if port == "" {
		// Cloud Run injects PORT without the prefix.
		if v, ok := src.lookup("PORT"); ok && strings.TrimSpace(v) != "" {
			port = strings.TrimSpace(v)
		} else {
			port = defaultPort
		}
	}

	cfg := Config{
		Server: ServerConfig{
			Port:            port,
			ReadTimeout:     src.duration("SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:    src.duration("SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:     src.duration("SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			ShutdownTimeout: src.duration("SERVER_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		},
		Site: SiteConfig{
			BaseURL:          strings.TrimRight(src.str("BASE_URL", defaultBaseURL), "/"),
			AssetBaseURL:     strings.TrimRight(src.str("ASSET_BASE_URL", ""), "/"),
			Timezone:         src.str("TIMEZONE", defaultTimezone),
			RegistrationCopy: strings.ToLower(src.str("REGISTRATION_COPY", defaultRegistrationCopy)),
			Currency:         strings.ToUpper(src.str("CURRENCY", defaultCurrency)),
		},
		Store: StoreConfig{
			Backend:    strings.ToLower(src.str("STORE_BACKEND", defaultStoreBackend)),
			SQLitePath: src.str("SQLITE_PATH", defaultSQLitePath),
		},
		Firestore: FirestoreConfig{
			ProjectID:    src.str("FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: src.str("FIRESTORE_EMULATOR_HOST", ""),
		},
		PSP: PSPConfig{
			StripeAPIKey:        src.str("PSP_STRIPE_API_KEY", ""),
			StripeWebhookSecret: src.str("PSP_STRIPE_WEBHOOK_SECRET", ""),
		},
		PubSub: PubSubConfig{
			ProjectID:         src.str("PUBSUB_PROJECT_ID", ""),
			ConfirmationTopic: src.str("PUBSUB_CONFIRMATION_TOPIC", defaultConfirmTopic),
			EmulatorHost:      src.str("PUBSUB_EMULATOR_HOST", ""),
		},
		Session: SessionConfig{
			SigningKey:    src.str("SESSION_SIGNING_KEY", ""),
			CookieName:    src.str("SESSION_COOKIE_NAME", defaultSessionCookie),
			SecureCookies: src.boolean("SESSION_SECURE_COOKIES", false),
			TTL:           src.duration("SESSION_TTL", defaultSessionTTL),
		},
		Secrets: SecretsConfig{
			ProjectID: src.str("SECRETS_PROJECT_ID", ""),
			LocalFile: src.str("SECRETS_LOCAL_FILE", defaultLocalSecretsFile),
		},
		Security: SecurityConfig{
			Environment: strings.ToLower(src.str("ENVIRONMENT", defaultEnvironment)),
		},
	}

	if cfg.PubSub.ProjectID == "" {
		cfg.PubSub.ProjectID = cfg.Firestore.ProjectID
	}
	if cfg.Secrets.ProjectID == "" {
		cfg.Secrets.ProjectID = cfg.Firestore.ProjectID
	}
	if cfg.Session.SigningKey == "" && cfg.IsLocal() {
		cfg.Session.SigningKey = localSessionKey
	}
	if !cfg.IsLocal() && src.str("SESSION_SECURE_COOKIES", "") == "" {
		cfg.Session.SecureCookies = true
	}

	resolved := make(map[string]string)
	secretFields := []struct {
		name  string
		field *string
	}{
		{"PSP.StripeAPIKey", &cfg.PSP.StripeAPIKey},
		{"PSP.StripeWebhookSecret", &cfg.PSP.StripeWebhookSecret},
		{"Session.SigningKey", &cfg.Session.SigningKey},
	}
	for _, target := range secretFields {
		value, err := resolveSecret(ctx, *target.field, options.secret)
		if err != nil {
			return Config{}, err
		}
		*target.field = value
		resolved[target.name] = value
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	var missing []string
	for _, name := range options.requiredSecrets {
		name = strings.TrimSpace(name)
		if name != "" && strings.TrimSpace(resolved[name]) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return Config{}, &MissingSecretsError{names: missing}
	}
	return cfg, nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, "secret://") && !strings.HasPrefix(trimmed, "sm://") {
		return value, nil
	}
	ref := "secret://" + strings.TrimPrefix(strings.TrimPrefix(trimmed, "sm://"), "secret://")
	if resolver == nil {
		return "", &SecretError{Ref: ref, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, ref)
	if err != nil {
		return "", &SecretError{Ref: ref, Err: err}
	}
	return secret, nil
}

func validate(cfg Config) error {
	var invalid []string

	if cfg.Server.Port == "" {
		invalid = append(invalid, "Server.Port")
	}
	if u, err := url.Parse(cfg.Site.BaseURL); err != nil || !u.IsAbs() {
		invalid = append(invalid, "Site.BaseURL")
	}
	if cfg.Site.AssetBaseURL != "" {
		if u, err := url.Parse(cfg.Site.AssetBaseURL); err != nil || !u.IsAbs() {
			invalid = append(invalid, "Site.AssetBaseURL")
		}
	}
	if _, err := cfg.Site.Location(); err != nil {
		invalid = append(invalid, "Site.Timezone")
	}
	switch cfg.Site.RegistrationCopy {
	case "fr", "en":
	default:
		invalid = append(invalid, "Site.RegistrationCopy")
	}
	if len(cfg.Site.Currency) != 3 {
		invalid = append(invalid, "Site.Currency")
	}
	switch cfg.Store.Backend {
	case StoreSQLite:
		if cfg.Store.SQLitePath == "" {
			invalid = append(invalid, "Store.SQLitePath")
		}
	case StoreFirestore:
		if cfg.Firestore.ProjectID == "" {
			invalid = append(invalid, "Firestore.ProjectID")
		}
	default:
		invalid = append(invalid, "Store.Backend")
	}
	if len(cfg.Session.SigningKey) < 16 {
		invalid = append(invalid, "Session.SigningKey")
	}
	if cfg.Session.TTL <= 0 {
		invalid = append(invalid, "Session.TTL")
	}

	if len(invalid) > 0 {
		return &ValidationError{fields: invalid}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}
