package secrets

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/richxcame/account-onboarding/pkg/config"
	"github.com/richxcame/account-onboarding/pkg/logger"
)

type backend interface {
	Name() Provider
	Fetch(ctx context.Context, ref Reference) (Secret, error)
	Close() error
}

// Manager resolves references against one backend and caches payloads
type Manager struct {
	backend  backend
	cacheTTL time.Duration
	now      func() time.Time

	mu    sync.Mutex
	cache map[string]cachedSecret
}

type cachedSecret struct {
	secret    Secret
	expiresAt time.Time
}

// NewManager connects to the backend named in cfg
func NewManager(ctx context.Context, cfg config.SecretsConfig) (*Manager, error) {
	var (
		b   backend
		err error
	)
	switch Provider(cfg.Provider) {
	case ProviderNone:
		return nil, ErrProviderNotConfigured
	case ProviderVault:
		b, err = newVaultBackend(cfg)
	case ProviderAWS:
		b, err = newAWSBackend(ctx, cfg)
	case ProviderGCP:
		b, err = newGCPBackend(ctx, cfg)
	case ProviderFile:
		b, err = newFileBackend(cfg.FileBasePath)
	default:
		err = fmt.Errorf("secrets: unsupported provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return newManager(b, cfg.CacheTTL), nil
}

func newManager(b backend, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Manager{
		backend:  b,
		cacheTTL: ttl,
		now:      time.Now,
		cache:    make(map[string]cachedSecret),
	}
}

// Get returns the full payload for ref
func (m *Manager) Get(ctx context.Context, ref Reference) (Secret, error) {
	if ref.Provider != ProviderNone && ref.Provider != m.backend.Name() {
		return Secret{}, fmt.Errorf("secrets: reference for %q resolved against %q", ref.Provider, m.backend.Name())
	}

	key := ref.cacheKey()
	m.mu.Lock()
	entry, ok := m.cache[key]
	m.mu.Unlock()
	if ok && m.now().Before(entry.expiresAt) {
		return entry.secret.clone(), nil
	}

	secret, err := m.backend.Fetch(ctx, ref)
	if err != nil {
		return Secret{}, err
	}

	m.mu.Lock()
	m.cache[key] = cachedSecret{secret: secret.clone(), expiresAt: m.now().Add(m.cacheTTL)}
	m.mu.Unlock()
	return secret, nil
}

// String resolves a raw reference to a single value
func (m *Manager) String(ctx context.Context, raw string) (string, error) {
	ref, err := ParseReference(raw)
	if err != nil {
		return "", err
	}
	secret, err := m.Get(ctx, ref)
	if err != nil {
		return "", err
	}
	v, ok := secret.Value(ref.Key)
	if !ok {
		return "", fmt.Errorf("%w: %s#%s", ErrKeyNotFound, ref.Path, ref.Key)
	}
	return v, nil
}

// Close releases the backend client
func (m *Manager) Close() error {
	return m.backend.Close()
}

// Apply overwrites every credential in cfg whose reference is set.
// Credentials without a reference keep their environment value.
func Apply(ctx context.Context, m *Manager, cfg *config.Config) error {
	targets := []struct {
		name string
		ref  string
		dst  *string
	}{
		{"database_password", cfg.Secrets.DatabasePasswordRef, &cfg.Database.Password},
		{"redis_password", cfg.Secrets.RedisPasswordRef, &cfg.Redis.Password},
		{"jwt_secret", cfg.Secrets.JWTSecretRef, &cfg.JWT.Secret},
		{"sentry_dsn", cfg.Secrets.SentryDSNRef, &cfg.Sentry.DSN},
	}

	for _, t := range targets {
		if t.ref == "" {
			continue
		}
		v, err := m.String(ctx, t.ref)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", t.name, err)
		}
		*t.dst = v
		logger.Info("credential loaded from secret store",
			zap.String("credential", t.name),
			zap.String("provider", string(m.backend.Name())),
		)
	}
	return nil
}
