package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richxcame/account-onboarding/pkg/config"
)

func TestParseReference(t *testing.T) {
	tests := []struct {
		raw     string
		want    Reference
		wantErr bool
	}{
		{
			raw:  "vault://secret::onboarding/db@3#password",
			want: Reference{Provider: ProviderVault, Mount: "secret", Path: "onboarding/db", Version: "3", Key: "password"},
		},
		{
			raw:  "onboarding/jwt",
			want: Reference{Path: "onboarding/jwt"},
		},
		{
			raw:  "aws://prod/onboarding/sentry#dsn",
			want: Reference{Provider: ProviderAWS, Path: "prod/onboarding/sentry", Key: "dsn"},
		},
		{
			raw:  "file:///db/",
			want: Reference{Provider: ProviderFile, Path: "db"},
		},
		{raw: "", wantErr: true},
		{raw: "vault://#password", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseReference(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidReference)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSecret_Value(t *testing.T) {
	single := Secret{Data: map[string]string{"value": "s3cret"}}
	v, ok := single.Value("")
	assert.True(t, ok)
	assert.Equal(t, "s3cret", v)

	multi := Secret{Data: map[string]string{"username": "app", "password": "pw"}}
	_, ok = multi.Value("")
	assert.False(t, ok)
	v, ok = multi.Value("password")
	assert.True(t, ok)
	assert.Equal(t, "pw", v)
}

type countingBackend struct {
	fetches int
	secret  Secret
	err     error
}

func (c *countingBackend) Name() Provider { return ProviderVault }

func (c *countingBackend) Close() error { return nil }

func (c *countingBackend) Fetch(ctx context.Context, ref Reference) (Secret, error) {
	c.fetches++
	return c.secret, c.err
}

func TestManager_CachesUntilTTL(t *testing.T) {
	b := &countingBackend{secret: Secret{Data: map[string]string{"password": "pw"}}}
	m := newManager(b, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		v, err := m.String(context.Background(), "secret::onboarding/db#password")
		require.NoError(t, err)
		assert.Equal(t, "pw", v)
	}
	assert.Equal(t, 1, b.fetches)

	now = now.Add(2 * time.Minute)
	_, err := m.String(context.Background(), "onboarding/db#password")
	require.NoError(t, err)
	assert.Equal(t, 2, b.fetches)
}

func TestManager_Errors(t *testing.T) {
	b := &countingBackend{secret: Secret{Data: map[string]string{"password": "pw"}}}
	m := newManager(b, 0)

	_, err := m.String(context.Background(), "onboarding/db#missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	_, err = m.String(context.Background(), "aws://onboarding/db#password")
	assert.Error(t, err)

	b.err = errors.New("permission denied")
	_, err = m.String(context.Background(), "other/path#password")
	assert.ErrorContains(t, err, "permission denied")
}

func TestNewManager_RequiresProvider(t *testing.T) {
	_, err := NewManager(context.Background(), config.SecretsConfig{})
	assert.ErrorIs(t, err, ErrProviderNotConfigured)

	_, err = NewManager(context.Background(), config.SecretsConfig{Provider: "vault"})
	assert.Error(t, err)

	_, err = NewManager(context.Background(), config.SecretsConfig{Provider: "keychain"})
	assert.Error(t, err)
}

func writeSecretFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestApply_FileProvider(t *testing.T) {
	base := t.TempDir()
	writeSecretFile(t, filepath.Join(base, "db", "password"), "db-pass\n")
	writeSecretFile(t, filepath.Join(base, "db", "username"), "onboarding")
	writeSecretFile(t, filepath.Join(base, "jwt"), "signing-key")

	m, err := NewManager(context.Background(), config.SecretsConfig{Provider: "file", FileBasePath: base})
	require.NoError(t, err)
	defer m.Close()

	cfg := &config.Config{
		Database: config.DatabaseConfig{Password: "from-env"},
		Redis:    config.RedisConfig{Password: "redis-env"},
		Secrets: config.SecretsConfig{
			DatabasePasswordRef: "file://db#password",
			JWTSecretRef:        "jwt",
		},
	}
	require.NoError(t, Apply(context.Background(), m, cfg))

	assert.Equal(t, "db-pass", cfg.Database.Password)
	assert.Equal(t, "signing-key", cfg.JWT.Secret)
	assert.Equal(t, "redis-env", cfg.Redis.Password)
}

func TestApply_MissingSecret(t *testing.T) {
	m, err := NewManager(context.Background(), config.SecretsConfig{Provider: "file", FileBasePath: t.TempDir()})
	require.NoError(t, err)

	cfg := &config.Config{Secrets: config.SecretsConfig{SentryDSNRef: "sentry#dsn"}}
	err = Apply(context.Background(), m, cfg)
	assert.ErrorIs(t, err, ErrKeyNotFound)
	assert.ErrorContains(t, err, "sentry_dsn")
}

func TestDecodePayload(t *testing.T) {
	assert.Equal(t, map[string]string{"password": "pw", "port": "5432"}, decodePayload([]byte(`{"password":"pw","port":5432}`)))
	assert.Equal(t, map[string]string{"value": "plain"}, decodePayload([]byte("plain\n")))
	assert.Empty(t, decodePayload(nil))
}
