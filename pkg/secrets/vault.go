package secrets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	vault "github.com/hashicorp/vault/api"

	"github.com/richxcame/account-onboarding/pkg/config"
)

type vaultBackend struct {
	client *vault.Client
	mount  string
}

func newVaultBackend(cfg config.SecretsConfig) (*vaultBackend, error) {
	if cfg.VaultAddress == "" || cfg.VaultToken == "" {
		return nil, errors.New("secrets: vault needs VAULT_ADDR and VAULT_TOKEN")
	}

	vcfg := vault.DefaultConfig()
	vcfg.Address = cfg.VaultAddress
	client, err := vault.NewClient(vcfg)
	if err != nil {
		return nil, fmt.Errorf("secrets: vault client: %w", err)
	}
	client.SetToken(cfg.VaultToken)
	if cfg.VaultNamespace != "" {
		client.SetNamespace(cfg.VaultNamespace)
	}

	mount := cfg.VaultMount
	if mount == "" {
		mount = "secret"
	}
	return &vaultBackend{client: client, mount: mount}, nil
}

func (v *vaultBackend) Name() Provider { return ProviderVault }

func (v *vaultBackend) Close() error { return nil }

// Fetch reads a KV v2 entry
func (v *vaultBackend) Fetch(ctx context.Context, ref Reference) (Secret, error) {
	mount := v.mount
	if ref.Mount != "" {
		mount = ref.Mount
	}
	kv := v.client.KVv2(mount)

	var (
		entry *vault.KVSecret
		err   error
	)
	if ref.Version != "" {
		version, convErr := strconv.Atoi(ref.Version)
		if convErr != nil {
			return Secret{}, fmt.Errorf("%w: vault version %q", ErrInvalidReference, ref.Version)
		}
		entry, err = kv.GetVersion(ctx, ref.Path, version)
	} else {
		entry, err = kv.Get(ctx, ref.Path)
	}
	if err != nil {
		var respErr *vault.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
			return Secret{}, fmt.Errorf("%w: vault %s/%s", ErrKeyNotFound, mount, ref.Path)
		}
		return Secret{}, fmt.Errorf("secrets: vault read %s: %w", ref.Path, err)
	}

	secret := Secret{Data: make(map[string]string, len(entry.Data))}
	for k, raw := range entry.Data {
		secret.Data[k] = fmt.Sprint(raw)
	}
	if entry.VersionMetadata != nil {
		secret.Version = strconv.Itoa(entry.VersionMetadata.Version)
		secret.UpdatedAt = entry.VersionMetadata.CreatedTime
	}
	return secret, nil
}
