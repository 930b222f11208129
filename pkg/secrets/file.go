package secrets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// fileBackend reads secrets mounted as files, one directory per secret with
// one file per key, as Kubernetes and Docker mount them.
type fileBackend struct {
	base string
}

func newFileBackend(base string) (*fileBackend, error) {
	if base == "" {
		base = "/var/run/secrets/onboarding"
	}
	info, err := os.Stat(base)
	if err != nil {
		return nil, fmt.Errorf("secrets: mount %s: %w", base, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("secrets: mount %s is not a directory", base)
	}
	return &fileBackend{base: base}, nil
}

func (f *fileBackend) Name() Provider { return ProviderFile }

func (f *fileBackend) Close() error { return nil }

func (f *fileBackend) Fetch(ctx context.Context, ref Reference) (Secret, error) {
	target := filepath.Join(f.base, filepath.Clean("/"+ref.Path))
	info, err := os.Stat(target)
	if err != nil {
		return Secret{}, fmt.Errorf("%w: %s", ErrKeyNotFound, ref.Path)
	}

	secret := Secret{Data: make(map[string]string), UpdatedAt: info.ModTime()}
	if !info.IsDir() {
		content, err := os.ReadFile(target)
		if err != nil {
			return Secret{}, err
		}
		secret.Data["value"] = strings.TrimSpace(string(content))
		return secret, nil
	}

	entries, err := os.ReadDir(target)
	if err != nil {
		return Secret{}, err
	}
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		content, err := os.ReadFile(filepath.Join(target, e.Name()))
		if err != nil {
			return Secret{}, err
		}
		secret.Data[e.Name()] = strings.TrimSpace(string(content))
	}
	return secret, nil
}
