package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"

	"github.com/richxcame/account-onboarding/pkg/config"
)

type gcpBackend struct {
	client  *secretmanager.Client
	project string
}

func newGCPBackend(ctx context.Context, cfg config.SecretsConfig) (*gcpBackend, error) {
	if cfg.GCPProjectID == "" {
		return nil, errors.New("secrets: gcp needs GCP_PROJECT_ID")
	}

	var opts []option.ClientOption
	if cfg.GCPCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.GCPCredentialsFile))
	}
	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("secrets: gcp client: %w", err)
	}
	return &gcpBackend{client: client, project: cfg.GCPProjectID}, nil
}

func (g *gcpBackend) Name() Provider { return ProviderGCP }

func (g *gcpBackend) Close() error { return g.client.Close() }

func (g *gcpBackend) Fetch(ctx context.Context, ref Reference) (Secret, error) {
	resp, err := g.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: g.versionName(ref),
	})
	if err != nil {
		return Secret{}, fmt.Errorf("secrets: gcp read %s: %w", ref.Path, err)
	}
	return Secret{Data: decodePayload(resp.GetPayload().GetData()), Version: resp.GetName()}, nil
}

func (g *gcpBackend) versionName(ref Reference) string {
	if strings.HasPrefix(ref.Path, "projects/") {
		return ref.Path
	}
	version := ref.Version
	if version == "" {
		version = "latest"
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/%s", g.project, ref.Path, version)
}

// decodePayload reads a JSON object payload, or stores anything else under "value"
func decodePayload(raw []byte) map[string]string {
	out := make(map[string]string)
	if len(raw) == 0 {
		return out
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err == nil {
		for k, v := range obj {
			out[k] = fmt.Sprint(v)
		}
		return out
	}
	out["value"] = strings.TrimSpace(string(raw))
	return out
}
