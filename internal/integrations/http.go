package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/richxcame/account-onboarding/pkg/httpclient"
	"github.com/richxcame/account-onboarding/pkg/resilience"
)

// HTTPClient posts the subject to <baseURL>/<integration id> and decodes the
// JSON object it returns. Retries are left to the orchestrator.
type HTTPClient struct {
	id     string
	client *httpclient.Client
}

// NewHTTPClient creates a client for one integration.
func NewHTTPClient(baseURL, id string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{id: id, client: httpclient.NewClient(baseURL, timeout)}
}

// HTTPClients returns an HTTP client for every integration in the default catalog.
func HTTPClients(baseURL string, timeout time.Duration) map[string]Client {
	ids := []string{
		IDIdentityVerification,
		IDCreditCheck,
		IDKYCScreening,
		IDFraudDatabase,
		IDDocumentVerification,
		IDEmploymentVerification,
	}
	out := make(map[string]Client, len(ids))
	for _, id := range ids {
		out[id] = NewHTTPClient(baseURL, id, timeout)
	}
	return out
}

func (c *HTTPClient) Call(ctx context.Context, req Request) (map[string]interface{}, error) {
	headers := map[string]string{
		"X-Request-ID": req.RequestID,
		"X-Attempt":    fmt.Sprintf("%d", req.Attempt),
	}
	// One idempotency key per settled call so retried attempts are not double-applied.
	body, err := c.client.PostWithIdempotency(ctx, "/"+c.id, req.Subject, headers, req.RequestID)
	if err != nil {
		var httpErr *httpclient.HTTPError
		if errors.As(err, &httpErr) && !resilience.IsRetryableHTTPStatus(httpErr.StatusCode) {
			return nil, Permanent(err)
		}
		return nil, err
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, Permanent(fmt.Errorf("decode %s response: %w", c.id, err))
	}
	return payload, nil
}
