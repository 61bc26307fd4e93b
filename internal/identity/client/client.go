// Package client verifies identifier status against the population registry.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"dialogmotekandidat/pkg/domain"
	dErrors "dialogmotekandidat/pkg/domain-errors"
)

const personidentHeader = "Nav-Personident"

// Client calls the identity registry. Failures surface as CodeUnavailable;
// a merge that cannot verify aborts and the notification is redelivered.
type Client struct {
	baseURL string
	client  *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type identityResponse struct {
	Personident string `json:"personident"`
	Active      bool   `json:"aktiv"`
}

// IsActive reports whether the identifier is the person's current active
// one in the registry.
func (c *Client) IsActive(ctx context.Context, personident domain.Personident) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/identitet", nil)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "build identity request")
	}
	req.Header.Set(personidentHeader, personident.String())

	resp, err := c.client.Do(req)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeUnavailable, "identity registry unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, dErrors.New(dErrors.CodeUnavailable, fmt.Sprintf("identity registry returned status %d", resp.StatusCode))
	}

	var body identityResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeUnavailable, "decode identity response")
	}
	return body.Active, nil
}
