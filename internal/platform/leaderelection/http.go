package leaderelection

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

// HTTPElector asks the elector sidecar which pod holds leadership. The
// sidecar keeps the lease; this process only compares names.
type HTTPElector struct {
	url      string
	hostname string
	client   *http.Client
}

// NewHTTPElector builds an elector against the sidecar URL. The pod hostname
// identifies this instance in the sidecar's answer.
func NewHTTPElector(url string) (*HTTPElector, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("resolve hostname: %w", err)
	}
	return &HTTPElector{
		url:      url,
		hostname: hostname,
		client:   &http.Client{Timeout: 5 * time.Second},
	}, nil
}

type electorResponse struct {
	Name string `json:"name"`
}

func (e *HTTPElector) IsLeader(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.url, nil)
	if err != nil {
		return false, fmt.Errorf("build elector request: %w", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("call elector: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("elector returned status %d", resp.StatusCode)
	}

	var body electorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("decode elector response: %w", err)
	}
	return body.Name == e.hostname, nil
}
