// Package client fetches follow-up windows from the external case service.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"dialogmotekandidat/internal/timeline/models"
	"dialogmotekandidat/pkg/domain"
	dErrors "dialogmotekandidat/pkg/domain-errors"
)

const personidentHeader = "Nav-Personident"

// Client calls the case-timeline service. Failures surface as
// CodeUnavailable; the engine never retries inline, the next sweep does.
type Client struct {
	baseURL string
	client  *http.Client
}

// New builds a client with a bounded call timeout.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type windowDTO struct {
	Start       string  `json:"start"`
	End         string  `json:"end"`
	WorkerAtEnd bool    `json:"arbeidstakerAtTilfelleEnd"`
	DeathDate   *string `json:"dodsdato"`
}

type windowsResponse struct {
	Personident string      `json:"personident"`
	Windows     []windowDTO `json:"oppfolgingstilfelleList"`
}

// FollowUpWindows returns the person's windows, excluding windows that start
// after tomorrow: a not-yet-effective future window must not schedule
// anything today.
func (c *Client) FollowUpWindows(ctx context.Context, personident domain.Personident) ([]models.FollowUpWindow, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/oppfolgingstilfelle", nil)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "build timeline request")
	}
	req.Header.Set(personidentHeader, personident.String())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "timeline service unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, dErrors.New(dErrors.CodeUnavailable, fmt.Sprintf("timeline service returned status %d", resp.StatusCode))
	}

	var body windowsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "decode timeline response")
	}

	tomorrow := models.Date(time.Now()).AddDate(0, 0, 1)
	windows := make([]models.FollowUpWindow, 0, len(body.Windows))
	for _, dto := range body.Windows {
		window, err := toWindow(personident, dto)
		if err != nil {
			return nil, err
		}
		if window.Start.After(tomorrow) {
			continue
		}
		windows = append(windows, window)
	}
	return windows, nil
}

func toWindow(personident domain.Personident, dto windowDTO) (models.FollowUpWindow, error) {
	start, err := time.Parse("2006-01-02", dto.Start)
	if err != nil {
		return models.FollowUpWindow{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "malformed window start")
	}
	end, err := time.Parse("2006-01-02", dto.End)
	if err != nil {
		return models.FollowUpWindow{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "malformed window end")
	}

	window := models.FollowUpWindow{
		Personident: personident,
		Start:       start,
		End:         end,
		WorkerAtEnd: dto.WorkerAtEnd,
	}
	if dto.DeathDate != nil {
		death, err := time.Parse("2006-01-02", *dto.DeathDate)
		if err != nil {
			return models.FollowUpWindow{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "malformed death date")
		}
		window.DeathDate = &death
	}
	return window, nil
}
