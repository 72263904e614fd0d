package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/desertthunder/cadence/internal/models"
	"github.com/desertthunder/cadence/internal/shared"
)

// TempoProvider resolves a track's tempo from a single external source.
//
// A (0, nil) return means the provider has no data for the track.
type TempoProvider interface {
	// Name returns a short, log-friendly provider name.
	Name() string

	// Source identifies the provider in lookup results.
	Source() models.TempoSource

	// BPM looks up the tempo of the given track.
	BPM(ctx context.Context, track models.Track) (int, error)
}

// getJSON performs a GET request and decodes a JSON body into result.
//
// Status codes map to shared errors: 404 to [shared.ErrTrackNotFound], 429 to [shared.ErrRateLimited],
// 401/403 to [shared.ErrNotAuthenticated] and anything else outside 2xx to [shared.ErrAPIRequest].
func getJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return shared.ErrTrackNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return shared.ErrRateLimited
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", shared.ErrNotAuthenticated, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, string(body))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
		}
	}

	return nil
}
