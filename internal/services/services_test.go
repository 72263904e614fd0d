package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/desertthunder/cadence/internal/shared"
	th "github.com/desertthunder/cadence/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetJSON(t *testing.T) {
	tests := []struct {
		name    string
		resp    *http.Response
		err     error
		wantErr error
	}{
		{name: "not found", resp: th.JSONResponse(http.StatusNotFound, `{}`), wantErr: shared.ErrTrackNotFound},
		{name: "rate limited", resp: th.JSONResponse(http.StatusTooManyRequests, `{}`), wantErr: shared.ErrRateLimited},
		{name: "unauthorized", resp: th.JSONResponse(http.StatusUnauthorized, `{}`), wantErr: shared.ErrNotAuthenticated},
		{name: "forbidden", resp: th.JSONResponse(http.StatusForbidden, `{}`), wantErr: shared.ErrNotAuthenticated},
		{name: "server error", resp: th.JSONResponse(http.StatusBadGateway, `upstream down`), wantErr: shared.ErrAPIRequest},
		{name: "malformed body", resp: th.JSONResponse(http.StatusOK, `{"tempo":`), wantErr: shared.ErrAPIRequest},
		{name: "unreadable body", resp: &http.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: &th.FCloser{}}, wantErr: shared.ErrAPIRequest},
		{name: "transport failure", err: errors.New("connection reset"), wantErr: shared.ErrAPIRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := th.NewMockRoundTripper(tt.resp, tt.err)
			client := &http.Client{Transport: rt}

			var out map[string]any
			err := getJSON(context.Background(), client, "http://tempo.test/track/1", nil, &out)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 1, rt.Calls)
		})
	}

	t.Run("decodes and sends headers", func(t *testing.T) {
		var got http.Header
		client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			got = r.Header
			return th.JSONResponse(http.StatusOK, `{"tempo":128.4}`), nil
		})}

		var out struct {
			Tempo float64 `json:"tempo"`
		}
		err := getJSON(context.Background(), client, "http://tempo.test/track/1", map[string]string{"x-api-key": "k"}, &out)
		require.NoError(t, err)
		assert.InDelta(t, 128.4, out.Tempo, 0.001)
		assert.Equal(t, "k", got.Get("x-api-key"))
		assert.Equal(t, "application/json", got.Get("Accept"))
	})
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
