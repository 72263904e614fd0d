// package testing contains shared testing utilities
package testing

import (
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/cadence/internal/models"
)

// Track builds a catalog track with a spotify URI derived from id
func Track(id, artist, title string) models.Track {
	return models.Track{
		ID:          id,
		Title:       title,
		ArtistName:  artist,
		Artists:     []string{artist},
		AlbumName:   title + " (Single)",
		AlbumType:   "single",
		PlayableURI: "spotify:track:" + id,
	}
}

// IntPtr returns a pointer to v
func IntPtr(v int) *int { return &v }

// EndedSession builds a persisted-looking session that finished with outcome
func EndedSession(seq int, genre string, target int, outcome models.SessionOutcome) *models.Session {
	start := time.Date(2025, 3, 1, 7, 30, 0, 0, time.UTC)
	end := start.Add(45 * time.Minute)
	return models.RestoreSession(
		"session-"+genre, seq, genre, target, models.DefaultToleranceBPM, outcome,
		"", 40, 6, start, &end, start, end, nil,
	)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper returns a canned response or error and counts calls
type MockRoundTripper struct {
	response *http.Response
	err      error
	Calls    int
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	m.Calls++
	return m.response, m.err
}

// JSONResponse builds an [http.Response] with a JSON body
func JSONResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
