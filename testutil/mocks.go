package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// PNGBytes is a minimal 1x1 PNG used as emote image payload in tests.
var PNGBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

// MockImageServer serves emote images and counts requests.
type MockImageServer struct {
	*httptest.Server
	Images map[string][]byte
	hits   atomic.Int64
}

// NewMockImageServer creates a server answering 404 for any path not in Images.
func NewMockImageServer(t *testing.T) *MockImageServer {
	t.Helper()
	m := &MockImageServer{Images: make(map[string][]byte)}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.hits.Add(1)
		img, ok := m.Images[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(img) //nolint:errcheck // test mock response
	}))
	t.Cleanup(m.Close)
	return m
}

// Hits returns the number of requests served so far.
func (m *MockImageServer) Hits() int64 { return m.hits.Load() }
