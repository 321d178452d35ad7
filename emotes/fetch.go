package emotes

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// maxImageBytes caps a single download; Discord rejects emoji uploads above 256KiB
// and Twitch emote assets are far smaller.
const maxImageBytes = 8 << 20

// Fetcher downloads emote image bytes.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher fetches images with a plain GET.
type HTTPFetcher struct {
	Client *http.Client
}

// Fetch returns the response body for url. Any non-2xx status or transport failure
// is reported as a *FetchError.
func (f HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	if len(body) > maxImageBytes {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("image exceeds %d bytes", maxImageBytes)}
	}
	return body, nil
}
