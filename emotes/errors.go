package emotes

import (
	"errors"
	"fmt"
)

// ErrConnection marks failures to open or re-open the store's database connection.
// Use errors.Is to detect it; the underlying driver error stays wrapped.
var ErrConnection = errors.New("emote store connection failed")

// FetchError is returned when an emote image cannot be downloaded. Nothing is written
// to the store when it occurs.
//
// StatusCode is zero for network-level failures, in which case Err holds the cause.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch emote image %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch emote image %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
