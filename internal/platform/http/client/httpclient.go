package client

import "net/http"

// Doer is the slice of *http.Client the fetch dispatcher depends on.
// *http.Client returned by NewShared satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

var _ Doer = (*http.Client)(nil)
