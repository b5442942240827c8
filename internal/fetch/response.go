package fetch

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Response is the handle returned by a completed fetch. It keeps the method
// and url text of the request, which the raw response does not carry, and
// the timing of the exchange.
type Response struct {
	raw    *http.Response
	method string
	url    string
	start  time.Time
	done   time.Time

	readOnce sync.Once
	body     []byte
	bodyErr  error
}

func newResponse(raw *http.Response, method, url string, start, done time.Time) *Response {
	return &Response{
		raw:    raw,
		method: method,
		url:    url,
		start:  start,
		done:   done,
	}
}

// Method returns the request method text.
func (r *Response) Method() string { return r.method }

// URL returns the request url text as supplied by the caller.
func (r *Response) URL() string { return r.url }

// Start returns when the fetch call began.
func (r *Response) Start() time.Time { return r.start }

// Elapsed returns the time from call start to response headers.
func (r *Response) Elapsed() time.Duration {
	d := r.done.Sub(r.start)
	if d < 0 {
		return 0
	}
	return d
}

// Raw returns the underlying response.
func (r *Response) Raw() *http.Response { return r.raw }

// Status returns the status code.
func (r *Response) Status() int { return r.raw.StatusCode }

// StatusText returns the reason phrase, e.g. "Not Found".
func (r *Response) StatusText() string {
	if _, text, ok := strings.Cut(r.raw.Status, " "); ok {
		return text
	}
	return http.StatusText(r.raw.StatusCode)
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.raw.StatusCode >= 200 && r.raw.StatusCode < 300
}

// Header returns the response headers.
func (r *Response) Header() http.Header { return r.raw.Header }

// Bytes reads and closes the body. Later calls return the same result.
func (r *Response) Bytes() ([]byte, error) {
	r.readOnce.Do(func() {
		defer r.raw.Body.Close()
		r.body, r.bodyErr = io.ReadAll(r.raw.Body)
	})
	return r.body, r.bodyErr
}

// Text returns the body as a string.
func (r *Response) Text() (string, error) {
	b, err := r.Bytes()
	return string(b), err
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	b, err := r.Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// maxDrain bounds how much of an unread body Close consumes so the
// connection can go back to the pool.
const maxDrain = 64 << 10

// Close releases the body without returning it. Safe to call after Bytes
// and more than once.
func (r *Response) Close() error {
	var err error
	r.readOnce.Do(func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(r.raw.Body, maxDrain))
		err = r.raw.Body.Close()
		r.bodyErr = http.ErrBodyReadAfterClose
	})
	return err
}
