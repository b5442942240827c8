package fetch

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"
)

// Body is a request body. The zero value is empty.
type Body struct {
	r io.Reader
}

// Reader returns the body stream, or nil when empty.
func (b Body) Reader() io.Reader { return b.r }

// BodyFromValue converts a script or Go value into a request body.
//
// Accepted: nil, string, []byte, io.Reader and []any of byte values
// (integers in 0..255, as produced by script byte arrays).
func BodyFromValue(v any) (Body, error) {
	switch val := v.(type) {
	case nil:
		return Body{}, nil
	case string:
		return Body{r: strings.NewReader(val)}, nil
	case []byte:
		return Body{r: bytes.NewReader(val)}, nil
	case io.Reader:
		return Body{r: val}, nil
	case []any:
		buf, err := byteArray(val)
		if err != nil {
			return Body{}, err
		}
		return Body{r: bytes.NewReader(buf)}, nil
	default:
		return Body{}, fmt.Errorf("%w: expected a string, bytes or a reader, got %T", ErrInvalidBody, v)
	}
}

func byteArray(items []any) ([]byte, error) {
	buf := make([]byte, len(items))
	for i, item := range items {
		var n float64
		switch x := item.(type) {
		case float64:
			n = x
		case int:
			n = float64(x)
		default:
			return nil, fmt.Errorf("%w: element %d is %T, not a byte", ErrInvalidBody, i, item)
		}
		if n < 0 || n > 255 || n != math.Trunc(n) {
			return nil, fmt.Errorf("%w: element %d (%v) is not a byte", ErrInvalidBody, i, n)
		}
		buf[i] = byte(n)
	}
	return buf, nil
}
