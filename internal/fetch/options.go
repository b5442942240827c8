package fetch

import (
	"net/http"
	"sort"

	"github.com/mitchellh/mapstructure"
)

// Options are the resolved request parameters of one call.
//
// The url is known eagerly. Method, headers and body are kept as
// unevaluated conversions; their errors surface only when the dispatcher
// consumes them.
type Options struct {
	url    string
	hasURL bool

	method  func() (string, error)
	headers func() (*Headers, error)
	body    func() (Body, error)

	// Unused lists option keys that were ignored, sorted.
	Unused []string
}

// optionFields is the raw view of an options object.
type optionFields struct {
	URL     any `mapstructure:"url"`
	Method  any `mapstructure:"method"`
	Headers any `mapstructure:"headers"`
	Body    any `mapstructure:"body"`
}

// Resolve merges the call arguments into Options.
//
// A URL resource supplies the url candidate; an Object resource supplies the
// options object. init is consulted only when res is not an Object: exactly
// one options object is read. A text url inside that object replaces the
// candidate.
func Resolve(res Resource, init Object) (*Options, error) {
	opts := &Options{
		method:  func() (string, error) { return http.MethodGet, nil },
		headers: func() (*Headers, error) { return NewHeaders(), nil },
		body:    func() (Body, error) { return Body{}, nil },
	}

	var obj Object
	switch r := res.(type) {
	case URL:
		opts.url, opts.hasURL = string(r), true
	case Object:
		obj = r
	}
	if obj == nil {
		obj = init
	}
	if obj == nil {
		return opts, nil
	}

	fields, unused, err := decodeFields(obj)
	if err != nil {
		return nil, newError(KindArgument, err)
	}
	opts.Unused = unused

	if fields.Method != nil {
		m := fields.Method
		opts.method = func() (string, error) { return methodFromValue(m) }
	}
	if fields.Headers != nil {
		h := fields.Headers
		opts.headers = func() (*Headers, error) { return HeadersFromValue(h) }
	}
	if fields.Body != nil {
		b := fields.Body
		opts.body = func() (Body, error) { return BodyFromValue(b) }
	}
	if s, ok := fields.URL.(string); ok {
		opts.url, opts.hasURL = s, true
	}
	return opts, nil
}

func decodeFields(obj Object) (optionFields, []string, error) {
	var fields optionFields
	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Metadata: &md,
		Result:   &fields,
		TagName:  "mapstructure",
		// script property names are case-sensitive
		MatchName: func(mapKey, fieldName string) bool { return mapKey == fieldName },
	})
	if err != nil {
		return fields, nil, err
	}
	if err := dec.Decode(map[string]any(obj)); err != nil {
		return fields, nil, err
	}
	unused := md.Unused
	sort.Strings(unused)
	return fields, unused, nil
}

// URL returns the resolved url text and whether one was supplied.
func (o *Options) URL() (string, bool) {
	return o.url, o.hasURL
}

// Method evaluates the method option. GET when absent.
func (o *Options) Method() (string, error) {
	return o.method()
}

// Headers evaluates the headers option. Empty when absent.
func (o *Options) Headers() (*Headers, error) {
	return o.headers()
}

// Body evaluates the body option. Empty when absent.
func (o *Options) Body() (Body, error) {
	return o.body()
}
