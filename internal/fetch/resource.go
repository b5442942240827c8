package fetch

// Resource is the first fetch argument: either a URL or an Object.
type Resource interface {
	resource()
}

// URL is a resource given as plain text.
type URL string

// Object is an options object. Recognised keys are url, method, headers
// and body; values are script values (string, []byte, float64, bool, nil,
// map[string]any, []any) or Go values the collaborators understand.
type Object map[string]any

func (URL) resource()    {}
func (Object) resource() {}
