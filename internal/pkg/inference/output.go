package inference

import (
	"fmt"
	"io"
	"reflect"
)

// FileOutputSentinel is returned for binary outputs: there is nowhere to
// store them, so no URL can be handed back.
const FileOutputSentinel = "file_output"

type OutputKind int

const (
	OutputText OutputKind = iota
	OutputList
	OutputURL
	OutputStream
	OutputOther
)

func (k OutputKind) String() string {
	switch k {
	case OutputText:
		return "text"
	case OutputList:
		return "list"
	case OutputURL:
		return "url"
	case OutputStream:
		return "stream"
	default:
		return "other"
	}
}

type urler interface {
	URL() string
}

// Output is a provider response decoded once into one of the known shapes.
type Output struct {
	Kind OutputKind
	url  string
}

// URL is the resolved result location. For OutputStream it is the
// FileOutputSentinel; for OutputOther it is the value's printed form.
func (o Output) URL() string {
	return o.url
}

// DecodeOutput classifies raw. The first matching rule wins: plain string,
// non-empty sequence (first element), URL-bearing value, binary stream, and
// finally the printed value. A nil output resolves to an empty URL.
func DecodeOutput(raw any) Output {
	if raw == nil {
		return Output{Kind: OutputOther}
	}
	if s, ok := raw.(string); ok {
		return Output{Kind: OutputText, url: s}
	}

	if first, ok := firstElement(raw); ok {
		return Output{Kind: OutputList, url: stringify(first)}
	}

	switch v := raw.(type) {
	case urler:
		return Output{Kind: OutputURL, url: v.URL()}
	case map[string]any:
		if u, ok := v["url"].(string); ok {
			return Output{Kind: OutputURL, url: u}
		}
	case io.Reader, []byte:
		return Output{Kind: OutputStream, url: FileOutputSentinel}
	}

	return Output{Kind: OutputOther, url: fmt.Sprint(raw)}
}

// Resolve reduces raw to a single URL string.
func Resolve(raw any) string {
	return DecodeOutput(raw).URL()
}

func firstElement(raw any) (any, bool) {
	switch v := raw.(type) {
	case []any:
		if len(v) > 0 {
			return v[0], true
		}
		return nil, false
	case []string:
		if len(v) > 0 {
			return v[0], true
		}
		return nil, false
	case []byte:
		return nil, false
	}

	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Len() == 0 {
		return nil, false
	}
	return rv.Index(0).Interface(), true
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
