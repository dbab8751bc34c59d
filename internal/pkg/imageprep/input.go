package imageprep

import (
	"strings"
)

type InputKind int

const (
	KindLocalPath InputKind = iota
	KindRemoteURL
	KindDataURI
)

func (k InputKind) String() string {
	switch k {
	case KindRemoteURL:
		return "url"
	case KindDataURI:
		return "data_uri"
	default:
		return "local_path"
	}
}

// ImageInput is one caller-supplied image reference. Exactly the fields of
// its Kind are meaningful: Value for a URL or path, MIME and Payload for a
// data URI.
type ImageInput struct {
	Kind    InputKind
	Value   string
	MIME    string
	Payload string
	// hasComma is false for a data URI with no payload separator.
	hasComma bool
}

// ParseImageInput classifies raw the same way for every endpoint: data URIs
// first, then http(s) URLs, anything else is a local path.
func ParseImageInput(raw string) ImageInput {
	switch {
	case strings.HasPrefix(raw, "data:"):
		header, payload, found := strings.Cut(raw, ",")
		mime := strings.TrimPrefix(header, "data:")
		mime, _, _ = strings.Cut(mime, ";")
		return ImageInput{Kind: KindDataURI, Value: raw, MIME: mime, Payload: payload, hasComma: found}
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"):
		return ImageInput{Kind: KindRemoteURL, Value: raw}
	default:
		return ImageInput{Kind: KindLocalPath, Value: raw}
	}
}

// DataURI builds a base64 data URI, as used for multipart uploads.
func DataURI(mime, b64 string) string {
	return "data:" + mime + ";base64," + b64
}
