package imageprep

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"github.com/ds124wfegd/vton/internal/entity"
	"github.com/ds124wfegd/vton/internal/pkg/storage"
	"github.com/sirupsen/logrus"

	_ "golang.org/x/image/webp"
)

const jpegMIME = "image/jpeg"

// NormalizedImage is a JPEG data URI whose longest edge is bounded.
type NormalizedImage struct {
	DataURI string
	SizeKB  int
	Width   int
	Height  int
}

type Normalizer interface {
	Normalize(ctx context.Context, in ImageInput) (NormalizedImage, error)
}

type normalizer struct {
	maxDimension int
	quality      int
	fetcher      Fetcher
	source       storage.ImageSource
}

func NewNormalizer(maxDimension, quality int, fetcher Fetcher, source storage.ImageSource) Normalizer {
	return &normalizer{
		maxDimension: maxDimension,
		quality:      quality,
		fetcher:      fetcher,
		source:       source,
	}
}

func (n *normalizer) Normalize(ctx context.Context, in ImageInput) (NormalizedImage, error) {
	raw, err := n.load(ctx, in)
	if err != nil {
		return NormalizedImage{}, err
	}
	return n.optimize(raw)
}

func (n *normalizer) load(ctx context.Context, in ImageInput) ([]byte, error) {
	switch in.Kind {
	case KindDataURI:
		return decodePayload(in)
	case KindRemoteURL:
		return n.fetcher.Fetch(ctx, in.Value)
	default:
		if !n.source.Exists(in.Value) {
			return nil, &entity.NotFoundError{Path: in.Value}
		}
		rc, err := n.source.Open(in.Value)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", in.Value, err)
		}
		defer func() {
			_ = rc.Close()
		}()
		return io.ReadAll(rc)
	}
}

func decodePayload(in ImageInput) ([]byte, error) {
	if !in.hasComma {
		return nil, &entity.DecodeError{Err: errors.New("missing ',' separator")}
	}
	data, err := base64.StdEncoding.DecodeString(in.Payload)
	if err != nil {
		// unpadded payloads are common from browser tooling
		raw, rawErr := base64.RawStdEncoding.DecodeString(in.Payload)
		if rawErr != nil {
			return nil, &entity.DecodeError{Err: err}
		}
		data = raw
	}
	return data, nil
}

// optimize decodes raw, drops any alpha channel, shrinks the image to fit
// maxDimension on both edges and re-encodes it as JPEG.
func (n *normalizer) optimize(raw []byte) (NormalizedImage, error) {
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return NormalizedImage{}, fmt.Errorf("%w: %v", entity.ErrInvalidImage, err)
	}

	rgb := toRGB(img)
	if b := rgb.Bounds(); b.Dx() > n.maxDimension || b.Dy() > n.maxDimension {
		rgb = imaging.Fit(rgb, n.maxDimension, n.maxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, rgb, imaging.JPEG, imaging.JPEGQuality(n.quality)); err != nil {
		return NormalizedImage{}, fmt.Errorf("encode jpeg: %w", err)
	}

	b64 := base64.StdEncoding.EncodeToString(buf.Bytes())
	out := NormalizedImage{
		DataURI: DataURI(jpegMIME, b64),
		SizeKB:  len(b64) / 1024,
		Width:   rgb.Bounds().Dx(),
		Height:  rgb.Bounds().Dy(),
	}

	logrus.WithFields(logrus.Fields{
		"src_width":  img.Bounds().Dx(),
		"src_height": img.Bounds().Dy(),
		"width":      out.Width,
		"height":     out.Height,
		"size_kb":    out.SizeKB,
	}).Debug("image normalized")

	return out, nil
}

// toRGB copies img into an opaque NRGBA, keeping the colour values of
// translucent pixels instead of blending them.
func toRGB(img image.Image) *image.NRGBA {
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}
