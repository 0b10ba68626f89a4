// Package imagesource decodes transport-encoded images into pixel buffers.
package imagesource

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"

	// Registered decoders for the formats browsers and phones produce.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ErrDecode marks payloads that are not a decodable image.
var ErrDecode = errors.New("invalid image")

// DefaultMaxPixels bounds width*height of a decoded image.
const DefaultMaxPixels = 40_000_000

// Decoded is an image together with the format reported by its decoder.
type Decoded struct {
	Image  image.Image
	Format string
}

// Decoder decodes images no larger than MaxPixels. The header is read
// before any pixel buffer is allocated. A zero MaxPixels means
// DefaultMaxPixels.
type Decoder struct {
	MaxPixels int64
}

// DecodeDataURL decodes payload with the default pixel limit.
func DecodeDataURL(payload string) (*Decoded, error) {
	return Decoder{}.DecodeDataURL(payload)
}

// Decode decodes raw with the default pixel limit.
func Decode(raw []byte) (*Decoded, error) {
	return Decoder{}.Decode(raw)
}

// DecodeDataURL decodes a data URL ("data:image/jpeg;base64,....") or a bare
// base64 payload. Everything up to the first comma is treated as the marker.
func (d Decoder) DecodeDataURL(payload string) (*Decoded, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrDecode)
	}
	if idx := strings.IndexByte(payload, ','); idx >= 0 {
		header := payload[:idx]
		if strings.HasPrefix(header, "data:") && !strings.HasSuffix(header, ";base64") {
			return nil, fmt.Errorf("%w: data url is not base64 encoded", ErrDecode)
		}
		payload = payload[idx+1:]
	}

	raw, err := decodeBase64(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return d.Decode(raw)
}

// Decode decodes raw image bytes in any registered format.
func (d Decoder) Decode(raw []byte) (*Decoded, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty image data", ErrDecode)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	limit := d.MaxPixels
	if limit <= 0 {
		limit = DefaultMaxPixels
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: empty %dx%d image", ErrDecode, cfg.Width, cfg.Height)
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > limit {
		return nil, fmt.Errorf("%w: %dx%d image exceeds %d pixels", ErrDecode, cfg.Width, cfg.Height, limit)
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return &Decoded{Image: img, Format: format}, nil
}

// decodeBase64 accepts padded and unpadded, standard and URL-safe alphabets.
func decodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, s)
	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	}
	var firstErr error
	for _, enc := range encodings {
		raw, err := enc.DecodeString(s)
		if err == nil {
			return raw, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}
