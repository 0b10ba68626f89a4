package imagesource

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeDataURL(t *testing.T) {
	raw := encodePNG(t)
	payloads := map[string]string{
		"data url":   "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw),
		"bare":       base64.StdEncoding.EncodeToString(raw),
		"unpadded":   "data:image/png;base64," + base64.RawStdEncoding.EncodeToString(raw),
		"url safe":   base64.URLEncoding.EncodeToString(raw),
		"wrapped":    "data:image/png;base64," + wrap(base64.StdEncoding.EncodeToString(raw), 16),
		"mislabeled": "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(raw),
	}
	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			decoded, err := DecodeDataURL(payload)
			if err != nil {
				t.Fatalf("DecodeDataURL: %v", err)
			}
			if decoded.Format != "png" {
				t.Fatalf("expected png, got %s", decoded.Format)
			}
			if b := decoded.Image.Bounds(); b.Dx() != 4 || b.Dy() != 3 {
				t.Fatalf("unexpected bounds %v", b)
			}
		})
	}
}

func TestDecodeJPEG(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8)), nil); err != nil {
		t.Fatalf("jpeg.Encode: %v", err)
	}
	decoded, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Format != "jpeg" {
		t.Fatalf("expected jpeg, got %s", decoded.Format)
	}
}

func TestDecodeDataURLErrors(t *testing.T) {
	payloads := map[string]string{
		"empty":       "",
		"marker only": "data:image/png;base64,",
		"not base64":  "data:image/png;base64,***",
		"not image":   "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("hello world")),
		"plain text":  "data:text/plain,hello",
	}
	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeDataURL(payload)
			if !errors.Is(err, ErrDecode) {
				t.Fatalf("expected ErrDecode, got %v", err)
			}
		})
	}
}

// pngWithHeaderSize encodes a 1x1 PNG and rewrites its IHDR to claim
// width x height, so the header is large while the payload stays tiny.
func pngWithHeaderSize(t *testing.T, width, height uint32) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	raw := buf.Bytes()
	// signature(8) length(4) "IHDR"(4) width(4) height(4) ... crc at 29.
	binary.BigEndian.PutUint32(raw[16:20], width)
	binary.BigEndian.PutUint32(raw[20:24], height)
	binary.BigEndian.PutUint32(raw[29:33], crc32.ChecksumIEEE(raw[12:29]))
	return raw
}

func TestDecodeRejectsOversizedImages(t *testing.T) {
	huge := pngWithHeaderSize(t, 30000, 30000)
	if len(huge) > 1024 {
		t.Fatalf("expected a tiny payload, got %d bytes", len(huge))
	}

	_, err := Decode(huge)
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}

	_, err = DecodeDataURL("data:image/png;base64," + base64.StdEncoding.EncodeToString(huge))
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode from data url, got %v", err)
	}
}

func TestDecoderMaxPixels(t *testing.T) {
	raw := encodePNG(t) // 4x3

	if _, err := (Decoder{MaxPixels: 11}).Decode(raw); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode above the limit, got %v", err)
	}
	decoded, err := Decoder{MaxPixels: 12}.Decode(raw)
	if err != nil {
		t.Fatalf("Decode at the limit: %v", err)
	}
	if b := decoded.Image.Bounds(); b.Dx() != 4 || b.Dy() != 3 {
		t.Fatalf("unexpected bounds %v", b)
	}
}

func wrap(s string, width int) string {
	var out []byte
	for i := 0; i < len(s); i += width {
		end := i + width
		if end > len(s) {
			end = len(s)
		}
		out = append(out, s[i:end]...)
		out = append(out, '\n')
	}
	return string(out)
}
