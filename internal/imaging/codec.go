package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"net/http"

	"github.com/kolesa-team/go-webp/decoder"
	"github.com/kolesa-team/go-webp/webp"

	"github.com/edytjahyadi/AI-Fashion/internal/domain"
)

// DecodeUpload reads raw upload bytes, resolves the MIME type (sniffing when
// the declared type is missing or generic) and confirms the payload decodes.
func DecodeUpload(r io.Reader, declaredMIME string) (domain.EncodedImage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.EncodedImage{}, fmt.Errorf("%w: read upload: %v", domain.ErrInvalidImageEncoding, err)
	}
	mime := domain.NormalizeMIME(declaredMIME)
	if mime == "" || mime == "application/octet-stream" {
		mime = domain.NormalizeMIME(http.DetectContentType(data))
	}
	img := domain.EncodedImage{Data: data, MIME: mime}
	if err := img.Validate(); err != nil {
		return domain.EncodedImage{}, err
	}
	if _, err := Decode(img); err != nil {
		return domain.EncodedImage{}, err
	}
	return img, nil
}

// Decode materializes the encoded payload into a pixel image. WebP goes
// through libwebp; everything else through the stdlib registry.
func Decode(e domain.EncodedImage) (image.Image, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	if domain.NormalizeMIME(e.MIME) == "image/webp" {
		img, err := webp.Decode(bytes.NewReader(e.Data), &decoder.Options{})
		if err != nil {
			return nil, fmt.Errorf("%w: decode webp: %v", domain.ErrInvalidImageEncoding, err)
		}
		return img, nil
	}
	img, _, err := image.Decode(bytes.NewReader(e.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", domain.ErrInvalidImageEncoding, e.MIME, err)
	}
	return img, nil
}

// EncodePNG serializes a pixel image back into the encoded form.
func EncodePNG(img image.Image) (domain.EncodedImage, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return domain.EncodedImage{}, fmt.Errorf("encode png: %w", err)
	}
	return domain.EncodedImage{Data: buf.Bytes(), MIME: "image/png"}, nil
}
