package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// EncodedImage is an image held in its encoded wire form together with its
// MIME type. It is the currency passed between uploads, the generation
// backend and the watermark stage.
type EncodedImage struct {
	Data []byte
	MIME string
}

// Validate reports whether the payload looks like an encoded image at all.
// It deliberately does not decode; pixel decoding lives in the imaging
// package.
func (e EncodedImage) Validate() error {
	if len(e.Data) == 0 {
		return fmt.Errorf("%w: empty payload", ErrInvalidImageEncoding)
	}
	if !strings.HasPrefix(e.MIME, "image/") {
		return fmt.Errorf("%w: unsupported media type %q", ErrInvalidImageEncoding, e.MIME)
	}
	return nil
}

// DataURL renders the image as a base64 data URL, the form handed to browser
// clients for display and download.
func (e EncodedImage) DataURL() string {
	return "data:" + e.MIME + ";base64," + base64.StdEncoding.EncodeToString(e.Data)
}

// ParseDataURL decodes a base64 data URL back into an EncodedImage.
func ParseDataURL(s string) (EncodedImage, error) {
	if !strings.HasPrefix(s, "data:") {
		return EncodedImage{}, fmt.Errorf("%w: not a data url", ErrInvalidImageEncoding)
	}
	rest := strings.TrimPrefix(s, "data:")
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return EncodedImage{}, fmt.Errorf("%w: malformed data url", ErrInvalidImageEncoding)
	}
	mime := strings.TrimSuffix(meta, ";base64")
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return EncodedImage{}, fmt.Errorf("%w: decode base64: %v", ErrInvalidImageEncoding, err)
	}
	img := EncodedImage{Data: data, MIME: NormalizeMIME(mime)}
	if err := img.Validate(); err != nil {
		return EncodedImage{}, err
	}
	return img, nil
}

// ExtensionByMIME returns the conventional file extension for the MIME types
// the service handles, defaulting to .png.
func ExtensionByMIME(mime string) string {
	switch NormalizeMIME(mime) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

// NormalizeMIME lowercases a media type and strips any parameters.
func NormalizeMIME(mime string) string {
	mime = strings.TrimSpace(strings.ToLower(mime))
	if idx := strings.Index(mime, ";"); idx >= 0 {
		mime = strings.TrimSpace(mime[:idx])
	}
	return mime
}
