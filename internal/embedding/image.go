package embedding

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"net/http"
	"os"
	"strings"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	appErr "github.com/clipdex/clipdex/internal/pkg/errors"
)

// ImageRef is either an in-memory image or a locator pointing at one.
// When Image is nil, Locator must be a local path or http(s) URL.
type ImageRef struct {
	Image   image.Image
	Locator string
}

// FromReader decodes an uploaded image into an in-memory reference. The
// name is kept only for log and error messages.
func FromReader(r io.Reader, name string) (ImageRef, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return ImageRef{}, fmt.Errorf("%w %s: %v", appErr.ErrDecodeImage, name, err)
	}
	return ImageRef{Image: img, Locator: name}, nil
}

func (r ImageRef) resolve(ctx context.Context) (image.Image, error) {
	if r.Image != nil {
		return r.Image, nil
	}
	locator := strings.TrimSpace(r.Locator)
	if locator == "" {
		return nil, fmt.Errorf("image ref has neither image nor locator: %w", appErr.ErrInvalid)
	}
	var reader io.ReadCloser
	if strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
		if err != nil {
			return nil, fmt.Errorf("%w %s: %v", appErr.ErrFetchImage, locator, err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w %s: %v", appErr.ErrFetchImage, locator, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("%w %s: %s", appErr.ErrFetchImage, locator, resp.Status)
		}
		reader = resp.Body
	} else {
		file, err := os.Open(locator)
		if err != nil {
			return nil, fmt.Errorf("%w %s: %v", appErr.ErrFetchImage, locator, err)
		}
		reader = file
	}
	defer reader.Close()
	img, _, err := image.Decode(reader)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", appErr.ErrDecodeImage, locator, err)
	}
	return img, nil
}

// canonicalPNG re-encodes the image from a truecolor draw so that palette,
// grayscale and truecolor variants of the same pixels hash identically.
func canonicalPNG(img image.Image) ([]byte, error) {
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	var buf bytes.Buffer
	if err := png.Encode(&buf, rgba); err != nil {
		return nil, fmt.Errorf("%w: encode canonical png: %v", appErr.ErrDecodeImage, err)
	}
	return buf.Bytes(), nil
}
