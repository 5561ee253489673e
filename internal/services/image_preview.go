package services

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var (
	ErrNotAnImage    = errors.New("file is not an image")
	ErrImageTooLarge = errors.New("image exceeds upload limit")
)

// ImagePreviewer turns uploaded image bytes into a data URL small enough to
// embed in the page.
type ImagePreviewer struct {
	maxPixel int
}

func NewImagePreviewer(maxPixel int) *ImagePreviewer {
	return &ImagePreviewer{maxPixel: maxPixel}
}

func (p *ImagePreviewer) Preview(data []byte) (string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	b := img.Bounds()
	if p.maxPixel > 0 && (b.Dx() > p.maxPixel || b.Dy() > p.maxPixel) {
		img = imaging.Fit(img, p.maxPixel, p.maxPixel, imaging.Lanczos)
	}

	// PNG and GIF keep transparency; everything else is re-encoded as JPEG.
	outFormat, mimeType := imaging.JPEG, "image/jpeg"
	if format == "png" || format == "gif" {
		outFormat, mimeType = imaging.PNG, "image/png"
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, outFormat, imaging.JPEGQuality(85)); err != nil {
		return "", fmt.Errorf("failed to encode preview: %w", err)
	}

	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}

// DetectImageType sniffs the content type of an upload and rejects anything
// that is not an image.
func DetectImageType(data []byte) (string, error) {
	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return "", fmt.Errorf("%w: %s", ErrNotAnImage, mimeType)
	}
	return mimeType, nil
}
