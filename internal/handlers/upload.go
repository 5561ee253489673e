package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"disaster-classifier/internal/models"
	"disaster-classifier/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type upload struct {
	Name     string
	MimeType string
	Data     []byte
}

// readImage reads the multipart image field, enforcing the size limit and
// sniffing the content type. It returns http.ErrMissingFile when the field
// is absent.
func readImage(c *gin.Context, field string, maxBytes int64) (*upload, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrNotMultipart) {
		return nil, http.ErrMissingFile
	}
	if err != nil {
		return nil, err
	}
	if fh.Size > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", services.ErrImageTooLarge, fh.Size)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", services.ErrImageTooLarge, maxBytes)
	}

	mimeType, err := services.DetectImageType(data)
	if err != nil {
		return nil, err
	}

	return &upload{Name: fh.Filename, MimeType: mimeType, Data: data}, nil
}

// limitBody caps the request body a little above the image limit so that
// form overhead still fits.
func limitBody(c *gin.Context, maxBytes int64) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+1<<20)
}

func uploadStatus(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, services.ErrImageTooLarge), errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, services.ErrNotAnImage):
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusBadRequest
	}
}

func fieldErrors(err error) []models.FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]models.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, models.FieldError{Field: fe.Field(), Rule: fe.Tag()})
	}
	return out
}
