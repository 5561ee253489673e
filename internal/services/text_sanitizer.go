package services

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"disaster-classifier/internal/models"
)

var ErrUnrecognizedLabel = errors.New("unrecognized label")

var (
	controlCharsRegex  = regexp.MustCompile(`[\x00-\x08\x0B-\x0C\x0E-\x1F]`)
	zeroWidthRegex     = regexp.MustCompile(`[\x{200B}-\x{200F}\x{FEFF}\x{00A0}]`)
	wrappingRegex      = regexp.MustCompile("^[\\s\"'`*_]+|[\\s\"'`*_.!:;]+$")
	labelPrefixRegex   = regexp.MustCompile(`(?i)^(label|answer|output|classification)\s*[:\-]\s*`)
	innerSpacingRegex  = regexp.MustCompile(`[\s_\-]+`)
	trailingLinesRegex = regexp.MustCompile(`\n.*`)
)

// TextSanitizer cleans up free-form model output. User input never goes
// through it.
type TextSanitizer struct{}

func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{}
}

func (ts *TextSanitizer) SanitizeText(text string) string {
	if text == "" {
		return ""
	}

	sanitized := controlCharsRegex.ReplaceAllString(text, "")
	sanitized = zeroWidthRegex.ReplaceAllString(sanitized, " ")
	sanitized = strings.TrimSpace(sanitized)

	// Models sometimes explain themselves after the label.
	sanitized = trailingLinesRegex.ReplaceAllString(sanitized, "")

	sanitized = wrappingRegex.ReplaceAllString(sanitized, "")
	sanitized = labelPrefixRegex.ReplaceAllString(sanitized, "")
	sanitized = wrappingRegex.ReplaceAllString(sanitized, "")

	return sanitized
}

// ParseLabel maps a model response such as `"Not Informative".` to a Label.
func (ts *TextSanitizer) ParseLabel(raw string) (models.Label, error) {
	cleaned := ts.SanitizeText(raw)
	key := strings.ToLower(innerSpacingRegex.ReplaceAllString(cleaned, " "))

	switch key {
	case "informative":
		return models.LabelInformative, nil
	case "not informative", "notinformative", "non informative", "uninformative":
		return models.LabelNotInformative, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnrecognizedLabel, raw)
}
