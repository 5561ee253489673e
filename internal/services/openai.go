package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"disaster-classifier/internal/logger"
	"disaster-classifier/internal/models"

	"github.com/sashabaranov/go-openai"
	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var ErrNoChoices = errors.New("no response from OpenAI")

const textPrompt = `You are a strict NLP classifier.

Output "Informative" if the sentence is related to a real disaster
(earthquake, flood, fire, explosion, epidemic, accident, etc.)
and contains useful factual information.

Otherwise output "Not Informative".

Return ONLY one label.

Sentence:
%q`

const imagePrompt = `You are a strict image classifier.

Output "Informative" if the image shows a real disaster
(flood, fire, explosion, earthquake, collapsed buildings, accident, etc.)
with useful information.

Otherwise output "Not Informative".

Return ONLY one label.`

// OpenAIClassifier labels each modality with a chat completion.
type OpenAIClassifier struct {
	client     *openai.Client
	sanitizer  *TextSanitizer
	modelText  string
	modelImage string

	maxRetries uint64
	backoff    time.Duration
}

func NewOpenAIClassifier(apiKey, baseURL, modelText, modelImage string) *OpenAIClassifier {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClassifier{
		client:     openai.NewClientWithConfig(cfg),
		sanitizer:  NewTextSanitizer(),
		modelText:  modelText,
		modelImage: modelImage,
		maxRetries: 3,
		backoff:    500 * time.Millisecond,
	}
}

func (s *OpenAIClassifier) Classify(ctx context.Context, in Input) (Labels, error) {
	var labels Labels
	g, ctx := errgroup.WithContext(ctx)

	if in.Mode.WantsText() && in.Text != "" {
		g.Go(func() error {
			label, err := s.ClassifyText(ctx, in.Text)
			if err != nil {
				return err
			}
			labels.Text = label
			return nil
		})
	}

	if in.Mode.WantsImage() && len(in.Image) > 0 {
		g.Go(func() error {
			label, err := s.ClassifyImage(ctx, in.Image, in.MimeType)
			if err != nil {
				return err
			}
			labels.Image = label
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Labels{}, err
	}
	return labels, nil
}

func (s *OpenAIClassifier) ClassifyText(ctx context.Context, text string) (models.Label, error) {
	req := openai.ChatCompletionRequest{
		Model: s.modelText,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a text classification model.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(textPrompt, text),
			},
		},
	}

	label, err := s.complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to classify text with OpenAI: %w", err)
	}
	return label, nil
}

func (s *OpenAIClassifier) ClassifyImage(ctx context.Context, imageData []byte, mimeType string) (models.Label, error) {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	base64Image := base64.StdEncoding.EncodeToString(imageData)
	imageURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64Image)

	req := openai.ChatCompletionRequest{
		Model: s.modelImage,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: imagePrompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: imageURL,
						},
					},
				},
			},
		},
	}

	label, err := s.complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to classify image with OpenAI: %w", err)
	}
	return label, nil
}

func (s *OpenAIClassifier) complete(ctx context.Context, req openai.ChatCompletionRequest) (models.Label, error) {
	var resp openai.ChatCompletionResponse

	b := retry.WithMaxRetries(s.maxRetries, retry.NewFibonacci(s.backoff))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		var err error
		resp, err = s.client.CreateChatCompletion(ctx, req)
		if err != nil && isTransient(err) {
			logger.WithFields(logrus.Fields{
				"model": req.Model,
				"error": err.Error(),
			}).Warn("OpenAI request failed, will retry")
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}

	return s.sanitizer.ParseLabel(resp.Choices[0].Message.Content)
}

func isTransient(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return false
}
