package services

import (
	"context"
	"math/rand/v2"
	"sync"

	"disaster-classifier/internal/models"
)

// Input is everything a Classifier may look at. Only the modalities wanted by
// Mode are read.
type Input struct {
	Mode     models.Mode
	Text     string
	Image    []byte
	MimeType string
}

// Labels holds one label per classified modality; a label is absent when its
// modality was not classified.
type Labels struct {
	Text  models.Label
	Image models.Label
}

type Classifier interface {
	Classify(ctx context.Context, in Input) (Labels, error)
}

// MockRandomClassifier flips a fair coin per modality. It performs no I/O.
type MockRandomClassifier struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewMockRandomClassifier(src rand.Source) *MockRandomClassifier {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &MockRandomClassifier{rng: rand.New(src)}
}

func (m *MockRandomClassifier) Classify(ctx context.Context, in Input) (Labels, error) {
	if err := ctx.Err(); err != nil {
		return Labels{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var labels Labels
	if in.Mode.WantsText() {
		labels.Text = models.LabelFromBool(m.rng.IntN(2) == 1)
	}
	if in.Mode.WantsImage() {
		labels.Image = models.LabelFromBool(m.rng.IntN(2) == 1)
	}
	return labels, nil
}
