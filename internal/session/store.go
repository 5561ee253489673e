package session

import (
	"context"
	"sync"
	"time"

	"disaster-classifier/internal/fusion"
	"disaster-classifier/internal/logger"
	"disaster-classifier/internal/models"
	"disaster-classifier/internal/services"

	"github.com/sirupsen/logrus"
)

// AnalysisDelay is the simulated latency of every analysis.
const AnalysisDelay = 2500 * time.Millisecond

// PreviewFunc decodes raw image bytes into a data URL.
type PreviewFunc func(data []byte) (string, error)

type Option func(*Store)

// WithDelay overrides AnalysisDelay. Tests use it to avoid real waits.
func WithDelay(d time.Duration) Option {
	return func(s *Store) { s.delay = d }
}

func WithPreview(fn PreviewFunc) Option {
	return func(s *Store) { s.preview = fn }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store owns one session's State. All methods are safe for concurrent use.
type Store struct {
	id         string
	classifier services.Classifier
	preview    PreviewFunc
	delay      time.Duration
	now        func() time.Time

	mu      sync.Mutex
	state   State
	cancel  context.CancelFunc
	subs    map[int]chan State
	nextSub int
	closed  bool

	wg sync.WaitGroup
}

func NewStore(id string, classifier services.Classifier, opts ...Option) *Store {
	s := &Store{
		id:         id,
		classifier: classifier,
		delay:      AnalysisDelay,
		now:        time.Now,
		state:      NewState(),
		subs:       make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) ID() string { return s.id }

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe returns a channel that receives the latest State after every
// change. Slow readers only see the newest snapshot. The channel is closed
// by unsubscribe or Close.
func (s *Store) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan State, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

// Dispatch applies a to the current state and notifies subscribers.
func (s *Store) Dispatch(a Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dispatchLocked(a)
}

func (s *Store) dispatchLocked(a Action) State {
	s.state = Reduce(s.state, a)
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s.state
	}
	return s.state
}

func (s *Store) SetMode(mode models.Mode) State {
	return s.Dispatch(SetMode{Mode: mode})
}

func (s *Store) SetText(text string) State {
	return s.Dispatch(SetText{Text: text})
}

// SetTextSeq applies a sequenced edit; see SetText for the ordering rule.
func (s *Store) SetTextSeq(text string, seq uint64) State {
	return s.Dispatch(SetText{Text: text, Seq: seq})
}

// Subscribers reports how many subscriptions are open.
func (s *Store) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// SelectImage replaces the current image and decodes its preview in the
// background. Decode failures leave the preview unset.
func (s *Store) SelectImage(name, mimeType string, data []byte) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.dispatchLocked(SelectImage{Name: name, MimeType: mimeType, Data: data})
	if s.preview == nil || s.closed {
		return st
	}

	seq := st.Image.Seq
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		dataURL, err := s.preview(data)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"session": s.id,
				"image":   name,
				"error":   err.Error(),
			}).Debug("Preview decode failed")
			return
		}
		s.Dispatch(PreviewDecoded{Seq: seq, DataURL: dataURL})
	}()
	return st
}

func (s *Store) RemoveImage() State {
	return s.Dispatch(RemoveImage{})
}

// Analyze starts an analysis if the gating rule allows it and reports
// whether it did. Calls made while an analysis is in flight are dropped.
func (s *Store) Analyze() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || !CanAnalyze(s.state) {
		return false
	}

	st := s.state
	in := services.Input{Mode: st.Mode, Text: st.Text}
	if st.Image != nil && st.Mode.WantsImage() {
		in.Image = st.Image.Data
		in.MimeType = st.Image.MimeType
	}
	if !st.Mode.WantsText() {
		in.Text = ""
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.dispatchLocked(AnalysisStarted{})

	logger.WithFields(logrus.Fields{
		"session":    s.id,
		"mode":       st.Mode,
		"generation": st.Generation,
	}).Info("Analysis started")

	s.wg.Add(1)
	go s.run(ctx, cancel, st.Generation, in)
	return true
}

func (s *Store) run(ctx context.Context, cancel context.CancelFunc, generation uint64, in services.Input) {
	defer s.wg.Done()
	defer cancel()

	timer := time.NewTimer(s.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	labels, err := s.classifier.Classify(ctx, in)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.WithFields(logrus.Fields{
			"session": s.id,
			"error":   err.Error(),
		}).Error("Analysis failed")
		s.Dispatch(AnalysisFailed{Generation: generation, Err: err.Error()})
		return
	}

	// Only the modalities of the frozen mode are kept.
	if !in.Mode.WantsText() {
		labels.Text = ""
	}
	if !in.Mode.WantsImage() {
		labels.Image = ""
	}

	result := models.AnalysisResult{
		Mode:        in.Mode,
		TextLabel:   labels.Text,
		ImageLabel:  labels.Image,
		FinalLabel:  fusion.Fuse(labels.Text, labels.Image),
		CompletedAt: s.now(),
	}

	st := s.Dispatch(AnalysisCompleted{Generation: generation, Result: result})

	logger.WithFields(logrus.Fields{
		"session":    s.id,
		"finalLabel": result.FinalLabel,
		"applied":    st.Generation == generation,
	}).Info("Analysis completed")
}

// Reset clears inputs and results, keeps the mode, and abandons any
// in-flight analysis.
func (s *Store) Reset() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return s.dispatchLocked(Reset{})
}

// Wait blocks until background analysis and preview tasks have finished.
func (s *Store) Wait() {
	s.wg.Wait()
}

// Close abandons in-flight work and closes all subscriber channels.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.mu.Unlock()

	s.wg.Wait()
}
