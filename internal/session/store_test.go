package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"disaster-classifier/internal/models"
	"disaster-classifier/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedClassifier returns queued labels in order and records every input.
type fixedClassifier struct {
	mu     sync.Mutex
	queue  []services.Labels
	err    error
	calls  atomic.Int32
	inputs []services.Input
	block  chan struct{}
}

func (f *fixedClassifier) Classify(ctx context.Context, in services.Input) (services.Labels, error) {
	f.calls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return services.Labels{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return services.Labels{}, f.err
	}
	if len(f.queue) == 0 {
		return services.Labels{Text: models.LabelNotInformative, Image: models.LabelNotInformative}, nil
	}
	next := f.queue[0]
	f.queue = f.queue[1:]
	return next, nil
}

func newTestStore(c services.Classifier, opts ...Option) *Store {
	opts = append([]Option{WithDelay(5 * time.Millisecond)}, opts...)
	return NewStore("test", c, opts...)
}

func TestStore_ScenarioA_TextOnly(t *testing.T) {
	c := &fixedClassifier{queue: []services.Labels{{Text: models.LabelInformative, Image: models.LabelInformative}}}
	s := newTestStore(c)
	defer s.Close()

	s.SetMode(models.ModeText)
	s.SetText("flood warning issued")

	require.True(t, s.Analyze())
	assert.True(t, s.State().Processing)
	s.Wait()

	st := s.State()
	assert.False(t, st.Processing)
	require.NotNil(t, st.Result)
	assert.Equal(t, models.ModeText, st.Result.Mode)
	assert.Equal(t, models.LabelInformative, st.Result.TextLabel)
	assert.False(t, st.Result.ImageLabel.Present())
	assert.Equal(t, st.Result.TextLabel, st.Result.FinalLabel)

	require.Len(t, c.inputs, 1)
	assert.Equal(t, "flood warning issued", c.inputs[0].Text)
	assert.Nil(t, c.inputs[0].Image)
}

func TestStore_ScenarioB_GatedNoOp(t *testing.T) {
	c := &fixedClassifier{}
	s := newTestStore(c)
	defer s.Close()

	before := s.State()
	require.Equal(t, models.ModeBoth, before.Mode)

	assert.False(t, s.Analyze())
	s.Wait()

	assert.Equal(t, before, s.State())
	assert.Zero(t, c.calls.Load())
}

func TestStore_ScenarioC_BothFusion(t *testing.T) {
	c := &fixedClassifier{queue: []services.Labels{{Text: models.LabelNotInformative, Image: models.LabelInformative}}}
	s := newTestStore(c)
	defer s.Close()

	s.SetText("smoke seen downtown")
	s.SelectImage("smoke.png", "image/png", []byte("png-bytes"))

	require.True(t, s.Analyze())
	s.Wait()

	st := s.State()
	require.NotNil(t, st.Result)
	assert.Equal(t, models.LabelNotInformative, st.Result.TextLabel)
	assert.Equal(t, models.LabelInformative, st.Result.ImageLabel)
	assert.Equal(t, models.LabelInformative, st.Result.FinalLabel)

	require.Len(t, c.inputs, 1)
	assert.Equal(t, []byte("png-bytes"), c.inputs[0].Image)
	assert.Equal(t, "image/png", c.inputs[0].MimeType)
}

func TestStore_ScenarioD_SecondAnalyzeDropped(t *testing.T) {
	c := &fixedClassifier{queue: []services.Labels{
		{Text: models.LabelInformative},
		{Text: models.LabelNotInformative},
	}}
	s := newTestStore(c, WithDelay(50*time.Millisecond))
	defer s.Close()

	s.SetMode(models.ModeText)
	s.SetText("flood")

	require.True(t, s.Analyze())
	assert.False(t, s.Analyze())
	assert.True(t, s.State().Processing)
	s.Wait()

	assert.Equal(t, int32(1), c.calls.Load())
	st := s.State()
	require.NotNil(t, st.Result)
	assert.Equal(t, models.LabelInformative, st.Result.TextLabel)
	assert.Len(t, c.queue, 1, "the dropped call must not consume a draw")
}

func TestStore_ResultsMatchMode(t *testing.T) {
	tests := []struct {
		mode      models.Mode
		wantText  bool
		wantImage bool
	}{
		{models.ModeText, true, false},
		{models.ModeImage, false, true},
		{models.ModeBoth, true, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			c := services.NewMockRandomClassifier(nil)
			s := newTestStore(c)
			defer s.Close()

			s.SetMode(tt.mode)
			s.SetText("earthquake")
			s.SelectImage("quake.jpg", "image/jpeg", []byte{0xff, 0xd8})

			require.True(t, s.Analyze())
			assert.True(t, s.State().Processing)
			s.Wait()

			st := s.State()
			assert.False(t, st.Processing)
			require.NotNil(t, st.Result)
			assert.Equal(t, tt.wantText, st.Result.TextLabel.Present())
			assert.Equal(t, tt.wantImage, st.Result.ImageLabel.Present())
			assert.True(t, st.Result.FinalLabel.Present())
		})
	}
}

func TestStore_ModeFrozenAtInvocation(t *testing.T) {
	c := &fixedClassifier{queue: []services.Labels{{Text: models.LabelInformative, Image: models.LabelInformative}}}
	s := newTestStore(c, WithDelay(30*time.Millisecond))
	defer s.Close()

	s.SetMode(models.ModeText)
	s.SetText("fire")
	require.True(t, s.Analyze())

	s.SetMode(models.ModeImage)
	s.Wait()

	st := s.State()
	assert.Equal(t, models.ModeImage, st.Mode)
	require.NotNil(t, st.Result)
	assert.Equal(t, models.ModeText, st.Result.Mode)
	assert.False(t, st.Result.ImageLabel.Present())
}

func TestStore_ResetDiscardsInFlight(t *testing.T) {
	c := &fixedClassifier{block: make(chan struct{})}
	s := newTestStore(c, WithDelay(time.Millisecond))
	defer s.Close()

	s.SetMode(models.ModeImage)
	s.SelectImage("a.png", "image/png", []byte{1})
	require.True(t, s.Analyze())

	st := s.Reset()
	assert.False(t, st.Processing)
	assert.Equal(t, models.ModeImage, st.Mode)
	assert.Nil(t, st.Image)

	close(c.block)
	s.Wait()

	assert.Nil(t, s.State().Result)
	assert.False(t, s.State().Processing)
}

// stubbornClassifier ignores cancellation and answers once released.
type stubbornClassifier struct {
	started chan struct{}
	release chan struct{}
}

func (c *stubbornClassifier) Classify(ctx context.Context, in services.Input) (services.Labels, error) {
	close(c.started)
	<-c.release
	return services.Labels{Image: models.LabelInformative}, nil
}

func TestStore_ResetDropsLateCompletion(t *testing.T) {
	c := &stubbornClassifier{started: make(chan struct{}), release: make(chan struct{})}
	s := newTestStore(c, WithDelay(time.Millisecond))
	defer s.Close()

	s.SetMode(models.ModeImage)
	s.SelectImage("a.png", "image/png", []byte{1})
	require.True(t, s.Analyze())

	select {
	case <-c.started:
	case <-time.After(time.Second):
		t.Fatal("classifier was not called")
	}

	st := s.Reset()
	assert.Equal(t, uint64(1), st.Generation)

	close(c.release)
	s.Wait()

	st = s.State()
	assert.Nil(t, st.Result)
	assert.False(t, st.Processing)
	assert.Empty(t, st.Err)
}

func TestStore_ResultUsesClock(t *testing.T) {
	completed := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	s := newTestStore(&fixedClassifier{}, WithClock(func() time.Time { return completed }))
	defer s.Close()

	s.SetMode(models.ModeText)
	s.SetText("flood")
	require.True(t, s.Analyze())
	s.Wait()

	require.NotNil(t, s.State().Result)
	assert.Equal(t, completed, s.State().Result.CompletedAt)
}

func TestStore_SetTextSeqKeepsNewestEdit(t *testing.T) {
	s := newTestStore(&fixedClassifier{})
	defer s.Close()

	s.SetMode(models.ModeText)
	s.SetTextSeq("a", 1)
	s.SetTextSeq("", 2)
	st := s.SetTextSeq("a", 1)

	assert.Empty(t, st.Text)
	assert.False(t, s.Analyze())
}

func TestStore_ResetAfterResult(t *testing.T) {
	s := newTestStore(&fixedClassifier{})
	defer s.Close()

	s.SetText("smoke")
	s.SelectImage("a.png", "image/png", []byte{1})
	require.True(t, s.Analyze())
	s.Wait()
	require.NotNil(t, s.State().Result)

	st := s.Reset()
	assert.Equal(t, models.ModeBoth, st.Mode)
	assert.Empty(t, st.Text)
	assert.Nil(t, st.Image)
	assert.Nil(t, st.Result)
	assert.False(t, CanAnalyze(st))
}

func TestStore_ClassifierFailure(t *testing.T) {
	s := newTestStore(&fixedClassifier{err: errors.New("upstream unavailable")})
	defer s.Close()

	s.SetMode(models.ModeText)
	s.SetText("flood")
	require.True(t, s.Analyze())
	s.Wait()

	st := s.State()
	assert.False(t, st.Processing)
	assert.Nil(t, st.Result)
	assert.Equal(t, "upstream unavailable", st.Err)
	assert.True(t, CanAnalyze(st))
}

func TestStore_PreviewDecoded(t *testing.T) {
	preview := func(data []byte) (string, error) {
		return "data:image/png;base64,AAA", nil
	}
	s := newTestStore(&fixedClassifier{}, WithPreview(preview))
	defer s.Close()

	st := s.SelectImage("a.png", "image/png", []byte{1})
	require.NotNil(t, st.Image)
	s.Wait()

	img := s.State().Image
	require.NotNil(t, img)
	assert.Equal(t, "data:image/png;base64,AAA", img.Preview)
}

func TestStore_PreviewFailureIsSilent(t *testing.T) {
	preview := func(data []byte) (string, error) {
		return "", errors.New("corrupt")
	}
	s := newTestStore(&fixedClassifier{}, WithPreview(preview))
	defer s.Close()

	s.SelectImage("broken.png", "image/png", []byte{1})
	s.Wait()

	img := s.State().Image
	require.NotNil(t, img)
	assert.Empty(t, img.Preview)
	assert.Equal(t, "broken.png", img.Name)
}

func TestStore_PreviewAfterRemoveIgnored(t *testing.T) {
	release := make(chan struct{})
	preview := func(data []byte) (string, error) {
		<-release
		return "data:late", nil
	}
	s := newTestStore(&fixedClassifier{}, WithPreview(preview))
	defer s.Close()

	s.SelectImage("a.png", "image/png", []byte{1})
	st := s.RemoveImage()
	assert.Nil(t, st.Image)

	close(release)
	s.Wait()
	assert.Nil(t, s.State().Image)
}

func TestStore_SubscribeReceivesUpdates(t *testing.T) {
	s := newTestStore(&fixedClassifier{})

	updates, unsubscribe := s.Subscribe()
	defer unsubscribe()

	s.SetText("a")
	s.SetText("ab")

	select {
	case st := <-updates:
		assert.Equal(t, "ab", st.Text, "subscribers only keep the newest snapshot")
	case <-time.After(time.Second):
		t.Fatal("no update received")
	}

	s.Close()
	_, ok := <-updates
	assert.False(t, ok)
}

func TestStore_ClosedRejectsAnalyze(t *testing.T) {
	s := newTestStore(&fixedClassifier{})
	s.SetMode(models.ModeText)
	s.SetText("flood")
	s.Close()

	assert.False(t, s.Analyze())

	updates, _ := s.Subscribe()
	_, ok := <-updates
	assert.False(t, ok)
}
