package session

import "disaster-classifier/internal/models"

type Action interface {
	isAction()
}

type SetMode struct{ Mode models.Mode }

// SetText replaces the text input. A non-zero Seq orders concurrent edits
// from one page: an edit whose Seq is not above the last applied one is
// dropped.
type SetText struct {
	Text string
	Seq  uint64
}

type SelectImage struct {
	Name     string
	MimeType string
	Data     []byte
}

type PreviewDecoded struct {
	Seq     uint64
	DataURL string
}

type RemoveImage struct{}

type AnalysisStarted struct{}

type AnalysisCompleted struct {
	Generation uint64
	Result     models.AnalysisResult
}

type AnalysisFailed struct {
	Generation uint64
	Err        string
}

type Reset struct{}

func (SetMode) isAction()           {}
func (SetText) isAction()           {}
func (SelectImage) isAction()       {}
func (PreviewDecoded) isAction()    {}
func (RemoveImage) isAction()       {}
func (AnalysisStarted) isAction()   {}
func (AnalysisCompleted) isAction() {}
func (AnalysisFailed) isAction()    {}
func (Reset) isAction()             {}

// Reduce returns the state that follows s after a. It does not validate
// gating; the Store checks CanAnalyze before dispatching AnalysisStarted.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SetMode:
		s.Mode = a.Mode

	case SetText:
		if a.Seq != 0 {
			if a.Seq <= s.TextSeq {
				return s
			}
			s.TextSeq = a.Seq
		}
		s.Text = a.Text

	case SelectImage:
		s.ImageSeq++
		s.Image = &Image{
			Name:     a.Name,
			MimeType: a.MimeType,
			Data:     a.Data,
			Seq:      s.ImageSeq,
		}

	case PreviewDecoded:
		if s.Image == nil || s.Image.Seq != a.Seq {
			return s
		}
		img := *s.Image
		img.Preview = a.DataURL
		s.Image = &img

	case RemoveImage:
		s.Image = nil

	case AnalysisStarted:
		s.Processing = true
		s.Err = ""

	case AnalysisCompleted:
		if a.Generation != s.Generation {
			return s
		}
		result := a.Result
		s.Result = &result
		s.Processing = false

	case AnalysisFailed:
		if a.Generation != s.Generation {
			return s
		}
		s.Err = a.Err
		s.Processing = false

	case Reset:
		s = State{
			Mode:       s.Mode,
			Generation: s.Generation + 1,
			ImageSeq:   s.ImageSeq,
			TextSeq:    s.TextSeq,
		}
	}
	return s
}
