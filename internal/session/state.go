// Package session holds the per-browser view state of the classifier page
// and the analysis trigger that drives it.
//
// State is never mutated in place. Every change goes through Reduce, which
// returns a new State; the Store serializes dispatches and notifies
// subscribers after each one.
package session

import "disaster-classifier/internal/models"

type State struct {
	Mode       models.Mode
	Text       string
	Image      *Image
	Processing bool
	Result     *models.AnalysisResult
	// Err is set when the classifier fails and cleared by the next analysis
	// or a reset.
	Err string

	// Generation increases on every Reset; analysis completions carrying an
	// older generation are dropped.
	Generation uint64
	// ImageSeq increases on every image selection; previews decoded for an
	// older selection are dropped.
	ImageSeq uint64
	// TextSeq is the highest client sequence applied by SetText.
	TextSeq uint64
}

// Image is the selected upload. Data is shared between snapshots and must
// not be modified.
type Image struct {
	Name     string
	MimeType string
	Data     []byte
	Seq      uint64
	// Preview is a data URL, empty until decoding completes.
	Preview string
}

func NewState() State {
	return State{Mode: models.DefaultMode}
}

// CanAnalyze is the gating rule for the Analyze control.
func CanAnalyze(s State) bool {
	if s.Processing {
		return false
	}
	if s.Mode.WantsText() && s.Text == "" {
		return false
	}
	if s.Mode.WantsImage() && s.Image == nil {
		return false
	}
	return true
}
