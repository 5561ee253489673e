// Package view projects session state into what the page shows. Everything
// here is a pure function of its input.
package view

import (
	"html/template"

	"disaster-classifier/internal/models"
	"disaster-classifier/internal/session"
)

const (
	BadgeAlert = "alert"
	BadgeOK    = "ok"
)

type ModeOption struct {
	ID     models.Mode
	Label  string
	Active bool
}

var modeOptions = []ModeOption{
	{ID: models.ModeText, Label: "Text Only"},
	{ID: models.ModeImage, Label: "Image Only"},
	{ID: models.ModeBoth, Label: "Both (Late Fusion)"},
}

type ImageView struct {
	Name string
	// Preview is empty while decoding is pending or after it failed.
	Preview template.URL
}

type Page struct {
	Mode       models.Mode
	Modes      []ModeOption
	Text       string
	ShowText   bool
	ShowImage  bool
	Image      *ImageView
	CanAnalyze bool
	Processing bool
	Error      string
	Result     *ResultPanel
}

type ResultRow struct {
	Kind  string
	Title string
	Label models.Label
	Badge string
}

type ResultPanel struct {
	Rows  []ResultRow
	Final ResultRow
}

func NewPage(s session.State) Page {
	modes := make([]ModeOption, len(modeOptions))
	for i, m := range modeOptions {
		m.Active = m.ID == s.Mode
		modes[i] = m
	}

	p := Page{
		Mode:       s.Mode,
		Modes:      modes,
		Text:       s.Text,
		ShowText:   s.Mode.WantsText(),
		ShowImage:  s.Mode.WantsImage(),
		CanAnalyze: session.CanAnalyze(s),
		Processing: s.Processing,
		Error:      s.Err,
		Result:     NewResultPanel(s.Result),
	}
	if s.Image != nil {
		// Previews are produced by our own encoder, never by the client.
		p.Image = &ImageView{Name: s.Image.Name, Preview: template.URL(s.Image.Preview)}
	}
	return p
}

// NewResultPanel returns nil when there is no completed analysis. Modality
// rows follow the labels present in the result, which reflect the mode at
// the time the analysis was started.
func NewResultPanel(r *models.AnalysisResult) *ResultPanel {
	if r == nil {
		return nil
	}

	panel := &ResultPanel{
		Final: newRow("final", "Final Result (Late Fusion)", r.FinalLabel),
	}
	if r.TextLabel.Present() {
		panel.Rows = append(panel.Rows, newRow("text", "Text Classification", r.TextLabel))
	}
	if r.ImageLabel.Present() {
		panel.Rows = append(panel.Rows, newRow("image", "Image Classification", r.ImageLabel))
	}
	return panel
}

func newRow(kind, title string, label models.Label) ResultRow {
	badge := BadgeOK
	if label.IsInformative() {
		badge = BadgeAlert
	}
	return ResultRow{Kind: kind, Title: title, Label: label, Badge: badge}
}
