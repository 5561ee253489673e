package models

import "time"

// Mode selects which input modalities take part in an analysis.
type Mode string

const (
	ModeText  Mode = "text"
	ModeImage Mode = "image"
	ModeBoth  Mode = "both"
)

const DefaultMode = ModeBoth

func (m Mode) WantsText() bool  { return m != ModeImage }
func (m Mode) WantsImage() bool { return m != ModeText }

// Label is the two-valued classification outcome. The zero value means the
// modality was not classified.
type Label string

const (
	LabelInformative    Label = "Informative"
	LabelNotInformative Label = "Not Informative"
)

func (l Label) Present() bool       { return l != "" }
func (l Label) IsInformative() bool { return l == LabelInformative }

// LabelFromBool maps a coin flip to a label.
func LabelFromBool(informative bool) Label {
	if informative {
		return LabelInformative
	}
	return LabelNotInformative
}

// AnalysisResult is replaced wholesale by every completed analysis.
type AnalysisResult struct {
	Mode        Mode      `json:"mode"`
	TextLabel   Label     `json:"textLabel,omitempty"`
	ImageLabel  Label     `json:"imageLabel,omitempty"`
	FinalLabel  Label     `json:"finalLabel"`
	CompletedAt time.Time `json:"completedAt"`
}

type ClassifyRequest struct {
	Mode string `form:"mode" binding:"omitempty,oneof=text image both"`
	Text string `form:"text"`
}

type ClassifyResults struct {
	TextLabel  *Label `json:"text_label"`
	ImageLabel *Label `json:"image_label"`
	FinalLabel Label  `json:"final_label"`
}

type ClassifyResponse struct {
	Success bool             `json:"success"`
	Mode    Mode             `json:"mode,omitempty"`
	Results *ClassifyResults `json:"results,omitempty"`
	Error   string           `json:"error,omitempty"`
	Details []FieldError     `json:"details,omitempty"`
}

type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

type ModeRequest struct {
	Mode string `form:"mode" binding:"required,oneof=text image both"`
}

type TextRequest struct {
	Text string `form:"text"`
	Seq  uint64 `form:"seq"`
}

type AnalyzeResponse struct {
	Accepted bool `json:"accepted"`
}

type ImageInfo struct {
	Name       string `json:"name"`
	MimeType   string `json:"mimeType"`
	Size       int    `json:"size"`
	HasPreview bool   `json:"hasPreview"`
}

type SessionStateResponse struct {
	Mode       Mode            `json:"mode"`
	Text       string          `json:"text"`
	Image      *ImageInfo      `json:"image,omitempty"`
	Processing bool            `json:"processing"`
	CanAnalyze bool            `json:"canAnalyze"`
	Result     *AnalysisResult `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
}
