package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// Fragment names re-rendered on every state change.
var fragmentNames = []string{"image", "actions", "results"}

// Update is the payload of a re-render event.
type Update struct {
	Mode      string            `json:"mode"`
	Text      string            `json:"text"`
	ShowText  bool              `json:"showText"`
	ShowImage bool              `json:"showImage"`
	Fragments map[string]string `json:"fragments"`
}

type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("").ParseFS(templatesFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Template is installed on the router for full-page renders.
func (r *Renderer) Template() *template.Template {
	return r.tmpl
}

func (r *Renderer) Update(p Page) (Update, error) {
	u := Update{
		Mode:      string(p.Mode),
		Text:      p.Text,
		ShowText:  p.ShowText,
		ShowImage: p.ShowImage,
		Fragments: make(map[string]string, len(fragmentNames)),
	}
	for _, name := range fragmentNames {
		var buf bytes.Buffer
		if err := r.tmpl.ExecuteTemplate(&buf, name, p); err != nil {
			return Update{}, fmt.Errorf("failed to render %s fragment: %w", name, err)
		}
		u.Fragments[name] = buf.String()
	}
	return u, nil
}

// Static returns the embedded stylesheet and script.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
