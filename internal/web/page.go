package web

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"sync"

	"respira/internal/api"
	"respira/internal/media"
)

//go:embed index.html
var indexHTML string

var (
	parseOnce sync.Once
	indexTmpl *template.Template
	parseErr  error
)

// PageData parameterizes the upload form.
type PageData struct {
	Title       string
	Endpoint    string
	ImageField  string
	AudioField  string
	MaxUploadMB int
	WAVTypes    []string
}

// DefaultPageData returns the form settings matching the predict endpoint.
func DefaultPageData(maxUploadMB int) PageData {
	return PageData{
		Title:       "Respiratory Disease Prediction",
		Endpoint:    "/api/predict",
		ImageField:  api.FieldImage,
		AudioField:  api.FieldAudio,
		MaxUploadMB: maxUploadMB,
		WAVTypes:    media.WAVContentTypes(),
	}
}

// AudioAccept is the accept attribute for the audio input.
func (d PageData) AudioAccept() string {
	return ".wav," + strings.Join(d.WAVTypes, ",")
}

func loadTemplate() (*template.Template, error) {
	parseOnce.Do(func() {
		indexTmpl, parseErr = template.New("index").Parse(indexHTML)
	})
	return indexTmpl, parseErr
}

// Render writes the upload page to w.
func Render(w io.Writer, data PageData) error {
	tmpl, err := loadTemplate()
	if err != nil {
		return fmt.Errorf("parse index template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("render index: %w", err)
	}
	_, err = buf.WriteTo(w)
	return err
}
