package web

import (
	"bytes"
	"strings"
	"testing"
)

func TestRenderIncludesFormContract(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, DefaultPageData(25)); err != nil {
		t.Fatalf("Render: %v", err)
	}
	page := buf.String()

	for _, want := range []string{
		"<title>Respiratory Disease Prediction</title>",
		`accept="image/*"`,
		`accept=".wav,audio/vnd.wave,audio/wav,audio/wave,audio/x-wav"`,
		"api",
		"predict",
		`"png"`,
		`"audio"`,
		"Uploads are limited to 25 MB.",
		"Processing...",
		"Please upload a valid WAV file",
		"Please upload both PNG and WAV files",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestRenderEscapesTitle(t *testing.T) {
	data := DefaultPageData(1)
	data.Title = "<script>x</script>"

	var buf bytes.Buffer
	if err := Render(&buf, data); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(buf.String(), "<title><script>") {
		t.Fatal("title was not escaped")
	}
}
