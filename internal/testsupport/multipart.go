package testsupport

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"testing"
)

// UploadPart is one part of a multipart request body. Parts without a
// FileName are plain form values.
type UploadPart struct {
	Field       string
	FileName    string
	ContentType string
	Data        []byte
}

// ImagePart returns a png field carrying a valid PNG.
func ImagePart(t testing.TB) UploadPart {
	return UploadPart{Field: "png", FileName: "xray.png", ContentType: "image/png", Data: PNGBytes(t)}
}

// AudioPart returns an audio field carrying a valid WAV.
func AudioPart(t testing.TB) UploadPart {
	return UploadPart{Field: "audio", FileName: "breath.wav", ContentType: "audio/wav", Data: WAVBytes(t)}
}

// MultipartBody encodes parts and returns the body and its Content-Type.
func MultipartBody(t testing.TB, parts ...UploadPart) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, p := range parts {
		header := make(textproto.MIMEHeader)
		if p.FileName != "" {
			header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, p.Field, p.FileName))
		} else {
			header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q`, p.Field))
		}
		if p.ContentType != "" {
			header.Set("Content-Type", p.ContentType)
		}
		w, err := writer.CreatePart(header)
		if err != nil {
			t.Fatalf("create part %s: %v", p.Field, err)
		}
		if _, err := w.Write(p.Data); err != nil {
			t.Fatalf("write part %s: %v", p.Field, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}
