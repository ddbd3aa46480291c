package services_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"respira/internal/services"
)

func TestWrapIncludesDetailAndMarker(t *testing.T) {
	cause := errors.New("exit status 1")
	err := services.Wrap(services.ErrExternalTool, "inference", "run model", "nonzero exit", cause)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be preserved, got %v", err)
	}
	msg := err.Error()
	for _, want := range []string{"inference", "run model", "nonzero exit", "exit status 1"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected %q in %q", want, msg)
		}
	}
}

func TestWrapDefaultsMarkerAndDetail(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestHTTPStatusAndKind(t *testing.T) {
	cases := []struct {
		marker error
		status int
		kind   string
	}{
		{services.ErrValidation, http.StatusBadRequest, "validation"},
		{services.ErrExternalTool, http.StatusInternalServerError, "external_tool"},
		{services.ErrContract, http.StatusInternalServerError, "contract"},
		{services.ErrTimeout, http.StatusGatewayTimeout, "timeout"},
		{services.ErrCanceled, http.StatusInternalServerError, "canceled"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		err := services.Wrap(tc.marker, "step", "op", "", nil)
		if tc.kind == "internal" {
			err = tc.marker
		}
		if got := services.HTTPStatus(err); got != tc.status {
			t.Errorf("%v: status = %d, want %d", tc.marker, got, tc.status)
		}
		if got := services.Kind(err); got != tc.kind {
			t.Errorf("%v: kind = %q, want %q", tc.marker, got, tc.kind)
		}
	}
	if services.HTTPStatus(nil) != http.StatusOK || services.Kind(nil) != "" {
		t.Fatal("expected nil error to map to OK with empty kind")
	}
}
