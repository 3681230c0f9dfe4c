package services

import (
	"errors"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	inner := errors.New("boom")
	err := Wrap(ErrExternalTool, "render", "encode", "ffmpeg exited", inner)
	if !errors.Is(err, ErrExternalTool) {
		t.Fatalf("marker lost: %v", err)
	}
	if !errors.Is(err, inner) {
		t.Fatalf("inner error lost: %v", err)
	}
	want := "external tool error: render: encode: ffmpeg exited: boom"
	if err.Error() != want {
		t.Fatalf("got %q want %q", err.Error(), want)
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := Wrap(nil, "tts", "", "", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("nil marker should default to transient: %v", err)
	}
}

func TestIsPermanent(t *testing.T) {
	if !IsPermanent(Wrap(ErrValidation, "captions", "parse", "empty alignment", nil)) {
		t.Fatal("validation errors are permanent")
	}
	if IsPermanent(Wrap(ErrTransient, "postiz", "upload", "", errors.New("503"))) {
		t.Fatal("transient errors are not permanent")
	}
}
