package engines

import (
	"errors"
	"testing"
)

func TestHandleCachesSuccess(t *testing.T) {
	var h Handle
	inits := 0
	for i := 0; i < 3; i++ {
		if err := h.Ensure(func() error { inits++; return nil }); err != nil {
			t.Fatal(err)
		}
	}
	if inits != 1 {
		t.Fatalf("expected one init, got %d", inits)
	}
	if h.State() != StateReady {
		t.Fatalf("unexpected state: %v", h.State())
	}
}

func TestHandleCachesFailure(t *testing.T) {
	var h Handle
	boom := errors.New("model load failed")
	inits := 0
	for i := 0; i < 3; i++ {
		err := h.Ensure(func() error { inits++; return boom })
		if !errors.Is(err, boom) {
			t.Fatalf("expected cached failure, got %v", err)
		}
	}
	if inits != 1 {
		t.Fatalf("failed init must not retry, got %d attempts", inits)
	}
	if h.State() != StateFailed {
		t.Fatalf("unexpected state: %v", h.State())
	}
}
