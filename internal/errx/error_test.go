package errx

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfWrapped(t *testing.T) {
	base := errors.New("connection reset")
	err := fmt.Errorf("scrape item: %w", New(KindFetch, "fetch product", base))

	if got := KindOf(err); got != KindFetch {
		t.Fatalf("KindOf: got %q, want %q", got, KindFetch)
	}
	if !errors.Is(err, base) {
		t.Error("errors.Is should see the underlying error")
	}
}

func TestKindOfPlainError(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != "" {
		t.Errorf("KindOf: got %q, want empty", got)
	}
	if Is(nil, KindFatal) {
		t.Error("nil error should not match any kind")
	}
}

func TestErrorMessage(t *testing.T) {
	err := Newf(KindValidation, "normalize", "brand %q is not supported", "Puma")
	want := `normalize: brand "Puma" is not supported`
	if err.Error() != want {
		t.Errorf("Error(): got %q, want %q", err.Error(), want)
	}
}
