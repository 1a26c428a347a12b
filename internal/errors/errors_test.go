package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:        http.StatusBadRequest,
		CodeNotFound:          http.StatusNotFound,
		CodeConflict:          http.StatusConflict,
		CodeIllegalTransition: http.StatusConflict,
		CodeExternalAPI:       http.StatusInternalServerError,
		CodeAuth:              http.StatusInternalServerError,
		CodePersistence:       http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := HTTPStatus(New(code, "x")); got != want {
			t.Fatalf("code %d: expected %d, got %d", code, want, got)
		}
	}
	if got := HTTPStatus(fmt.Errorf("plain")); got != http.StatusInternalServerError {
		t.Fatalf("untyped error should map to 500, got %d", got)
	}
}

func TestWrappedErrorKeepsCode(t *testing.T) {
	base := New(CodeNotFound, "token not found")
	err := fmt.Errorf("lookup: %w", base)
	if !Is(err, CodeNotFound) {
		t.Fatal("expected wrapped error to keep its code")
	}
	if ExitCode(err) != int(CodeNotFound) {
		t.Fatalf("unexpected exit code %d", ExitCode(err))
	}
	if ExitCode(nil) != 0 {
		t.Fatal("nil error should exit 0")
	}
}
