package adapters

import (
	"errors"
	"testing"
)

func TestErrFromStderr(t *testing.T) {
	fallback := errors.New("exit status 1")

	if got := errFromStderr("  \n", fallback); got != fallback {
		t.Errorf("errFromStderr with blank stderr = %v, want fallback %v", got, fallback)
	}

	got := errFromStderr("  HTTP 404: Not Found\n", fallback)
	if got.Error() != "HTTP 404: Not Found" {
		t.Errorf("errFromStderr = %q, want trimmed stderr text", got.Error())
	}
}
