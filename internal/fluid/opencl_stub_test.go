//go:build !opencl

package fluid

import (
	"errors"
	"testing"
)

func TestOpenCLUnavailableWithoutBuildTag(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = BackendOpenCL
	if _, err := New(cfg); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("New(opencl) error = %v, want ErrBackendUnavailable", err)
	}
}
