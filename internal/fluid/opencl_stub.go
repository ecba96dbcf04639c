//go:build !opencl

package fluid

import "fmt"

func init() {
	RegisterBackend(BackendOpenCL, func(Config) (Backend, error) {
		return nil, fmt.Errorf("%w: OpenCL support is not enabled; rebuild with -tags opencl", ErrBackendUnavailable)
	})
}
