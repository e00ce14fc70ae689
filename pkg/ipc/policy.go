package ipc

import (
	"errors"
	"fmt"

	"github.com/hansbonini/wiifs/pkg/common"
)

// ErrFatal marks conditions the device cannot answer with a meaningful
// status: unknown parameters and host file creation failures.
var ErrFatal = errors.New("fatal /dev/fs condition")

// ErrGuestMemory marks request records or buffers outside guest memory
var ErrGuestMemory = errors.New("guest memory fault")

func fatalf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrFatal, fmt.Sprintf(format, args...))
}

// hostErrorPolicy decides whether a host filesystem failure reaches the guest
type hostErrorPolicy int

const (
	// tolerateHostError logs the failure; the guest sees success
	tolerateHostError hostErrorPolicy = iota
	// surfaceHostError hands the failure back to the handler
	surfaceHostError
)

func (p hostErrorPolicy) check(op, path string, err error) error {
	if err == nil {
		return nil
	}
	if p == tolerateHostError {
		common.LogWarn(common.WarnToleratedHostErr, op, path, err)
		return nil
	}
	return err
}
