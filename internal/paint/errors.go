package paint

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

var (
	// ErrInvalidConfiguration is returned for a missing emitter, an invalid
	// light setting, or a second concurrent session. Nothing is mutated.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrUnsupportedTarget marks a mesh that cannot hold the paint attribute.
	// The target is skipped and the session continues without it.
	ErrUnsupportedTarget = errors.New("unsupported target")

	// ErrStaleIndex marks a mesh whose geometry changed after its spatial
	// index was built. The target is left untouched for that pass.
	ErrStaleIndex = errors.New("stale spatial index")

	// ErrSessionClosed is returned when using a session after End.
	ErrSessionClosed = errors.New("paint session closed")
)

// TargetError is a failure scoped to one target mesh.
type TargetError struct {
	TargetID string
	Err      error
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("target %s: %v", e.TargetID, e.Err)
}

func (e *TargetError) Unwrap() error {
	return e.Err
}

// TargetErrors splits an error returned by Repaint, End or SaveLayer into
// its per-target parts. Errors not scoped to a target are omitted.
func TargetErrors(err error) []*TargetError {
	var out []*TargetError
	for _, e := range multierr.Errors(err) {
		var te *TargetError
		if errors.As(e, &te) {
			out = append(out, te)
		}
	}
	return out
}
