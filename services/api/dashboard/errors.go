package dashboard

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidRequest    = errors.New("invalid dashboard request")
	ErrDataUnavailable   = errors.New("station data unavailable")
	ErrQueryFailed       = errors.New("dashboard query failed")
	ErrArtifactNotFound  = errors.New("dashboard engine produced no html artifact")
	ErrAmbiguousArtifact = errors.New("dashboard engine produced more than one html artifact")
	ErrTimeout           = errors.New("dashboard engine timed out")
	ErrBusy              = errors.New("dashboard renderer busy")
)

// ExternalToolError reports a non-zero exit of the engine process.
type ExternalToolError struct {
	ExitCode int
	Stderr   string
}

func (e *ExternalToolError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = "no stderr output"
	}
	return fmt.Sprintf("dashboard engine exited with code %d: %s", e.ExitCode, msg)
}
