package calls

import "errors"

var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("call not found")
	ErrAnalysisFailed    = errors.New("analysis failed")
	ErrPersistenceFailed = errors.New("persistence failed")
	ErrBusy              = errors.New("too many analyses in flight")
)

// Kind returns the machine-readable error kind, or "" for errors outside the taxonomy.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAnalysisFailed):
		return "analysis_failed"
	case errors.Is(err, ErrPersistenceFailed):
		return "persistence_failed"
	case errors.Is(err, ErrBusy):
		return "busy"
	default:
		return ""
	}
}
