// Package direrr defines the archiver's closed set of named error
// kinds. Recoverable kinds (StatusNotFound, PtsTooEarly) are caught at
// the recovery-engine boundary and turned into loop-control decisions;
// everything else is fatal and surfaces to the top-level coordinator.
package direrr

import "errors"

// Kind identifies which of the archiver's recognized failure modes an
// Error represents.
type Kind int

const (
	// Other is the catch-all for transport/IO errors with no more
	// specific kind. Fatal to the run.
	Other Kind = iota
	// InvalidURL means a URL had no path segments, or a manifest base
	// could not be joined with a relative template.
	InvalidURL
	// StatusNotFound is an HTTP 404. Expected and recovered locally by
	// the past-recovery engine, which uses it to drive the search.
	StatusNotFound
	// PtsTooEarly means a candidate past segment's end PTS does not
	// match the current back-PTS watermark. Recovered locally by
	// tightening the pass's lower bound.
	PtsTooEarly
	// MissingInit means the final muxer found no segment files (.m4v
	// or .m4a) for a stream; each segment file carries the stream's
	// init blob, so there is no init data to mux. Fatal to muxing.
	MissingInit
	// TranscoderFail means the external ffmpeg process exited
	// non-zero.
	TranscoderFail
)

func (k Kind) String() string {
	switch k {
	case InvalidURL:
		return "invalid URL"
	case StatusNotFound:
		return "not found"
	case PtsTooEarly:
		return "PTS too early"
	case MissingInit:
		return "missing init segment"
	case TranscoderFail:
		return "transcoder failed"
	default:
		return "error"
	}
}

// Error wraps an underlying error with a Kind and the operation that
// produced it, following the shape of the standard library's
// *os.PathError / *net.OpError.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.String()
	}
	return e.Op + ": " + e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given kind.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether the first *Error found in err's chain (err itself
// or an error it wraps) has the given kind. *Error values nested
// beneath that first one are not examined.
func Is(err error, kind Kind) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}
