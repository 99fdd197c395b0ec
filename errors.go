package nyx

import (
	"errors"

	"github.com/hartmut/nyx/epoch"
	"github.com/hartmut/nyx/internal/daf"
	"github.com/hartmut/nyx/internal/frames"
	"github.com/hartmut/nyx/internal/index"
	"github.com/hartmut/nyx/internal/interp"
)

// Sentinel errors surfaced by the facade. Each maps to one failure
// class; callers branch with errors.Is.
var (
	// ErrMalformedHeader marks a kernel whose file record or summary
	// chain is structurally invalid.
	ErrMalformedHeader = daf.ErrMalformedHeader

	// ErrTruncatedRecord marks a kernel whose declared addresses run
	// past the end of the data.
	ErrTruncatedRecord = daf.ErrTruncatedRecord

	// ErrUnsupportedDataType marks an evaluation attempt against a
	// segment encoding outside the supported set.
	ErrUnsupportedDataType = daf.ErrUnsupportedDataType

	// ErrUnknownObject marks a query naming an id no loaded kernel
	// mentions.
	ErrUnknownObject = index.ErrUnknownObject

	// ErrNoCoverage marks a known id with no segment covering the
	// requested epoch.
	ErrNoCoverage = index.ErrNoCoverage

	// ErrNoPath marks endpoints no chain of loaded segments connects.
	ErrNoPath = frames.ErrNoPath

	// ErrEpochOutOfBounds marks an epoch outside a selected segment's
	// declared coverage.
	ErrEpochOutOfBounds = interp.ErrEpochOutOfBounds

	// ErrUnsupportedScale marks a conversion to a scale the time
	// system does not model.
	ErrUnsupportedScale = epoch.ErrUnsupportedScale

	// ErrLeapTableRange marks a UTC conversion before the first leap
	// table entry under the Error policy.
	ErrLeapTableRange = epoch.ErrLeapTableRange

	// ErrUnknownHandle marks an unload of a handle that is not loaded.
	ErrUnknownHandle = errors.New("kernel handle not loaded")

	// ErrUnknownFormat marks load data that is neither a DAF kernel
	// nor a text leap-second kernel.
	ErrUnknownFormat = errors.New("unrecognized kernel format")
)

// outcome maps an error to a stable metrics label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNoCoverage):
		return "no_coverage"
	case errors.Is(err, ErrUnknownObject):
		return "unknown_object"
	case errors.Is(err, ErrNoPath):
		return "no_path"
	case errors.Is(err, ErrEpochOutOfBounds):
		return "out_of_bounds"
	case errors.Is(err, ErrUnsupportedDataType):
		return "unsupported_type"
	default:
		return "error"
	}
}
