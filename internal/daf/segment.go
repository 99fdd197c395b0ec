package daf

import (
	"fmt"
	"sync"
)

// DataKind is the closed set of segment encodings the interpolation
// engine evaluates. Anything else parses as KindUnsupported.
type DataKind int

const (
	// KindUnsupported marks a data type code the engine cannot
	// evaluate. The descriptor survives for reporting.
	KindUnsupported DataKind = iota
	// KindChebyshevPosition is SPK type 2: per-interval Chebyshev
	// coefficients for position; velocity is the derivative.
	KindChebyshevPosition
	// KindChebyshevPosVel is SPK type 3: separate Chebyshev
	// coefficients for position and velocity.
	KindChebyshevPosVel
	// KindHermitePosition is SPK type 12: equally spaced state
	// records joined by Hermite interpolation.
	KindHermitePosition
	// KindChebyshevOrientation is binary PCK type 2: per-interval
	// Chebyshev coefficients for 3-1-3 Euler angles.
	KindChebyshevOrientation
	// KindHermiteOrientation is CK type 5: equally spaced quaternion
	// and angular-velocity records joined by Hermite interpolation.
	KindHermiteOrientation
)

func (d DataKind) String() string {
	switch d {
	case KindChebyshevPosition:
		return "chebyshev-position"
	case KindChebyshevPosVel:
		return "chebyshev-posvel"
	case KindHermitePosition:
		return "hermite-position"
	case KindChebyshevOrientation:
		return "chebyshev-orientation"
	case KindHermiteOrientation:
		return "hermite-orientation"
	default:
		return "unsupported"
	}
}

// IsOrientation reports whether the kind encodes a rotation rather
// than a translation state.
func (d DataKind) IsOrientation() bool {
	return d == KindChebyshevOrientation || d == KindHermiteOrientation
}

// Layout describes the record structure of a segment's data array: N
// fixed-length records of RSize doubles spaced IntLen seconds starting
// at Init (TDB seconds past J2000), followed by a four-word trailer.
// Chebyshev trailers declare INIT, INTLEN, RSIZE, N; SPK type 12
// trailers declare START, STEP, WINDOW, N, with the six-word packet
// size fixed by the type.
type Layout struct {
	Init   float64
	IntLen float64
	RSize  int
	N      int
	// Window is the interpolation window size an SPK type 12 trailer
	// declares; zero for the other encodings.
	Window int
}

// Segment is one data array's descriptor plus lazy access to its
// coefficient records. Descriptors are built at parse time; the
// trailer and records are decoded from the kernel buffer on first use.
// Safe for concurrent readers.
type Segment struct {
	// Name is the array name from the name record.
	Name string
	// Target is the object id (SPK) or orientation frame class id
	// (PCK/CK).
	Target int
	// Center is the center body id (SPK) or base frame id (PCK/CK).
	Center int
	// Frame is the reference frame the coordinates are expressed in.
	Frame int
	// Type is the raw data type code from the summary.
	Type int
	// Kind classifies Type into the engine's evaluation set.
	Kind DataKind
	// Start and End bound the coverage in TDB seconds past J2000.
	Start, End float64

	initial, final int // 1-based word addresses of the array
	kernel         *Kernel

	layoutOnce sync.Once
	layout     Layout
	layoutErr  error
}

// KernelName returns the name of the owning container.
func (s *Segment) KernelName() string { return s.kernel.Name }

// Layout decodes and validates the segment's record layout trailer.
// The result is cached; concurrent callers share one decode.
func (s *Segment) Layout() (Layout, error) {
	s.layoutOnce.Do(func() { s.layout, s.layoutErr = s.decodeLayout() })
	return s.layout, s.layoutErr
}

func (s *Segment) decodeLayout() (Layout, error) {
	if s.Kind == KindUnsupported {
		return Layout{}, fmt.Errorf("segment %q: type code %d: %w", s.Name, s.Type, ErrUnsupportedDataType)
	}
	total := s.final - s.initial + 1
	if total < 4 {
		return Layout{}, fmt.Errorf("segment %q: %d-word array has no layout trailer: %w",
			s.Name, total, ErrTruncatedRecord)
	}
	tr, err := s.kernel.addressDoubles(s.final-3, 4)
	if err != nil {
		return Layout{}, err
	}
	l := Layout{Init: tr[0], IntLen: tr[1], N: int(tr[3])}
	if s.Kind == KindHermitePosition {
		l.Window = int(tr[2])
		l.RSize = 6
	} else {
		l.RSize = int(tr[2])
	}

	if l.N <= 0 || l.RSize <= 0 || l.IntLen <= 0 {
		return Layout{}, fmt.Errorf("segment %q: layout trailer init=%v intlen=%v rsize=%d n=%d: %w",
			s.Name, l.Init, l.IntLen, l.RSize, l.N, ErrMalformedHeader)
	}
	if l.N*l.RSize+4 != total {
		return Layout{}, fmt.Errorf("segment %q: %d records of %d words plus trailer do not fill %d-word array: %w",
			s.Name, l.N, l.RSize, total, ErrTruncatedRecord)
	}

	switch s.Kind {
	case KindChebyshevPosition, KindChebyshevPosVel, KindChebyshevOrientation:
		ncomp := s.componentCount()
		// Record is MID, RADIUS, then ncomp coefficient sets.
		if (l.RSize-2)%ncomp != 0 || (l.RSize-2)/ncomp < 2 {
			return Layout{}, fmt.Errorf("segment %q: record size %d does not hold %d Chebyshev sets: %w",
				s.Name, l.RSize, ncomp, ErrMalformedHeader)
		}
	case KindHermitePosition:
		if l.N < 2 {
			return Layout{}, fmt.Errorf("segment %q: Hermite needs at least 2 packets, have %d: %w",
				s.Name, l.N, ErrMalformedHeader)
		}
		if l.Window < 2 || l.Window > l.N {
			return Layout{}, fmt.Errorf("segment %q: interpolation window %d with %d packets: %w",
				s.Name, l.Window, l.N, ErrMalformedHeader)
		}
	case KindHermiteOrientation:
		if l.RSize != 7 {
			return Layout{}, fmt.Errorf("segment %q: quaternion record size %d, want 7: %w",
				s.Name, l.RSize, ErrMalformedHeader)
		}
		if l.N < 2 {
			return Layout{}, fmt.Errorf("segment %q: Hermite needs at least 2 records, have %d: %w",
				s.Name, l.N, ErrMalformedHeader)
		}
	}
	return l, nil
}

// componentCount is the number of interpolated components per record.
func (s *Segment) componentCount() int {
	switch s.Kind {
	case KindChebyshevPosVel:
		return 6
	default:
		return 3
	}
}

// Degree returns the Chebyshev polynomial degree for Chebyshev kinds.
func (s *Segment) Degree() (int, error) {
	l, err := s.Layout()
	if err != nil {
		return 0, err
	}
	switch s.Kind {
	case KindChebyshevPosition, KindChebyshevPosVel, KindChebyshevOrientation:
		return (l.RSize-2)/s.componentCount() - 1, nil
	default:
		return 0, fmt.Errorf("segment %q: %s has no polynomial degree: %w",
			s.Name, s.Kind, ErrUnsupportedDataType)
	}
}

// Record returns the i-th coefficient record as a fresh slice of
// doubles.
func (s *Segment) Record(i int) ([]float64, error) {
	l, err := s.Layout()
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= l.N {
		return nil, fmt.Errorf("segment %q: record %d of %d: %w", s.Name, i, l.N, ErrTruncatedRecord)
	}
	return s.kernel.addressDoubles(s.initial+i*l.RSize, l.RSize)
}
