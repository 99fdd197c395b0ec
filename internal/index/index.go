// Package index aggregates segment descriptors from all loaded
// kernels and answers coverage lookups with deterministic precedence.
package index

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/hartmut/nyx/internal/daf"
)

// ErrUnknownObject is returned when an id has no descriptors at all,
// across any epoch.
var ErrUnknownObject = errors.New("no loaded segment mentions object")

// ErrNoCoverage is returned when an id is known but no segment covers
// the requested epoch.
var ErrNoCoverage = errors.New("no segment covers epoch")

// entry is one candidate segment with its precedence key.
type entry struct {
	seg *daf.Segment
	seq int64 // kernel load sequence, later is higher
	pos int   // position within its kernel
}

// Index maps endpoint pairs to precedence-ordered candidate lists.
// Registration and lookup are safe for concurrent use; the owning
// Almanac additionally serializes load/unload against queries.
type Index struct {
	mu          sync.RWMutex
	translation map[[2]int][]entry // (target id, center id)
	orientation map[[2]int][]entry // (frame class id, base frame id)
	seq         int64
	kernels     map[*daf.Kernel]int64
}

// New creates an empty index.
func New() *Index {
	return &Index{
		translation: make(map[[2]int][]entry),
		orientation: make(map[[2]int][]entry),
		kernels:     make(map[*daf.Kernel]int64),
	}
}

// Register inserts all of a kernel's supported descriptors. Kernels
// registered later take precedence over earlier ones wherever
// coverage overlaps.
func (x *Index) Register(k *daf.Kernel) {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.seq++
	x.kernels[k] = x.seq
	for pos, seg := range k.Segments {
		if seg.Kind == daf.KindUnsupported {
			continue
		}
		e := entry{seg: seg, seq: x.seq, pos: pos}
		key := [2]int{seg.Target, seg.Center}
		if seg.Kind.IsOrientation() {
			x.orientation[key] = insertByPrecedence(x.orientation[key], e)
		} else {
			x.translation[key] = insertByPrecedence(x.translation[key], e)
		}
	}
}

// Unregister removes every descriptor belonging to the kernel.
func (x *Index) Unregister(k *daf.Kernel) {
	x.mu.Lock()
	defer x.mu.Unlock()

	delete(x.kernels, k)
	for key, list := range x.translation {
		x.translation[key] = dropKernel(list, k)
		if len(x.translation[key]) == 0 {
			delete(x.translation, key)
		}
	}
	for key, list := range x.orientation {
		x.orientation[key] = dropKernel(list, k)
		if len(x.orientation[key]) == 0 {
			delete(x.orientation, key)
		}
	}
}

// insertByPrecedence keeps candidate lists sorted so Find scans take
// the first covering hit. Order: later-loaded kernel first; within one
// kernel, narrower coverage first, then later file position. The
// ordering is a total order over (seq, width, pos), so the result is
// independent of registration and query interleaving.
func insertByPrecedence(list []entry, e entry) []entry {
	list = append(list, e)
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.seq != b.seq {
			return a.seq > b.seq
		}
		wa := a.seg.End - a.seg.Start
		wb := b.seg.End - b.seg.Start
		if wa != wb {
			return wa < wb
		}
		return a.pos > b.pos
	})
	return list
}

func dropKernel(list []entry, k *daf.Kernel) []entry {
	out := list[:0]
	for _, e := range list {
		if e.seg.KernelName() != k.Name || !sameKernel(e.seg, k) {
			out = append(out, e)
		}
	}
	return out
}

func sameKernel(seg *daf.Segment, k *daf.Kernel) bool {
	for _, s := range k.Segments {
		if s == seg {
			return true
		}
	}
	return false
}

// FindTranslation returns the highest-precedence translation segment
// for target relative to center covering the epoch (TDB seconds past
// J2000).
func (x *Index) FindTranslation(target, center int, et float64) (*daf.Segment, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	list, known := x.translation[[2]int{target, center}]
	if !known {
		if !x.targetKnownLocked(target) {
			return nil, fmt.Errorf("object %d: %w", target, ErrUnknownObject)
		}
		return nil, fmt.Errorf("object %d relative to %d at et %v: %w", target, center, et, ErrNoCoverage)
	}
	for _, e := range list {
		if et >= e.seg.Start && et <= e.seg.End {
			return e.seg, nil
		}
	}
	return nil, fmt.Errorf("object %d relative to %d at et %v: %w", target, center, et, ErrNoCoverage)
}

// FindOrientation returns the highest-precedence orientation segment
// relating the frame class id to the base frame and covering the
// epoch. Keying by the pair keeps a later kernel that orients the same
// frame against a different base from shadowing the earlier one.
func (x *Index) FindOrientation(frame, base int, et float64) (*daf.Segment, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	list, known := x.orientation[[2]int{frame, base}]
	if !known {
		if !x.frameKnownLocked(frame) {
			return nil, fmt.Errorf("frame %d: %w", frame, ErrUnknownObject)
		}
		return nil, fmt.Errorf("frame %d relative to %d at et %v: %w", frame, base, et, ErrNoCoverage)
	}
	for _, e := range list {
		if et >= e.seg.Start && et <= e.seg.End {
			return e.seg, nil
		}
	}
	return nil, fmt.Errorf("frame %d relative to %d at et %v: %w", frame, base, et, ErrNoCoverage)
}

// targetKnownLocked reports whether any descriptor mentions the id,
// as either a target or a center.
func (x *Index) targetKnownLocked(target int) bool {
	for key := range x.translation {
		if key[0] == target || key[1] == target {
			return true
		}
	}
	return false
}

// frameKnownLocked reports whether any orientation descriptor mentions
// the frame id, as either the oriented side or a base.
func (x *Index) frameKnownLocked(frame int) bool {
	for key := range x.orientation {
		if key[0] == frame || key[1] == frame {
			return true
		}
	}
	return false
}

// Segments returns every registered supported descriptor, for frame
// graph construction.
func (x *Index) Segments() []*daf.Segment {
	x.mu.RLock()
	defer x.mu.RUnlock()

	var out []*daf.Segment
	for _, list := range x.translation {
		for _, e := range list {
			out = append(out, e.seg)
		}
	}
	for _, list := range x.orientation {
		for _, e := range list {
			out = append(out, e.seg)
		}
	}
	return out
}

// Coverage returns the merged coverage windows (TDB seconds past
// J2000) over all segments for a target, in ascending order.
func (x *Index) Coverage(target int) [][2]float64 {
	x.mu.RLock()
	defer x.mu.RUnlock()

	var spans [][2]float64
	for key, list := range x.translation {
		if key[0] != target {
			continue
		}
		for _, e := range list {
			spans = append(spans, [2]float64{e.seg.Start, e.seg.End})
		}
	}
	for key, list := range x.orientation {
		if key[0] != target {
			continue
		}
		for _, e := range list {
			spans = append(spans, [2]float64{e.seg.Start, e.seg.End})
		}
	}
	return mergeSpans(spans)
}

func mergeSpans(spans [][2]float64) [][2]float64 {
	if len(spans) == 0 {
		return nil
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i][0] < spans[j][0] })
	out := [][2]float64{spans[0]}
	for _, s := range spans[1:] {
		last := &out[len(out)-1]
		if s[0] <= last[1] {
			if s[1] > last[1] {
				last[1] = s[1]
			}
			continue
		}
		out = append(out, s)
	}
	return out
}
