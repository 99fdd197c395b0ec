// Package nyx is an ephemeris and reference frame engine. It loads
// binary SPK, PCK, and CK kernels plus text leap-second kernels, and
// answers relative-state and frame-transform queries at arbitrary
// epochs by interpolating kernel coefficients and composing results
// across segment boundaries.
package nyx

import (
	"bytes"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hartmut/nyx/epoch"
	"github.com/hartmut/nyx/internal/daf"
	"github.com/hartmut/nyx/internal/frames"
	"github.com/hartmut/nyx/internal/index"
	"github.com/hartmut/nyx/internal/metrics"
)

// KernelHandle identifies one loaded kernel for later unload.
type KernelHandle int

// Option configures an Almanac.
type Option func(*Almanac)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *Almanac) { a.log = l }
}

// WithEagerDecode decodes every segment layout at load time instead of
// first query, trading load latency for fail-fast validation and
// steadier query latency.
func WithEagerDecode() Option {
	return func(a *Almanac) { a.eager = true }
}

// WithCacheSize bounds the query result cache. Zero disables caching.
func WithCacheSize(n int) Option {
	return func(a *Almanac) { a.cacheSize = n }
}

// WithLeapPolicy selects handling of UTC epochs before the first leap
// table entry.
func WithLeapPolicy(p epoch.LeapPolicy) Option {
	return func(a *Almanac) { a.leapPolicy = p }
}

type loadedKernel struct {
	name   string
	kernel *daf.Kernel      // nil for a leap-second kernel
	leaps  *epoch.LeapTable // nil for a DAF kernel
}

// Almanac owns a set of loaded kernels and answers queries against
// them. Load and Unload take the write lock; queries share the read
// lock. Kernels are immutable once loaded, so concurrent queries never
// contend beyond the lock itself.
type Almanac struct {
	log        *slog.Logger
	eager      bool
	cacheSize  int
	leapPolicy epoch.LeapPolicy

	mu      sync.RWMutex
	idx     *index.Index
	graph   *frames.Graph
	kernels map[KernelHandle]*loadedKernel
	next    KernelHandle
	leaps   *epoch.LeapTable

	cache *resultCache
}

// New creates an empty Almanac. Without kernels every query fails with
// ErrUnknownObject or ErrNoPath.
func New(opts ...Option) *Almanac {
	a := &Almanac{
		log:       slog.Default(),
		cacheSize: 1024,
		leaps:     epoch.BuiltinLeapTable(),
		kernels:   make(map[KernelHandle]*loadedKernel),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.idx = index.New()
	a.graph = frames.New(a.idx, a.log)
	a.cache = newResultCache(a.cacheSize)
	return a
}

// Load registers a kernel from memory. The format is sniffed from the
// leading bytes: DAF containers (SPK, PCK, CK) and text leap-second
// kernels are accepted. A parse failure registers nothing.
func (a *Almanac) Load(name string, data []byte) (KernelHandle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch {
	case bytes.HasPrefix(data, []byte("DAF/")):
		return a.loadDAF(name, data)
	case bytes.HasPrefix(data, []byte("KPL/LSK")):
		return a.loadLSK(name, data)
	default:
		return 0, fmt.Errorf("load %q: %w", name, ErrUnknownFormat)
	}
}

func (a *Almanac) loadDAF(name string, data []byte) (KernelHandle, error) {
	family := sniffFamily(data)
	k, err := daf.Parse(name, data, a.log)
	if err != nil {
		metrics.IncKernelLoads(family, "error")
		return 0, err
	}
	if a.eager {
		var g errgroup.Group
		for _, seg := range k.Segments {
			if seg.Kind == daf.KindUnsupported {
				continue
			}
			seg := seg
			g.Go(func() error {
				_, err := seg.Layout()
				return err
			})
		}
		if err := g.Wait(); err != nil {
			metrics.IncKernelLoads(family, "error")
			return 0, fmt.Errorf("load %q: %w", name, err)
		}
	}

	a.next++
	h := a.next
	a.kernels[h] = &loadedKernel{name: name, kernel: k}
	a.idx.Register(k)
	a.graph.Rebuild()
	a.cache.invalidate()
	metrics.IncKernelLoads(k.Family.String(), "ok")
	metrics.SetKernelsLoaded(len(a.kernels))
	a.log.Info("kernel loaded",
		"name", name,
		"family", k.Family.String(),
		"segments", len(k.Segments),
		"handle", int(h))
	return h, nil
}

func (a *Almanac) loadLSK(name string, data []byte) (KernelHandle, error) {
	lt, err := epoch.ParseLSK(data)
	if err != nil {
		metrics.IncKernelLoads("LSK", "error")
		return 0, err
	}

	a.next++
	h := a.next
	a.kernels[h] = &loadedKernel{name: name, leaps: lt}
	a.leaps = lt
	metrics.IncKernelLoads("LSK", "ok")
	metrics.SetKernelsLoaded(len(a.kernels))
	a.log.Info("leap second kernel loaded", "name", name, "entries", lt.Len(), "handle", int(h))
	return h, nil
}

// Unload removes a previously loaded kernel. Queries issued after
// return no longer see its segments.
func (a *Almanac) Unload(h KernelHandle) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	lk, ok := a.kernels[h]
	if !ok {
		return fmt.Errorf("handle %d: %w", int(h), ErrUnknownHandle)
	}
	delete(a.kernels, h)
	if lk.kernel != nil {
		a.idx.Unregister(lk.kernel)
		a.graph.Rebuild()
	}
	if lk.leaps != nil {
		a.leaps = a.latestLeapTableLocked()
	}
	a.cache.invalidate()
	metrics.SetKernelsLoaded(len(a.kernels))
	a.log.Info("kernel unloaded", "name", lk.name, "handle", int(h))
	return nil
}

// latestLeapTableLocked returns the most recently loaded leap table,
// or the builtin when none remain.
func (a *Almanac) latestLeapTableLocked() *epoch.LeapTable {
	var best KernelHandle
	lt := epoch.BuiltinLeapTable()
	for h, lk := range a.kernels {
		if lk.leaps != nil && h > best {
			best = h
			lt = lk.leaps
		}
	}
	return lt
}

// EphemerisState returns the state of target relative to observer at
// the epoch, with components in the J2000 frame.
func (a *Almanac) EphemerisState(target, observer int, e epoch.Epoch) (State, error) {
	start := time.Now()
	et := e.TDBSecondsJ2000()
	key := cacheKey{kind: 1, a: target, b: observer, et: et}
	if v, ok := a.cache.get(key); ok {
		metrics.ObserveQuery("state", "ok", start)
		return v.(State), nil
	}

	a.mu.RLock()
	sv, err := a.graph.Translate(target, observer, J2000, et)
	var st State
	if err == nil {
		st = State{
			Position: [3]float64(sv.Pos),
			Velocity: [3]float64(sv.Vel),
			Target:   target,
			Observer: observer,
			Frame:    J2000,
			Epoch:    e,
		}
		// Inserted under the read lock so a concurrent load's
		// invalidation cannot be overwritten by a stale result.
		a.cache.put(key, st)
	}
	a.mu.RUnlock()
	metrics.ObserveQuery("state", outcome(err), start)
	if err != nil {
		return State{}, err
	}
	return st, nil
}

// FrameTransform returns the rotation taking vector components from
// one frame to another at the epoch.
func (a *Almanac) FrameTransform(from, to int, e epoch.Epoch) (Rotation, error) {
	start := time.Now()
	et := e.TDBSecondsJ2000()
	key := cacheKey{kind: 2, a: from, b: to, et: et}
	if v, ok := a.cache.get(key); ok {
		metrics.ObserveQuery("transform", "ok", start)
		return v.(Rotation), nil
	}

	a.mu.RLock()
	rot, err := a.graph.Transform(from, to, et)
	var r Rotation
	if err == nil {
		r = Rotation{
			Quaternion:      [4]float64(rot.Q),
			AngularVelocity: [3]float64(rot.AV),
			From:            from,
			To:              to,
			Epoch:           e,
		}
		a.cache.put(key, r)
	}
	a.mu.RUnlock()
	metrics.ObserveQuery("transform", outcome(err), start)
	if err != nil {
		return Rotation{}, err
	}
	return r, nil
}

// Window is one contiguous coverage interval.
type Window struct {
	Start epoch.Epoch
	End   epoch.Epoch
}

// Coverage returns the merged coverage windows for an object or frame
// id across all loaded kernels, in ascending order.
func (a *Almanac) Coverage(id int) []Window {
	a.mu.RLock()
	spans := a.idx.Coverage(id)
	a.mu.RUnlock()

	out := make([]Window, 0, len(spans))
	for _, s := range spans {
		out = append(out, Window{
			Start: epoch.FromTDBSecondsJ2000(s[0]),
			End:   epoch.FromTDBSecondsJ2000(s[1]),
		})
	}
	return out
}

// Comment returns the comment text stored in a loaded DAF kernel.
func (a *Almanac) Comment(h KernelHandle) (string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	lk, ok := a.kernels[h]
	if !ok || lk.kernel == nil {
		return "", fmt.Errorf("handle %d: %w", int(h), ErrUnknownHandle)
	}
	return lk.kernel.Comment(), nil
}

// KernelInfo describes one loaded kernel.
type KernelInfo struct {
	Handle   KernelHandle
	Name     string
	Family   string
	Segments int
}

// Kernels lists loaded kernels in handle order.
func (a *Almanac) Kernels() []KernelInfo {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]KernelInfo, 0, len(a.kernels))
	for h, lk := range a.kernels {
		info := KernelInfo{Handle: h, Name: lk.name, Family: "LSK"}
		if lk.kernel != nil {
			info.Family = lk.kernel.Family.String()
			info.Segments = len(lk.kernel.Segments)
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}

// Epoch builds an epoch from calendar components using the loaded leap
// table and the configured leap policy.
func (a *Almanac) Epoch(scale epoch.TimeScale, y, mo, d, h, mi int, sec float64) (epoch.Epoch, error) {
	a.mu.RLock()
	lt := a.leaps
	a.mu.RUnlock()
	return epoch.FromGregorianWith(scale, y, mo, d, h, mi, sec, lt, a.leapPolicy)
}

// ConvertScale relabels an epoch into another scale using the loaded
// leap table and the configured leap policy.
func (a *Almanac) ConvertScale(e epoch.Epoch, s epoch.TimeScale) (epoch.Epoch, error) {
	a.mu.RLock()
	lt := a.leaps
	a.mu.RUnlock()
	return e.ToScaleWith(s, lt, a.leapPolicy)
}

// Stats reports result cache counters.
func (a *Almanac) Stats() CacheStats {
	return a.cache.stats()
}

// sniffFamily labels a DAF buffer by magic word before parsing, for
// load metrics on files that fail to parse.
func sniffFamily(data []byte) string {
	if len(data) < 8 {
		return "DAF"
	}
	switch string(data[:8]) {
	case "DAF/SPK ":
		return "SPK"
	case "DAF/PCK ":
		return "PCK"
	case "DAF/CK  ":
		return "CK"
	default:
		return "DAF"
	}
}
