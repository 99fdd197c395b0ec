// Package frames resolves ephemeris and orientation queries across
// segment boundaries. Loaded segments induce two undirected graphs,
// one over object ids and one over frame ids; a query walks the
// shortest path and composes per-segment evaluations into a single
// relative state or frame rotation.
package frames

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/hartmut/nyx/internal/index"
	"github.com/hartmut/nyx/internal/interp"
)

// ErrNoPath is returned when both endpoints are known but no chain of
// loaded segments connects them.
var ErrNoPath = errors.New("no segment chain connects endpoints")

// adjacency is a compact undirected graph over integer ids. Neighbor
// lists are sorted so traversal order is deterministic.
type adjacency struct {
	nodeIdx   map[int]int32
	nodes     []int
	neighbors [][]int32
}

func newAdjacency() adjacency {
	return adjacency{nodeIdx: make(map[int]int32)}
}

func (a *adjacency) node(id int) int32 {
	if i, ok := a.nodeIdx[id]; ok {
		return i
	}
	i := int32(len(a.nodes))
	a.nodeIdx[id] = i
	a.nodes = append(a.nodes, id)
	a.neighbors = append(a.neighbors, nil)
	return i
}

func (a *adjacency) edge(x, y int) {
	xi, yi := a.node(x), a.node(y)
	if xi == yi {
		return
	}
	a.neighbors[xi] = appendUnique(a.neighbors[xi], yi)
	a.neighbors[yi] = appendUnique(a.neighbors[yi], xi)
}

func appendUnique(list []int32, v int32) []int32 {
	for _, e := range list {
		if e == v {
			return list
		}
	}
	return append(list, v)
}

func (a *adjacency) sortNeighbors() {
	for _, n := range a.neighbors {
		sort.Slice(n, func(i, j int) bool { return a.nodes[n[i]] < a.nodes[n[j]] })
	}
}

// path returns the shortest node-id chain from src to dst inclusive,
// or nil when the graph does not connect them.
func (a *adjacency) path(src, dst int) []int {
	si, ok := a.nodeIdx[src]
	if !ok {
		return nil
	}
	di, ok := a.nodeIdx[dst]
	if !ok {
		return nil
	}
	if si == di {
		return []int{src}
	}

	prev := make([]int32, len(a.nodes))
	for i := range prev {
		prev[i] = -1
	}
	prev[si] = si
	queue := []int32{si}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range a.neighbors[cur] {
			if prev[next] != -1 {
				continue
			}
			prev[next] = cur
			if next == di {
				var out []int
				for n := di; n != si; n = prev[n] {
					out = append(out, a.nodes[n])
				}
				out = append(out, a.nodes[si])
				for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
					out[i], out[j] = out[j], out[i]
				}
				return out
			}
			queue = append(queue, next)
		}
	}
	return nil
}

// Graph answers relative-state and frame-transform queries against an
// index. Topology is rebuilt after every load or unload; segment
// selection within a pair happens at evaluation time so load-order
// precedence applies per epoch.
type Graph struct {
	idx *index.Index
	log *slog.Logger

	mu          sync.RWMutex
	translation adjacency
	orientation adjacency
}

// New creates a graph over the index. Call Rebuild before querying.
func New(idx *index.Index, logger *slog.Logger) *Graph {
	return &Graph{
		idx:         idx,
		log:         logger,
		translation: newAdjacency(),
		orientation: newAdjacency(),
	}
}

// Rebuild recomputes both graph topologies from the index contents.
func (g *Graph) Rebuild() {
	translation := newAdjacency()
	orientation := newAdjacency()
	segs := g.idx.Segments()
	for _, seg := range segs {
		if seg.Kind.IsOrientation() {
			orientation.edge(seg.Target, seg.Center)
		} else {
			translation.edge(seg.Target, seg.Center)
		}
	}
	translation.sortNeighbors()
	orientation.sortNeighbors()

	g.mu.Lock()
	g.translation = translation
	g.orientation = orientation
	g.mu.Unlock()
	g.log.Debug("frame graph rebuilt",
		"segments", len(segs),
		"objects", len(translation.nodes),
		"frames", len(orientation.nodes))
}

// Transform returns the rotation taking vector components from frame
// `from` to frame `to` at et (TDB seconds past J2000).
func (g *Graph) Transform(from, to int, et float64) (interp.RotationState, error) {
	if from == to {
		return interp.IdentityRotation, nil
	}

	g.mu.RLock()
	chain := g.orientation.path(from, to)
	g.mu.RUnlock()
	if chain == nil {
		return interp.RotationState{}, fmt.Errorf("frame %d to %d: %w", from, to, ErrNoPath)
	}

	total := interp.IdentityRotation
	for i := 0; i+1 < len(chain); i++ {
		hop, err := g.orientationHop(chain[i], chain[i+1], et)
		if err != nil {
			return interp.RotationState{}, err
		}
		total = total.Compose(hop)
	}
	return total, nil
}

// orientationHop evaluates the rotation from frame a to frame b from
// whichever segment direction the index holds for the pair.
func (g *Graph) orientationHop(a, b int, et float64) (interp.RotationState, error) {
	seg, err := g.idx.FindOrientation(b, a, et)
	if err == nil {
		return interp.Orientation(seg, et)
	}
	rseg, rerr := g.idx.FindOrientation(a, b, et)
	if rerr != nil {
		return interp.RotationState{}, err
	}
	rot, rerr := interp.Orientation(rseg, et)
	if rerr != nil {
		return interp.RotationState{}, rerr
	}
	return rot.Inverse(), nil
}

// Translate returns the state of target relative to observer at et,
// with components in the requested frame. Segment states recorded in
// other frames are rotated before summing, which requires an
// orientation path from each such frame to the requested one.
func (g *Graph) Translate(target, observer, frame int, et float64) (interp.StateVector, error) {
	if target == observer {
		return interp.StateVector{}, nil
	}

	g.mu.RLock()
	chain := g.translation.path(target, observer)
	g.mu.RUnlock()
	if chain == nil {
		// Distinguish a disconnected pair from ids no kernel mentions.
		if _, err := g.idx.FindTranslation(target, observer, et); errors.Is(err, index.ErrUnknownObject) {
			return interp.StateVector{}, err
		}
		if _, err := g.idx.FindTranslation(observer, target, et); errors.Is(err, index.ErrUnknownObject) {
			return interp.StateVector{}, err
		}
		return interp.StateVector{}, fmt.Errorf("object %d to %d: %w", target, observer, ErrNoPath)
	}

	var total interp.StateVector
	for i := 0; i+1 < len(chain); i++ {
		state, segFrame, err := g.translationHop(chain[i], chain[i+1], et)
		if err != nil {
			return interp.StateVector{}, err
		}
		if segFrame != frame {
			rot, err := g.Transform(segFrame, frame, et)
			if err != nil {
				return interp.StateVector{}, err
			}
			state = rot.ApplyState(state)
		}
		total = total.Add(state)
	}
	return total, nil
}

// translationHop evaluates the state of a relative to b from whichever
// segment direction the index holds, with the segment's frame id.
func (g *Graph) translationHop(a, b int, et float64) (interp.StateVector, int, error) {
	seg, err := g.idx.FindTranslation(a, b, et)
	if err == nil {
		s, perr := interp.Position(seg, et)
		return s, seg.Frame, perr
	}
	rseg, rerr := g.idx.FindTranslation(b, a, et)
	if rerr != nil {
		return interp.StateVector{}, 0, err
	}
	s, perr := interp.Position(rseg, et)
	if perr != nil {
		return interp.StateVector{}, 0, perr
	}
	return s.Neg(), rseg.Frame, nil
}
