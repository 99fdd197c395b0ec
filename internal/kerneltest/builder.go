// Package kerneltest builds small, byte-exact DAF kernels in memory.
// Package tests across the module use it to exercise the reader,
// interpolator, and resolver against known trajectories; the CLI demo
// command uses it to produce a sample kernel.
package kerneltest

import (
	"encoding/binary"
	"math"
)

const recordSize = 1024

// ftpstr is the FTP corruption sentinel NAIF writers embed in the file
// record.
const ftpstr = "FTPSTR:\r:\n:\r\n:\r\x00:\x81:\x10\xce:ENDFTP"

// Builder assembles a DAF kernel from segment arrays.
type Builder struct {
	magic   string
	ifname  string
	nd, ni  int
	order   binary.ByteOrder
	segs    []builderSeg
	comment string
}

type builderSeg struct {
	name    string
	doubles []float64 // ND summary doubles
	ints    []int32   // NI summary ints, minus the two address slots
	array   []float64
}

// NewSPK starts a little-endian SPK builder.
func NewSPK() *Builder {
	return &Builder{magic: "DAF/SPK ", ifname: "kerneltest spk", nd: 2, ni: 6, order: binary.LittleEndian}
}

// NewPCK starts a little-endian binary PCK builder.
func NewPCK() *Builder {
	return &Builder{magic: "DAF/PCK ", ifname: "kerneltest pck", nd: 2, ni: 5, order: binary.LittleEndian}
}

// NewCK starts a little-endian CK builder.
func NewCK() *Builder {
	return &Builder{magic: "DAF/CK  ", ifname: "kerneltest ck", nd: 2, ni: 6, order: binary.LittleEndian}
}

// BigEndian switches the builder to BIG-IEEE output.
func (b *Builder) BigEndian() *Builder {
	b.order = binary.BigEndian
	return b
}

// WithComment stores text in the kernel's comment area.
func (b *Builder) WithComment(text string) *Builder {
	b.comment = text
	return b
}

// AddChebyshevSegment appends an SPK type 2 or type 3 segment. records
// holds one coefficient record per interval: MID, RADIUS, then the
// per-component coefficient sets. intlen is the interval length in
// seconds; coverage starts at init.
func (b *Builder) AddChebyshevSegment(name string, target, center, frame, typ int, start, end, init, intlen float64, records [][]float64) *Builder {
	array := flatten(records)
	rsize := 0
	if len(records) > 0 {
		rsize = len(records[0])
	}
	array = append(array, init, intlen, float64(rsize), float64(len(records)))
	b.segs = append(b.segs, builderSeg{
		name:    name,
		doubles: []float64{start, end},
		ints:    []int32{int32(target), int32(center), int32(frame), int32(typ)},
		array:   array,
	})
	return b
}

// AddHermiteStateSegment appends an SPK type 12 segment from equally
// spaced 6-word state packets starting at init. The trailer is START,
// STEP, WINDOW, N with a two-packet interpolation window.
func (b *Builder) AddHermiteStateSegment(name string, target, center, frame int, start, end, init, step float64, states [][]float64) *Builder {
	array := flatten(states)
	array = append(array, init, step, 2, float64(len(states)))
	b.segs = append(b.segs, builderSeg{
		name:    name,
		doubles: []float64{start, end},
		ints:    []int32{int32(target), int32(center), int32(frame), 12},
		array:   array,
	})
	return b
}

// AddEulerSegment appends a binary PCK type 2 segment of Chebyshev
// Euler-angle records.
func (b *Builder) AddEulerSegment(name string, frameClass, base int, start, end, init, intlen float64, records [][]float64) *Builder {
	array := flatten(records)
	rsize := 0
	if len(records) > 0 {
		rsize = len(records[0])
	}
	array = append(array, init, intlen, float64(rsize), float64(len(records)))
	b.segs = append(b.segs, builderSeg{
		name:    name,
		doubles: []float64{start, end},
		ints:    []int32{int32(frameClass), int32(base), 2},
		array:   array,
	})
	return b
}

// AddQuaternionSegment appends a CK type 5 segment from equally spaced
// 7-word quaternion and angular-velocity records.
func (b *Builder) AddQuaternionSegment(name string, frameClass, base int, start, end, init, step float64, records [][]float64) *Builder {
	array := flatten(records)
	array = append(array, init, step, 7, float64(len(records)))
	b.segs = append(b.segs, builderSeg{
		name:    name,
		doubles: []float64{start, end},
		ints:    []int32{int32(frameClass), int32(base), 5, 1},
		array:   array,
	})
	return b
}

// AddRawSegment appends a segment with an explicit type code and raw
// array, for malformed-input tests.
func (b *Builder) AddRawSegment(name string, ints []int32, start, end float64, array []float64) *Builder {
	b.segs = append(b.segs, builderSeg{
		name:    name,
		doubles: []float64{start, end},
		ints:    ints,
		array:   array,
	})
	return b
}

// Build lays out the file record, comment area, one summary record,
// the name record, and the element data, and returns the finished
// kernel bytes.
func (b *Builder) Build() []byte {
	summarySize := b.nd + (b.ni+1)/2 // doubles per summary

	commentRecords := 0
	if b.comment != "" {
		commentRecords = (len(b.comment)+1+recordSize-1)/recordSize
	}
	fward := 2 + commentRecords
	// One summary record handles all test-sized kernels.
	firstDataRecord := fward + 2
	dataStartWord := (firstDataRecord-1)*(recordSize/8) + 1

	// Assign array addresses.
	addrs := make([][2]int, len(b.segs))
	next := dataStartWord
	for i, s := range b.segs {
		addrs[i] = [2]int{next, next + len(s.array) - 1}
		next += len(s.array)
	}
	totalWords := next - 1
	totalBytes := ((totalWords*8 + recordSize - 1) / recordSize) * recordSize
	out := make([]byte, totalBytes)

	// File record.
	copy(out[0:8], b.magic)
	b.putU32(out[8:], uint32(b.nd))
	b.putU32(out[12:], uint32(b.ni))
	copy(out[16:76], pad(b.ifname, 60))
	b.putU32(out[76:], uint32(fward))
	b.putU32(out[80:], uint32(fward))
	b.putU32(out[84:], uint32(next))
	if b.order == binary.LittleEndian {
		copy(out[88:96], "LTL-IEEE")
	} else {
		copy(out[88:96], "BIG-IEEE")
	}
	copy(out[699:], ftpstr)

	// Comment area: NUL line separators, EOT terminator.
	if commentRecords > 0 {
		off := recordSize
		for _, c := range []byte(b.comment) {
			if c == '\n' {
				out[off] = 0x00
			} else {
				out[off] = c
			}
			off++
		}
		out[off] = 0x04
	}

	// Summary record.
	sumBase := (fward - 1) * recordSize
	b.putF64(out[sumBase:], 0)                       // NEXT
	b.putF64(out[sumBase+8:], 0)                     // PREV
	b.putF64(out[sumBase+16:], float64(len(b.segs))) // NSUM
	for i, s := range b.segs {
		off := sumBase + 24 + i*summarySize*8
		for j, d := range s.doubles {
			b.putF64(out[off+j*8:], d)
		}
		ints := make([]int32, 0, b.ni)
		ints = append(ints, s.ints...)
		for len(ints) < b.ni-2 {
			ints = append(ints, 0)
		}
		ints = append(ints, int32(addrs[i][0]), int32(addrs[i][1]))
		intOff := off + b.nd*8
		for j, v := range ints {
			b.putU32(out[intOff+j*4:], uint32(v))
		}
	}

	// Name record.
	nameBase := fward * recordSize
	nc := 8 * summarySize
	for i, s := range b.segs {
		copy(out[nameBase+i*nc:nameBase+(i+1)*nc], pad(s.name, nc))
	}

	// Element data.
	for i, s := range b.segs {
		off := (addrs[i][0] - 1) * 8
		for j, d := range s.array {
			b.putF64(out[off+j*8:], d)
		}
	}
	return out
}

func (b *Builder) putU32(dst []byte, v uint32) {
	b.order.PutUint32(dst, v)
}

func (b *Builder) putF64(dst []byte, v float64) {
	b.order.PutUint64(dst, math.Float64bits(v))
}

func pad(s string, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = ' '
	}
	copy(out, s)
	return out
}

func flatten(records [][]float64) []float64 {
	var out []float64
	for _, r := range records {
		out = append(out, r...)
	}
	return out
}
