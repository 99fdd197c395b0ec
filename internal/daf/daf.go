// Package daf reads NAIF Double precision Array File (DAF) kernels:
// SPK position/velocity ephemerides, binary PCK body orientation, and
// CK pointing files.
//
// A DAF is a sequence of 1024-byte records. Record 1 is the file
// record (magic, summary layout, chain pointers); an optional comment
// area follows; summary records then describe the data arrays, each
// paired with a name record. Word addresses are 1-based indices of
// 8-byte doubles within the file.
//
// Parsing builds segment descriptors only. Coefficient arrays stay in
// the raw buffer and are sliced out on first evaluation, so loading a
// many-segment kernel is cheap regardless of how much of it is ever
// queried. Every address is bounds-checked against the buffer before
// use; malformed input yields errors, never panics.
package daf

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"strings"
)

const (
	// RecordSize is the fixed DAF physical record size in bytes.
	RecordSize     = 1024
	wordsPerRecord = RecordSize / 8

	fileRecordMin = RecordSize

	// Byte offsets within the file record.
	offLOCIDW = 0
	offND     = 8
	offNI     = 12
	offLOCIFN = 16
	offFWARD  = 76
	offBWARD  = 80
	offFREE   = 84
	offLOCFMT = 88
)

// Family identifies the kernel family carried by a DAF container.
type Family int

const (
	// FamilySPK holds position/velocity ephemeris segments.
	FamilySPK Family = iota
	// FamilyPCK holds body orientation segments.
	FamilyPCK
	// FamilyCK holds pointing (orientation) segments.
	FamilyCK
)

func (f Family) String() string {
	switch f {
	case FamilySPK:
		return "SPK"
	case FamilyPCK:
		return "PCK"
	case FamilyCK:
		return "CK"
	default:
		return fmt.Sprintf("Family(%d)", int(f))
	}
}

// Kernel is a parsed, read-only DAF container. The raw buffer is
// shared by all segments and never mutated after Parse returns, so a
// Kernel is safe for concurrent readers.
type Kernel struct {
	// Name is the caller-supplied identifier (usually a file name).
	Name string
	// IFName is the internal file name recorded by the producer.
	IFName string
	// Family is the kernel family from the magic word.
	Family Family
	// Segments lists the descriptors in file order.
	Segments []*Segment

	data  []byte
	order binary.ByteOrder
	nd    int
	ni    int
	fward int
}

// Parse validates the file record and walks the summary chain,
// building one descriptor per data array. Segments with unrecognized
// data type codes are kept (so they can be reported) but marked
// unsupported; evaluating them returns ErrUnsupportedDataType.
func Parse(name string, data []byte, logger *slog.Logger) (*Kernel, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("kernel %q: %d-byte buffer: %w", name, len(data), ErrMalformedHeader)
	}
	magic := strings.TrimRight(string(data[offLOCIDW:offLOCIDW+8]), " \x00")
	var family Family
	switch magic {
	case "DAF/SPK":
		family = FamilySPK
	case "DAF/PCK":
		family = FamilyPCK
	case "DAF/CK":
		family = FamilyCK
	default:
		return nil, fmt.Errorf("kernel %q: magic %q: %w", name, magic, ErrMalformedHeader)
	}
	if len(data) < fileRecordMin {
		return nil, fmt.Errorf("kernel %q: %d bytes is smaller than the file record: %w",
			name, len(data), ErrTruncatedRecord)
	}

	var order binary.ByteOrder
	switch fmtTag := string(data[offLOCFMT : offLOCFMT+8]); fmtTag {
	case "LTL-IEEE":
		order = binary.LittleEndian
	case "BIG-IEEE":
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("kernel %q: binary format tag %q: %w", name, fmtTag, ErrMalformedHeader)
	}

	k := &Kernel{
		Name:   name,
		IFName: strings.TrimRight(string(data[offLOCIFN:offLOCIFN+60]), " \x00"),
		Family: family,
		data:   data,
		order:  order,
		nd:     int(int32(order.Uint32(data[offND:]))),
		ni:     int(int32(order.Uint32(data[offNI:]))),
		fward:  int(int32(order.Uint32(data[offFWARD:]))),
	}

	wantNI := 6
	if family == FamilyPCK {
		wantNI = 5
	}
	if k.nd != 2 || k.ni != wantNI {
		return nil, fmt.Errorf("kernel %q: summary layout ND=%d NI=%d, want ND=2 NI=%d: %w",
			name, k.nd, k.ni, wantNI, ErrMalformedHeader)
	}

	if err := k.walkSummaries(logger); err != nil {
		return nil, err
	}
	return k, nil
}

// walkSummaries follows the doubly linked summary record chain from
// FWARD, decoding each packed summary and its array name.
func (k *Kernel) walkSummaries(logger *slog.Logger) error {
	summarySize := k.nd + (k.ni+1)/2 // in doubles
	maxPerRecord := (wordsPerRecord - 3) / summarySize

	rec := k.fward
	for iter := 0; rec != 0; iter++ {
		if iter > len(k.data)/RecordSize {
			return fmt.Errorf("kernel %q: summary chain loops: %w", k.Name, ErrMalformedHeader)
		}
		ctrl, err := k.recordDoubles(rec, 0, 3)
		if err != nil {
			return err
		}
		next := int(ctrl[0])
		nsum := int(ctrl[2])
		if nsum < 0 || nsum > maxPerRecord {
			return fmt.Errorf("kernel %q: summary record %d declares %d summaries (max %d): %w",
				k.Name, rec, nsum, maxPerRecord, ErrMalformedHeader)
		}

		for i := 0; i < nsum; i++ {
			words, err := k.recordDoubles(rec, 3+i*summarySize, summarySize)
			if err != nil {
				return err
			}
			segName, err := k.segmentName(rec+1, i, summarySize)
			if err != nil {
				return err
			}
			seg, err := k.buildSegment(segName, words)
			if err != nil {
				return err
			}
			if seg.Kind == KindUnsupported && logger != nil {
				logger.Warn("skipping segment with unsupported data type",
					"kernel", k.Name, "segment", seg.Name, "type", seg.Type)
			}
			k.Segments = append(k.Segments, seg)
		}
		rec = next
	}
	return nil
}

// buildSegment maps one packed summary onto a descriptor. The double
// components are the coverage bounds; the integer components depend on
// the family.
func (k *Kernel) buildSegment(name string, words []float64) (*Segment, error) {
	ints := k.unpackInts(words[k.nd:])
	seg := &Segment{
		Name:   name,
		Start:  words[0],
		End:    words[1],
		kernel: k,
	}
	switch k.Family {
	case FamilySPK:
		seg.Target = ints[0]
		seg.Center = ints[1]
		seg.Frame = ints[2]
		seg.Type = ints[3]
		seg.initial = ints[4]
		seg.final = ints[5]
		switch seg.Type {
		case 2:
			seg.Kind = KindChebyshevPosition
		case 3:
			seg.Kind = KindChebyshevPosVel
		case 12:
			seg.Kind = KindHermitePosition
		default:
			seg.Kind = KindUnsupported
		}
	case FamilyPCK:
		seg.Target = ints[0]
		seg.Center = ints[1]
		seg.Frame = ints[1]
		seg.Type = ints[2]
		seg.initial = ints[3]
		seg.final = ints[4]
		if seg.Type == 2 {
			seg.Kind = KindChebyshevOrientation
		} else {
			seg.Kind = KindUnsupported
		}
	case FamilyCK:
		seg.Target = ints[0]
		seg.Center = ints[1]
		seg.Frame = ints[1]
		seg.Type = ints[2]
		// ints[3] is the angular-rate flag; our supported type always
		// carries rates.
		seg.initial = ints[4]
		seg.final = ints[5]
		if seg.Type == 5 {
			seg.Kind = KindHermiteOrientation
		} else {
			seg.Kind = KindUnsupported
		}
	}

	if seg.Kind != KindUnsupported {
		if seg.initial < 1 || seg.final < seg.initial || seg.final*8 > len(k.data) {
			return nil, fmt.Errorf("kernel %q segment %q: array words %d..%d exceed %d-byte buffer: %w",
				k.Name, name, seg.initial, seg.final, len(k.data), ErrTruncatedRecord)
		}
		if seg.End < seg.Start {
			return nil, fmt.Errorf("kernel %q segment %q: coverage end %v before start %v: %w",
				k.Name, name, seg.End, seg.Start, ErrMalformedHeader)
		}
	}
	return seg, nil
}

// unpackInts splits packed summary doubles into NI int32 values.
func (k *Kernel) unpackInts(packed []float64) []int {
	out := make([]int, 0, k.ni)
	for _, d := range packed {
		var raw [8]byte
		k.order.PutUint64(raw[:], math.Float64bits(d))
		lo := int(int32(k.order.Uint32(raw[0:4])))
		hi := int(int32(k.order.Uint32(raw[4:8])))
		out = append(out, lo, hi)
	}
	return out[:k.ni]
}

// segmentName reads the i-th name from the name record following a
// summary record.
func (k *Kernel) segmentName(rec, i, summarySize int) (string, error) {
	nc := 8 * summarySize
	start := (rec-1)*RecordSize + i*nc
	if start < 0 || start+nc > len(k.data) {
		return "", fmt.Errorf("kernel %q: name record %d entry %d out of bounds: %w",
			k.Name, rec, i, ErrTruncatedRecord)
	}
	return strings.TrimRight(string(k.data[start:start+nc]), " \x00"), nil
}

// recordDoubles reads count doubles starting at a word offset within a
// physical record.
func (k *Kernel) recordDoubles(rec, wordOff, count int) ([]float64, error) {
	if rec < 1 {
		return nil, fmt.Errorf("kernel %q: record pointer %d: %w", k.Name, rec, ErrMalformedHeader)
	}
	start := (rec-1)*RecordSize + wordOff*8
	end := start + count*8
	if start < 0 || end > len(k.data) {
		return nil, fmt.Errorf("kernel %q: record %d words %d..%d out of bounds: %w",
			k.Name, rec, wordOff, wordOff+count, ErrTruncatedRecord)
	}
	return k.decode(start, count), nil
}

// addressDoubles reads count doubles starting at a 1-based word
// address.
func (k *Kernel) addressDoubles(addr, count int) ([]float64, error) {
	start := (addr - 1) * 8
	end := start + count*8
	if addr < 1 || count < 0 || end > len(k.data) {
		return nil, fmt.Errorf("kernel %q: words %d..%d out of bounds: %w",
			k.Name, addr, addr+count-1, ErrTruncatedRecord)
	}
	return k.decode(start, count), nil
}

func (k *Kernel) decode(byteOff, count int) []float64 {
	out := make([]float64, count)
	for i := range out {
		out[i] = math.Float64frombits(k.order.Uint64(k.data[byteOff+i*8:]))
	}
	return out
}

// Comment extracts the text stored in the reserved records between the
// file record and the first summary record. NAIF writers separate
// lines with NUL and terminate the area with EOT.
func (k *Kernel) Comment() string {
	if k.fward <= 2 {
		return ""
	}
	end := (k.fward - 1) * RecordSize
	if end > len(k.data) {
		end = len(k.data)
	}
	raw := k.data[RecordSize:end]
	var b strings.Builder
	for _, c := range raw {
		switch {
		case c == 0x04:
			return strings.TrimRight(b.String(), "\n")
		case c == 0x00:
			b.WriteByte('\n')
		case c >= 0x20 && c < 0x7f:
			b.WriteByte(c)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
