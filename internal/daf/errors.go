package daf

import "errors"

// ErrMalformedHeader is returned when the file record's magic, byte
// order tag, or summary layout does not match a supported kernel
// family.
var ErrMalformedHeader = errors.New("malformed kernel header")

// ErrTruncatedRecord is returned when a record pointer or array
// address refers past the end of the kernel buffer.
var ErrTruncatedRecord = errors.New("truncated kernel record")

// ErrUnsupportedDataType is returned when a segment carries a data
// type code this engine does not evaluate.
var ErrUnsupportedDataType = errors.New("unsupported segment data type")
