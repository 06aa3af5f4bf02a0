package muxer

import (
	"errors"
	"fmt"
)

// ErrMissingParameterSets indicates that an IDR sample or the codec
// configuration was requested before both an SPS and a PPS were seen.
var ErrMissingParameterSets = errors.New("missing SPS or PPS")

// ErrNoSamples indicates that Finalize was called before any slice
// NALU was written.
var ErrNoSamples = errors.New("no samples")

// ErrMalformedStream indicates that the input could not be parsed as
// an Annex-B H.264 stream. The underlying parse error is wrapped.
var ErrMalformedStream = errors.New("malformed stream")

// MoovTooLargeError .
type MoovTooLargeError struct {
	MoovSize int
	Reserved int
}

func (e MoovTooLargeError) Error() string {
	return fmt.Sprintf("moov size (%d) does not fit the reserved region (%d)",
		e.MoovSize, e.Reserved)
}
