package h264

// TypeStats aggregates counts and byte totals per NALU type.
type TypeStats struct {
	Count int
	Bytes int
}

// StreamStats summarizes the NALU composition of a stream.
type StreamStats struct {
	Types map[NALUType]TypeStats
}

// NewStreamStats returns empty stats.
func NewStreamStats() *StreamStats {
	return &StreamStats{Types: map[NALUType]TypeStats{}}
}

// Add records a NALU. The NALU must include its header byte.
func (s *StreamStats) Add(nalu []byte) {
	if len(nalu) == 0 {
		return
	}
	typ := TypeOf(nalu)
	st := s.Types[typ]
	st.Count++
	st.Bytes += len(nalu)
	s.Types[typ] = st
}

// NALUCount returns the total number of recorded NALUs.
func (s *StreamStats) NALUCount() int {
	n := 0
	for _, st := range s.Types {
		n += st.Count
	}
	return n
}
