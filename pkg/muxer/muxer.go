// Package muxer assembles raw H.264 Annex-B streams into playable
// unfragmented MP4 containers.
package muxer

import (
	"fmt"
	"io"
	"math"

	"remux/pkg/h264"
	"remux/pkg/mp4"
	"remux/pkg/mp4/bitio"
)

const videoTrackID = 1

// Strategy selects how the finalized moov box is placed in the container.
type Strategy int

const (
	// StrategyTrailer streams samples right after the file type box
	// and appends the moov at the end, then seeks back to patch the
	// mdat size. The moov can grow without bound.
	StrategyTrailer Strategy = iota

	// StrategyPlaceholder reserves a fixed region for the moov
	// between the file type box and the media data, and backpatches
	// it at finalize time. The moov appears before the media data,
	// but must fit the reservation.
	StrategyPlaceholder
)

// moovReserveSize is the region reserved for moov plus free padding by
// StrategyPlaceholder, not counting the trailing mdat header.
const moovReserveSize = 16 * 1024

// Options for a Muxer beyond the track configuration.
type Options struct {
	Strategy Strategy

	// Mvex appends an empty movie extends box to the moov,
	// marking the container as extendable with fragments.
	Mvex bool
}

// Muxer writes a single-track unfragmented MP4 to an io.WriteSeeker.
//
// Slice NALUs become one sample each and are flushed immediately.
// Parameter set NALUs update the cached SPS and PPS, last write wins.
// Other NALU types are skipped. Finalize must be called exactly once
// after the last NALU.
type Muxer struct {
	file io.WriteSeeker
	w    *bitio.Writer
	cfg  TrackConfig
	opts Options

	sps []byte
	pps []byte

	pos         uint64
	mdatOffset  uint64
	moovOffset  uint64
	firstSample uint64

	stsz []uint32
	stss []uint32
}

// NewMuxer writes the container preamble to file and returns a muxer
// ready to accept NALUs.
func NewMuxer(file io.WriteSeeker, cfg TrackConfig, opts Options) (*Muxer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	m := &Muxer{
		file: file,
		w:    bitio.NewWriter(file),
		cfg:  cfg,
		opts: opts,
	}

	if err := m.writePreamble(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Muxer) writePreamble() error {
	ftyp := &mp4.Ftyp{
		MajorBrand:   [4]byte{'i', 's', 'o', '4'},
		MinorVersion: 512,
		CompatibleBrands: []mp4.CompatibleBrandElem{
			{CompatibleBrand: [4]byte{'i', 's', 'o', '4'}},
		},
	}
	n, err := mp4.WriteSingleBox(m.w, ftyp)
	if err != nil {
		return fmt.Errorf("write ftyp: %w", err)
	}
	m.pos = uint64(n)

	switch m.opts.Strategy {
	case StrategyTrailer:
		m.mdatOffset = m.pos
		n, err = mp4.WriteSingleBox(m.w, &mp4.Mdat{})
		if err != nil {
			return fmt.Errorf("write mdat: %w", err)
		}
		m.pos += uint64(n)

	case StrategyPlaceholder:
		// Skip over the reservation. The moov, the free padding and
		// the mdat header are written into it at finalize time.
		m.moovOffset = m.pos
		m.mdatOffset = m.pos + moovReserveSize
		m.pos = m.mdatOffset + 8
		if _, err := m.file.Seek(int64(m.pos), io.SeekStart); err != nil {
			return fmt.Errorf("seek past reservation: %w", err)
		}
	}
	return nil
}

// WriteAnnexB segments buf and writes every NALU in order.
func (m *Muxer) WriteAnnexB(buf []byte) error {
	nalus, err := h264.AnnexBUnmarshal(buf)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedStream, err)
	}
	for _, nalu := range nalus {
		if err := m.WriteNALU(nalu); err != nil {
			return err
		}
	}
	return nil
}

// WriteNALU accepts a single NALU including its header byte.
func (m *Muxer) WriteNALU(nalu []byte) error {
	if len(nalu) == 0 {
		return fmt.Errorf("%w: %w", ErrMalformedStream, h264.ErrNALUEmpty)
	}
	if len(nalu) > h264.MaxNALUSize {
		return fmt.Errorf("%w: %w", ErrMalformedStream,
			h264.NALUTooBigError{NALUSize: len(nalu)})
	}

	switch h264.TypeOf(nalu) {
	case h264.NALUTypeSPS:
		if len(nalu) < 4 {
			return fmt.Errorf("%w: sps shorter than 4 bytes", ErrMalformedStream)
		}
		m.sps = append([]byte(nil), nalu...)

	case h264.NALUTypePPS:
		m.pps = append([]byte(nil), nalu...)

	case h264.NALUTypeIDR:
		if m.sps == nil || m.pps == nil {
			return fmt.Errorf("idr before parameter sets: %w", ErrMissingParameterSets)
		}
		return m.writeSample(nalu, true)

	case h264.NALUTypeNonIDR:
		return m.writeSample(nalu, false)
	}
	return nil
}

// writeSample flushes one slice NALU as a length-prefixed sample.
func (m *Muxer) writeSample(nalu []byte, sync bool) error {
	if len(m.stsz) == 0 {
		m.firstSample = m.pos
	}

	sampleSize := uint32(4 + len(nalu))
	m.w.TryWriteUint32(uint32(len(nalu)))
	m.w.TryWrite(nalu)
	if m.w.TryError != nil {
		return fmt.Errorf("write sample: %w", m.w.TryError)
	}

	m.pos += uint64(sampleSize)
	m.stsz = append(m.stsz, sampleSize)
	if sync {
		m.stss = append(m.stss, uint32(len(m.stsz)))
	}
	return nil
}

// SampleCount returns the number of samples written so far.
func (m *Muxer) SampleCount() int {
	return len(m.stsz)
}

// Finalize writes the movie metadata and completes the container.
func (m *Muxer) Finalize() error {
	if len(m.stsz) == 0 {
		return ErrNoSamples
	}
	if m.sps == nil || m.pps == nil {
		return ErrMissingParameterSets
	}

	moov := m.generateMoov()

	switch m.opts.Strategy {
	case StrategyTrailer:
		return m.finalizeTrailer(moov)
	case StrategyPlaceholder:
		return m.finalizePlaceholder(moov)
	}
	return fmt.Errorf("unknown strategy: %d", m.opts.Strategy)
}

func (m *Muxer) finalizeTrailer(moov mp4.Boxes) error {
	if err := moov.Marshal(m.w); err != nil {
		return fmt.Errorf("write moov: %w", err)
	}

	// Seek to mdat offset and update size.
	mdatSize := m.pos - m.mdatOffset
	if mdatSize > math.MaxUint32 {
		return fmt.Errorf("mdat size (%d) overflows 32 bits", mdatSize)
	}
	if _, err := m.file.Seek(int64(m.mdatOffset), io.SeekStart); err != nil {
		return fmt.Errorf("seek to mdat: %w", err)
	}
	if err := m.w.WriteUint32(uint32(mdatSize)); err != nil {
		return fmt.Errorf("patch mdat size: %w", err)
	}
	return nil
}

func (m *Muxer) finalizePlaceholder(moov mp4.Boxes) error {
	moovSize := moov.Size()

	// The reservation must hold the moov plus a free box of at
	// least 8 bytes.
	if moovSize > moovReserveSize-8 {
		return MoovTooLargeError{MoovSize: moovSize, Reserved: moovReserveSize}
	}

	if _, err := m.file.Seek(int64(m.moovOffset), io.SeekStart); err != nil {
		return fmt.Errorf("seek to reservation: %w", err)
	}
	if err := moov.Marshal(m.w); err != nil {
		return fmt.Errorf("write moov: %w", err)
	}

	free := &mp4.Free{PadSize: moovReserveSize - moovSize - 8}
	if _, err := mp4.WriteSingleBox(m.w, free); err != nil {
		return fmt.Errorf("write free: %w", err)
	}

	mdatSize := m.pos - m.mdatOffset
	if mdatSize > math.MaxUint32 {
		return fmt.Errorf("mdat size (%d) overflows 32 bits", mdatSize)
	}
	m.w.TryWriteUint32(uint32(mdatSize))
	m.w.TryWrite([]byte{'m', 'd', 'a', 't'})
	if m.w.TryError != nil {
		return fmt.Errorf("write mdat header: %w", m.w.TryError)
	}
	return nil
}

func (m *Muxer) generateMoov() mp4.Boxes {
	/*
	   moov
	   - mvhd
	   - trak
	   - mvex (optional)
	*/
	duration := uint32(len(m.stsz)) * m.cfg.FrameDuration()

	moov := mp4.Boxes{
		Box: &mp4.Moov{},
		Children: []mp4.Boxes{
			{Box: &mp4.Mvhd{
				Timescale:   m.cfg.Timescale,
				DurationV0:  duration,
				Rate:        65536,
				Volume:      256,
				Matrix:      [9]int32{0x00010000, 0, 0, 0, 0x00010000, 0, 0, 0, 0x40000000},
				NextTrackID: videoTrackID + 1,
			}},
			m.generateTrak(duration),
		},
	}

	if m.opts.Mvex {
		moov.Children = append(moov.Children, mp4.Boxes{
			Box: &mp4.Mvex{},
			Children: []mp4.Boxes{
				{Box: &mp4.Trex{
					TrackID:                       videoTrackID,
					DefaultSampleDescriptionIndex: 1,
				}},
			},
		})
	}
	return moov
}

func (m *Muxer) generateTrak(duration uint32) mp4.Boxes {
	/*
	   trak
	   - tkhd
	   - mdia
	     - mdhd
	     - hdlr
	     - minf
	*/
	return mp4.Boxes{
		Box: &mp4.Trak{},
		Children: []mp4.Boxes{
			{Box: &mp4.Tkhd{
				FullBox: mp4.FullBox{
					Flags: [3]byte{0, 0, 3},
				},
				TrackID:    videoTrackID,
				DurationV0: duration,
				Width:      uint32(m.cfg.Width) * 65536,
				Height:     uint32(m.cfg.Height) * 65536,
				Matrix:     [9]int32{0x00010000, 0, 0, 0, 0x00010000, 0, 0, 0, 0x40000000},
			}},
			{
				Box: &mp4.Mdia{},
				Children: []mp4.Boxes{
					{Box: &mp4.Mdhd{
						Timescale:  m.cfg.Timescale,
						DurationV0: duration,
						Language:   [3]byte{'u', 'n', 'd'},
					}},
					{Box: &mp4.Hdlr{
						HandlerType: [4]byte{'v', 'i', 'd', 'e'},
						Name:        "VideoHandler",
					}},
					m.generateMinf(),
				},
			},
		},
	}
}

func (m *Muxer) generateMinf() mp4.Boxes {
	/*
	   minf
	   - vmhd
	   - dinf
	     - dref
	       - url
	   - stbl
	     - stsd
	       - avc1
	         - avcC
	     - stts
	     - stss
	     - stsc
	     - stsz
	     - stco
	*/
	stbl := mp4.Boxes{
		Box: &mp4.Stbl{},
		Children: []mp4.Boxes{
			{
				Box: &mp4.Stsd{EntryCount: 1},
				Children: []mp4.Boxes{
					{
						Box: &mp4.Avc1{
							SampleEntry: mp4.SampleEntry{
								DataReferenceIndex: 1,
							},
							Width:           uint16(m.cfg.Width),
							Height:          uint16(m.cfg.Height),
							Horizresolution: 4718592,
							Vertresolution:  4718592,
							FrameCount:      1,
							Depth:           24,
							PreDefined3:     -1,
						},
						Children: []mp4.Boxes{
							{Box: &mp4.AvcC{
								ConfigurationVersion: 1,
								Profile:              m.sps[1],
								ProfileCompatibility: m.sps[2],
								Level:                m.sps[3],
								LengthSizeMinusOne:   3,
								SequenceParameterSets: []mp4.AVCParameterSet{
									{NALUnit: m.sps},
								},
								PictureParameterSets: []mp4.AVCParameterSet{
									{NALUnit: m.pps},
								},
							}},
						},
					},
				},
			},
			{Box: &mp4.Stts{
				Entries: []mp4.SttsEntry{{
					SampleCount: uint32(len(m.stsz)),
					SampleDelta: m.cfg.FrameDuration(),
				}},
			}},
			{Box: &mp4.Stss{
				SampleNumbers: m.stss,
			}},
			{Box: &mp4.Stsc{
				Entries: []mp4.StscEntry{{
					FirstChunk:             1,
					SamplesPerChunk:        uint32(len(m.stsz)),
					SampleDescriptionIndex: 1,
				}},
			}},
			{Box: &mp4.Stsz{
				EntrySizes: m.stsz,
			}},
			m.generateChunkOffsets(),
		},
	}

	return mp4.Boxes{
		Box: &mp4.Minf{},
		Children: []mp4.Boxes{
			{Box: &mp4.Vmhd{}},
			{
				Box: &mp4.Dinf{},
				Children: []mp4.Boxes{
					{
						Box: &mp4.Dref{EntryCount: 1},
						Children: []mp4.Boxes{
							{Box: &mp4.Url{
								FullBox: mp4.FullBox{Flags: [3]byte{0, 0, 1}},
							}},
						},
					},
				},
			},
			stbl,
		},
	}
}

// generateChunkOffsets declares the single chunk holding all samples.
// The offset of the first sample is the chunk offset.
func (m *Muxer) generateChunkOffsets() mp4.Boxes {
	if m.firstSample > math.MaxUint32 {
		return mp4.Boxes{Box: &mp4.Co64{
			ChunkOffsets: []uint64{m.firstSample},
		}}
	}
	return mp4.Boxes{Box: &mp4.Stco{
		ChunkOffsets: []uint32{uint32(m.firstSample)},
	}}
}
