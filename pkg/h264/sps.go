package h264

import (
	"bytes"
	"errors"

	"github.com/icza/bitio"
)

// SPS errors.
var (
	ErrSPSBufferTooShort = errors.New("buffer too short")
	ErrSPSWrongType      = errors.New("not a SPS")
)

func readGolombUnsigned(br *bitio.Reader) (uint32, error) {
	leadingZeroBits := uint32(0)

	for {
		b, err := br.ReadBits(1)
		if err != nil {
			return 0, err
		}

		if b != 0 {
			break
		}

		leadingZeroBits++
	}

	codeNum := uint32(0)

	for n := leadingZeroBits; n > 0; n-- {
		b, err := br.ReadBits(1)
		if err != nil {
			return 0, err
		}

		codeNum |= uint32(b) << (n - 1)
	}

	return (1 << leadingZeroBits) - 1 + codeNum, nil
}

func readGolombSigned(br *bitio.Reader) (int32, error) {
	v, err := readGolombUnsigned(br)
	if err != nil {
		return 0, err
	}
	vi := int32(v)

	if (vi & 0x01) != 0 {
		return (vi + 1) / 2, nil
	}

	return -vi / 2, nil
}

func readFlag(br *bitio.Reader) (bool, error) {
	tmp, err := br.ReadBits(1)
	if err != nil {
		return false, err
	}

	return (tmp == 1), nil
}

func skipScalingList(br *bitio.Reader, size int) error {
	lastScale := int32(8)
	nextScale := int32(8)

	for j := 0; j < size; j++ {
		if nextScale != 0 {
			deltaScale, err := readGolombSigned(br)
			if err != nil {
				return err
			}
			nextScale = (lastScale + deltaScale + 256) % 256
		}
		if nextScale != 0 {
			lastScale = nextScale
		}
	}
	return nil
}

// EmulationPreventionRemove removes the emulation prevention bytes
// (00 00 03 -> 00 00) from a NALU payload.
func EmulationPreventionRemove(nalu []byte) []byte {
	ret := make([]byte, 0, len(nalu))
	zeros := 0

	for _, b := range nalu {
		if b == 0x03 && zeros == 2 {
			zeros = 0
			continue
		}
		ret = append(ret, b)
		if b == 0 {
			zeros++
		} else {
			zeros = 0
		}
	}

	return ret
}

// SpsCropping is the frame cropping of a SPS.
type SpsCropping struct {
	LeftOffset   uint32
	RightOffset  uint32
	TopOffset    uint32
	BottomOffset uint32
}

func (c *SpsCropping) unmarshal(br *bitio.Reader) error {
	var err error
	c.LeftOffset, err = readGolombUnsigned(br)
	if err != nil {
		return err
	}

	c.RightOffset, err = readGolombUnsigned(br)
	if err != nil {
		return err
	}

	c.TopOffset, err = readGolombUnsigned(br)
	if err != nil {
		return err
	}

	c.BottomOffset, err = readGolombUnsigned(br)
	return err
}

// SPS is a H264 sequence parameter set, parsed up to the frame
// geometry. VUI parameters are not decoded.
type SPS struct {
	ProfileIdc                uint8
	LevelIdc                  uint8
	ID                        uint32
	ChromaFormatIdc           uint32
	SeparateColourPlaneFlag   bool
	Log2MaxFrameNumMinus4     uint32
	PicOrderCntType           uint32
	MaxNumRefFrames           uint32
	PicWidthInMbsMinus1       uint32
	PicHeightInMapUnitsMinus1 uint32
	FrameMbsOnlyFlag          bool
	MbAdaptiveFrameFieldFlag  bool
	Direct8x8InferenceFlag    bool
	FrameCropping             *SpsCropping
}

// Unmarshal decodes a SPS from bytes. The buffer must include
// the NALU header byte.
func (s *SPS) Unmarshal(buf []byte) error { //nolint:funlen
	// ref: ISO/IEC 14496-10:2020

	buf = EmulationPreventionRemove(buf)

	if len(buf) < 4 {
		return ErrSPSBufferTooShort
	}

	if TypeOf(buf) != NALUTypeSPS {
		return ErrSPSWrongType
	}

	s.ProfileIdc = buf[1]
	s.LevelIdc = buf[3]

	br := bitio.NewReader(bytes.NewReader(buf[4:]))

	var err error
	s.ID, err = readGolombUnsigned(br)
	if err != nil {
		return err
	}

	switch s.ProfileIdc {
	case 100, 110, 122, 244, 44, 83, 86, 118, 128, 138, 139, 134, 135:
		s.ChromaFormatIdc, err = readGolombUnsigned(br)
		if err != nil {
			return err
		}

		if s.ChromaFormatIdc == 3 {
			s.SeparateColourPlaneFlag, err = readFlag(br)
			if err != nil {
				return err
			}
		}

		// bit_depth_luma_minus8, bit_depth_chroma_minus8.
		for i := 0; i < 2; i++ {
			_, err = readGolombUnsigned(br)
			if err != nil {
				return err
			}
		}

		// qpprime_y_zero_transform_bypass_flag.
		_, err = readFlag(br)
		if err != nil {
			return err
		}

		seqScalingMatrixPresentFlag, err := readFlag(br)
		if err != nil {
			return err
		}

		if seqScalingMatrixPresentFlag {
			lim := 8
			if s.ChromaFormatIdc == 3 {
				lim = 12
			}
			for i := 0; i < lim; i++ {
				present, err := readFlag(br)
				if err != nil {
					return err
				}
				if !present {
					continue
				}
				size := 16
				if i >= 6 {
					size = 64
				}
				if err := skipScalingList(br, size); err != nil {
					return err
				}
			}
		}

	default:
		s.ChromaFormatIdc = 1
	}

	s.Log2MaxFrameNumMinus4, err = readGolombUnsigned(br)
	if err != nil {
		return err
	}

	s.PicOrderCntType, err = readGolombUnsigned(br)
	if err != nil {
		return err
	}

	switch s.PicOrderCntType {
	case 0:
		// log2_max_pic_order_cnt_lsb_minus4.
		_, err = readGolombUnsigned(br)
		if err != nil {
			return err
		}

	case 1:
		// delta_pic_order_always_zero_flag.
		_, err = readFlag(br)
		if err != nil {
			return err
		}

		// offset_for_non_ref_pic, offset_for_top_to_bottom_field.
		for i := 0; i < 2; i++ {
			_, err = readGolombSigned(br)
			if err != nil {
				return err
			}
		}

		cycle, err := readGolombUnsigned(br)
		if err != nil {
			return err
		}
		for i := uint32(0); i < cycle; i++ {
			_, err = readGolombSigned(br)
			if err != nil {
				return err
			}
		}
	}

	s.MaxNumRefFrames, err = readGolombUnsigned(br)
	if err != nil {
		return err
	}

	// gaps_in_frame_num_value_allowed_flag.
	_, err = readFlag(br)
	if err != nil {
		return err
	}

	s.PicWidthInMbsMinus1, err = readGolombUnsigned(br)
	if err != nil {
		return err
	}

	s.PicHeightInMapUnitsMinus1, err = readGolombUnsigned(br)
	if err != nil {
		return err
	}

	s.FrameMbsOnlyFlag, err = readFlag(br)
	if err != nil {
		return err
	}

	if !s.FrameMbsOnlyFlag {
		s.MbAdaptiveFrameFieldFlag, err = readFlag(br)
		if err != nil {
			return err
		}
	}

	s.Direct8x8InferenceFlag, err = readFlag(br)
	if err != nil {
		return err
	}

	frameCroppingFlag, err := readFlag(br)
	if err != nil {
		return err
	}

	if frameCroppingFlag {
		s.FrameCropping = &SpsCropping{}
		if err := s.FrameCropping.unmarshal(br); err != nil {
			return err
		}
	} else {
		s.FrameCropping = nil
	}

	return nil
}

// Width returns the video width.
func (s SPS) Width() int {
	if s.FrameCropping != nil {
		return int(((s.PicWidthInMbsMinus1 + 1) * 16) -
			(s.FrameCropping.LeftOffset+s.FrameCropping.RightOffset)*2)
	}

	return int((s.PicWidthInMbsMinus1 + 1) * 16)
}

// Height returns the video height.
func (s SPS) Height() int {
	f := uint32(0)
	if s.FrameMbsOnlyFlag {
		f = 1
	}

	if s.FrameCropping != nil {
		return int(((2-f)*(s.PicHeightInMapUnitsMinus1+1)*16) -
			(s.FrameCropping.TopOffset+s.FrameCropping.BottomOffset)*2)
	}

	return int((2 - f) * (s.PicHeightInMapUnitsMinus1 + 1) * 16)
}
