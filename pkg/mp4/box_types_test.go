package mp4

import (
	"bytes"
	"testing"

	"remux/pkg/mp4/bitio"

	"github.com/stretchr/testify/require"
)

func TestBoxTypes(t *testing.T) { //nolint:funlen
	testCases := []struct {
		name string
		src  ImmutableBox
		bin  []byte
	}{
		{
			name: "ftyp",
			src: &Ftyp{
				MajorBrand:   [4]byte{'i', 's', 'o', '4'},
				MinorVersion: 512,
				CompatibleBrands: []CompatibleBrandElem{
					{CompatibleBrand: [4]byte{'i', 's', 'o', '4'}},
				},
			},
			bin: []byte{
				'i', 's', 'o', '4', // major brand
				0x00, 0x00, 0x02, 0x00, // minor version
				'i', 's', 'o', '4', // compatible brand
			},
		},
		{
			name: "free",
			src:  &Free{PadSize: 4},
			bin: []byte{
				0x00, 0x00, 0x00, 0x00,
			},
		},
		{
			name: "mdat",
			src:  &Mdat{Data: []byte{0x11, 0x22, 0x33}},
			bin: []byte{
				0x11, 0x22, 0x33,
			},
		},
		{
			name: "mvhd",
			src: &Mvhd{
				Timescale:   90000,
				DurationV0:  3000,
				Rate:        65536,
				Volume:      256,
				Matrix:      [9]int32{0x00010000, 0, 0, 0, 0x00010000, 0, 0, 0, 0x40000000},
				NextTrackID: 2,
			},
			bin: []byte{
				0,                // version
				0x00, 0x00, 0x00, // flags
				0x00, 0x00, 0x00, 0x00, // creation time
				0x00, 0x00, 0x00, 0x00, // modification time
				0x00, 0x01, 0x5f, 0x90, // timescale
				0x00, 0x00, 0x0b, 0xb8, // duration
				0x00, 0x01, 0x00, 0x00, // rate
				0x01, 0x00, // volume
				0x00, 0x00, // reserved
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // reserved
				0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // matrix
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
				0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
				0x40, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // pre-defined
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x02, // next track ID
			},
		},
		{
			name: "tkhd",
			src: &Tkhd{
				FullBox:    FullBox{Flags: [3]byte{0, 0, 3}},
				TrackID:    1,
				DurationV0: 3000,
				Matrix:     [9]int32{0x00010000, 0, 0, 0, 0x00010000, 0, 0, 0, 0x40000000},
				Width:      640 * 65536,
				Height:     480 * 65536,
			},
			bin: []byte{
				0,                // version
				0x00, 0x00, 0x03, // flags
				0x00, 0x00, 0x00, 0x00, // creation time
				0x00, 0x00, 0x00, 0x00, // modification time
				0x00, 0x00, 0x00, 0x01, // track ID
				0x00, 0x00, 0x00, 0x00, // reserved
				0x00, 0x00, 0x0b, 0xb8, // duration
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // reserved
				0x00, 0x00, // layer
				0x00, 0x00, // alternate group
				0x00, 0x00, // volume
				0x00, 0x00, // reserved
				0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // matrix
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
				0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
				0x40, 0x00, 0x00, 0x00,
				0x02, 0x80, 0x00, 0x00, // width
				0x01, 0xe0, 0x00, 0x00, // height
			},
		},
		{
			name: "mdhd",
			src: &Mdhd{
				Timescale:  90000,
				DurationV0: 3000,
				Language:   [3]byte{'u', 'n', 'd'},
			},
			bin: []byte{
				0,                // version
				0x00, 0x00, 0x00, // flags
				0x00, 0x00, 0x00, 0x00, // creation time
				0x00, 0x00, 0x00, 0x00, // modification time
				0x00, 0x01, 0x5f, 0x90, // timescale
				0x00, 0x00, 0x0b, 0xb8, // duration
				0x55, 0xc4, // language ("und")
				0x00, 0x00, // pre-defined
			},
		},
		{
			name: "hdlr",
			src: &Hdlr{
				HandlerType: [4]byte{'v', 'i', 'd', 'e'},
				Name:        "VideoHandler",
			},
			bin: []byte{
				0,                // version
				0x00, 0x00, 0x00, // flags
				0x00, 0x00, 0x00, 0x00, // pre-defined
				'v', 'i', 'd', 'e', // handler type
				0x00, 0x00, 0x00, 0x00, // reserved
				0x00, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x00,
				'V', 'i', 'd', 'e', 'o', 'H', 'a', 'n', 'd', 'l', 'e', 'r', 0x00,
			},
		},
		{
			name: "vmhd",
			src:  &Vmhd{},
			bin: []byte{
				0,                // version
				0x00, 0x00, 0x00, // flags
				0x00, 0x00, // graphics mode
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // opcolor
			},
		},
		{
			name: "dref",
			src:  &Dref{EntryCount: 1},
			bin: []byte{
				0,                // version
				0x00, 0x00, 0x00, // flags
				0x00, 0x00, 0x00, 0x01, // entry count
			},
		},
		{
			name: "url",
			src: &Url{
				FullBox: FullBox{Flags: [3]byte{0, 0, 1}},
			},
			bin: []byte{
				0,                // version
				0x00, 0x00, 0x01, // flags (self contained)
			},
		},
		{
			name: "stsd",
			src:  &Stsd{EntryCount: 1},
			bin: []byte{
				0,                // version
				0x00, 0x00, 0x00, // flags
				0x00, 0x00, 0x00, 0x01, // entry count
			},
		},
		{
			name: "avc1",
			src: &Avc1{
				SampleEntry: SampleEntry{
					DataReferenceIndex: 1,
				},
				Width:           640,
				Height:          480,
				Horizresolution: 4718592,
				Vertresolution:  4718592,
				FrameCount:      1,
				Depth:           24,
				PreDefined3:     -1,
			},
			bin: []byte{
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // reserved
				0x00, 0x01, // data reference index
				0x00, 0x00, // pre-defined
				0x00, 0x00, // reserved
				0x00, 0x00, 0x00, 0x00, // pre-defined
				0x00, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x00,
				0x02, 0x80, // width
				0x01, 0xe0, // height
				0x00, 0x48, 0x00, 0x00, // horizresolution
				0x00, 0x48, 0x00, 0x00, // vertresolution
				0x00, 0x00, 0x00, 0x00, // reserved
				0x00, 0x01, // frame count
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // compressorname
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
				0x00, 0x18, // depth
				0xff, 0xff, // pre-defined
			},
		},
		{
			name: "avcC",
			src: &AvcC{
				ConfigurationVersion: 1,
				Profile:              0x42,
				ProfileCompatibility: 0x00,
				Level:                0x1e,
				LengthSizeMinusOne:   3,
				SequenceParameterSets: []AVCParameterSet{
					{NALUnit: []byte{0x67, 0x42, 0x00, 0x1e}},
				},
				PictureParameterSets: []AVCParameterSet{
					{NALUnit: []byte{0x68, 0xee, 0x3c, 0x80}},
				},
			},
			bin: []byte{
				0x01,       // configuration version
				0x42,       // profile
				0x00,       // profile compatibility
				0x1e,       // level
				0xff,       // reserved + length size minus one
				0xe1,       // reserved + number of SPS
				0x00, 0x04, // SPS length
				0x67, 0x42, 0x00, 0x1e, // SPS
				0x01,       // number of PPS
				0x00, 0x04, // PPS length
				0x68, 0xee, 0x3c, 0x80, // PPS
			},
		},
		{
			name: "stts",
			src: &Stts{
				Entries: []SttsEntry{
					{SampleCount: 2, SampleDelta: 3000},
				},
			},
			bin: []byte{
				0,                // version
				0x00, 0x00, 0x00, // flags
				0x00, 0x00, 0x00, 0x01, // entry count
				0x00, 0x00, 0x00, 0x02, // sample count
				0x00, 0x00, 0x0b, 0xb8, // sample delta
			},
		},
		{
			name: "stss",
			src: &Stss{
				SampleNumbers: []uint32{1, 5},
			},
			bin: []byte{
				0,                // version
				0x00, 0x00, 0x00, // flags
				0x00, 0x00, 0x00, 0x02, // entry count
				0x00, 0x00, 0x00, 0x01, // sample number
				0x00, 0x00, 0x00, 0x05, // sample number
			},
		},
		{
			name: "stsc",
			src: &Stsc{
				Entries: []StscEntry{
					{FirstChunk: 1, SamplesPerChunk: 2, SampleDescriptionIndex: 1},
				},
			},
			bin: []byte{
				0,                // version
				0x00, 0x00, 0x00, // flags
				0x00, 0x00, 0x00, 0x01, // entry count
				0x00, 0x00, 0x00, 0x01, // first chunk
				0x00, 0x00, 0x00, 0x02, // samples per chunk
				0x00, 0x00, 0x00, 0x01, // sample description index
			},
		},
		{
			name: "stsz",
			src: &Stsz{
				EntrySizes: []uint32{100, 200},
			},
			bin: []byte{
				0,                // version
				0x00, 0x00, 0x00, // flags
				0x00, 0x00, 0x00, 0x00, // sample size
				0x00, 0x00, 0x00, 0x02, // sample count
				0x00, 0x00, 0x00, 0x64, // entry size
				0x00, 0x00, 0x00, 0xc8, // entry size
			},
		},
		{
			name: "stco",
			src: &Stco{
				ChunkOffsets: []uint32{48},
			},
			bin: []byte{
				0,                // version
				0x00, 0x00, 0x00, // flags
				0x00, 0x00, 0x00, 0x01, // entry count
				0x00, 0x00, 0x00, 0x30, // chunk offset
			},
		},
		{
			name: "co64",
			src: &Co64{
				ChunkOffsets: []uint64{0x0102030405060708},
			},
			bin: []byte{
				0,                // version
				0x00, 0x00, 0x00, // flags
				0x00, 0x00, 0x00, 0x01, // entry count
				0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, // chunk offset
			},
		},
		{
			name: "trex",
			src: &Trex{
				TrackID:                       1,
				DefaultSampleDescriptionIndex: 1,
			},
			bin: []byte{
				0,                // version
				0x00, 0x00, 0x00, // flags
				0x00, 0x00, 0x00, 0x01, // track ID
				0x00, 0x00, 0x00, 0x01, // default sample description index
				0x00, 0x00, 0x00, 0x00, // default sample duration
				0x00, 0x00, 0x00, 0x00, // default sample size
				0x00, 0x00, 0x00, 0x00, // default sample flags
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			buf := bytes.NewBuffer(make([]byte, 0, tc.src.Size()))

			w := bitio.NewWriter(buf)
			require.NoError(t, tc.src.Marshal(w))

			require.Equal(t, tc.src.Size(), buf.Len())
			require.Equal(t, tc.bin, buf.Bytes())
		})
	}
}
