// Package h264 contains utilities to work with H.264 Annex-B streams.
package h264

// MaxNALUSize is the maximum size of a NALU.
// with a 250 Mbps H264 video, the maximum NALU size is 2.2MB.
const MaxNALUSize = 3 * 1024 * 1024

// NALUType is the type of a NALU.
type NALUType uint8

// NALU types.
const (
	NALUTypeNonIDR                NALUType = 1
	NALUTypeDataPartitionA        NALUType = 2
	NALUTypeDataPartitionB        NALUType = 3
	NALUTypeDataPartitionC        NALUType = 4
	NALUTypeIDR                   NALUType = 5
	NALUTypeSEI                   NALUType = 6
	NALUTypeSPS                   NALUType = 7
	NALUTypePPS                   NALUType = 8
	NALUTypeAccessUnitDelimiter   NALUType = 9
	NALUTypeEndOfSequence         NALUType = 10
	NALUTypeEndOfStream           NALUType = 11
	NALUTypeFillerData            NALUType = 12
	NALUTypeSPSExtension          NALUType = 13
	NALUTypePrefix                NALUType = 14
	NALUTypeSubsetSPS             NALUType = 15
	NALUTypeReserved16            NALUType = 16
	NALUTypeReserved17            NALUType = 17
	NALUTypeReserved18            NALUType = 18
	NALUTypeSliceLayerWithoutPart NALUType = 19
)

var naluTypeLabels = map[NALUType]string{
	NALUTypeNonIDR:                "NonIDR",
	NALUTypeDataPartitionA:        "DataPartitionA",
	NALUTypeDataPartitionB:        "DataPartitionB",
	NALUTypeDataPartitionC:        "DataPartitionC",
	NALUTypeIDR:                   "IDR",
	NALUTypeSEI:                   "SEI",
	NALUTypeSPS:                   "SPS",
	NALUTypePPS:                   "PPS",
	NALUTypeAccessUnitDelimiter:   "AccessUnitDelimiter",
	NALUTypeEndOfSequence:         "EndOfSequence",
	NALUTypeEndOfStream:           "EndOfStream",
	NALUTypeFillerData:            "FillerData",
	NALUTypeSPSExtension:          "SPSExtension",
	NALUTypePrefix:                "Prefix",
	NALUTypeSubsetSPS:             "SubsetSPS",
	NALUTypeSliceLayerWithoutPart: "SliceLayerWithoutPartitioning",
}

// String implements fmt.Stringer.
func (nt NALUType) String() string {
	if l, ok := naluTypeLabels[nt]; ok {
		return l
	}
	return "unknown"
}

// TypeOf returns the type of a NALU. The NALU must include its header byte.
func TypeOf(nalu []byte) NALUType {
	return NALUType(nalu[0] & 0x1F)
}
