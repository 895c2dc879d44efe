package pcmtest

// Layout selects how channel samples are placed in the DMA area.
type Layout int

const (
	// LayoutInterleaved stores samples as C0, C1, C2, C0, C1, C2, ...
	LayoutInterleaved Layout = iota
	// LayoutPlanar gives every channel a contiguous block: C0, ..., C0, C1, ..., C1, C2, ...
	LayoutPlanar
)

func (l Layout) String() string {
	switch l {
	case LayoutInterleaved:
		return "interleaved"
	case LayoutPlanar:
		return "non-interleaved"
	default:
		return "unknown"
	}
}

// LayoutFromAccess returns the layout of a PCM access type.
func LayoutFromAccess(access PcmAccess) Layout {
	switch access {
	case SNDRV_PCM_ACCESS_RW_NONINTERLEAVED, SNDRV_PCM_ACCESS_MMAP_NONINTERLEAVED:
		return LayoutPlanar
	default:
		return LayoutInterleaved
	}
}

// InterleavedPhase returns the pattern phase of the byte at stream offset total in an interleaved
// stream. This is the count of bytes already written to the current channel: samples written for
// the channel times the sample width, plus the position inside the current sample.
func InterleavedPhase(total uint64, channels, sampleBytes int) uint64 {
	c, s := uint64(channels), uint64(sampleBytes)

	return total/c/s*s + total%s
}

// PlanarOffset returns the DMA offset of the byte at buffer position pos that belongs to channel lane,
// when every channel owns a block of chanBlock bytes.
func PlanarOffset(pos, channels, lane, chanBlock int) int {
	return pos/channels + chanBlock*lane
}

// PlanarPhase returns the pattern phase of the byte at stream offset total in a non-interleaved stream.
func PlanarPhase(total uint64, channels int) uint64 {
	return total / uint64(channels)
}

// addressMapper translates the hardware pointer into DMA offsets and pattern phases.
type addressMapper interface {
	offset(pos, lane int) int
	phase(total uint64) uint64
}

type interleavedMapper struct {
	channels    int
	sampleBytes int
}

func (m interleavedMapper) offset(pos, _ int) int { return pos }

func (m interleavedMapper) phase(total uint64) uint64 {
	return InterleavedPhase(total, m.channels, m.sampleBytes)
}

type planarMapper struct {
	channels  int
	chanBlock int
}

func (m planarMapper) offset(pos, lane int) int {
	return PlanarOffset(pos, m.channels, lane, m.chanBlock)
}

func (m planarMapper) phase(total uint64) uint64 {
	return PlanarPhase(total, m.channels)
}

func newAddressMapper(layout Layout, channels, sampleBytes, bufferSize int) addressMapper {
	if layout == LayoutPlanar {
		return planarMapper{channels: channels, chanBlock: bufferSize / channels}
	}

	return interleavedMapper{channels: channels, sampleBytes: sampleBytes}
}
