package pcmtest

import (
	"fmt"
	"io"
	"math/rand/v2"

	"golang.org/x/sys/unix"
)

// Direction selects the work one tick does on the DMA area.
type Direction int

const (
	// DirectionIdle only moves the hardware pointer.
	DirectionIdle Direction = iota
	// DirectionPlayback checks the DMA area against the pattern.
	DirectionPlayback
	// DirectionCapture fills the DMA area.
	DirectionCapture
)

func (d Direction) String() string {
	switch d {
	case DirectionIdle:
		return "idle"
	case DirectionPlayback:
		return "playback"
	case DirectionCapture:
		return "capture"
	default:
		return "unknown"
	}
}

// PeriodEvent reports that the hardware pointer crossed a period boundary.
type PeriodEvent struct {
	Position   int    // Hardware pointer in bytes after the tick.
	TotalBytes uint64 // Bytes transferred since the iterator was configured.
}

// IterConfig holds the geometry of a running substream.
type IterConfig struct {
	BufferSize   int // DMA area size in bytes.
	PeriodBytes  int
	BytesPerTick int
	Channels     int
	SampleBytes  int
	Layout       Layout
	FillMode     FillMode
}

// BufferIterator moves the simulated hardware pointer through the circular DMA area of one substream.
// It is not safe for concurrent use; the owning substream serializes access.
type BufferIterator struct {
	pattern *Pattern
	rng     io.Reader

	area   []byte
	cfg    IterConfig
	mapper addressMapper
	fill   func()

	bufPos     int    // Position in the DMA area.
	periodPos  int    // Position relative to the current period.
	totalBytes uint64 // Bytes read or written since Configure.
	corrupted  bool   // Playback check result, never cleared.
	configured bool
}

// NewBufferIterator returns an unconfigured iterator using pattern for filling and checking.
func NewBufferIterator(pattern *Pattern) *BufferIterator {
	var seed [32]byte
	for i := 0; i < len(seed); i += 8 {
		v := rand.Uint64()
		for j := range 8 {
			seed[i+j] = byte(v >> (8 * j))
		}
	}

	return &BufferIterator{
		pattern: pattern,
		rng:     rand.NewChaCha8(seed),
	}
}

// Configure binds the iterator to the DMA area and sets the substream geometry. The hardware pointer,
// the period position and the transfer counter start over; a latched corruption is kept.
func (it *BufferIterator) Configure(area []byte, cfg IterConfig) error {
	switch {
	case cfg.BufferSize <= 0 || cfg.BufferSize > len(area):
		return fmt.Errorf("buffer size %d does not fit a %d byte area: %w", cfg.BufferSize, len(area), unix.EINVAL)
	case cfg.PeriodBytes <= 0:
		return fmt.Errorf("invalid period size %d: %w", cfg.PeriodBytes, unix.EINVAL)
	case cfg.BytesPerTick < 0:
		return fmt.Errorf("invalid bytes per tick %d: %w", cfg.BytesPerTick, unix.EINVAL)
	case cfg.Channels <= 0 || cfg.SampleBytes <= 0:
		return fmt.Errorf("invalid frame layout (channels=%d, sample bytes=%d): %w", cfg.Channels, cfg.SampleBytes, unix.EINVAL)
	case cfg.BufferSize%(cfg.Channels*cfg.SampleBytes) != 0:
		return fmt.Errorf("buffer size %d is not a whole number of frames: %w", cfg.BufferSize, unix.EINVAL)
	}

	it.area = area[:cfg.BufferSize]
	it.cfg = cfg
	it.mapper = newAddressMapper(cfg.Layout, cfg.Channels, cfg.SampleBytes, cfg.BufferSize)
	it.bufPos = 0
	it.periodPos = 0
	it.totalBytes = 0
	it.configured = true
	it.SetFillMode(cfg.FillMode)

	return nil
}

// SetFillMode selects how capture ticks fill the DMA area without touching the pointer.
func (it *BufferIterator) SetFillMode(mode FillMode) {
	it.cfg.FillMode = mode

	switch {
	case mode == FillModeRandom && it.cfg.Layout == LayoutPlanar:
		it.fill = it.fillRandomPlanar
	case mode == FillModeRandom:
		it.fill = it.fillRandomInterleaved
	default:
		it.fill = it.fillPattern
	}
}

// Detach drops the DMA area. The iterator does nothing until configured again.
func (it *BufferIterator) Detach() {
	it.area = nil
	it.configured = false
}

// Configured reports whether the iterator is bound to a DMA area.
func (it *BufferIterator) Configured() bool {
	return it.configured
}

// Config returns the current geometry.
func (it *BufferIterator) Config() IterConfig {
	return it.cfg
}

// Advance does the work of one timer tick: it fills or checks one block depending on dir and moves the
// hardware pointer by BytesPerTick. A corrupted playback iterator only moves the pointer. The second
// result is true when a period elapsed during the tick.
func (it *BufferIterator) Advance(dir Direction) (PeriodEvent, bool) {
	if !it.configured {
		return PeriodEvent{}, false
	}

	switch {
	case dir == DirectionPlayback && !it.corrupted:
		it.check()
	case dir == DirectionCapture:
		it.fill()
	default:
		it.incPos(it.cfg.BytesPerTick)
	}

	it.periodPos += it.cfg.BytesPerTick
	if it.periodPos >= it.cfg.PeriodBytes {
		it.periodPos %= it.cfg.PeriodBytes

		return PeriodEvent{Position: it.bufPos, TotalBytes: it.totalBytes}, true
	}

	return PeriodEvent{}, false
}

// Position returns the hardware pointer in bytes.
func (it *BufferIterator) Position() int {
	return it.bufPos
}

// Frames returns the hardware pointer in frames.
func (it *BufferIterator) Frames() int {
	if !it.configured {
		return 0
	}

	return it.bufPos / (it.cfg.Channels * it.cfg.SampleBytes)
}

// PeriodPos returns the number of bytes transferred since the last period boundary.
func (it *BufferIterator) PeriodPos() int {
	return it.periodPos
}

// TotalBytes returns the number of bytes transferred since Configure.
func (it *BufferIterator) TotalBytes() uint64 {
	return it.totalBytes
}

// Corrupted reports whether a playback check found data that does not match the pattern.
func (it *BufferIterator) Corrupted() bool {
	return it.corrupted
}

// Reset moves the hardware pointer and the period position back to zero.
func (it *BufferIterator) Reset() {
	it.bufPos = 0
	it.periodPos = 0
}

func (it *BufferIterator) incPos(by int) {
	it.totalBytes += uint64(by)
	it.bufPos = (it.bufPos + by) % it.cfg.BufferSize
}

// check verifies one block byte by byte. A zero byte means the middle layer has not written that far
// yet and ends the scan. The bytes left unscanned are skipped in one step.
func (it *BufferIterator) check() {
	pat := it.pattern.snapshot()
	n := it.cfg.BytesPerTick

	i := 0
	for ; i < n; i++ {
		b := it.area[it.mapper.offset(it.bufPos, i%it.cfg.Channels)]
		if b == 0 {
			break
		}

		if b != pat.at(it.mapper.phase(it.totalBytes)) {
			it.corrupted = true

			break
		}

		it.incPos(1)
	}

	it.incPos(n - i)
}

func (it *BufferIterator) fillPattern() {
	pat := it.pattern.snapshot()

	for i := range it.cfg.BytesPerTick {
		it.area[it.mapper.offset(it.bufPos, i%it.cfg.Channels)] = pat.at(it.mapper.phase(it.totalBytes))
		it.incPos(1)
	}
}

func (it *BufferIterator) fillRandomInterleaved() {
	size := it.cfg.BufferSize
	pos := it.bufPos

	for left := it.cfg.BytesPerTick; left > 0; {
		chunk := min(left, size-pos)
		_, _ = it.rng.Read(it.area[pos : pos+chunk])
		left -= chunk
		pos = 0
	}

	it.incPos(it.cfg.BytesPerTick)
}

// fillRandomPlanar writes BytesPerTick/Channels random bytes into every channel block, wrapping to the
// start of the block as often as needed.
func (it *BufferIterator) fillRandomPlanar() {
	channels := it.cfg.Channels
	chanBlock := it.cfg.BufferSize / channels
	perChannel := it.cfg.BytesPerTick / channels

	for ch := range channels {
		blockStart := chanBlock * ch
		pos := PlanarOffset(it.bufPos, channels, ch, chanBlock) - blockStart

		for left := perChannel; left > 0; {
			chunk := min(left, chanBlock-pos)
			_, _ = it.rng.Read(it.area[blockStart+pos : blockStart+pos+chunk])
			left -= chunk
			pos = 0
		}
	}

	it.incPos(it.cfg.BytesPerTick)
}
