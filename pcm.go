package pcmtest

import (
	"time"
)

// HwParams encapsulates the hardware parameters the middle layer requests for a substream.
type HwParams struct {
	Access      PcmAccess
	Format      PcmFormat
	Channels    uint32
	Rate        uint32
	PeriodSize  uint32 // In frames
	PeriodCount uint32
}

// FrameSize returns the size of a single frame in bytes.
// A frame contains one sample for each channel.
func (p HwParams) FrameSize() uint32 {
	return p.Channels * (PcmFormatToBits(p.Format) / 8)
}

// BufferSize returns the total buffer size in frames.
func (p HwParams) BufferSize() uint32 {
	return p.PeriodSize * p.PeriodCount
}

// BufferBytes returns the size of the DMA area in bytes.
func (p HwParams) BufferBytes() uint32 {
	return p.BufferSize() * p.FrameSize()
}

// PeriodBytes returns the size of one period in bytes.
func (p HwParams) PeriodBytes() uint32 {
	return p.PeriodSize * p.FrameSize()
}

// Layout returns the channel layout selected by the access type.
func (p HwParams) Layout() Layout {
	return LayoutFromAccess(p.Access)
}

// PeriodTime returns the duration of a single period.
func (p HwParams) PeriodTime() time.Duration {
	if p.Rate == 0 {
		return 0
	}

	// Duration in nanoseconds = (frames_per_period * 1,000,000,000) / frames_per_second
	ns := (1e9 * float64(p.PeriodSize)) / float64(p.Rate)

	return time.Duration(ns)
}

// BytesPerTick returns how many bytes the hardware pointer moves per timer tick, so that Rate frames
// are transferred every second.
func (p HwParams) BytesPerTick(ticksPerSecond int) int {
	if ticksPerSecond <= 0 {
		return 0
	}

	return int(p.Rate) * int(PcmFormatToBits(p.Format)) / 8 / ticksPerSecond * int(p.Channels)
}

// PcmFormatToBits returns the number of bits per sample for a given format.
// This reflects the space occupied in memory, so 24-bit formats in 32-bit containers return 32.
func PcmFormatToBits(f PcmFormat) uint32 {
	switch f {
	case SNDRV_PCM_FORMAT_S32_LE, SNDRV_PCM_FORMAT_FLOAT_LE, SNDRV_PCM_FORMAT_S24_LE:
		return 32
	case SNDRV_PCM_FORMAT_S24_3LE:
		return 24
	case SNDRV_PCM_FORMAT_S16_LE, SNDRV_PCM_FORMAT_S16_BE, SNDRV_PCM_FORMAT_U16_LE, SNDRV_PCM_FORMAT_U16_BE:
		return 16
	case SNDRV_PCM_FORMAT_S8, SNDRV_PCM_FORMAT_U8:
		return 8
	default:
		return 0
	}
}

// PcmFramesToBytes converts a number of frames to the corresponding number of bytes.
func PcmFramesToBytes(p HwParams, frames uint32) uint32 {
	return frames * p.FrameSize()
}

// PcmBytesToFrames converts a number of bytes to the corresponding number of frames.
func PcmBytesToFrames(p HwParams, bytes uint32) uint32 {
	frameSize := p.FrameSize()
	if frameSize == 0 {
		return 0
	}

	return bytes / frameSize
}
