package pcmtest

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sys/unix"
)

// Hardware describes what the virtual device accepts in hw_params.
type Hardware struct {
	Access         []PcmAccess
	Formats        []PcmFormat
	RateMin        uint32
	RateMax        uint32
	ChannelsMin    uint32
	ChannelsMax    uint32
	BufferBytesMax uint32
	PeriodBytesMin uint32
	PeriodBytesMax uint32
	PeriodsMin     uint32
	PeriodsMax     uint32
	Substreams     int // Substreams per direction.
}

// DefaultHardware returns the capabilities of the PCM-Test card.
func DefaultHardware() Hardware {
	return Hardware{
		Access: []PcmAccess{
			SNDRV_PCM_ACCESS_MMAP_INTERLEAVED,
			SNDRV_PCM_ACCESS_MMAP_NONINTERLEAVED,
			SNDRV_PCM_ACCESS_RW_INTERLEAVED,
			SNDRV_PCM_ACCESS_RW_NONINTERLEAVED,
		},
		Formats:        []PcmFormat{SNDRV_PCM_FORMAT_U8, SNDRV_PCM_FORMAT_S16_LE},
		RateMin:        8000,
		RateMax:        48000,
		ChannelsMin:    1,
		ChannelsMax:    4,
		BufferBytesMax: 128 * 1024,
		PeriodBytesMin: 4096,
		PeriodBytesMax: 32768,
		PeriodsMin:     1,
		PeriodsMax:     1024,
		Substreams:     8,
	}
}

// Check verifies that the requested parameters are within the hardware limits.
func (hw Hardware) Check(p HwParams) error {
	switch {
	case !slices.Contains(hw.Access, p.Access):
		return fmt.Errorf("access %d not supported: %w", p.Access, unix.EINVAL)
	case !slices.Contains(hw.Formats, p.Format):
		return fmt.Errorf("format %d not supported: %w", p.Format, unix.EINVAL)
	case p.Rate < hw.RateMin || p.Rate > hw.RateMax:
		return fmt.Errorf("rate %d out of range %d..%d: %w", p.Rate, hw.RateMin, hw.RateMax, unix.EINVAL)
	case p.Channels < hw.ChannelsMin || p.Channels > hw.ChannelsMax:
		return fmt.Errorf("channels %d out of range %d..%d: %w", p.Channels, hw.ChannelsMin, hw.ChannelsMax, unix.EINVAL)
	case p.PeriodCount < hw.PeriodsMin || p.PeriodCount > hw.PeriodsMax:
		return fmt.Errorf("period count %d out of range %d..%d: %w", p.PeriodCount, hw.PeriodsMin, hw.PeriodsMax, unix.EINVAL)
	}

	if pb := p.PeriodBytes(); pb < hw.PeriodBytesMin || pb > hw.PeriodBytesMax {
		return fmt.Errorf("period bytes %d out of range %d..%d: %w", pb, hw.PeriodBytesMin, hw.PeriodBytesMax, unix.EINVAL)
	}

	if bb := uint64(p.PeriodBytes()) * uint64(p.PeriodCount); bb > uint64(hw.BufferBytesMax) {
		return fmt.Errorf("buffer bytes %d exceed %d: %w", bb, hw.BufferBytesMax, unix.EINVAL)
	}

	return nil
}

// String returns a human-readable representation of the device capabilities.
func (hw Hardware) String() string {
	var b strings.Builder

	printInterval := func(name string, rangeMin, rangeMax uint32, unit string) {
		b.WriteString(fmt.Sprintf("%12s: min=%-6d max=%-6d %s\n", name, rangeMin, rangeMax, unit))
	}

	b.WriteString("PCM device capabilities:\n")

	var access []string
	for _, a := range hw.Access {
		if int(a) >= 0 && int(a) < len(PcmParamAccessNames) {
			access = append(access, PcmParamAccessNames[a])
		}
	}
	if len(access) > 0 {
		b.WriteString(fmt.Sprintf("%12s: %s\n", "Access", strings.Join(access, ", ")))
	}

	var formats []string
	for _, f := range hw.Formats {
		if name, ok := PcmParamFormatNames[f]; ok {
			formats = append(formats, name)
		}
	}
	if len(formats) > 0 {
		b.WriteString(fmt.Sprintf("%12s: %s\n", "Format", strings.Join(formats, ", ")))
	}

	printInterval("Rate", hw.RateMin, hw.RateMax, "Hz")
	printInterval("Channels", hw.ChannelsMin, hw.ChannelsMax, "")
	printInterval("Period size", hw.PeriodBytesMin, hw.PeriodBytesMax, "bytes")
	printInterval("Periods", hw.PeriodsMin, hw.PeriodsMax, "")
	b.WriteString(fmt.Sprintf("%12s: max=%-6d %s\n", "Buffer size", hw.BufferBytesMax, "bytes"))

	return b.String()
}
