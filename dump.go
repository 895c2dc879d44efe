package pcmtest

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// DumpWAV writes the current contents of the DMA area as a WAV file. Planar areas are interleaved
// first, so the file plays the same for every access type.
func (s *Substream) DumpWAV(w io.WriteSeeker) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()

		return ErrClosed
	}

	if s.hw == nil || s.area == nil {
		s.mu.Unlock()

		return fmt.Errorf("dump failed: %w", ErrNotConfigured)
	}

	hw := *s.hw
	data := append([]byte(nil), s.area.bytes()...)
	s.mu.Unlock()

	buf, err := areaToIntBuffer(data, hw)
	if err != nil {
		return fmt.Errorf("dump failed: %w", err)
	}

	encoder := wav.NewEncoder(w,
		int(hw.Rate),
		buf.SourceBitDepth,
		int(hw.Channels),
		1, // PCM
	)

	if err := encoder.Write(buf); err != nil {
		return fmt.Errorf("writing WAV data failed: %w", err)
	}

	if err := encoder.Close(); err != nil {
		return fmt.Errorf("finalizing WAV file failed: %w", err)
	}

	s.log.Debug("pcmtest: DMA area dumped", "frames", buf.NumFrames())

	return nil
}

// areaToIntBuffer converts a raw DMA area into interleaved samples for the WAV encoder.
func areaToIntBuffer(data []byte, hw HwParams) (*audio.IntBuffer, error) {
	bitDepth := int(PcmFormatToBits(hw.Format))
	sampleBytes := bitDepth / 8
	channels := int(hw.Channels)

	if sampleBytes == 0 || channels == 0 {
		return nil, fmt.Errorf("unsupported sample layout: format %d, %d channels", hw.Format, channels)
	}

	frames := len(data) / (sampleBytes * channels)
	chanBlock := len(data) / channels
	planar := hw.Layout() == LayoutPlanar

	intData := make([]int, frames*channels)
	for f := range frames {
		for c := range channels {
			offset := (f*channels + c) * sampleBytes
			if planar {
				offset = c*chanBlock + f*sampleBytes
			}

			switch hw.Format {
			case SNDRV_PCM_FORMAT_U8:
				intData[f*channels+c] = int(data[offset])
			case SNDRV_PCM_FORMAT_S16_LE:
				intData[f*channels+c] = int(int16(binary.LittleEndian.Uint16(data[offset:])))
			default:
				return nil, fmt.Errorf("unhandled format %s in conversion", PcmParamFormatNames[hw.Format])
			}
		}
	}

	return &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: channels,
			SampleRate:  int(hw.Rate),
		},
		Data:           intData,
		SourceBitDepth: bitDepth,
	}, nil
}
