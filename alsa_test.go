package pcmtest_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gen2brain/pcmtest"
)

var (
	// Mono U8 at 8000 Hz: 80 bytes per tick at 100 ticks per second, 4096 byte periods.
	monoConfig = pcmtest.HwParams{
		Access:      pcmtest.SNDRV_PCM_ACCESS_RW_INTERLEAVED,
		Format:      pcmtest.SNDRV_PCM_FORMAT_U8,
		Channels:    1,
		Rate:        8000,
		PeriodSize:  4096,
		PeriodCount: 4,
	}

	// Stereo S16_LE at 48000 Hz: 1920 bytes per tick at 100 ticks per second, 4096 byte periods.
	stereoConfig = pcmtest.HwParams{
		Access:      pcmtest.SNDRV_PCM_ACCESS_MMAP_INTERLEAVED,
		Format:      pcmtest.SNDRV_PCM_FORMAT_S16_LE,
		Channels:    2,
		Rate:        48000,
		PeriodSize:  1024,
		PeriodCount: 4,
	}
)

// testParams returns the default parameters with the fastest timer, to keep the timed tests short.
func testParams() pcmtest.Params {
	p := pcmtest.DefaultParams()
	p.TicksPerSecond = pcmtest.MaxTicksPerSecond

	return p
}

// newTestDevice creates a device with a silent logger that is removed when the test ends.
func newTestDevice(t *testing.T, p pcmtest.Params, opts ...pcmtest.Option) *pcmtest.Device {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]pcmtest.Option{pcmtest.WithLogger(logger)}, opts...)

	dev, err := pcmtest.NewDevice(p, opts...)
	require.NoError(t, err, "NewDevice failed")

	t.Cleanup(func() {
		_ = dev.Close()
	})

	return dev
}

// openConfigured opens a substream and runs hw_params and prepare on it.
func openConfigured(t *testing.T, dev *pcmtest.Device, stream pcmtest.Stream, config pcmtest.HwParams, fn pcmtest.PeriodElapsedFunc) *pcmtest.Substream {
	t.Helper()

	s, err := dev.Open(stream, fn)
	require.NoError(t, err, "Open failed")

	require.NoError(t, s.HwParams(config), "HwParams failed")
	require.NoError(t, s.Prepare(), "Prepare failed")

	return s
}

// patternBytes returns n bytes of the looped pattern, as the middle layer writes them for a mono U8 stream.
func patternBytes(pattern []byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = pattern[i%len(pattern)]
	}

	return out
}

const (
	waitTimeout = 3 * time.Second
	waitTick    = 5 * time.Millisecond
)
