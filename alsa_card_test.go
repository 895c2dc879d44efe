package pcmtest_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/gen2brain/pcmtest"
)

func TestNewDevice(t *testing.T) {
	dev := newTestDevice(t, pcmtest.DefaultParams())

	p := dev.Params()
	assert.Equal(t, "pcmtest", p.ID)
	assert.Equal(t, pcmtest.FillModePattern, p.FillMode)
	assert.Equal(t, pcmtest.DefaultTicksPerSecond, p.TicksPerSecond)
	assert.Equal(t, []byte(pcmtest.DefaultPattern), dev.Pattern().Bytes())
	assert.Equal(t, pcmtest.DefaultHardware(), dev.Hardware())

	str := dev.String()
	assert.Contains(t, str, pcmtest.CardDriver)
	assert.Contains(t, str, pcmtest.CardShortName)
	assert.Contains(t, str, pcmtest.CardLongName)

	bad := pcmtest.DefaultParams()
	bad.TicksPerSecond = pcmtest.MaxTicksPerSecond + 1
	_, err := pcmtest.NewDevice(bad)
	assert.Error(t, err, "NewDevice should reject an invalid timer frequency")

	hw := pcmtest.DefaultHardware()
	hw.Substreams = 0
	_, err = pcmtest.NewDevice(pcmtest.DefaultParams(), pcmtest.WithHardware(hw))
	assert.ErrorIs(t, err, unix.EINVAL)
}

func TestDeviceSetParams(t *testing.T) {
	dev := newTestDevice(t, pcmtest.DefaultParams())

	p := pcmtest.DefaultParams()
	p.FillMode = pcmtest.FillModeRandom
	p.InjectDelay = 10 * time.Millisecond
	p.InjectTriggerErr = true
	p.TicksPerSecond = 50
	p.Pattern = "xyz"
	require.NoError(t, dev.SetParams(p))

	got := dev.Params()
	assert.Equal(t, pcmtest.FillModeRandom, got.FillMode)
	assert.Equal(t, 10*time.Millisecond, got.InjectDelay)
	assert.True(t, got.InjectTriggerErr)
	assert.Equal(t, pcmtest.DefaultTicksPerSecond, got.TicksPerSecond, "the timer frequency is fixed at creation")
	assert.Equal(t, []byte(pcmtest.DefaultPattern), dev.Pattern().Bytes(), "SetParams should not replace the pattern")

	p.InjectDelay = -time.Second
	assert.Error(t, dev.SetParams(p))
}

func TestDeviceSubstreamSlots(t *testing.T) {
	dev := newTestDevice(t, testParams())
	limit := dev.Hardware().Substreams

	var opened []*pcmtest.Substream
	for i := range limit {
		s, err := dev.Open(pcmtest.SNDRV_PCM_STREAM_PLAYBACK, nil)
		require.NoError(t, err, "opening substream %d failed", i)
		assert.Equal(t, i, s.Number())
		opened = append(opened, s)
	}

	assert.Equal(t, limit, dev.NumOpen(pcmtest.SNDRV_PCM_STREAM_PLAYBACK))

	_, err := dev.Open(pcmtest.SNDRV_PCM_STREAM_PLAYBACK, nil)
	assert.ErrorIs(t, err, unix.EBUSY, "opening more substreams than the hardware has should fail")

	// Capture substreams are counted separately.
	c, err := dev.Open(pcmtest.SNDRV_PCM_STREAM_CAPTURE, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Number())
	assert.Equal(t, 1, dev.NumOpen(pcmtest.SNDRV_PCM_STREAM_CAPTURE))

	require.NoError(t, opened[3].Close())
	assert.Equal(t, limit-1, dev.NumOpen(pcmtest.SNDRV_PCM_STREAM_PLAYBACK))

	s, err := dev.Open(pcmtest.SNDRV_PCM_STREAM_PLAYBACK, nil)
	require.NoError(t, err, "a closed slot should be reusable")
	assert.Equal(t, 3, s.Number())
	assert.NotEqual(t, opened[3].Session(), s.Session())

	_, err = dev.Open(pcmtest.Stream(7), nil)
	assert.ErrorIs(t, err, unix.EINVAL)
	assert.Zero(t, dev.NumOpen(pcmtest.Stream(7)))
}

func TestDeviceClose(t *testing.T) {
	dev := newTestDevice(t, testParams())

	s := openConfigured(t, dev, pcmtest.SNDRV_PCM_STREAM_CAPTURE, monoConfig, nil)
	require.NoError(t, s.Trigger(pcmtest.SNDRV_PCM_TRIGGER_START))

	require.NoError(t, dev.Close())
	assert.Equal(t, pcmtest.SNDRV_PCM_STATE_DISCONNECTED, s.State())
	assert.Zero(t, dev.NumOpen(pcmtest.SNDRV_PCM_STREAM_CAPTURE))

	_, err := dev.Open(pcmtest.SNDRV_PCM_STREAM_PLAYBACK, nil)
	assert.ErrorIs(t, err, unix.ENODEV)
}

func TestDeviceStatusFlags(t *testing.T) {
	dev := newTestDevice(t, testParams())

	s, err := dev.Open(pcmtest.SNDRV_PCM_STREAM_PLAYBACK, nil)
	require.NoError(t, err)
	require.NoError(t, s.HwParams(monoConfig))

	assert.False(t, dev.Status().IoctlResetTriggered)
	require.NoError(t, s.Ioctl(pcmtest.SNDRV_PCM_IOCTL_RESET))
	assert.True(t, dev.Status().IoctlResetTriggered)
	assert.Zero(t, s.Pointer())

	// An untouched playback substream passes the check.
	require.NoError(t, s.Close())
	assert.Equal(t, pcmtest.Status{PlaybackCaptureOK: true, IoctlResetTriggered: true}, dev.Status())

	// Opening clears both flags.
	s, err = dev.Open(pcmtest.SNDRV_PCM_STREAM_CAPTURE, nil)
	require.NoError(t, err)
	assert.Equal(t, pcmtest.Status{}, dev.Status())
	require.NoError(t, s.Close())
}

func TestDeviceInjectDelay(t *testing.T) {
	p := testParams()
	p.InjectDelay = time.Hour
	dev := newTestDevice(t, p)

	s := openConfigured(t, dev, pcmtest.SNDRV_PCM_STREAM_CAPTURE, monoConfig, nil)
	require.NoError(t, s.Trigger(pcmtest.SNDRV_PCM_TRIGGER_START))

	// The first tick fires on schedule, the delay applies from the second one on.
	time.Sleep(100 * time.Millisecond)
	assert.LessOrEqual(t, s.Pointer(), uint32(80))

	require.NoError(t, s.Close())
}
