// Package pcmtest implements a virtual ALSA PCM device that stands in for sound hardware when testing or
// fuzzing the PCM middle layer.
//
// The device simulates the hardware pointer of every open substream with a periodic timer. Capture
// substreams get their DMA area filled with random data or with a looped pattern, playback substreams
// have their DMA area checked for containing the same looped pattern. The result of the last playback
// check and whether the RESET ioctl was called are exposed as status flags. Errors can be injected into
// the hw_params, prepare and trigger callbacks, and delays into the timer.
//
// With several channels the pattern is duplicated into every channel. With 2 channels, U8 format,
// interleaved access and the pattern "abacaba" the DMA area looks like "aabbaaccaabbaa...", so every
// channel reads "abacabaabacaba...". The same holds for non-interleaved access, where every channel owns
// a contiguous block of the DMA area.
package pcmtest

// PcmFormat defines the sample format for a PCM stream.
// These values correspond to the SNDRV_PCM_FORMAT_* constants in the ALSA kernel headers.
type PcmFormat int32

const (
	SNDRV_PCM_FORMAT_INVALID  PcmFormat = -1
	SNDRV_PCM_FORMAT_S8       PcmFormat = 0
	SNDRV_PCM_FORMAT_U8       PcmFormat = 1
	SNDRV_PCM_FORMAT_S16_LE   PcmFormat = 2
	SNDRV_PCM_FORMAT_S16_BE   PcmFormat = 3
	SNDRV_PCM_FORMAT_U16_LE   PcmFormat = 4
	SNDRV_PCM_FORMAT_U16_BE   PcmFormat = 5
	SNDRV_PCM_FORMAT_S24_LE   PcmFormat = 6
	SNDRV_PCM_FORMAT_S32_LE   PcmFormat = 10
	SNDRV_PCM_FORMAT_FLOAT_LE PcmFormat = 14
	SNDRV_PCM_FORMAT_S24_3LE  PcmFormat = 32
)

// PcmState defines the current state of a substream.
// These values correspond to the SNDRV_PCM_STATE_* constants.
type PcmState int32

const (
	SNDRV_PCM_STATE_OPEN         PcmState = 0 // Substream is open.
	SNDRV_PCM_STATE_SETUP        PcmState = 1 // Substream has hardware parameters.
	SNDRV_PCM_STATE_PREPARED     PcmState = 2 // Substream is ready to start.
	SNDRV_PCM_STATE_RUNNING      PcmState = 3 // Substream is running.
	SNDRV_PCM_STATE_PAUSED       PcmState = 6 // Substream is paused.
	SNDRV_PCM_STATE_SUSPENDED    PcmState = 7 // Substream is suspended.
	SNDRV_PCM_STATE_DISCONNECTED PcmState = 8 // Substream is closed.
)

// Stream is the direction of a substream.
type Stream int

const (
	// SNDRV_PCM_STREAM_PLAYBACK is a host-to-device stream, the device verifies the DMA area.
	SNDRV_PCM_STREAM_PLAYBACK Stream = 0
	// SNDRV_PCM_STREAM_CAPTURE is a device-to-host stream, the device fills the DMA area.
	SNDRV_PCM_STREAM_CAPTURE Stream = 1
)

func (s Stream) String() string {
	switch s {
	case SNDRV_PCM_STREAM_PLAYBACK:
		return "playback"
	case SNDRV_PCM_STREAM_CAPTURE:
		return "capture"
	default:
		return "unknown"
	}
}

// PcmAccess defines the type of PCM access.
type PcmAccess int32

const (
	SNDRV_PCM_ACCESS_MMAP_INTERLEAVED    PcmAccess = 0
	SNDRV_PCM_ACCESS_MMAP_NONINTERLEAVED PcmAccess = 1
	SNDRV_PCM_ACCESS_MMAP_COMPLEX        PcmAccess = 2
	SNDRV_PCM_ACCESS_RW_INTERLEAVED      PcmAccess = 3
	SNDRV_PCM_ACCESS_RW_NONINTERLEAVED   PcmAccess = 4
)

// TriggerCmd is a command passed to the trigger callback.
// These values correspond to the SNDRV_PCM_TRIGGER_* constants.
type TriggerCmd int

const (
	SNDRV_PCM_TRIGGER_STOP          TriggerCmd = 0
	SNDRV_PCM_TRIGGER_START         TriggerCmd = 1
	SNDRV_PCM_TRIGGER_PAUSE_PUSH    TriggerCmd = 3
	SNDRV_PCM_TRIGGER_PAUSE_RELEASE TriggerCmd = 4
	SNDRV_PCM_TRIGGER_SUSPEND       TriggerCmd = 5
	SNDRV_PCM_TRIGGER_RESUME        TriggerCmd = 6
)

// PcmParamAccessNames provides human-readable names for PCM access types.
// The index corresponds to the SNDRV_PCM_ACCESS_* value.
var PcmParamAccessNames = []string{
	"MMAP_INTERLEAVED",
	"MMAP_NONINTERLEAVED",
	"MMAP_COMPLEX",
	"RW_INTERLEAVED",
	"RW_NONINTERLEAVED",
}

// PcmParamFormatNames provides human-readable names for PCM formats.
var PcmParamFormatNames = map[PcmFormat]string{
	SNDRV_PCM_FORMAT_S8:       "S8",
	SNDRV_PCM_FORMAT_U8:       "U8",
	SNDRV_PCM_FORMAT_S16_LE:   "S16_LE",
	SNDRV_PCM_FORMAT_S16_BE:   "S16_BE",
	SNDRV_PCM_FORMAT_U16_LE:   "U16_LE",
	SNDRV_PCM_FORMAT_U16_BE:   "U16_BE",
	SNDRV_PCM_FORMAT_S24_LE:   "S24_LE",
	SNDRV_PCM_FORMAT_S32_LE:   "S32_LE",
	SNDRV_PCM_FORMAT_FLOAT_LE: "FLOAT_LE",
	SNDRV_PCM_FORMAT_S24_3LE:  "S24_3LE",
}

// PcmStateNames provides human-readable names for substream states.
var PcmStateNames = map[PcmState]string{
	SNDRV_PCM_STATE_OPEN:         "OPEN",
	SNDRV_PCM_STATE_SETUP:        "SETUP",
	SNDRV_PCM_STATE_PREPARED:     "PREPARED",
	SNDRV_PCM_STATE_RUNNING:      "RUNNING",
	SNDRV_PCM_STATE_PAUSED:       "PAUSED",
	SNDRV_PCM_STATE_SUSPENDED:    "SUSPENDED",
	SNDRV_PCM_STATE_DISCONNECTED: "DISCONNECTED",
}
