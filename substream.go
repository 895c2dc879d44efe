package pcmtest

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

var (
	// ErrClosed is returned by operations on a closed substream.
	ErrClosed = fmt.Errorf("substream closed: %w", unix.EBADFD)
	// ErrNotConfigured is returned when an operation needs hw_params first.
	ErrNotConfigured = fmt.Errorf("hw_params not set: %w", unix.EBADFD)
)

// Substream is one open playback or capture stream of a Device. Its timer, the management calls and the
// DMA accessors are serialized by a per-substream lock, so all methods are safe for concurrent use.
type Substream struct {
	dev      *Device
	stream   Stream
	number   int
	session  uuid.UUID
	log      *slog.Logger
	onPeriod PeriodElapsedFunc
	ticker   *ticker

	mu         sync.Mutex
	state      PcmState
	hw         *HwParams
	area       *dmaArea
	iter       *BufferIterator
	dir        Direction
	configured bool // The iterator was configured for the current hw_params.
	closed     bool
	warned     bool      // Corruption was logged.
	tstamp     time.Time // Time of the last tick that moved the pointer.
}

func newSubstream(d *Device, stream Stream, number int, onPeriod PeriodElapsedFunc) *Substream {
	id := uuid.New()

	return &Substream{
		dev:      d,
		stream:   stream,
		number:   number,
		session:  id,
		onPeriod: onPeriod,
		log: d.log.With(
			slog.String("stream", stream.String()),
			slog.Int("substream", number),
			slog.String("session", id.String()),
		),
		state: SNDRV_PCM_STATE_OPEN,
		iter:  NewBufferIterator(d.pattern),
	}
}

// Stream returns the direction of the substream.
func (s *Substream) Stream() Stream {
	return s.stream
}

// Number returns the substream index within its direction.
func (s *Substream) Number() int {
	return s.number
}

// Session returns the identifier of this open.
func (s *Substream) Session() uuid.UUID {
	return s.session
}

// State returns the current state of the substream.
func (s *Substream) State() PcmState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Corrupted reports whether the playback check found data that does not match the pattern.
func (s *Substream) Corrupted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.iter != nil && s.iter.Corrupted()
}

// CurrentHwParams returns the hardware parameters set with HwParams.
func (s *Substream) CurrentHwParams() (HwParams, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hw == nil {
		return HwParams{}, false
	}

	return *s.hw, true
}

// HwParams validates the requested parameters and allocates a DMA area of the matching size.
func (s *Substream) HwParams(p HwParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	if s.dev.Params().InjectHwParamsErr {
		s.log.Debug("pcmtest: injecting hw_params error")

		return fmt.Errorf("hw_params failed: injected error: %w", unix.EBUSY)
	}

	if err := s.dev.hw.Check(p); err != nil {
		return fmt.Errorf("hw_params failed: %w", err)
	}

	if s.state == SNDRV_PCM_STATE_RUNNING {
		return fmt.Errorf("hw_params failed: substream is running: %w", unix.EBADFD)
	}

	area, err := allocDMAArea(int(p.BufferBytes()))
	if err != nil {
		return fmt.Errorf("hw_params failed: %w", err)
	}

	s.iter.Detach()
	if err := s.area.free(); err != nil {
		s.log.Warn("pcmtest: freeing previous DMA area failed", "error", err)
	}

	s.area = area
	s.hw = &p
	s.configured = false
	s.dir = DirectionIdle
	s.state = SNDRV_PCM_STATE_SETUP

	s.log.Debug("pcmtest: hw_params set",
		"access", PcmParamAccessNames[p.Access],
		"format", PcmParamFormatNames[p.Format],
		"channels", p.Channels,
		"rate", p.Rate,
		"period_bytes", p.PeriodBytes(),
		"buffer_bytes", p.BufferBytes(),
	)

	return nil
}

// HwFree releases the DMA area. The substream has to go through HwParams again before it can run.
func (s *Substream) HwFree() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	s.iter.Detach()
	if err := s.area.free(); err != nil {
		return fmt.Errorf("hw_free failed: %w", err)
	}

	s.area = nil
	s.hw = nil
	s.configured = false
	s.dir = DirectionIdle
	s.state = SNDRV_PCM_STATE_OPEN

	return nil
}

// Prepare readies the substream for a start.
func (s *Substream) Prepare() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	if s.dev.Params().InjectPrepareErr {
		s.log.Debug("pcmtest: injecting prepare error")

		return fmt.Errorf("prepare failed: injected error: %w", unix.EINVAL)
	}

	if s.hw == nil {
		return fmt.Errorf("prepare failed: %w", ErrNotConfigured)
	}

	s.state = SNDRV_PCM_STATE_PREPARED

	return nil
}

// Trigger starts, stops, pauses, or resumes the substream.
// Every command needs hw_params first.
func (s *Substream) Trigger(cmd TriggerCmd) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	params := s.dev.Params()
	if params.InjectTriggerErr {
		s.log.Debug("pcmtest: injecting trigger error", "cmd", cmd)

		return fmt.Errorf("trigger failed: injected error: %w", unix.EINVAL)
	}

	switch cmd {
	case SNDRV_PCM_TRIGGER_START, SNDRV_PCM_TRIGGER_PAUSE_RELEASE, SNDRV_PCM_TRIGGER_RESUME:
		if err := s.start(params); err != nil {
			return err
		}
	case SNDRV_PCM_TRIGGER_STOP:
		if err := s.halt(SNDRV_PCM_STATE_SETUP); err != nil {
			return err
		}
	case SNDRV_PCM_TRIGGER_PAUSE_PUSH:
		if err := s.halt(SNDRV_PCM_STATE_PAUSED); err != nil {
			return err
		}
	case SNDRV_PCM_TRIGGER_SUSPEND:
		if err := s.halt(SNDRV_PCM_STATE_SUSPENDED); err != nil {
			return err
		}
	default:
		return fmt.Errorf("trigger failed: unknown command %d: %w", cmd, unix.EINVAL)
	}

	s.log.Debug("pcmtest: triggered", "cmd", int(cmd), "state", PcmStateNames[s.state], "fill_mode", params.FillMode.String())

	return nil
}

// start configures the iterator on the first start after hw_params. Later starts keep the pointer
// and only pick up the current fill mode. Called with s.mu held.
func (s *Substream) start(params Params) error {
	if s.hw == nil || s.area == nil {
		return fmt.Errorf("trigger failed: %w", ErrNotConfigured)
	}

	if !s.configured {
		cfg := IterConfig{
			BufferSize:   int(s.hw.BufferBytes()),
			PeriodBytes:  int(s.hw.PeriodBytes()),
			BytesPerTick: s.hw.BytesPerTick(params.TicksPerSecond),
			Channels:     int(s.hw.Channels),
			SampleBytes:  int(PcmFormatToBits(s.hw.Format) / 8),
			Layout:       s.hw.Layout(),
			FillMode:     params.FillMode,
		}

		if err := s.iter.Configure(s.area.bytes(), cfg); err != nil {
			return fmt.Errorf("trigger failed: %w", err)
		}

		s.configured = true
		s.tstamp = time.Time{}
	} else {
		s.iter.SetFillMode(params.FillMode)
	}

	if s.stream == SNDRV_PCM_STREAM_PLAYBACK {
		s.dir = DirectionPlayback
	} else {
		s.dir = DirectionCapture
	}
	s.state = SNDRV_PCM_STATE_RUNNING

	return nil
}

// halt stops the pointer and moves to state. Called with s.mu held.
func (s *Substream) halt(state PcmState) error {
	if s.hw == nil {
		return fmt.Errorf("trigger failed: %w", ErrNotConfigured)
	}

	s.dir = DirectionIdle
	s.state = state

	return nil
}

// Pointer returns the hardware pointer in frames.
func (s *Substream) Pointer() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.iter == nil {
		return 0
	}

	return uint32(s.iter.Frames())
}

// Reset moves the hardware pointer back to the start of the buffer and records that the RESET ioctl
// reached the driver.
func (s *Substream) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	s.iter.Reset()
	s.dev.ioctlReset.Store(true)

	s.log.Info("pcmtest: reset ioctl triggered")

	return nil
}

// ReadAt reads from the DMA area.
func (s *Substream) ReadAt(b []byte, off int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	area, err := s.dmaBytes(off)
	if err != nil {
		return 0, err
	}

	if off >= int64(len(area)) {
		return 0, io.EOF
	}

	n := copy(b, area[off:])
	if n < len(b) {
		return n, io.EOF
	}

	return n, nil
}

// WriteAt writes into the DMA area, as the middle layer does for playback. Writes past the end of the
// area fail with io.ErrShortWrite.
func (s *Substream) WriteAt(b []byte, off int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	area, err := s.dmaBytes(off)
	if err != nil {
		return 0, err
	}

	if off >= int64(len(area)) {
		return 0, io.ErrShortWrite
	}

	n := copy(area[off:], b)
	if n < len(b) {
		return n, io.ErrShortWrite
	}

	return n, nil
}

func (s *Substream) dmaBytes(off int64) ([]byte, error) {
	if s.closed {
		return nil, ErrClosed
	}

	if s.area == nil {
		return nil, ErrNotConfigured
	}

	if off < 0 {
		return nil, fmt.Errorf("negative offset %d: %w", off, unix.EINVAL)
	}

	return s.area.bytes(), nil
}

// BufferBytes returns the size of the DMA area, or 0 before HwParams.
func (s *Substream) BufferBytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.area.bytes())
}

// Close stops the timer, publishes the playback result and releases the substream slot. A tick in
// progress is waited for; no tick and no period callback run after Close returns. Closing twice is a
// no-op.
func (s *Substream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()

		return nil
	}
	s.closed = true
	s.mu.Unlock()

	// The tick takes s.mu, so wait without holding it.
	s.ticker.shutdownSync()

	s.mu.Lock()

	corrupted := s.iter.Corrupted()
	if s.stream == SNDRV_PCM_STREAM_PLAYBACK {
		s.dev.playbackCaptureOK.Store(!corrupted)
	}

	s.iter.Detach()
	s.iter = nil

	err := s.area.free()
	s.area = nil
	s.hw = nil
	s.dir = DirectionIdle
	s.state = SNDRV_PCM_STATE_DISCONNECTED

	s.mu.Unlock()

	s.dev.release(s)

	s.log.Debug("pcmtest: substream closed", "corrupted", corrupted)

	if err != nil {
		return fmt.Errorf("close failed: %w", err)
	}

	return nil
}

// tick runs on the timer goroutine.
func (s *Substream) tick() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()

		return
	}

	ev, elapsed := s.iter.Advance(s.dir)
	if s.iter.Configured() {
		s.tstamp = time.Now()
	}

	warn := s.iter.Corrupted() && !s.warned
	if warn {
		s.warned = true
	}
	pos, total := s.iter.Position(), s.iter.TotalBytes()
	s.mu.Unlock()

	if warn {
		s.log.Warn("pcmtest: playback data does not match the pattern",
			"pos", pos,
			"total_bytes", total,
		)
	}

	if elapsed && s.onPeriod != nil {
		s.onPeriod(s, ev)
	}
}
