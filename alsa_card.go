package pcmtest

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// Card identity, as the middle layer would list it in /proc/asound/cards.
const (
	CardDriver    = "PCM-TEST Driver"
	CardShortName = "PCM-Test"
	CardLongName  = "PCM-Test virtual driver"
	PcmName       = "PCMTest"
)

// Status holds the test results of a device. Both flags are cleared whenever a substream is opened.
type Status struct {
	// PlaybackCaptureOK is set when the last closed playback substream held only pattern data.
	PlaybackCaptureOK bool
	// IoctlResetTriggered is set when the RESET ioctl reached a substream.
	IoctlResetTriggered bool
}

// PeriodElapsedFunc is called from the timer goroutine of a substream every time a period elapses.
// It must not close the substream it is called for.
type PeriodElapsedFunc func(s *Substream, ev PeriodEvent)

// Option configures a Device.
type Option func(*Device)

// WithLogger sets the logger used by the device and its substreams.
func WithLogger(l *slog.Logger) Option {
	return func(d *Device) {
		if l != nil {
			d.log = l
		}
	}
}

// WithHardware overrides the hardware limits checked in hw_params.
func WithHardware(hw Hardware) Option {
	return func(d *Device) {
		d.hw = hw
	}
}

// Device is a virtual PCM-Test sound card with one PCM device of Hardware.Substreams playback and
// capture substreams. The fill pattern, the parameters and the status flags are shared by all of
// its substreams.
type Device struct {
	hw      Hardware
	log     *slog.Logger
	pattern *Pattern

	mu     sync.RWMutex
	params Params
	slots  [2][]*Substream // Indexed by Stream, then by substream number.
	closed bool

	playbackCaptureOK atomic.Bool
	ioctlReset        atomic.Bool
}

// NewDevice creates a virtual card. Start from DefaultParams to get the stock configuration.
func NewDevice(p Params, opts ...Option) (*Device, error) {
	if err := Validate(&p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	d := &Device{
		hw:     DefaultHardware(),
		log:    slog.Default(),
		params: p,
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.hw.Substreams <= 0 {
		return nil, fmt.Errorf("hardware must provide at least one substream: %w", unix.EINVAL)
	}

	d.pattern = NewPattern([]byte(p.Pattern))
	for i := range d.slots {
		d.slots[i] = make([]*Substream, d.hw.Substreams)
	}

	d.log.Info("pcmtest: card registered",
		"id", p.ID,
		"driver", CardDriver,
		"fill_mode", p.FillMode.String(),
		"pattern_len", d.pattern.Len(),
		"ticks_per_second", p.TicksPerSecond,
	)

	return d, nil
}

// Pattern returns the fill pattern shared by all substreams.
func (d *Device) Pattern() *Pattern {
	return d.pattern
}

// Hardware returns the hardware limits of the device.
func (d *Device) Hardware() Hardware {
	return d.hw
}

// Params returns a copy of the current parameters.
func (d *Device) Params() Params {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.params
}

// SetParams updates the runtime parameters: fill mode, injected delay and injected errors. Index, ID,
// TicksPerSecond and Pattern keep the values the device was created with; the pattern is changed through
// Pattern or the fill_pattern debug file. A new fill mode takes effect at the next trigger.
func (d *Device) SetParams(p Params) error {
	if err := Validate(&p); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.params.FillMode = p.FillMode
	d.params.InjectDelay = p.InjectDelay
	d.params.InjectHwParamsErr = p.InjectHwParamsErr
	d.params.InjectPrepareErr = p.InjectPrepareErr
	d.params.InjectTriggerErr = p.InjectTriggerErr

	d.log.Debug("pcmtest: params updated",
		"fill_mode", p.FillMode.String(),
		"inject_delay", p.InjectDelay,
		"inject_hwpars_err", p.InjectHwParamsErr,
		"inject_prepare_err", p.InjectPrepareErr,
		"inject_trigger_err", p.InjectTriggerErr,
	)

	return nil
}

// Status returns the current test results.
func (d *Device) Status() Status {
	return Status{
		PlaybackCaptureOK:   d.playbackCaptureOK.Load(),
		IoctlResetTriggered: d.ioctlReset.Load(),
	}
}

// Open opens a free substream of the given direction and starts its timer. The substream moves its
// hardware pointer only after a successful trigger. onPeriod may be nil.
func (d *Device) Open(stream Stream, onPeriod PeriodElapsedFunc) (*Substream, error) {
	if stream != SNDRV_PCM_STREAM_PLAYBACK && stream != SNDRV_PCM_STREAM_CAPTURE {
		return nil, fmt.Errorf("open failed: invalid stream %d: %w", stream, unix.EINVAL)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, fmt.Errorf("open failed: card removed: %w", unix.ENODEV)
	}

	number := slices.Index(d.slots[stream], nil)
	if number < 0 {
		return nil, fmt.Errorf("open failed: all %d %s substreams busy: %w", len(d.slots[stream]), stream, unix.EBUSY)
	}

	s := newSubstream(d, stream, number, onPeriod)
	d.slots[stream][number] = s

	d.playbackCaptureOK.Store(false)
	d.ioctlReset.Store(false)

	s.ticker = startTicker(d.params.TickInterval(), d.injectDelay, s.tick)

	s.log.Debug("pcmtest: substream opened")

	return s, nil
}

// Close closes every open substream and refuses further opens.
func (d *Device) Close() error {
	d.mu.Lock()
	d.closed = true

	var open []*Substream
	for _, slots := range d.slots {
		for _, s := range slots {
			if s != nil {
				open = append(open, s)
			}
		}
	}
	d.mu.Unlock()

	var errs []error
	for _, s := range open {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	d.log.Info("pcmtest: card removed", "id", d.Params().ID)

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("closing substreams failed: %w", err)
	}

	return nil
}

// NumOpen returns the number of open substreams of the given direction.
func (d *Device) NumOpen(stream Stream) int {
	if stream != SNDRV_PCM_STREAM_PLAYBACK && stream != SNDRV_PCM_STREAM_CAPTURE {
		return 0
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	n := 0
	for _, s := range d.slots[stream] {
		if s != nil {
			n++
		}
	}

	return n
}

// String returns the card the way /proc/asound/cards lists it.
func (d *Device) String() string {
	p := d.Params()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%2d [%-15s]: %s - %s\n", max(p.Index, 0), p.ID, CardDriver, CardShortName))
	sb.WriteString(fmt.Sprintf("%22s%s\n", "", CardLongName))

	return sb.String()
}

func (d *Device) injectDelay() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.params.InjectDelay
}

func (d *Device) release(s *Substream) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.slots[s.stream][s.number] == s {
		d.slots[s.stream][s.number] = nil
	}
}
