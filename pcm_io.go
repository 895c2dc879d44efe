package pcmtest

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// WriteFrames copies interleaved audio data into the DMA area starting at frame offset, the way the
// middle layer copies a writei() buffer. The data argument must be a slice of a supported numeric type
// (e.g., []uint8, []int16). Frames that do not fit before the end of the area are not written.
// Returns the number of frames written.
func (s *Substream) WriteFrames(data any, offset uint32) (int, error) {
	src, err := sliceBytes(data)
	if err != nil {
		return 0, fmt.Errorf("invalid data type for WriteFrames: %w", err)
	}
	defer runtime.KeepAlive(data)

	s.mu.Lock()
	defer s.mu.Unlock()

	area, frameSize, err := s.interleavedArea()
	if err != nil {
		return 0, err
	}

	start := int(offset) * frameSize
	if start >= len(area) {
		return 0, nil
	}

	frames := min(len(src), len(area)-start) / frameSize
	copy(area[start:], src[:frames*frameSize])

	return frames, nil
}

// ReadFrames copies interleaved audio data out of the DMA area starting at frame offset.
// Returns the number of frames read.
func (s *Substream) ReadFrames(data any, offset uint32) (int, error) {
	dst, err := sliceBytes(data)
	if err != nil {
		return 0, fmt.Errorf("invalid data type for ReadFrames: %w", err)
	}
	defer runtime.KeepAlive(data)

	s.mu.Lock()
	defer s.mu.Unlock()

	area, frameSize, err := s.interleavedArea()
	if err != nil {
		return 0, err
	}

	start := int(offset) * frameSize
	if start >= len(area) {
		return 0, nil
	}

	frames := min(len(dst), len(area)-start) / frameSize
	copy(dst, area[start:start+frames*frameSize])

	return frames, nil
}

// interleavedArea returns the DMA area and the frame size. Called with s.mu held.
func (s *Substream) interleavedArea() ([]byte, int, error) {
	if s.closed {
		return nil, 0, ErrClosed
	}

	if s.hw == nil || s.area == nil {
		return nil, 0, ErrNotConfigured
	}

	if s.hw.Layout() != LayoutInterleaved {
		return nil, 0, fmt.Errorf("frame access needs interleaved access, have %s: %w", s.hw.Layout(), unix.EINVAL)
	}

	return s.area.bytes(), int(s.hw.FrameSize()), nil
}

// sliceBytes validates that the input is a slice of a supported numeric type and returns its memory
// as a byte slice.
func sliceBytes(data any) ([]byte, error) {
	if data == nil {
		return nil, errors.New("data cannot be nil")
	}

	rv := reflect.ValueOf(data)
	if rv.Kind() != reflect.Slice {
		return nil, fmt.Errorf("expected a slice, got %T", data)
	}

	switch rv.Type().Elem().Kind() {
	case reflect.Int8, reflect.Uint8,
		reflect.Int16, reflect.Uint16,
		reflect.Int32, reflect.Uint32,
		reflect.Float32, reflect.Float64:
	default:
		return nil, fmt.Errorf("unsupported slice element type: %s", rv.Type().Elem().Kind())
	}

	if rv.Len() == 0 {
		return nil, nil
	}

	n := rv.Len() * int(rv.Type().Elem().Size())

	return unsafe.Slice((*byte)(rv.UnsafePointer()), n), nil
}
