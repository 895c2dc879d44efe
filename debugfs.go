package pcmtest

import (
	"fmt"
	"strconv"

	"golang.org/x/sys/unix"
)

// Debug files of a device, as a test harness sees them under debugfs/pcmtest.
const (
	DebugFilePcTest      = "pc_test"      // 1 if the last playback held only pattern data.
	DebugFileIoctlTest   = "ioctl_test"   // 1 if the RESET ioctl was triggered.
	DebugFilePatternLen  = "pattern_len"  // Length of the fill pattern.
	DebugFileFillPattern = "fill_pattern" // The fill pattern, writable.
)

// DebugFiles lists the debug file names.
var DebugFiles = []string{DebugFilePcTest, DebugFileIoctlTest, DebugFilePatternLen, DebugFileFillPattern}

// ReadDebugFile returns the contents of a debug file.
func (d *Device) ReadDebugFile(name string) ([]byte, error) {
	st := d.Status()

	switch name {
	case DebugFilePcTest:
		return boolFile(st.PlaybackCaptureOK), nil
	case DebugFileIoctlTest:
		return boolFile(st.IoctlResetTriggered), nil
	case DebugFilePatternLen:
		return intFile(d.pattern.Len()), nil
	case DebugFileFillPattern:
		return d.pattern.Bytes(), nil
	default:
		return nil, fmt.Errorf("debug file %q: %w", name, unix.ENOENT)
	}
}

// WriteDebugFile writes data at offset off of a debug file. Only fill_pattern is writable; data beyond
// MaxPatternLen is dropped without an error.
func (d *Device) WriteDebugFile(name string, off int64, data []byte) (int, error) {
	switch name {
	case DebugFileFillPattern:
		if off < 0 {
			return 0, fmt.Errorf("debug file %q: negative offset %d: %w", name, off, unix.EINVAL)
		}

		n, err := d.pattern.WriteAt(data, off)
		if err != nil {
			return n, err
		}

		d.log.Debug("pcmtest: fill pattern updated", "offset", off, "len", d.pattern.Len())

		return n, nil
	case DebugFilePcTest, DebugFileIoctlTest, DebugFilePatternLen:
		return 0, fmt.Errorf("debug file %q is read-only: %w", name, unix.EACCES)
	default:
		return 0, fmt.Errorf("debug file %q: %w", name, unix.ENOENT)
	}
}

func boolFile(v bool) []byte {
	if v {
		return intFile(1)
	}

	return intFile(0)
}

func intFile(v int) []byte {
	return append(strconv.AppendInt(nil, int64(v), 10), '\n')
}
