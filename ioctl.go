package pcmtest

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// ioNone builds an ioctl request code for a command with no data transfer.
func ioNone(typ, nr uintptr) uintptr {
	const (
		iocNrbits    = 8
		iocTypebits  = 8
		iocSizebits  = 14
		iocNrshift   = 0
		iocTypeshift = iocNrshift + iocNrbits
		iocSizeshift = iocTypeshift + iocTypebits
		iocDirshift  = iocSizeshift + iocSizebits
		iocNone      = 0
	)

	return ((iocNone) << iocDirshift) | (typ << iocTypeshift) | (nr << iocNrshift) | (0 << iocSizeshift)
}

var (
	// PCM IOCTLs handled by the virtual device.
	SNDRV_PCM_IOCTL_HW_FREE uintptr
	SNDRV_PCM_IOCTL_PREPARE uintptr
	SNDRV_PCM_IOCTL_RESET   uintptr
	SNDRV_PCM_IOCTL_START   uintptr
	SNDRV_PCM_IOCTL_DROP    uintptr
)

func init() {
	SNDRV_PCM_IOCTL_HW_FREE = ioNone('A', 0x12)
	SNDRV_PCM_IOCTL_PREPARE = ioNone('A', 0x40)
	SNDRV_PCM_IOCTL_START = ioNone('A', 0x42)
	SNDRV_PCM_IOCTL_DROP = ioNone('A', 0x43)
	SNDRV_PCM_IOCTL_RESET = ioNone('A', 0x48)
}

// Ioctl dispatches a data-less PCM ioctl to the substream.
// RESET rewinds the hardware pointer and raises the IoctlResetTriggered status flag.
func (s *Substream) Ioctl(cmd uintptr) error {
	switch cmd {
	case SNDRV_PCM_IOCTL_RESET:
		return s.Reset()
	case SNDRV_PCM_IOCTL_PREPARE:
		return s.Prepare()
	case SNDRV_PCM_IOCTL_START:
		return s.Trigger(SNDRV_PCM_TRIGGER_START)
	case SNDRV_PCM_IOCTL_DROP:
		return s.Trigger(SNDRV_PCM_TRIGGER_STOP)
	case SNDRV_PCM_IOCTL_HW_FREE:
		return s.HwFree()
	default:
		return fmt.Errorf("ioctl %#x failed: %w", cmd, unix.ENOTTY)
	}
}
