package pcmtest

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// HWPtr returns the hardware pointer in frames and the time of the tick that last moved it, as the
// mmap status page reports them. The timestamp is zero until the first tick after a start.
// This method is only available for MMAP access.
func (s *Substream) HWPtr() (hwPtr uint32, t time.Time, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		err = ErrClosed

		return
	}

	if s.hw == nil {
		err = ErrNotConfigured

		return
	}

	if s.hw.Access != SNDRV_PCM_ACCESS_MMAP_INTERLEAVED && s.hw.Access != SNDRV_PCM_ACCESS_MMAP_NONINTERLEAVED {
		err = fmt.Errorf("method HWPtr() is only available for MMAP access: %w", unix.EINVAL)

		return
	}

	return uint32(s.iter.Frames()), s.tstamp, nil
}
