package pcmtest

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// dmaArea is the anonymous memory mapping backing a substream's DMA buffer.
// Fresh mappings are zero-filled, which the playback check reads as "not written yet".
type dmaArea struct {
	buf []byte
}

func allocDMAArea(size int) (*dmaArea, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid DMA area size %d: %w", size, unix.EINVAL)
	}

	buf, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mmap DMA area failed: %w", err)
	}

	return &dmaArea{buf: buf}, nil
}

func (a *dmaArea) bytes() []byte {
	if a == nil {
		return nil
	}

	return a.buf
}

func (a *dmaArea) free() error {
	if a == nil || a.buf == nil {
		return nil
	}

	err := unix.Munmap(a.buf)
	a.buf = nil
	if err != nil {
		return fmt.Errorf("munmap DMA area failed: %w", err)
	}

	return nil
}
