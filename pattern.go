package pcmtest

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

const (
	// MaxPatternLen is the capacity of the fill pattern in bytes.
	MaxPatternLen = 4096
	// DefaultPattern is the pattern a device starts with.
	DefaultPattern = "abacaba"
)

// patternData is an immutable snapshot of the pattern.
type patternData struct {
	buf [MaxPatternLen]byte
	n   int
}

func (d *patternData) at(phase uint64) byte {
	return d.buf[phase%uint64(d.n)]
}

// Pattern is the looped byte sequence capture substreams are filled with and playback substreams are
// checked against. It is shared by all substreams of a device and outlives them.
//
// A zero byte means "not written yet" to the playback check, which stops scanning the current block at
// the first zero it meets. A pattern that contains zero bytes therefore ends the check early at every
// one of them instead of having them verified.
type Pattern struct {
	mu   sync.Mutex // Serializes writers; readers load the current snapshot.
	data atomic.Pointer[patternData]
}

// NewPattern returns a pattern holding p, truncated to MaxPatternLen.
// An empty p yields DefaultPattern.
func NewPattern(p []byte) *Pattern {
	pt := &Pattern{}
	pt.data.Store(&patternData{})

	if len(p) == 0 {
		p = []byte(DefaultPattern)
	}

	pt.Write(0, p)

	return pt
}

func (p *Pattern) snapshot() *patternData {
	return p.data.Load()
}

// Len returns the pattern length in bytes.
func (p *Pattern) Len() int {
	return p.snapshot().n
}

// Bytes returns a copy of the pattern.
func (p *Pattern) Bytes() []byte {
	d := p.snapshot()

	return append([]byte(nil), d.buf[:d.n]...)
}

// ByteAt returns the pattern byte for the given phase, looping over the pattern.
func (p *Pattern) ByteAt(phase uint64) byte {
	return p.snapshot().at(phase)
}

// Write copies data into the pattern starting at off and sets the pattern length to the end of the
// written range. Bytes beyond MaxPatternLen are dropped silently. It returns the number of bytes
// actually stored.
func (p *Pattern) Write(off int, data []byte) int {
	if off < 0 || off >= MaxPatternLen {
		return 0
	}

	n := min(len(data), MaxPatternLen-off)
	if n <= 0 {
		return 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	next := *p.snapshot()
	copy(next.buf[off:], data[:n])
	next.n = off + n
	p.data.Store(&next)

	return n
}

// Read returns up to maxLen bytes of the pattern starting at off.
// The result is empty when off is at or past the pattern length.
func (p *Pattern) Read(off, maxLen int) []byte {
	d := p.snapshot()
	if off < 0 || off >= d.n || maxLen <= 0 {
		return nil
	}

	end := min(off+maxLen, d.n)

	return append([]byte(nil), d.buf[off:end]...)
}

// ReadAt implements io.ReaderAt over the current pattern.
func (p *Pattern) ReadAt(b []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("pattern read: negative offset %d: %w", off, unix.EINVAL)
	}

	if off >= MaxPatternLen {
		return 0, io.EOF
	}

	n := copy(b, p.Read(int(off), len(b)))
	if n < len(b) {
		return n, io.EOF
	}

	return n, nil
}

// WriteAt implements io.WriterAt. Everything past MaxPatternLen is cropped silently, so the whole of b
// is always reported as written. A negative offset fails with EINVAL.
func (p *Pattern) WriteAt(b []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("pattern write: negative offset %d: %w", off, unix.EINVAL)
	}

	if off < MaxPatternLen {
		p.Write(int(off), b)
	}

	return len(b), nil
}
