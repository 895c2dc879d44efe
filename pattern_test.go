package pcmtest_test

import (
	"bytes"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/gen2brain/pcmtest"
)

func TestPatternDefault(t *testing.T) {
	p := pcmtest.NewPattern(nil)

	assert.Equal(t, 7, p.Len())
	assert.Equal(t, []byte("abacaba"), p.Bytes())
	assert.Equal(t, byte('a'), p.ByteAt(0))
	assert.Equal(t, byte('b'), p.ByteAt(1))
	assert.Equal(t, byte('b'), p.ByteAt(8), "ByteAt should loop over the pattern")
}

func TestPatternWrite(t *testing.T) {
	p := pcmtest.NewPattern([]byte("abacaba"))

	n := p.Write(0, []byte("xyz"))
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte("xyz"), p.Bytes(), "length should end at the written range")

	n = p.Write(3, []byte("12"))
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte("xyz12"), p.Bytes())

	n = p.Write(0, nil)
	assert.Equal(t, 0, n)
	assert.Equal(t, 5, p.Len(), "an empty write should not change the pattern")

	n = p.Write(-1, []byte("a"))
	assert.Equal(t, 0, n)

	n = p.Write(pcmtest.MaxPatternLen, []byte("a"))
	assert.Equal(t, 0, n)
	assert.Equal(t, 5, p.Len())
}

func TestPatternWriteTruncates(t *testing.T) {
	p := pcmtest.NewPattern(nil)

	big := bytes.Repeat([]byte{'q'}, pcmtest.MaxPatternLen+100)
	n := p.Write(0, big)
	assert.Equal(t, pcmtest.MaxPatternLen, n)
	assert.Equal(t, pcmtest.MaxPatternLen, p.Len())

	n = p.Write(pcmtest.MaxPatternLen-2, []byte("abcd"))
	assert.Equal(t, 2, n)
	assert.Equal(t, pcmtest.MaxPatternLen, p.Len())
	assert.Equal(t, byte('b'), p.ByteAt(pcmtest.MaxPatternLen-1))

	// WriteAt crops silently and reports the whole input as written.
	n, err := p.WriteAt(big, 10)
	require.NoError(t, err)
	assert.Equal(t, len(big), n)
	assert.Equal(t, pcmtest.MaxPatternLen, p.Len())

	before := p.Bytes()
	n, err = p.WriteAt([]byte("xy"), -3)
	assert.ErrorIs(t, err, unix.EINVAL)
	assert.Zero(t, n)
	assert.Equal(t, before, p.Bytes(), "a failed write should not change the pattern")
}

func TestPatternRead(t *testing.T) {
	p := pcmtest.NewPattern([]byte("abacaba"))

	assert.Equal(t, []byte("aca"), p.Read(2, 3))
	assert.Equal(t, []byte("aba"), p.Read(4, 100), "Read should stop at the pattern length")
	assert.Empty(t, p.Read(7, 10))
	assert.Empty(t, p.Read(100, 10))
	assert.Empty(t, p.Read(0, 0))

	buf := make([]byte, 4)
	n, err := p.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte("abac"), buf)

	n, err = p.ReadAt(buf, 5)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte("ba"), buf[:n])

	n, err = p.ReadAt(buf, -1)
	assert.ErrorIs(t, err, unix.EINVAL)
	assert.Zero(t, n)
}

func TestPatternConcurrentAccess(t *testing.T) {
	p := pcmtest.NewPattern([]byte("z"))

	var wg sync.WaitGroup
	for i := range 4 {
		wg.Add(2)

		go func() {
			defer wg.Done()

			for j := range 100 {
				p.Write(0, bytes.Repeat([]byte{byte('a' + i)}, j+1))
			}
		}()

		go func() {
			defer wg.Done()

			for range 100 {
				b := p.Bytes()
				assert.NotEmpty(t, b)

				// Every snapshot is written by a single writer in one step.
				assert.Equal(t, bytes.Repeat(b[:1], len(b)), b)
			}
		}()
	}

	wg.Wait()
}
