package pcmtest

import "strconv"

// PcmInfo contains general information about a substream, as SNDRV_PCM_IOCTL_INFO reports it.
type PcmInfo struct {
	Card            int
	Device          uint32
	Subdevice       uint32
	Stream          Stream
	ID              string
	Name            string
	Subname         string
	SubdevicesCount uint32
	SubdevicesAvail uint32
}

// Info returns the identity of the substream and how many substreams of its direction are still free.
func (s *Substream) Info() PcmInfo {
	d := s.dev
	count := uint32(d.hw.Substreams)

	return PcmInfo{
		Card:            max(d.Params().Index, 0),
		Device:          0,
		Subdevice:       uint32(s.number),
		Stream:          s.stream,
		ID:              PcmName,
		Name:            PcmName,
		Subname:         "subdevice #" + strconv.Itoa(s.number),
		SubdevicesCount: count,
		SubdevicesAvail: count - uint32(d.NumOpen(s.stream)),
	}
}
