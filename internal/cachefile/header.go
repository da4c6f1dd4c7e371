package cachefile

import (
	"encoding/binary"
	"io"

	"github.com/gogpu/statecache/state"
)

// Version is the current cache file format version. Bump it whenever the
// record layout in package state changes.
const Version = 1

// HeaderSize is the encoded size of a Header.
const HeaderSize = 12

// Magic identifies a pipeline state cache file.
var Magic = [4]byte{'G', 'P', 'S', 'C'}

// Header is the fixed prefix of a cache file.
type Header struct {
	Magic     [4]byte
	Version   uint32
	EntrySize uint32
}

// CurrentHeader returns the header written by this build.
func CurrentHeader() Header {
	return Header{
		Magic:     Magic,
		Version:   Version,
		EntrySize: state.EntrySize,
	}
}

// encode writes h into buf, which must hold HeaderSize bytes.
func (h Header) encode(buf []byte) {
	copy(buf[0:4], h.Magic[:])
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.EntrySize)
}

func readHeader(r io.Reader) (Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Header{}, err
	}
	var h Header
	copy(h.Magic[:], buf[0:4])
	h.Version = binary.LittleEndian.Uint32(buf[4:8])
	h.EntrySize = binary.LittleEndian.Uint32(buf[8:12])
	return h, nil
}
