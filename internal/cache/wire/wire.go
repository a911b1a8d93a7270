// Package wire is the binary envelope stored in cache providers.
//
//	magic(4) | ver(1) | created(i64 unix nano) | ttl(i64 ns) | n(u16)
//	[ nameLen(u16) | name | epoch(u64) ] * n | vlen(u32) | payload(vlen)
//
// All integers are big endian.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

const version byte = 1

var (
	ErrCorrupt = errors.New("cache: corrupt entry")
	ErrInvalid = errors.New("cache: entry cannot be encoded")
	magic      = [...]byte{'C', 'M', 'P', 'C'}
)

// GroupEpoch is a group tag and the epoch observed before the value was
// computed.
type GroupEpoch struct {
	Name  string
	Epoch uint64
}

// Entry is a decoded cache envelope.
type Entry struct {
	Created time.Time
	TTL     time.Duration
	Groups  []GroupEpoch
	Payload []byte
}

// ExpiredAt reports whether the entry is past its TTL at now. A zero TTL
// never expires.
func (e Entry) ExpiredAt(now time.Time) bool {
	if e.TTL <= 0 {
		return false
	}
	return !now.Before(e.Created.Add(e.TTL))
}

func Encode(e Entry) ([]byte, error) {
	if len(e.Groups) > 0xFFFF || uint64(len(e.Payload)) > 0xFFFFFFFF {
		return nil, ErrInvalid
	}
	size := 4 + 1 + 8 + 8 + 2 + 4 + len(e.Payload)
	for _, g := range e.Groups {
		if l := len(g.Name); l == 0 || l > 0xFFFF {
			return nil, ErrInvalid
		}
		size += 2 + len(g.Name) + 8
	}

	var buf bytes.Buffer
	buf.Grow(size)
	buf.Write(magic[:])
	buf.WriteByte(version)

	var u8 [8]byte
	var u4 [4]byte
	var u2 [2]byte

	binary.BigEndian.PutUint64(u8[:], uint64(e.Created.UnixNano()))
	buf.Write(u8[:])
	binary.BigEndian.PutUint64(u8[:], uint64(e.TTL))
	buf.Write(u8[:])

	binary.BigEndian.PutUint16(u2[:], uint16(len(e.Groups)))
	buf.Write(u2[:])
	for _, g := range e.Groups {
		binary.BigEndian.PutUint16(u2[:], uint16(len(g.Name)))
		buf.Write(u2[:])
		buf.WriteString(g.Name)
		binary.BigEndian.PutUint64(u8[:], g.Epoch)
		buf.Write(u8[:])
	}

	binary.BigEndian.PutUint32(u4[:], uint32(len(e.Payload)))
	buf.Write(u4[:])
	buf.Write(e.Payload)
	return buf.Bytes(), nil
}

func Decode(b []byte) (Entry, error) {
	const hdr = 4 + 1 + 8 + 8 + 2
	if len(b) < hdr || !bytes.Equal(b[:4], magic[:]) || b[4] != version {
		return Entry{}, ErrCorrupt
	}
	off := 5

	var e Entry
	e.Created = time.Unix(0, int64(binary.BigEndian.Uint64(b[off:off+8])))
	off += 8
	e.TTL = time.Duration(int64(binary.BigEndian.Uint64(b[off : off+8])))
	off += 8
	if e.TTL < 0 {
		return Entry{}, ErrCorrupt
	}

	n := int(binary.BigEndian.Uint16(b[off : off+2]))
	off += 2
	if n > 0 {
		e.Groups = make([]GroupEpoch, 0, n)
	}
	for range n {
		if off+2 > len(b) {
			return Entry{}, ErrCorrupt
		}
		nlen := int(binary.BigEndian.Uint16(b[off : off+2]))
		off += 2
		if nlen == 0 || nlen+8 > len(b)-off {
			return Entry{}, ErrCorrupt
		}
		name := string(b[off : off+nlen])
		off += nlen
		e.Groups = append(e.Groups, GroupEpoch{Name: name, Epoch: binary.BigEndian.Uint64(b[off : off+8])})
		off += 8
	}

	if off+4 > len(b) {
		return Entry{}, ErrCorrupt
	}
	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen != len(b)-off {
		return Entry{}, ErrCorrupt
	}
	e.Payload = b[off:]
	return e, nil
}
