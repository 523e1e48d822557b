package ledger

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"fortio.org/safecast"
	"github.com/edsrzf/mmap-go"
	"github.com/vmihailenco/msgpack/v5"
)

// Log layout: an 8-byte header (magic, schema, reserved) followed by frames
// of crc32 (4) | payload length (4) | msgpack payload. The checksum covers
// the length field and the payload.
const (
	schemaVersion   uint16 = 1
	headerSize             = 8
	frameHeaderSize        = 8
	maxPayload             = 1 << 20
)

var (
	logMagic = []byte("NMLG")
	crcTable = crc32.MakeTable(crc32.Castagnoli)
)

func logHeader() []byte {
	h := make([]byte, headerSize)
	copy(h, logMagic)
	binary.LittleEndian.PutUint16(h[4:6], schemaVersion)
	return h
}

func checkHeader(h []byte) error {
	if len(h) < headerSize || !bytes.Equal(h[:4], logMagic) {
		return ErrCorrupt
	}
	if v := binary.LittleEndian.Uint16(h[4:6]); v != schemaVersion {
		return fmt.Errorf("%w: version %d, want %d", ErrSchema, v, schemaVersion)
	}
	return nil
}

func checksum(lenField, payload []byte) uint32 {
	sum := crc32.Checksum(lenField, crcTable)
	return crc32.Update(sum, crcTable, payload)
}

// encodeFrame appends the framed encoding of e to buf.
func encodeFrame(buf []byte, e *Entry) ([]byte, error) {
	payload, err := msgpack.Marshal(e)
	if err != nil {
		return buf, err
	}
	n, err := safecast.Conv[uint32](len(payload))
	if err != nil || n > maxPayload {
		return buf, fmt.Errorf("entry %s encodes to %d bytes", e.ID, len(payload))
	}
	var hdr [frameHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[4:], n)
	binary.LittleEndian.PutUint32(hdr[:4], checksum(hdr[4:], payload))
	buf = append(buf, hdr[:]...)
	return append(buf, payload...), nil
}

// replay decodes every intact frame of data and returns the offset just past
// the last one. A frame that is short, fails its checksum or does not decode
// ends the scan: the bytes after it are a torn tail.
func replay(data []byte, visit func(Entry)) int64 {
	off := int64(headerSize)
	size := int64(len(data))
	for off+frameHeaderSize <= size {
		hdr := data[off : off+frameHeaderSize]
		n := int64(binary.LittleEndian.Uint32(hdr[4:]))
		if n == 0 || n > maxPayload || off+frameHeaderSize+n > size {
			break
		}
		payload := data[off+frameHeaderSize : off+frameHeaderSize+n]
		if binary.LittleEndian.Uint32(hdr[:4]) != checksum(hdr[4:], payload) {
			break
		}
		var e Entry
		if err := msgpack.Unmarshal(payload, &e); err != nil || e.ID == "" {
			break
		}
		visit(e)
		off += frameHeaderSize + n
	}
	return off
}

// loadLog validates the header of f and replays it through a read-only
// mapping. It returns the number of trailing bytes that did not form a
// complete frame; the caller truncates them.
func loadLog(f *os.File, visit func(Entry)) (torn int64, err error) {
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if info.Size() == 0 {
		if _, err := f.Write(logHeader()); err != nil {
			return 0, err
		}
		return 0, f.Sync()
	}
	if info.Size() < headerSize {
		return 0, ErrCorrupt
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return 0, err
	}
	defer func() {
		if uerr := m.Unmap(); uerr != nil && err == nil {
			err = uerr
		}
	}()
	if err := checkHeader(m[:headerSize]); err != nil {
		return 0, err
	}
	end := replay(m, visit)
	return info.Size() - end, nil
}

// writeLog writes a complete log holding entries to w.
func writeLog(w io.Writer, entries []Entry) error {
	buf := logHeader()
	var err error
	for i := range entries {
		if buf, err = encodeFrame(buf, &entries[i]); err != nil {
			return err
		}
	}
	_, err = w.Write(buf)
	return err
}
