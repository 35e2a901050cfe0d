package compilenet

import (
	"encoding/binary"
	"fmt"
	"io"
)

// maxMessageSize bounds a single request/response frame; a client asking
// for more than this is almost certainly misbehaving rather than sending
// a legitimate large program.
const maxMessageSize = 1 << 20

// ReadMessage reads one length-prefixed frame, mirroring the teacher's
// pkg/net message framing (4-byte little-endian length, then content).
func ReadMessage(r io.Reader) ([]byte, error) {
	var sizeBuf [4]byte
	if _, err := io.ReadFull(r, sizeBuf[:]); err != nil {
		return nil, fmt.Errorf("compilenet: reading message size: %w", err)
	}
	size := binary.LittleEndian.Uint32(sizeBuf[:])
	if size > maxMessageSize {
		return nil, fmt.Errorf("compilenet: message of %d bytes exceeds limit", size)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("compilenet: reading message content: %w", err)
	}
	return data, nil
}

// WriteMessage writes one length-prefixed frame.
func WriteMessage(w io.Writer, data []byte) error {
	var sizeBuf [4]byte
	binary.LittleEndian.PutUint32(sizeBuf[:], uint32(len(data)))
	if _, err := w.Write(sizeBuf[:]); err != nil {
		return fmt.Errorf("compilenet: writing message size: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("compilenet: writing message content: %w", err)
	}
	return nil
}
