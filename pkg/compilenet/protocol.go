package compilenet

import "encoding/binary"

// Response status bytes, prefixed to every reply frame.
const (
	StatusOK    byte = 0
	StatusError byte = 1
)

// EncodeRequest frames a source program for submission to the server.
// The wire format is simply the source text; a frame is one compile
// request, there is no multiplexing at this layer (one stream per
// request, as with the teacher's CE protocols).
func EncodeRequest(source string) []byte {
	return []byte(source)
}

// DecodeRequest is the inverse of EncodeRequest.
func DecodeRequest(frame []byte) string {
	return string(frame)
}

// EncodeResult frames a successful compile-and-run result: the tagged
// 64-bit result word, little-endian.
func EncodeResult(result uint64) []byte {
	out := make([]byte, 9)
	out[0] = StatusOK
	binary.LittleEndian.PutUint64(out[1:], result)
	return out
}

// EncodeFault frames a compile/runtime failure as its error message.
func EncodeFault(msg string) []byte {
	out := make([]byte, 1+len(msg))
	out[0] = StatusError
	copy(out[1:], msg)
	return out
}

// DecodeResponse splits a response frame back into (result, errMsg, ok);
// ok is false if the frame is empty or malformed.
func DecodeResponse(frame []byte) (result uint64, errMsg string, ok bool) {
	if len(frame) == 0 {
		return 0, "", false
	}
	switch frame[0] {
	case StatusOK:
		if len(frame) != 9 {
			return 0, "", false
		}
		return binary.LittleEndian.Uint64(frame[1:]), "", true
	case StatusError:
		return 0, string(frame[1:]), true
	default:
		return 0, "", false
	}
}
