package cache

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"
)

// Payload scheme markers. Every stored value is prefixed with one byte so
// reads can tell compressed entries from fail-open plain entries.
const (
	schemeGzip  byte = 'g'
	schemePlain byte = 'p'
)

// compressPayload gzips data and prefixes the scheme marker. If compression
// fails the payload is stored uncompressed with the plain marker, never lost.
func compressPayload(data []byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte(schemeGzip)
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return plainPayload(data)
	}
	if err := w.Close(); err != nil {
		return plainPayload(data)
	}
	return buf.Bytes()
}

func plainPayload(data []byte) []byte {
	out := make([]byte, 0, len(data)+1)
	out = append(out, schemePlain)
	return append(out, data...)
}

// decompressPayload reverses compressPayload based on the scheme marker.
func decompressPayload(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, NewCacheError("decompress", io.ErrUnexpectedEOF, false)
	}
	switch payload[0] {
	case schemePlain:
		return payload[1:], nil
	case schemeGzip:
		r, err := gzip.NewReader(bytes.NewReader(payload[1:]))
		if err != nil {
			return nil, NewCacheError("decompress", err, false)
		}
		defer r.Close()
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, NewCacheError("decompress", err, false)
		}
		return data, nil
	default:
		// Legacy entries written before markers were introduced.
		return payload, nil
	}
}
