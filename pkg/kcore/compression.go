package kcore

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"hash/crc32"
	"io"

	kgzip "github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/golang/snappy"
	"github.com/klauspost/cpuid"
	"github.com/pierrec/lz4"
)

// CompressionCodec is the low 3 bits of a Message's attributes byte.
// The wire format is opaque to this package beyond this byte: per
// spec.md §1, payload bytes pass through uninterpreted unless a codec
// is set, in which case decompression is this hook.
type CompressionCodec int8

const (
	CompressionNone CompressionCodec = iota
	CompressionGZIP
	CompressionSnappy
	CompressionLZ4
	CompressionZSTD
)

const compressionCodecMask = 0x07

// crcTable is always the IEEE polynomial per spec.md §6 ("CRC32 over
// message payload uses the IEEE polynomial, not CRC-32C"); hash/crc32
// computes every checksum. cpuHasSSE42 (from klauspost/cpuid) does not
// select the CRC path: it is only reported in the debug log line
// NewConnection writes.
var crcTable = crc32.MakeTable(crc32.IEEE)

var cpuHasSSE42 = cpuid.CPU.SSE42()

// compress encodes payload with the given codec. CompressionNone
// returns payload unchanged.
func compress(codec CompressionCodec, payload []byte) ([]byte, error) {
	switch codec {
	case CompressionNone:
		return payload, nil
	case CompressionGZIP:
		var buf bytes.Buffer
		w := kgzip.NewWriter(&buf)
		if _, err := w.Write(payload); err != nil {
			return nil, wrapErr(ErrCompressionCodecUnavailable, "gzip compress", err)
		}
		if err := w.Close(); err != nil {
			return nil, wrapErr(ErrCompressionCodecUnavailable, "gzip compress", err)
		}
		return buf.Bytes(), nil
	case CompressionSnappy:
		return snappyEncodeBulk(payload), nil
	case CompressionLZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(payload); err != nil {
			return nil, wrapErr(ErrCompressionCodecUnavailable, "lz4 compress", err)
		}
		if err := w.Close(); err != nil {
			return nil, wrapErr(ErrCompressionCodecUnavailable, "lz4 compress", err)
		}
		return buf.Bytes(), nil
	case CompressionZSTD:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, wrapErr(ErrCompressionCodecUnavailable, "zstd compress", err)
		}
		defer enc.Close()
		return enc.EncodeAll(payload, nil), nil
	default:
		return nil, newErr(ErrCompressionCodecUnavailable, "unknown compression codec")
	}
}

// decompress reverses compress. For gzip it tries the faster klauspost
// reader first and falls back to the standard library's reader for
// streams written by a foreign producer that klauspost's reader is
// stricter about - matching spec.md §4.2's robustness rules in spirit
// ("be liberal in what you accept").
func decompress(codec CompressionCodec, payload []byte) ([]byte, error) {
	switch codec {
	case CompressionNone:
		return payload, nil
	case CompressionGZIP:
		if out, err := readAllGzip(func(r io.Reader) (gzipReader, error) { return kgzip.NewReader(r) }, payload); err == nil {
			return out, nil
		}
		return readAllGzip(func(r io.Reader) (gzipReader, error) { return gzip.NewReader(r) }, payload)
	case CompressionSnappy:
		return snappyDecodeBulk(payload)
	case CompressionLZ4:
		r := lz4.NewReader(bytes.NewReader(payload))
		return io.ReadAll(r)
	case CompressionZSTD:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, wrapErr(ErrCompressionCodecUnavailable, "zstd decompress", err)
		}
		defer dec.Close()
		out, err := dec.DecodeAll(payload, nil)
		if err != nil {
			return nil, wrapErr(ErrCompressionCodecUnavailable, "zstd decompress", err)
		}
		return out, nil
	default:
		return nil, newErr(ErrCompressionCodecUnavailable, "unknown compression codec")
	}
}

type gzipReader interface {
	io.Reader
}

func readAllGzip(newReader func(io.Reader) (gzipReader, error), payload []byte) ([]byte, error) {
	r, err := newReader(bytes.NewReader(payload))
	if err != nil {
		return nil, wrapErr(ErrCompressionCodecUnavailable, "gzip decompress", err)
	}
	if closer, ok := r.(io.Closer); ok {
		defer closer.Close()
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, wrapErr(ErrCompressionCodecUnavailable, "gzip decompress", err)
	}
	return out, nil
}

// xerialMagic opens every bulk-compressed snappy payload a real Kafka
// broker writes: Google's raw snappy block format has no way to frame
// multiple chunks, so Kafka wraps it the way the Scala/xerial
// snappy-java library does - 8-byte magic, two int32 version fields,
// then a sequence of {int32 length, block} chunks, each independently
// snappy-encoded. golang/snappy's Encode/Decode only speak one block at
// a time; this wraps and unwraps that framing around them.
var xerialMagic = []byte{0x82, 'S', 'N', 'A', 'P', 'P', 'Y', 0x00}

const (
	xerialVersion       = 1
	xerialCompatVersion = 1

	// xerialMaxChunkSize bounds how much raw data goes into one block
	// before it is snappy-encoded and framed, matching the chunk size
	// sarama's bulk snappy writer uses.
	xerialMaxChunkSize = 32768
)

func snappyEncodeBulk(payload []byte) []byte {
	var buf bytes.Buffer
	buf.Write(xerialMagic)

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], xerialVersion)
	buf.Write(lenBuf[:])
	binary.BigEndian.PutUint32(lenBuf[:], xerialCompatVersion)
	buf.Write(lenBuf[:])

	for len(payload) > 0 {
		chunk := payload
		if len(chunk) > xerialMaxChunkSize {
			chunk = chunk[:xerialMaxChunkSize]
		}
		payload = payload[len(chunk):]

		block := snappy.Encode(nil, chunk)
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(block)))
		buf.Write(lenBuf[:])
		buf.Write(block)
	}
	return buf.Bytes()
}

// snappyDecodeBulk reverses snappyEncodeBulk. A payload with no xerial
// magic is assumed to be a single unframed raw-snappy block, written by
// a producer that skipped the bulk framing, per spec.md §4.2's
// liberal-in-what-you-accept rule.
func snappyDecodeBulk(payload []byte) ([]byte, error) {
	if len(payload) < len(xerialMagic) || !bytes.Equal(payload[:len(xerialMagic)], xerialMagic) {
		return snappy.Decode(nil, payload)
	}
	pos := len(xerialMagic) + 8 // skip the magic and the two version int32s

	var out []byte
	for pos < len(payload) {
		if pos+4 > len(payload) {
			return nil, newErr(ErrCompressionCodecUnavailable, "truncated bulk snappy chunk length")
		}
		chunkLen := int(binary.BigEndian.Uint32(payload[pos : pos+4]))
		pos += 4
		if chunkLen < 0 || pos+chunkLen > len(payload) {
			return nil, newErr(ErrCompressionCodecUnavailable, "truncated bulk snappy chunk")
		}
		block, err := snappy.Decode(nil, payload[pos:pos+chunkLen])
		if err != nil {
			return nil, wrapErr(ErrCompressionCodecUnavailable, "bulk snappy chunk decompress", err)
		}
		pos += chunkLen
		out = append(out, block...)
	}
	return out, nil
}
