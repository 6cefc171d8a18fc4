package kcore

import (
	"encoding/binary"
)

// packetEncoder and packetDecoder are the primitive put/get surface
// every Request/Response body encodes and decodes through. The split
// mirrors sarama's encode(pe packetEncoder)/decode(pd packetDecoder,
// version int16) shape (see Stars1233-sarama/delete_topics_response.go)
// rather than a single read/write buffer type, so that encoders never
// accidentally read and decoders never accidentally write.
type packetEncoder interface {
	putInt8(in int8)
	putInt16(in int16)
	putInt32(in int32)
	putInt64(in int64)
	putBytes(in []byte)
	putString(in string)
	putNullableString(in *string)
	putArrayLength(n int) error

	// push/pop bracket a sub-encoding whose length must be backpatched
	// once its contents are known (used for message CRC32 fields and
	// message / message-set size prefixes).
	push(pe pushEncoder)
	pop() error

	bytes() []byte
}

type packetDecoder interface {
	getInt8() (int8, error)
	getInt16() (int16, error)
	getInt32() (int32, error)
	getInt64() (int64, error)
	getBytes() ([]byte, error)
	getString() (string, error)
	getNullableString() (*string, error)
	getArrayLength() (int, error)

	remaining() int
	getRawBytes(n int) ([]byte, error)
	push(pd pushDecoder) error
	pop() error
}

// pushEncoder is a sub-encoding whose prefix (a length or a CRC) is
// computed from the bytes written between push and pop.
type pushEncoder interface {
	// saveOffset records where in the buffer this encoder's prefix
	// begins, reserving space for it.
	saveOffset(in int)
	// reserveLength returns how many bytes this encoder's prefix
	// occupies.
	reserveLength() int
	// run backpatches the prefix now that the sub-encoding's total
	// byte length is known.
	run(curOffset int, buf []byte) error
}

type pushDecoder interface {
	saveOffset(in int)
	reserveLength() int
	check(curOffset int, buf []byte) error
}

// prepEncoder accumulates bytes into a growing slice, mirroring
// sarama's realEncoder used for the non-size-counting encode pass.
type prepEncoder struct {
	stack []pushEncoder
	buf   []byte
}

func (e *prepEncoder) putInt8(in int8)   { e.buf = append(e.buf, byte(in)) }
func (e *prepEncoder) putInt16(in int16) { e.buf = appendUint16(e.buf, uint16(in)) }
func (e *prepEncoder) putInt32(in int32) { e.buf = appendUint32(e.buf, uint32(in)) }
func (e *prepEncoder) putInt64(in int64) { e.buf = appendUint64(e.buf, uint64(in)) }

func (e *prepEncoder) putBytes(in []byte) {
	if in == nil {
		e.putInt32(-1)
		return
	}
	e.putInt32(int32(len(in)))
	e.buf = append(e.buf, in...)
}

func (e *prepEncoder) putString(in string) {
	e.putInt16(int16(len(in)))
	e.buf = append(e.buf, in...)
}

func (e *prepEncoder) putNullableString(in *string) {
	if in == nil {
		e.putInt16(-1)
		return
	}
	e.putString(*in)
}

func (e *prepEncoder) putArrayLength(n int) error {
	e.putInt32(int32(n))
	return nil
}

func (e *prepEncoder) push(pe pushEncoder) {
	pe.saveOffset(len(e.buf))
	e.buf = append(e.buf, make([]byte, pe.reserveLength())...)
	e.stack = append(e.stack, pe)
}

func (e *prepEncoder) pop() error {
	pe := e.stack[len(e.stack)-1]
	e.stack = e.stack[:len(e.stack)-1]
	return pe.run(len(e.buf), e.buf)
}

func (e *prepEncoder) bytes() []byte { return e.buf }

// realDecoder walks a fixed byte slice, mirroring sarama's realDecoder.
type realDecoder struct {
	raw   []byte
	off   int
	stack []pushDecoder
}

var errInsufficientData = newErr(ErrResponseMessageNotReceived, "insufficient data to decode packet")

func (d *realDecoder) getInt8() (int8, error) {
	if d.remaining() < 1 {
		return 0, errInsufficientData
	}
	v := int8(d.raw[d.off])
	d.off++
	return v, nil
}

func (d *realDecoder) getInt16() (int16, error) {
	if d.remaining() < 2 {
		return 0, errInsufficientData
	}
	v := int16(binary.BigEndian.Uint16(d.raw[d.off:]))
	d.off += 2
	return v, nil
}

func (d *realDecoder) getInt32() (int32, error) {
	if d.remaining() < 4 {
		return 0, errInsufficientData
	}
	v := int32(binary.BigEndian.Uint32(d.raw[d.off:]))
	d.off += 4
	return v, nil
}

func (d *realDecoder) getInt64() (int64, error) {
	if d.remaining() < 8 {
		return 0, errInsufficientData
	}
	v := int64(binary.BigEndian.Uint64(d.raw[d.off:]))
	d.off += 8
	return v, nil
}

func (d *realDecoder) getBytes() ([]byte, error) {
	n, err := d.getInt32()
	if err != nil {
		return nil, err
	}
	if n == -1 {
		return nil, nil
	}
	if n < 0 {
		return nil, newErr(ErrResponseMessageNotReceived, "negative byte-array length")
	}
	return d.getRawBytes(int(n))
}

func (d *realDecoder) getString() (string, error) {
	n, err := d.getInt16()
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", newErr(ErrResponseMessageNotReceived, "negative string length")
	}
	b, err := d.getRawBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (d *realDecoder) getNullableString() (*string, error) {
	n, err := d.getInt16()
	if err != nil {
		return nil, err
	}
	if n == -1 {
		return nil, nil
	}
	b, err := d.getRawBytes(int(n))
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

func (d *realDecoder) getArrayLength() (int, error) {
	n, err := d.getInt32()
	if err != nil {
		return 0, err
	}
	if n == -1 {
		return 0, nil
	}
	if n < 0 {
		return 0, newErr(ErrResponseMessageNotReceived, "negative array length")
	}
	return int(n), nil
}

func (d *realDecoder) remaining() int { return len(d.raw) - d.off }

func (d *realDecoder) getRawBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, newErr(ErrResponseMessageNotReceived, "negative length")
	}
	if d.remaining() < n {
		return nil, errInsufficientData
	}
	b := d.raw[d.off : d.off+n]
	d.off += n
	return b, nil
}

func (d *realDecoder) push(pd pushDecoder) error {
	pd.saveOffset(d.off)
	if d.remaining() < pd.reserveLength() {
		return errInsufficientData
	}
	d.off += pd.reserveLength()
	d.stack = append(d.stack, pd)
	return nil
}

func (d *realDecoder) pop() error {
	pd := d.stack[len(d.stack)-1]
	d.stack = d.stack[:len(d.stack)-1]
	return pd.check(d.off, d.raw)
}

func appendUint16(buf []byte, v uint16) []byte {
	return append(buf, byte(v>>8), byte(v))
}

func appendUint32(buf []byte, v uint32) []byte {
	return append(buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func appendUint64(buf []byte, v uint64) []byte {
	return append(buf,
		byte(v>>56), byte(v>>48), byte(v>>40), byte(v>>32),
		byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}
