package kcore

// Request is implemented by every request body variant (Produce,
// Fetch, Offset, Metadata). encode writes only the request body; the
// shared header (length/api-key/api-version/correlation-id/client-id)
// is written by encodeRequest below, per spec.md §4.2.
type Request interface {
	key() ApiKey
	version() int16
	encode(pe packetEncoder) error
}

// Response is implemented by every response body variant. decode reads
// only the response body; the shared header (length/correlation-id) is
// stripped by IOHandle.ReceiveFrame and decodeResponseHeader.
type Response interface {
	decode(pd packetDecoder, version int16) error
}

// encodeRequest writes the full request frame: a 4-byte length prefix,
// api-key, api-version, correlation-id, client-id, then the body.
// Framing exactly matches spec.md §4.2.
func encodeRequest(req Request, correlationID int32, clientID string) ([]byte, error) {
	body := &prepEncoder{}
	body.putInt16(int16(req.key()))
	body.putInt16(req.version())
	body.putInt32(correlationID)
	body.putString(clientID)
	if err := req.encode(body); err != nil {
		return nil, err
	}

	framed := &prepEncoder{}
	framed.putInt32(int32(len(body.bytes())))
	framed.buf = append(framed.buf, body.bytes()...)
	return framed.bytes(), nil
}

// decodeResponseHeader reads the 4-byte correlation-id prefix of a
// response body (the length prefix itself has already been consumed by
// IO.Receive) and returns the remaining bytes alongside the id.
func decodeResponseHeader(frame []byte) (correlationID int32, body []byte, err error) {
	if len(frame) < 4 {
		return 0, nil, wrapErr(ErrResponseMessageNotReceived,
			"response frame shorter than correlation-id", nil)
	}
	d := &realDecoder{raw: frame}
	correlationID, err = d.getInt32()
	if err != nil {
		return 0, nil, err
	}
	return correlationID, frame[4:], nil
}

// decodeResponseBody decodes resp's body from raw at the given version.
func decodeResponseBody(resp Response, raw []byte, version int16) error {
	return resp.decode(&realDecoder{raw: raw}, version)
}
