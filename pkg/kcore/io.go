package kcore

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"time"
)

// IOHandle owns one socket to one broker, per spec.md §4.3. It is
// either connected with a live net.Conn, or closed with no socket — the
// intermediate "Errored" state from spec.md §4.5's state machine is not
// separately represented here; an errored handle is simply closed by
// its caller (Connection.closeBrokerByAddr) before the next attempt.
//
// Writes and reads are bounded by the socket's own write/read deadline,
// set from the handle's timeout before each call, and run synchronously
// since spec.md §5 fixes the concurrency model as single-threaded per
// Connection (no queued promises).
type IOHandle struct {
	conn    net.Conn
	addr    string
	ipVer   IPVersion
	timeout time.Duration

	raiseError bool
	lastErr    *Error
}

// Open dials addr (a "host:port" string), honoring ipVersion for
// address-family selection, within timeout. A dial failure is always
// stashed on the returned handle's LastError regardless of raiseError,
// so a caller that needs the real cause - such as the Connection
// deciding whether to retry or fail over - can always get it via
// LastError/LastErrorCode even when the returned error is nil. When
// raiseError is false the returned error is nil on dial failure; when
// true it is returned directly. Argument-validation failures (empty
// addr, non-positive timeout) have no handle to stash on and are
// always returned, per spec.md §7.
func Open(addr string, timeout time.Duration, ipVersion IPVersion, raiseError bool) (*IOHandle, error) {
	if addr == "" {
		return nil, wrapErr(ErrMismatchArgument, "empty server address", nil)
	}
	if timeout <= 0 {
		return nil, wrapErr(ErrMismatchArgument, "timeout must be positive", nil)
	}

	h := &IOHandle{
		addr:       addr,
		ipVer:      ipVersion,
		timeout:    timeout,
		raiseError: raiseError,
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, ipVersion.network(), addr)
	if err != nil {
		h.lastErr = wrapErr(ErrCannotBind, "unable to connect to "+addr, err)
		return h, raiseOrReturn(raiseError, h.lastErr)
	}
	h.conn = conn
	return h, nil
}

// Send writes the full buffer within the handle's timeout, looping over
// partial writes until complete or the deadline expires. Empty buffers
// are MismatchArgument, per spec.md §4.3.
func (h *IOHandle) Send(buf []byte) (int, error) {
	if len(buf) == 0 {
		err := wrapErr(ErrMismatchArgument, "send requires a non-empty buffer", nil)
		h.lastErr = err
		return 0, err
	}
	if h.conn == nil {
		return 0, h.fail(ErrSentinelNoConnection)
	}

	deadline := time.Now().Add(h.timeout)
	if err := h.conn.SetWriteDeadline(deadline); err != nil {
		return 0, h.fail(wrapErr(ErrCannotSend, "set write deadline", err))
	}
	defer h.conn.SetWriteDeadline(time.Time{})

	n, err := writeFull(h.conn, buf)
	if err != nil {
		return n, h.fail(wrapErr(ErrCannotSend, "send failed", err))
	}
	h.clearError()
	return n, nil
}

func writeFull(w io.Writer, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := w.Write(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Receive reads exactly length octets or fails with CannotRecv. A peer
// close after a partial read is CannotRecv, per spec.md §4.3. length
// must be a positive integer.
func (h *IOHandle) Receive(length int) ([]byte, error) {
	if length <= 0 {
		err := wrapErr(ErrMismatchArgument, "receive length must be positive", nil)
		h.lastErr = err
		return nil, err
	}
	if h.conn == nil {
		return nil, h.fail(ErrSentinelNoConnection)
	}

	deadline := time.Now().Add(h.timeout)
	if err := h.conn.SetReadDeadline(deadline); err != nil {
		return nil, h.fail(wrapErr(ErrCannotRecv, "set read deadline", err))
	}
	defer h.conn.SetReadDeadline(time.Time{})

	buf := make([]byte, length)
	if _, err := io.ReadFull(h.conn, buf); err != nil {
		return nil, h.fail(wrapErr(ErrCannotRecv, "receive failed", err))
	}
	h.clearError()
	return buf, nil
}

// ReceiveFrame reads a 4-byte big-endian length prefix followed by
// exactly that many bytes, per spec.md §4.2's response framing. A
// response-length below 4 is ResponseMessageNotReceived.
func (h *IOHandle) ReceiveFrame() ([]byte, error) {
	lenBuf, err := h.Receive(4)
	if err != nil || lenBuf == nil {
		// With raiseError false a failed Receive returns (nil, nil) and
		// LastError carries the cause.
		return nil, err
	}
	n := int32(binary.BigEndian.Uint32(lenBuf))
	if n < 4 {
		return nil, h.fail(wrapErr(ErrResponseMessageNotReceived,
			"response length smaller than the minimum frame", nil))
	}
	return h.Receive(int(n))
}

// Close is idempotent; it flushes/shuts the socket and clears the
// handle's state (observable as "emptied" per spec.md §4.3).
func (h *IOHandle) Close() error {
	if h.conn == nil {
		return nil
	}
	err := h.conn.Close()
	h.conn = nil
	return err
}

// Connected reports whether this handle currently owns a live socket.
func (h *IOHandle) Connected() bool { return h.conn != nil }

// LastError returns the most recent failure, cleared on the next
// successful operation.
func (h *IOHandle) LastError() *Error { return h.lastErr }

// LastErrorCode returns the code of LastError, or ErrNone if there has
// been no failure since the last success.
func (h *IOHandle) LastErrorCode() ErrorCode {
	if h.lastErr == nil {
		return ErrNone
	}
	return h.lastErr.Code
}

// fail records err as the handle's last error and, per the RaiseError
// policy flag (spec.md §4.3), either returns it for the caller to
// propagate or swallows it so the caller returns a nil/zero sentinel
// and leaves LastError/LastErrorCode as the only way to inspect it.
func (h *IOHandle) fail(err *Error) error {
	h.lastErr = err
	if h.raiseError {
		return err
	}
	return nil
}

func (h *IOHandle) clearError() { h.lastErr = nil }

// raiseOrReturn applies the same RaiseError policy to Open's dial
// failure, which Open has already stashed on the handle it returns.
func raiseOrReturn(raiseError bool, err *Error) error {
	if raiseError {
		return err
	}
	return nil
}
