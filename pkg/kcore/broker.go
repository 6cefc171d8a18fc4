package kcore

import (
	"time"
)

// brokerVersions records, keyed by ApiKey, the highest API version to
// use with a broker. probeVersions fills it with this package's own
// fixed versions once a probe succeeds; nothing is read from the broker.
// A nil table (skipVersionProbe, or a probe that never ran) means
// "assume every request's default version is supported."
type brokerVersions struct {
	maxVersion map[ApiKey]int16
}

func (v *brokerVersions) versionFor(key ApiKey, ourDefault int16) int16 {
	if v == nil || v.maxVersion == nil {
		return ourDefault
	}
	if mv, ok := v.maxVersion[key]; ok && mv < ourDefault {
		return mv
	}
	return ourDefault
}

// brokerState is what the Connection caches per open server: its
// lazily-opened IOHandle and the version probe result. Per-server last
// errors (spec.md §3's "last-errors-per-server") are kept in
// Connection.lastErrors; the lastErr field here is not written.
type brokerState struct {
	addr     string
	io       *IOHandle
	versions *brokerVersions
	lastErr  *Error
}

// openBroker dials addr and, unless the Connection was built with
// WithoutAPIVersionProbe, issues a Metadata request at version 0 to
// exercise the connection once before handing it back and to populate
// bs.versions — the nearest equivalent this core has to franz-go's
// requestAPIVersions handshake, since this package's fixed request set
// has no ApiVersions request of its own (see SPEC_FULL.md §9 and
// DESIGN.md Open Question (ii)). A probe failure tears the socket back
// down and is reported the same as a dial failure.
func (c *Connection) openBroker(addr string) (*brokerState, error) {
	now := time.Now()
	io, dialErr := Open(addr, c.cfg.timeout, c.cfg.ipVersion, c.cfg.raiseError)
	runHooks(c.cfg.hooks, func(h Hook) {
		if hh, ok := h.(BrokerConnectHook); ok {
			hh.OnConnect(addr, time.Since(now), dialErr)
		}
	})
	if io == nil {
		return nil, dialErr
	}
	if io.LastErrorCode() != ErrNone {
		failErr := io.LastError()
		c.cfg.logger.Log(LogLevelWarn, "unable to open connection to broker", "addr", addr, "err", failErr)
		return nil, failErr
	}
	c.cfg.logger.Log(LogLevelDebug, "connection opened to broker", "addr", addr)

	bs := &brokerState{addr: addr, io: io}

	if !c.cfg.skipVersionProbe {
		versions, err := c.probeVersions(bs)
		if err != nil {
			c.cfg.logger.Log(LogLevelWarn, "version probe failed", "addr", addr, "err", err)
			c.closeBroker(bs)
			return nil, err
		}
		bs.versions = versions
	}

	return bs, nil
}

// probeVersions exercises a freshly-opened broker with a version-0
// Metadata request and, on success, records that this connection's
// fixed request versions are all supported. Real API-version
// negotiation would require a broker-side ApiVersions response this
// package doesn't decode; this probe only confirms the socket actually
// speaks the protocol before the broker is cached for reuse.
func (c *Connection) probeVersions(bs *brokerState) (*brokerVersions, error) {
	resp := &MetadataResponse{}
	if err := c.sendRequest(bs, &MetadataRequest{}, resp, false); err != nil {
		return nil, err
	}
	return &brokerVersions{maxVersion: map[ApiKey]int16{
		ApiKeyProduce:  0,
		ApiKeyFetch:    0,
		ApiKeyOffset:   0,
		ApiKeyMetadata: 0,
	}}, nil
}

// closeBroker tears down one broker's socket and fires the
// disconnect hook, mirroring brokerCxn.closeConn in the teacher.
func (c *Connection) closeBroker(bs *brokerState) {
	if bs == nil || bs.io == nil {
		return
	}
	bs.io.Close()
	runHooks(c.cfg.hooks, func(h Hook) {
		if hh, ok := h.(BrokerDisconnectHook); ok {
			hh.OnDisconnect(bs.addr)
		}
	})
}

// sendRequest writes req's frame and reads back its response frame,
// validating the correlation-id per spec.md §4.2 ("the correlation-id
// MUST equal the request's; mismatch is a fatal protocol error for
// that socket"). acksNone requests (Produce with RequiredAcks ==
// AcksNoResponse) write and return immediately with no read, per
// spec.md §8 scenario 5.
func (c *Connection) sendRequest(bs *brokerState, req Request, resp Response, acksNone bool) error {
	corrID := c.nextCorrelationID()
	frame, err := encodeRequest(req, corrID, c.cfg.clientID)
	if err != nil {
		return wrapErr(ErrMismatchArgument, "encode request", err)
	}

	// bs.io.raiseError reflects WithRaiseError, which governs what a
	// Connection returns to ITS caller, not whether this internal
	// routing logic can see a failure: Send/Receive always stash the
	// real error on the handle regardless of that flag, so check
	// LastErrorCode rather than trust a possibly-suppressed return.
	if _, sendErr := bs.io.Send(frame); sendErr != nil || bs.io.LastErrorCode() != ErrNone {
		return wrapErr(ErrCannotSend, "write request to "+bs.addr, firstNonNil(sendErr, bs.io.LastError()))
	}

	if acksNone {
		return nil
	}

	raw, recvErr := bs.io.ReceiveFrame()
	if recvErr != nil || bs.io.LastErrorCode() != ErrNone {
		return wrapErr(ErrCannotRecv, "read response from "+bs.addr, firstNonNil(recvErr, bs.io.LastError()))
	}

	gotID, body, err := decodeResponseHeader(raw)
	if err != nil {
		return err
	}
	if gotID != corrID {
		return newErr(ErrResponseMessageNotReceived, "correlation-id mismatch")
	}

	return decodeResponseBody(resp, body, bs.versions.versionFor(req.key(), req.version()))
}

// firstNonNil returns err if non-nil, else wraps last (an *Error) as a
// plain error, else nil. Used when a transport failure's return value
// may have been suppressed by the handle's own raiseError setting but
// LastError still carries the real cause.
func firstNonNil(err error, last *Error) error {
	if err != nil {
		return err
	}
	if last != nil {
		return last
	}
	return nil
}

func (c *Connection) nextCorrelationID() int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.corrID
	c.corrID++
	return id
}
