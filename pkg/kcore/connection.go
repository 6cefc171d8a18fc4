package kcore

import (
	"net"
	"strconv"
	"sync"
	"time"
)

// Connection is the broker-pool manager described in spec.md §4.5: a
// cache of {server -> IOHandle}, a metadata cache, a node table, and
// the retry/backoff/failover policy that routes each request to the
// partition's current leader. It is single-threaded per spec.md §5 —
// a sync.Mutex guards the caches only so that misuse from multiple
// goroutines serializes instead of racing; callers that want
// parallelism are expected to use one Connection per goroutine.
type Connection struct {
	cfg config

	mu         sync.Mutex
	servers    *serverSet
	brokers    map[string]*brokerState // addr -> state
	metadata   map[string]*TopicMetadata
	nodeTable  map[int32]string
	lastErrors map[string]*Error
	corrID     int32
	closed     bool
}

// NewConnection validates opts and constructs a Connection seeded with
// the configured broker(s). Any validation failure returns
// MismatchArgument with no Connection constructed, per spec.md §4.5.
func NewConnection(opts ...Opt) (*Connection, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt.apply(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	c := &Connection{
		cfg:        cfg,
		servers:    newServerSet(),
		brokers:    make(map[string]*brokerState),
		metadata:   make(map[string]*TopicMetadata),
		nodeTable:  make(map[int32]string),
		lastErrors: make(map[string]*Error),
	}
	for _, addr := range cfg.seedBrokers {
		c.servers.Add(addr)
	}
	c.cfg.logger.Log(LogLevelDebug, "connection created", "seeds", cfg.seedBrokers, "sse42", cpuHasSSE42)
	return c, nil
}

// GetKnownServers returns every known server, sorted and deduplicated.
func (c *Connection) GetKnownServers() []string {
	return c.servers.Sorted()
}

// IsServerKnown reports whether addr has ever been seen as a seed or
// in broker metadata.
func (c *Connection) IsServerKnown(addr string) bool {
	return c.servers.Contains(addr)
}

// IsServerConnected reports whether addr currently has a live,
// cached IOHandle.
func (c *Connection) IsServerConnected(addr string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	bs, ok := c.brokers[addr]
	return ok && bs.io != nil && bs.io.Connected()
}

// IsServerAlive reports whether addr is connected, or connectable
// right now. A fresh probe that fails transiently is retried up to
// SEND_MAX_ATTEMPTS times before giving up, per spec.md §4.5
// ("_is_server_alive never returns false on transient failures of a
// fresh probe").
func (c *Connection) IsServerAlive(addr string) bool {
	if c.IsServerConnected(addr) {
		return true
	}
	var lastErr error
	for attempt := 0; attempt < c.cfg.sendMaxAttempts; attempt++ {
		bs, err := c.openBroker(addr)
		if err == nil {
			c.mu.Lock()
			c.brokers[addr] = bs
			c.servers.Add(addr)
			c.mu.Unlock()
			return true
		}
		lastErr = err
		if attempt < c.cfg.sendMaxAttempts-1 {
			time.Sleep(c.cfg.retryBackoff)
		}
	}
	c.recordServerError(addr, lastErr)
	return false
}

// CloseConnection closes only addr's socket; the Connection may
// reopen it lazily on the next request that needs it.
func (c *Connection) CloseConnection(addr string) error {
	c.mu.Lock()
	bs, ok := c.brokers[addr]
	delete(c.brokers, addr)
	c.mu.Unlock()
	if ok {
		c.closeBroker(bs)
	}
	return nil
}

// Close closes every cached broker socket. The Connection remains
// usable afterward; subsequent requests reopen sockets as needed, per
// spec.md §4.5.
func (c *Connection) Close() error {
	c.mu.Lock()
	brokers := c.brokers
	c.brokers = make(map[string]*brokerState)
	c.mu.Unlock()

	for _, bs := range brokers {
		c.closeBroker(bs)
	}
	return nil
}

// ClusterErrors returns, for every known server with a non-empty last
// error since its last successful operation, that error.
func (c *Connection) ClusterErrors() map[string]*Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]*Error, len(c.lastErrors))
	for addr, err := range c.lastErrors {
		out[addr] = err
	}
	return out
}

func (c *Connection) recordServerError(addr string, err error) {
	if err == nil {
		return
	}
	e, ok := err.(*Error)
	if !ok {
		e = wrapErr(ErrDescriptionMismatch, "unclassified error", err)
	}
	c.mu.Lock()
	c.lastErrors[addr] = e
	c.mu.Unlock()
}

// raiseOrSuppress applies WithRaiseError to a failure already recorded
// per-server via recordServerError: with raiseError true (the
// default) it is returned as-is; with raiseError false it is
// swallowed to nil, and ClusterErrors remains the only way to inspect
// it, mirroring IOHandle's own RaiseError contract one layer up, per
// spec.md §7.
func (c *Connection) raiseOrSuppress(err error) error {
	if err == nil || c.cfg.raiseError {
		return err
	}
	return nil
}

func (c *Connection) clearServerError(addr string) {
	c.mu.Lock()
	delete(c.lastErrors, addr)
	c.mu.Unlock()
}

// getOrOpenBroker returns addr's cached brokerState, opening one if
// none is cached or the cached one is dead, per spec.md §4.5's
// Uncached -> Connected state transition.
func (c *Connection) getOrOpenBroker(addr string) (*brokerState, error) {
	c.mu.Lock()
	bs, ok := c.brokers[addr]
	c.mu.Unlock()
	if ok && bs.io != nil && bs.io.Connected() {
		return bs, nil
	}

	bs, err := c.openBroker(addr)
	if err != nil {
		return nil, wrapErr(ErrCannotBind, "open broker "+addr, err)
	}
	c.mu.Lock()
	c.brokers[addr] = bs
	c.servers.Add(addr)
	c.mu.Unlock()
	return bs, nil
}

func (c *Connection) closeBrokerByAddr(addr string) {
	c.mu.Lock()
	bs, ok := c.brokers[addr]
	delete(c.brokers, addr)
	c.mu.Unlock()
	if ok {
		c.closeBroker(bs)
	}
}

// GetMetadata refreshes and returns the metadata cache; an empty-string
// topic is rejected before any IO, per spec.md §4.5. A refresh failure
// with WithRaiseError(false) still returns the old cache, per
// refreshMetadata's "on failure, keep the old cache" contract, with
// the failure itself inspectable via ClusterErrors.
func (c *Connection) GetMetadata(topics ...string) (map[string]*TopicMetadata, error) {
	for _, t := range topics {
		if t == "" {
			return nil, wrapErr(ErrMismatchArgument, "topic must not be empty", nil)
		}
	}
	if err := c.refreshMetadata(topics); err != nil {
		if suppressed := c.raiseOrSuppress(err); suppressed != nil {
			return nil, suppressed
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]*TopicMetadata, len(c.metadata))
	for k, v := range c.metadata {
		out[k] = v
	}
	return out, nil
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
