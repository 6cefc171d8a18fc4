package kcore

import "time"

// config is the validated, defaulted form of the options a caller
// passes to NewConnection. The functional-options shape (Opt/apply)
// mirrors NewClient(opts ...Opt) / cfg.validate() in the fuller
// franz-go client (see other_examples/.../pkg-kgo-client.go.go).
type config struct {
	seedBrokers []string
	clientID    string

	timeout          time.Duration
	ipVersion        IPVersion
	sendMaxAttempts  int
	retryBackoff     time.Duration
	raiseError       bool
	skipVersionProbe bool

	logger Logger
	hooks  []Hook
}

func defaultConfig() config {
	return config{
		clientID:        "kcore",
		timeout:         time.Duration(DefaultTimeoutSeconds * float64(time.Second)),
		ipVersion:       IPVersionAny,
		sendMaxAttempts: DefaultSendMaxAttempts,
		retryBackoff:    100 * time.Millisecond,
		raiseError:      true,
		logger:          nopLogger{},
	}
}

// validate checks every field spec.md §6 names, matching spec.md §4.5's
// "Validates every argument against its type; any violation is
// MismatchArgument with no object constructed."
func (c *config) validate() error {
	if len(c.seedBrokers) == 0 {
		return wrapErr(ErrMismatchArgument, "at least one seed broker or host/port pair is required", nil)
	}
	for _, s := range c.seedBrokers {
		if s == "" {
			return wrapErr(ErrMismatchArgument, "seed broker address must not be empty", nil)
		}
	}
	if c.timeout <= 0 {
		return wrapErr(ErrMismatchArgument, "timeout must be positive", nil)
	}
	if c.sendMaxAttempts <= 0 {
		return wrapErr(ErrMismatchArgument, "SEND_MAX_ATTEMPTS must be positive", nil)
	}
	if c.retryBackoff < 0 {
		return wrapErr(ErrMismatchArgument, "RETRY_BACKOFF must not be negative", nil)
	}
	if c.ipVersion != IPVersionAny && c.ipVersion != IPVersionV4 && c.ipVersion != IPVersionV6 {
		return wrapErr(ErrMismatchArgument, "ip_version must be 0, 4, or 6", nil)
	}
	return nil
}

// Opt configures a Connection; see WithX functions below. The pattern
// mirrors NewClient(opts ...Opt) in the retrieved franz-go client.
type Opt interface {
	apply(*config)
}

type optFunc func(*config)

func (f optFunc) apply(c *config) { f(c) }

// SeedBrokers sets the initial set of "host:port" strings used to
// bootstrap metadata discovery. Required unless SeedHostPort is used.
func SeedBrokers(addrs ...string) Opt {
	return optFunc(func(c *config) { c.seedBrokers = append(c.seedBrokers, addrs...) })
}

// SeedHostPort is a convenience for the single host/port seed form from
// spec.md §4.5's constructor signature.
func SeedHostPort(host string, port int) Opt {
	return optFunc(func(c *config) {
		c.seedBrokers = append(c.seedBrokers, joinHostPort(host, port))
	})
}

// WithClientID sets the client-id string sent in every request header.
func WithClientID(id string) Opt {
	return optFunc(func(c *config) { c.clientID = id })
}

// WithTimeout sets the per-IO deadline. Default 1.5s.
func WithTimeout(d time.Duration) Opt {
	return optFunc(func(c *config) { c.timeout = d })
}

// WithIPVersion restricts address resolution to IPv4 or IPv6 only.
// Default IPVersionAny.
func WithIPVersion(v IPVersion) Opt {
	return optFunc(func(c *config) { c.ipVersion = v })
}

// WithSendMaxAttempts sets SEND_MAX_ATTEMPTS. Default 4.
func WithSendMaxAttempts(n int) Opt {
	return optFunc(func(c *config) { c.sendMaxAttempts = n })
}

// WithRetryBackoff sets RETRY_BACKOFF, the pause between attempts.
func WithRetryBackoff(d time.Duration) Opt {
	return optFunc(func(c *config) { c.retryBackoff = d })
}

// WithRaiseError selects between returning an error sentinel (false)
// and raising (true, the default) on IO/protocol failures. Argument-
// validation failures are unaffected, per spec.md §7.
func WithRaiseError(raise bool) Opt {
	return optFunc(func(c *config) { c.raiseError = raise })
}

// WithoutAPIVersionProbe skips the per-connection API-version probe, a
// version-0 Metadata request sent on every new broker connection
// (spec.md §6's dont_load_supported_api_versions).
func WithoutAPIVersionProbe() Opt {
	return optFunc(func(c *config) { c.skipVersionProbe = true })
}

// WithLogger installs a Logger. Default is a no-op logger.
func WithLogger(l Logger) Opt {
	return optFunc(func(c *config) { c.logger = l })
}

// WithHooks installs observability hooks, additive per SPEC_FULL.md §9.
func WithHooks(hooks ...Hook) Opt {
	return optFunc(func(c *config) { c.hooks = append(c.hooks, hooks...) })
}
