package kcore

// ApiKey selects which request/response variant a frame carries.
type ApiKey int16

const (
	ApiKeyProduce  ApiKey = 0
	ApiKeyFetch    ApiKey = 1
	ApiKeyOffset   ApiKey = 2
	ApiKeyMetadata ApiKey = 3
)

func (k ApiKey) String() string {
	switch k {
	case ApiKeyProduce:
		return "Produce"
	case ApiKeyFetch:
		return "Fetch"
	case ApiKeyOffset:
		return "Offset"
	case ApiKeyMetadata:
		return "Metadata"
	default:
		return "Unknown"
	}
}

// RequiredAcks selects a Produce request's durability requirement.
type RequiredAcks int16

const (
	AcksNoResponse          RequiredAcks = 0
	AcksWaitLocalLog        RequiredAcks = 1
	AcksBlockUntilCommitted RequiredAcks = -1
)

// MinBytes selects a Fetch request's wait-for-data behavior.
type MinBytes int32

const (
	MinBytesImmediate MinBytes = 0
	MinBytesHasData   MinBytes = 1
)

// Offset time selectors for an Offset request, per spec.md §4.2.
const (
	OffsetEarliest int64 = -2
	OffsetLatest   int64 = -1
)

// BITS64 reports whether the host has native 64-bit integers. It is
// always true under Go (int64/uint64 are native on every supported
// platform) and is exposed only because spec.md §6 names it as a
// caller-visible constant; see DESIGN.md Open Question (iv).
const BITS64 = true

// Protocol-wide defaults, surfaced to callers per spec.md §6.
const (
	DefaultTimeoutSeconds     = 1.5
	DefaultSendMaxAttempts    = 4
	DefaultMaxWaitTimeMs      = 100
	DefaultMaxBytes     int32 = 1024 * 1024
	DefaultMaxNumberOfOffsets = 100
)

// IPVersion constrains address resolution in IO.Open.
type IPVersion int8

const (
	IPVersionAny IPVersion = 0
	IPVersionV4  IPVersion = 4
	IPVersionV6  IPVersion = 6
)

func (v IPVersion) network() string {
	switch v {
	case IPVersionV4:
		return "tcp4"
	case IPVersionV6:
		return "tcp6"
	default:
		return "tcp"
	}
}
