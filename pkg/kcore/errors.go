package kcore

import "fmt"

// ErrorCode identifies one member of the core's closed error taxonomy.
// Every failure the package surfaces maps to exactly one of these.
type ErrorCode int

const (
	ErrNone ErrorCode = iota
	ErrMismatchArgument
	ErrCannotSend
	ErrCannotRecv
	ErrCannotBind
	ErrResponseMessageNotReceived
	ErrNoConnection
	ErrNoKnownBrokers
	ErrUnknownTopicOrPartition
	ErrLeaderNotAvailable
	ErrNotLeaderForPartition
	ErrMetadataAttemptsFail
	ErrDescriptionMismatch
	ErrCompressionCodecUnavailable
)

var errorCodeNames = [...]string{
	ErrNone:                         "none",
	ErrMismatchArgument:             "MismatchArgument",
	ErrCannotSend:                   "CannotSend",
	ErrCannotRecv:                   "CannotRecv",
	ErrCannotBind:                   "CannotBind",
	ErrResponseMessageNotReceived:   "ResponseMessageNotReceived",
	ErrNoConnection:                 "NoConnection",
	ErrNoKnownBrokers:               "NoKnownBrokers",
	ErrUnknownTopicOrPartition:      "UnknownTopicOrPartition",
	ErrLeaderNotAvailable:           "LeaderNotAvailable",
	ErrNotLeaderForPartition:        "NotLeaderForPartition",
	ErrMetadataAttemptsFail:         "MetadataAttemptsFail",
	ErrDescriptionMismatch:         "DescriptionMismatch",
	ErrCompressionCodecUnavailable: "CompressionCodecUnavailable",
}

func (c ErrorCode) String() string {
	if int(c) < 0 || int(c) >= len(errorCodeNames) {
		return fmt.Sprintf("ErrorCode(%d)", int(c))
	}
	return errorCodeNames[c]
}

// Error is the concrete error type every operation in this package
// returns or raises. Code is stable and suitable for switch/Is
// comparisons; Cause, if present, is the underlying error that was
// wrapped (an *net.OpError, a decode failure, and so on).
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("kcore: %s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("kcore: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, ErrSentinelNoConnection) work against both a sentinel
// var of the same code and another *Error carrying that code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func newErr(code ErrorCode, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

func wrapErr(code ErrorCode, msg string, cause error) *Error {
	return &Error{Code: code, Message: msg, Cause: cause}
}

// Sentinel errors for the closed taxonomy in spec.md §4.4. Catch sites
// compare with errors.Is(err, kcore.ErrSentinelNoKnownBrokers) etc.; the Code
// field is what actually carries equality, so a freshly wrapped *Error
// of the same code matches its sentinel.
var (
	ErrSentinelMismatchArgument            = newErr(ErrMismatchArgument, "mismatched argument")
	ErrSentinelCannotSend                  = newErr(ErrCannotSend, "cannot send")
	ErrSentinelCannotRecv                  = newErr(ErrCannotRecv, "cannot receive")
	ErrSentinelCannotBind                  = newErr(ErrCannotBind, "cannot bind")
	ErrSentinelResponseMessageNotReceived  = newErr(ErrResponseMessageNotReceived, "response message not received")
	ErrSentinelNoConnection                = newErr(ErrNoConnection, "no connection")
	ErrSentinelNoKnownBrokers              = newErr(ErrNoKnownBrokers, "no known brokers")
	ErrSentinelUnknownTopicOrPartition     = newErr(ErrUnknownTopicOrPartition, "unknown topic or partition")
	ErrSentinelLeaderNotAvailable          = newErr(ErrLeaderNotAvailable, "leader not available")
	ErrSentinelNotLeaderForPartition       = newErr(ErrNotLeaderForPartition, "not leader for partition")
	ErrSentinelMetadataAttemptsFail        = newErr(ErrMetadataAttemptsFail, "metadata refresh attempts exhausted")
	ErrSentinelDescriptionMismatch         = newErr(ErrDescriptionMismatch, "description mismatch")
	ErrSentinelCompressionCodecUnavailable = newErr(ErrCompressionCodecUnavailable, "compression codec unavailable")
)

// partitionErrorCode classifies a per-partition wire error code into the
// taxonomy above, per spec.md §4.5 step 4. Zero is success and maps to
// ErrNone.
func partitionErrorCode(code int16) ErrorCode {
	switch code {
	case 0:
		return ErrNone
	case 3:
		return ErrUnknownTopicOrPartition
	case 5:
		return ErrLeaderNotAvailable
	case 6:
		return ErrNotLeaderForPartition
	default:
		return ErrDescriptionMismatch
	}
}
