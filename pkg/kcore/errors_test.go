package kcore

import (
	"errors"
	"testing"
)

func TestErrorIsMatchesSentinelByCode(t *testing.T) {
	wrapped := wrapErr(ErrCannotRecv, "read failed", nil)
	if !errors.Is(wrapped, ErrSentinelCannotRecv) {
		t.Fatal("expected errors.Is to match on ErrorCode")
	}
	if errors.Is(wrapped, ErrSentinelCannotSend) {
		t.Fatal("expected errors.Is to reject a different ErrorCode")
	}
}

func TestErrorUnwrapExposesCause(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	wrapped := wrapErr(ErrCannotBind, "dial failed", cause)
	if errors.Unwrap(wrapped) != cause {
		t.Fatal("expected Unwrap to return the original cause")
	}
}

func TestPartitionErrorCodeClassification(t *testing.T) {
	cases := map[int16]ErrorCode{
		0: ErrNone,
		3: ErrUnknownTopicOrPartition,
		5: ErrLeaderNotAvailable,
		6: ErrNotLeaderForPartition,
		99: ErrDescriptionMismatch,
	}
	for code, want := range cases {
		if got := partitionErrorCode(code); got != want {
			t.Fatalf("partitionErrorCode(%d) = %v, want %v", code, got, want)
		}
	}
}
