package kcore

import (
	"testing"
	"time"

	"github.com/TrackingSoft/Kafka-sub004/internal/kcoretest"
)

func TestOpenRejectsEmptyAddress(t *testing.T) {
	if _, err := Open("", time.Second, IPVersionAny, true); err == nil {
		t.Fatal("expected MismatchArgument for an empty address")
	} else if e, ok := err.(*Error); !ok || e.Code != ErrMismatchArgument {
		t.Fatalf("expected MismatchArgument, got %v", err)
	}
}

func TestOpenRejectsNonPositiveTimeout(t *testing.T) {
	if _, err := Open("127.0.0.1:9", 0, IPVersionAny, false); err == nil {
		t.Fatal("expected MismatchArgument regardless of raiseError")
	} else if e, ok := err.(*Error); !ok || e.Code != ErrMismatchArgument {
		t.Fatalf("expected MismatchArgument, got %v", err)
	}
}

func TestSendRejectsEmptyBuffer(t *testing.T) {
	srv, err := kcoretest.NewServer(kcoretest.CloseImmediately)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	defer srv.Close()

	h, err := Open(srv.Addr(), time.Second, IPVersionAny, true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h.Close()

	if _, err := h.Send(nil); err == nil {
		t.Fatal("expected MismatchArgument for an empty buffer")
	} else if e, ok := err.(*Error); !ok || e.Code != ErrMismatchArgument {
		t.Fatalf("expected MismatchArgument, got %v", err)
	}
}

func TestReceiveRejectsNonPositiveLength(t *testing.T) {
	srv, err := kcoretest.NewServer(kcoretest.CloseImmediately)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	defer srv.Close()

	h, err := Open(srv.Addr(), time.Second, IPVersionAny, true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h.Close()

	if _, err := h.Receive(0); err == nil {
		t.Fatal("expected MismatchArgument for a non-positive length")
	} else if e, ok := err.(*Error); !ok || e.Code != ErrMismatchArgument {
		t.Fatalf("expected MismatchArgument, got %v", err)
	}
}

func TestSendFailsAfterPeerCloses(t *testing.T) {
	srv, err := kcoretest.NewServer(kcoretest.CloseImmediately)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	defer srv.Close()

	for _, raise := range []bool{true, false} {
		h, err := Open(srv.Addr(), time.Second, IPVersionAny, true)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		h.raiseError = raise

		// CloseImmediately drops the socket only after reading one whole
		// frame. The trailing bytes it never reads make that close reset
		// the connection, so the next write fails.
		frame, err := encodeRequest(&MetadataRequest{}, 1, "test")
		if err != nil {
			t.Fatalf("encodeRequest: %v", err)
		}
		if _, err := h.Send(append(frame, "unread"...)); err != nil {
			t.Fatalf("first Send: %v", err)
		}

		// Give the mock server a moment to read the frame and close the socket.
		time.Sleep(20 * time.Millisecond)

		_, sendErr := h.Send([]byte("anything"))
		if raise {
			if sendErr == nil {
				t.Fatal("expected an error with raiseError=true")
			}
		} else if sendErr != nil {
			t.Fatalf("expected a nil error with raiseError=false, got %v", sendErr)
		}
		if h.LastErrorCode() == ErrNone {
			t.Fatal("LastErrorCode should record the failure regardless of raiseError")
		}
		h.Close()
	}
}

func TestReceiveFrameRejectsZeroLengthFrame(t *testing.T) {
	srv, err := kcoretest.NewServer(kcoretest.ZeroLengthFrame)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	defer srv.Close()

	h, err := Open(srv.Addr(), time.Second, IPVersionAny, true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h.Close()

	req := &MetadataRequest{}
	frame, err := encodeRequest(req, 1, "test")
	if err != nil {
		t.Fatalf("encodeRequest: %v", err)
	}
	if _, err := h.Send(frame); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := h.ReceiveFrame(); err == nil {
		t.Fatal("expected ResponseMessageNotReceived for a zero-length frame")
	} else if e, ok := err.(*Error); !ok || e.Code != ErrResponseMessageNotReceived {
		t.Fatalf("expected ResponseMessageNotReceived, got %v", err)
	}
}
