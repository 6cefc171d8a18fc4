package kcore

import "testing"

func TestNewConnectionRejectsNoSeedBrokers(t *testing.T) {
	if _, err := NewConnection(); err == nil {
		t.Fatal("expected MismatchArgument with no seed brokers")
	} else if e, ok := err.(*Error); !ok || e.Code != ErrMismatchArgument {
		t.Fatalf("expected MismatchArgument, got %v", err)
	}
}

func TestNewConnectionRejectsEmptySeedAddress(t *testing.T) {
	if _, err := NewConnection(SeedBrokers("")); err == nil {
		t.Fatal("expected MismatchArgument for an empty seed address")
	}
}

func TestNewConnectionRejectsNonPositiveSendMaxAttempts(t *testing.T) {
	if _, err := NewConnection(SeedBrokers("127.0.0.1:9092"), WithSendMaxAttempts(0)); err == nil {
		t.Fatal("expected MismatchArgument for SEND_MAX_ATTEMPTS <= 0")
	}
}

func TestSeedHostPortJoinsAddress(t *testing.T) {
	conn, err := NewConnection(SeedHostPort("broker1", 9092))
	if err != nil {
		t.Fatalf("NewConnection: %v", err)
	}
	defer conn.Close()
	servers := conn.GetKnownServers()
	if len(servers) != 1 || servers[0] != "broker1:9092" {
		t.Fatalf("got %v, want [broker1:9092]", servers)
	}
}
