package kcore

import "testing"

func encodeMessage(t *testing.T, m *Message) []byte {
	t.Helper()
	e := &prepEncoder{}
	if err := m.encode(e); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return e.bytes()
}

func TestMessageRoundTrip(t *testing.T) {
	in := &Message{Key: []byte("k"), Value: []byte("hello")}
	raw := encodeMessage(t, in)

	var out Message
	if err := out.decode(&realDecoder{raw: raw}); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.Valid {
		t.Fatal("expected Valid == true for an untampered message")
	}
	if string(out.Key) != "k" || string(out.Value) != "hello" {
		t.Fatalf("got key=%q value=%q", out.Key, out.Value)
	}
}

func TestMessageCRCTamperSetsInvalid(t *testing.T) {
	in := &Message{Value: []byte("hello")}
	raw := encodeMessage(t, in)
	raw[0] ^= 0xff // flip every bit of the CRC field's first byte

	var out Message
	if err := out.decode(&realDecoder{raw: raw}); err != nil {
		t.Fatalf("decode should not abort on a CRC mismatch: %v", err)
	}
	if out.Valid {
		t.Fatal("expected Valid == false after tampering with the CRC")
	}
	if string(out.Value) != "hello" {
		t.Fatalf("payload should still decode despite CRC mismatch, got %q", out.Value)
	}
}

func TestMessageSetRoundTrip(t *testing.T) {
	in := &MessageSet{Messages: []MessageSetEntry{
		{Offset: 10, Message: Message{Value: []byte("a")}},
		{Offset: 11, Message: Message{Value: []byte("b")}},
	}}
	e := &prepEncoder{}
	if err := in.encode(e); err != nil {
		t.Fatalf("encode: %v", err)
	}

	var out MessageSet
	if err := out.decode(&realDecoder{raw: e.bytes()}); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(out.Messages))
	}
	if out.Messages[0].Offset != 10 || string(out.Messages[0].Message.Value) != "a" {
		t.Fatalf("unexpected first entry: %+v", out.Messages[0])
	}
	if out.Messages[1].Offset != 11 || string(out.Messages[1].Message.Value) != "b" {
		t.Fatalf("unexpected second entry: %+v", out.Messages[1])
	}
}

func TestMessageSetDropsTruncatedTail(t *testing.T) {
	in := &MessageSet{Messages: []MessageSetEntry{
		{Offset: 0, Message: Message{Value: []byte("whole")}},
		{Offset: 1, Message: Message{Value: []byte("truncated")}},
	}}
	e := &prepEncoder{}
	if err := in.encode(e); err != nil {
		t.Fatalf("encode: %v", err)
	}
	full := e.bytes()
	truncated := full[:len(full)-3] // chop the end of the second entry

	var out MessageSet
	if err := out.decode(&realDecoder{raw: truncated}); err != nil {
		t.Fatalf("decode should tolerate a truncated tail, got error: %v", err)
	}
	if len(out.Messages) != 1 {
		t.Fatalf("got %d messages, want 1 (truncated entry dropped)", len(out.Messages))
	}
	if string(out.Messages[0].Message.Value) != "whole" {
		t.Fatalf("unexpected surviving entry: %+v", out.Messages[0])
	}
}
