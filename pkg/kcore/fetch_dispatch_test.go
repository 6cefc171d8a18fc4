package kcore

import (
	"testing"
	"time"

	"github.com/TrackingSoft/Kafka-sub004/internal/kcoretest"
)

func fetchResponseBody(t *testing.T, topic string, partition int32, hw int64, set *MessageSet) []byte {
	t.Helper()
	e := &prepEncoder{}
	e.putInt32(1) // one topic
	e.putString(topic)
	e.putInt32(1) // one partition
	e.putInt32(partition)
	e.putInt16(0) // ErrorCode
	e.putInt64(hw)

	setBytes := &prepEncoder{}
	if set != nil {
		if err := set.encode(setBytes); err != nil {
			t.Fatalf("encode message set: %v", err)
		}
	}
	e.putBytes(setBytes.bytes())
	return e.bytes()
}

func TestFetchRoundTripThroughMockBroker(t *testing.T) {
	topic := "events"
	set := &MessageSet{Messages: []MessageSetEntry{
		{Offset: 5, Message: Message{Value: []byte("payload")}},
	}}

	var srv *kcoretest.Server
	srv, err := kcoretest.NewServer(func(req kcoretest.Request) ([]byte, bool) {
		if req.ApiKey == int16(ApiKeyMetadata) {
			host, port := splitAddr(t, srv.Addr())
			return metadataResponseBody(t, host, port, topic), false
		}
		return fetchResponseBody(t, topic, 0, 6, set), false
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	defer srv.Close()

	conn, err := NewConnection(SeedBrokers(srv.Addr()), WithTimeout(2*time.Second))
	if err != nil {
		t.Fatalf("NewConnection: %v", err)
	}
	defer conn.Close()

	req := &FetchRequest{
		MaxWaitTime: 100 * time.Millisecond,
		MinBytes:    MinBytesImmediate,
		Topics: []FetchRequestTopic{{
			Topic:      topic,
			Partitions: []FetchRequestPartition{{Partition: 0, FetchOffset: 5, MaxBytes: 1024}},
		}},
	}
	resp, err := conn.Fetch(req)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(resp.Topics) != 1 || len(resp.Topics[0].Partitions) != 1 {
		t.Fatalf("expected one partition result, got %+v", resp)
	}
	part := resp.Topics[0].Partitions[0]
	if part.HighWatermark != 6 {
		t.Fatalf("got high watermark %d, want 6", part.HighWatermark)
	}
	if len(part.Set.Messages) != 1 || string(part.Set.Messages[0].Message.Value) != "payload" {
		t.Fatalf("unexpected fetched set: %+v", part.Set)
	}
}
