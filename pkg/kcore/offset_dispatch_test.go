package kcore

import (
	"testing"
	"time"

	"github.com/TrackingSoft/Kafka-sub004/internal/kcoretest"
)

func offsetResponseBody(t *testing.T, topic string, partition int32, offsets []int64) []byte {
	t.Helper()
	e := &prepEncoder{}
	e.putInt32(1) // one topic
	e.putString(topic)
	e.putInt32(1) // one partition
	e.putInt32(partition)
	e.putInt16(0) // ErrorCode
	e.putInt32(int32(len(offsets)))
	for _, o := range offsets {
		e.putInt64(o)
	}
	return e.bytes()
}

func TestOffsetRoundTripThroughMockBroker(t *testing.T) {
	topic := "events"
	var srv *kcoretest.Server
	srv, err := kcoretest.NewServer(func(req kcoretest.Request) ([]byte, bool) {
		if req.ApiKey == int16(ApiKeyMetadata) {
			host, port := splitAddr(t, srv.Addr())
			return metadataResponseBody(t, host, port, topic), false
		}
		return offsetResponseBody(t, topic, 0, []int64{100, 50, 0}), false
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

	req := &OffsetRequest{
		Topics: []OffsetRequestTopic{{
			Topic:      topic,
			Partitions: []OffsetRequestPartition{{Partition: 0, Time: OffsetLatest, MaxNumberOfOffsets: 3}},
		}},
	}
	resp, err := conn.Offset(req)
	if err != nil {
		t.Fatalf("Offset: %v", err)
	}
	if len(resp.Topics) != 1 || len(resp.Topics[0].Partitions) != 1 {
		t.Fatalf("expected one partition result, got %+v", resp)
	}
	offsets := resp.Topics[0].Partitions[0].Offsets
	if len(offsets) != 3 || offsets[0] != 100 {
		t.Fatalf("unexpected offsets: %v", offsets)
	}
}
