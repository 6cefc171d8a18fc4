package kcore

import "time"

// FetchRequest reads message sets from one or more topic/partitions at
// a given offset, per spec.md §4.2. MaxWaitTime and MinBytes match
// spec.md's MinBytes modes (IMMEDIATE=0, HAS_DATA=1, or N>1).
type FetchRequest struct {
	MaxWaitTime time.Duration
	MinBytes    MinBytes
	Topics      []FetchRequestTopic
}

type FetchRequestTopic struct {
	Topic      string
	Partitions []FetchRequestPartition
}

type FetchRequestPartition struct {
	Partition   int32
	FetchOffset int64
	MaxBytes    int32
}

func (r *FetchRequest) key() ApiKey    { return ApiKeyFetch }
func (r *FetchRequest) version() int16 { return 0 }

const fetchReplicaID = -1 // non-replica clients always send -1 as the replica id

func (r *FetchRequest) encode(pe packetEncoder) error {
	pe.putInt32(fetchReplicaID)
	pe.putInt32(int32(r.MaxWaitTime / time.Millisecond))
	pe.putInt32(int32(r.MinBytes))
	if err := pe.putArrayLength(len(r.Topics)); err != nil {
		return err
	}
	for _, t := range r.Topics {
		pe.putString(t.Topic)
		if err := pe.putArrayLength(len(t.Partitions)); err != nil {
			return err
		}
		for _, p := range t.Partitions {
			pe.putInt32(p.Partition)
			pe.putInt64(p.FetchOffset)
			pe.putInt32(p.MaxBytes)
		}
	}
	return nil
}

// FetchResponse carries, per partition, the leading Messages actually
// fetched. A trailing message-set entry whose declared size exceeds
// the bytes the broker actually sent is dropped during decode rather
// than surfaced as an error (spec.md §4.2 robustness rule (ii); see
// MessageSet.decode).
type FetchResponse struct {
	Topics []FetchResponseTopic
}

type FetchResponseTopic struct {
	Topic      string
	Partitions []FetchResponsePartition
}

type FetchResponsePartition struct {
	Partition     int32
	ErrorCode     int16
	HighWatermark int64
	Set           MessageSet
}

func (r *FetchResponse) decode(pd packetDecoder, version int16) error {
	n, err := pd.getArrayLength()
	if err != nil {
		return err
	}
	r.Topics = make([]FetchResponseTopic, n)
	for i := range r.Topics {
		topic, err := pd.getString()
		if err != nil {
			return err
		}
		r.Topics[i].Topic = topic

		pn, err := pd.getArrayLength()
		if err != nil {
			return err
		}
		r.Topics[i].Partitions = make([]FetchResponsePartition, pn)
		for j := range r.Topics[i].Partitions {
			part, err := pd.getInt32()
			if err != nil {
				return err
			}
			code, err := pd.getInt16()
			if err != nil {
				return err
			}
			hw, err := pd.getInt64()
			if err != nil {
				return err
			}
			setBytes, err := pd.getBytes()
			if err != nil {
				return err
			}
			var set MessageSet
			if len(setBytes) > 0 {
				if err := set.decode(&realDecoder{raw: setBytes}); err != nil {
					return err
				}
			}
			r.Topics[i].Partitions[j] = FetchResponsePartition{
				Partition: part, ErrorCode: code, HighWatermark: hw, Set: set,
			}
		}
	}
	return nil
}
