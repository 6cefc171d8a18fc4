package kcore

// OffsetRequest asks a partition's leader for offsets around a given
// point in time. Time is one of OffsetEarliest, OffsetLatest, or a
// millisecond-since-epoch value, per spec.md §4.2.
type OffsetRequest struct {
	Topics []OffsetRequestTopic
}

type OffsetRequestTopic struct {
	Topic      string
	Partitions []OffsetRequestPartition
}

type OffsetRequestPartition struct {
	Partition          int32
	Time               int64
	MaxNumberOfOffsets int32
}

func (r *OffsetRequest) key() ApiKey    { return ApiKeyOffset }
func (r *OffsetRequest) version() int16 { return 0 }

func (r *OffsetRequest) encode(pe packetEncoder) error {
	pe.putInt32(fetchReplicaID)
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
			pe.putInt64(p.Time)
			pe.putInt32(p.MaxNumberOfOffsets)
		}
	}
	return nil
}

type OffsetResponse struct {
	Topics []OffsetResponseTopic
}

type OffsetResponseTopic struct {
	Topic      string
	Partitions []OffsetResponsePartition
}

type OffsetResponsePartition struct {
	Partition int32
	ErrorCode int16
	Offsets   []int64
}

func (r *OffsetResponse) decode(pd packetDecoder, version int16) error {
	n, err := pd.getArrayLength()
	if err != nil {
		return err
	}
	r.Topics = make([]OffsetResponseTopic, n)
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
		r.Topics[i].Partitions = make([]OffsetResponsePartition, pn)
		for j := range r.Topics[i].Partitions {
			part, err := pd.getInt32()
			if err != nil {
				return err
			}
			code, err := pd.getInt16()
			if err != nil {
				return err
			}
			on, err := pd.getArrayLength()
			if err != nil {
				return err
			}
			offsets := make([]int64, on)
			for k := range offsets {
				offsets[k], err = pd.getInt64()
				if err != nil {
					return err
				}
			}
			r.Topics[i].Partitions[j] = OffsetResponsePartition{
				Partition: part, ErrorCode: code, Offsets: offsets,
			}
		}
	}
	return nil
}
