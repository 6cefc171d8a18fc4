package kcore

import "time"

// ProduceRequest appends MessageSets to one or more topic/partitions.
// RequiredAcks and Timeout are per spec.md §4.2.
type ProduceRequest struct {
	RequiredAcks RequiredAcks
	Timeout      time.Duration
	Topics       []ProduceRequestTopic
}

type ProduceRequestTopic struct {
	Topic      string
	Partitions []ProduceRequestPartition
}

type ProduceRequestPartition struct {
	Partition int32
	Set       MessageSet
}

func (r *ProduceRequest) key() ApiKey  { return ApiKeyProduce }
func (r *ProduceRequest) version() int16 { return 0 }

func (r *ProduceRequest) encode(pe packetEncoder) error {
	pe.putInt16(int16(r.RequiredAcks))
	pe.putInt32(int32(r.Timeout / time.Millisecond))
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
			pe.push(&messageSizeField{})
			if err := p.Set.encode(pe); err != nil {
				return err
			}
			if err := pe.pop(); err != nil {
				return err
			}
		}
	}
	return nil
}

// ProduceResponse is empty when RequiredAcks == AcksNoResponse (the
// broker never replies and the Connection never waits for one); the
// caller sees a ProduceResponse with no Topics in that case, per
// spec.md §8 scenario 5.
type ProduceResponse struct {
	Topics []ProduceResponseTopic
}

type ProduceResponseTopic struct {
	Topic      string
	Partitions []ProduceResponsePartition
}

type ProduceResponsePartition struct {
	Partition int32
	ErrorCode int16
	Offset    int64
}

func (r *ProduceResponse) decode(pd packetDecoder, version int16) error {
	n, err := pd.getArrayLength()
	if err != nil {
		return err
	}
	r.Topics = make([]ProduceResponseTopic, n)
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
		r.Topics[i].Partitions = make([]ProduceResponsePartition, pn)
		for j := range r.Topics[i].Partitions {
			part, err := pd.getInt32()
			if err != nil {
				return err
			}
			code, err := pd.getInt16()
			if err != nil {
				return err
			}
			offset, err := pd.getInt64()
			if err != nil {
				return err
			}
			r.Topics[i].Partitions[j] = ProduceResponsePartition{
				Partition: part, ErrorCode: code, Offset: offset,
			}
		}
	}
	return nil
}
