package kcore

// MetadataRequest asks any known broker for the cluster's current
// broker list and, optionally, the partition layout of specific
// topics. An empty Topics slice requests metadata for all topics; per
// spec.md §4.5, a single empty-string topic name is invalid and is
// rejected before any IO (see Connection.GetMetadata).
type MetadataRequest struct {
	Topics []string
}

func (r *MetadataRequest) key() ApiKey    { return ApiKeyMetadata }
func (r *MetadataRequest) version() int16 { return 0 }

func (r *MetadataRequest) encode(pe packetEncoder) error {
	if err := pe.putArrayLength(len(r.Topics)); err != nil {
		return err
	}
	for _, t := range r.Topics {
		pe.putString(t)
	}
	return nil
}

// MetadataResponse describes the cluster as a flat broker list plus,
// per topic, a partition map. Connection.refreshMetadata folds this
// into the node-table and topic->PartitionMetadata caches described in
// spec.md §3.
type MetadataResponse struct {
	Brokers []MetadataBroker
	Topics  []MetadataTopic
}

type MetadataBroker struct {
	NodeID int32
	Host   string
	Port   int32
}

type MetadataTopic struct {
	Topic      string
	ErrorCode  int16
	Partitions []MetadataPartition
}

// MetadataPartition mirrors spec.md §3's broker metadata invariants:
// a partition whose ErrorCode is non-zero may have an undefined Leader
// and must not be routed to (Connection.leaderFor enforces this).
type MetadataPartition struct {
	Partition      int32
	ErrorCode      int16
	Leader         int32
	Replicas       []int32
	InSyncReplicas []int32
}

func (r *MetadataResponse) decode(pd packetDecoder, version int16) error {
	bn, err := pd.getArrayLength()
	if err != nil {
		return err
	}
	r.Brokers = make([]MetadataBroker, bn)
	for i := range r.Brokers {
		id, err := pd.getInt32()
		if err != nil {
			return err
		}
		host, err := pd.getString()
		if err != nil {
			return err
		}
		port, err := pd.getInt32()
		if err != nil {
			return err
		}
		r.Brokers[i] = MetadataBroker{NodeID: id, Host: host, Port: port}
	}

	tn, err := pd.getArrayLength()
	if err != nil {
		return err
	}
	r.Topics = make([]MetadataTopic, tn)
	for i := range r.Topics {
		code, err := pd.getInt16()
		if err != nil {
			return err
		}
		topic, err := pd.getString()
		if err != nil {
			return err
		}
		r.Topics[i].ErrorCode = code
		r.Topics[i].Topic = topic

		pn, err := pd.getArrayLength()
		if err != nil {
			return err
		}
		r.Topics[i].Partitions = make([]MetadataPartition, pn)
		for j := range r.Topics[i].Partitions {
			perr, err := pd.getInt16()
			if err != nil {
				return err
			}
			part, err := pd.getInt32()
			if err != nil {
				return err
			}
			leader, err := pd.getInt32()
			if err != nil {
				return err
			}
			replicas, err := decodeInt32Array(pd)
			if err != nil {
				return err
			}
			isr, err := decodeInt32Array(pd)
			if err != nil {
				return err
			}
			r.Topics[i].Partitions[j] = MetadataPartition{
				Partition: part, ErrorCode: perr, Leader: leader,
				Replicas: replicas, InSyncReplicas: isr,
			}
		}
	}
	return nil
}

func decodeInt32Array(pd packetDecoder) ([]int32, error) {
	n, err := pd.getArrayLength()
	if err != nil {
		return nil, err
	}
	out := make([]int32, n)
	for i := range out {
		out[i], err = pd.getInt32()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
