package kcore

// TopicMetadata is the partition -> {leader, replicas, isr, error}
// mapping described in spec.md §3, cached per topic on the Connection.
type TopicMetadata struct {
	ErrorCode  int16
	Partitions map[int32]MetadataPartition
}

// refreshMetadata sends a Metadata request to the first reachable
// known server and, on success, atomically replaces the topic and
// node-table caches — "on failure, keep the old cache", per spec.md
// §4.5. Any known-server is acceptable for a Metadata request (spec.md
// §4.5 step 1).
func (c *Connection) refreshMetadata(topics []string) error {
	servers := c.servers.Sorted()
	if len(servers) == 0 {
		return ErrSentinelNoKnownBrokers
	}

	var lastErr error
	for _, addr := range servers {
		bs, err := c.getOrOpenBroker(addr)
		if err != nil {
			lastErr = err
			c.recordServerError(addr, err)
			continue
		}

		req := &MetadataRequest{Topics: topics}
		resp := &MetadataResponse{}
		if err := c.sendRequest(bs, req, resp, false); err != nil {
			lastErr = err
			c.recordServerError(addr, err)
			c.closeBrokerByAddr(addr)
			continue
		}

		c.applyMetadata(resp)
		c.clearServerError(addr)
		return nil
	}

	if lastErr == nil {
		lastErr = ErrSentinelMetadataAttemptsFail
	}
	return wrapErr(ErrMetadataAttemptsFail, "metadata refresh failed on every known server", lastErr)
}

func (c *Connection) applyMetadata(resp *MetadataResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	nodeTable := make(map[int32]string, len(resp.Brokers))
	for _, b := range resp.Brokers {
		addr := joinHostPort(b.Host, int(b.Port))
		nodeTable[b.NodeID] = addr
		c.servers.Add(addr)
	}

	for _, t := range resp.Topics {
		tm := &TopicMetadata{
			ErrorCode:  t.ErrorCode,
			Partitions: make(map[int32]MetadataPartition, len(t.Partitions)),
		}
		for _, p := range t.Partitions {
			tm.Partitions[p.Partition] = p
		}
		c.metadata[t.Topic] = tm
	}
	c.nodeTable = nodeTable
}

// leaderFor returns the addr of the partition's leader, refreshing
// metadata first if the topic is absent from the cache (spec.md §4.5
// step 1). A partition with a non-zero error code has no usable
// leader, per spec.md §3's invariant.
func (c *Connection) leaderFor(topic string, partition int32) (string, error) {
	c.mu.Lock()
	tm, ok := c.metadata[topic]
	c.mu.Unlock()

	if !ok {
		if err := c.refreshMetadata([]string{topic}); err != nil {
			return "", err
		}
		c.mu.Lock()
		tm, ok = c.metadata[topic]
		c.mu.Unlock()
		if !ok {
			return "", ErrSentinelUnknownTopicOrPartition
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if tm.ErrorCode != 0 {
		return "", classifyWireError(tm.ErrorCode)
	}
	pm, ok := tm.Partitions[partition]
	if !ok {
		return "", ErrSentinelUnknownTopicOrPartition
	}
	if pm.ErrorCode != 0 {
		return "", classifyWireError(pm.ErrorCode)
	}
	addr, ok := c.nodeTable[pm.Leader]
	if !ok {
		return "", ErrSentinelLeaderNotAvailable
	}
	return addr, nil
}

func classifyWireError(code int16) error {
	switch partitionErrorCode(code) {
	case ErrUnknownTopicOrPartition:
		return ErrSentinelUnknownTopicOrPartition
	case ErrLeaderNotAvailable:
		return ErrSentinelLeaderNotAvailable
	case ErrNotLeaderForPartition:
		return ErrSentinelNotLeaderForPartition
	default:
		return ErrSentinelDescriptionMismatch
	}
}

// invalidateTopic drops topic from the metadata cache so the next
// leaderFor call forces a refresh, per spec.md §4.5 step 4's handling
// of LeaderNotAvailable / NotLeaderForPartition.
func (c *Connection) invalidateTopic(topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.metadata, topic)
}

// ExistsTopicPartition reports whether partition is present (and
// error-free) in the cached metadata for topic, refreshing once if the
// topic is not yet cached.
func (c *Connection) ExistsTopicPartition(topic string, partition int32) bool {
	_, err := c.leaderFor(topic, partition)
	return err == nil
}
