package kcore

import "time"

// partitionKey identifiers a single topic/partition, used to group
// requests by leader and to merge per-partition results back together.
type partitionKey struct {
	topic     string
	partition int32
}

// produceTask is one partition's worth of a ProduceRequest still
// awaiting a terminal outcome.
type produceTask struct {
	key    partitionKey
	set    MessageSet
	result *ProduceResponsePartition
	err    error
}

// Produce implements spec.md §4.5's routing algorithm for Produce
// requests: group by leader, attempt per group with retry/backoff,
// classify per-partition errors, retry against a refreshed leader on
// LeaderNotAvailable/NotLeaderForPartition, surface
// UnknownTopicOrPartition immediately as non-retryable.
//
// RequiredAcks == AcksNoResponse returns an empty response immediately
// after the writes are issued, per spec.md §8 scenario 5 — there is
// nothing to retry because the broker never replies.
func (c *Connection) Produce(req *ProduceRequest) (*ProduceResponse, error) {
	tasks := make([]*produceTask, 0)
	for _, t := range req.Topics {
		for _, p := range t.Partitions {
			tasks = append(tasks, &produceTask{
				key: partitionKey{topic: t.Topic, partition: p.Partition},
				set: p.Set,
			})
		}
	}

	if req.RequiredAcks == AcksNoResponse {
		groups := c.groupProduceByLeader(tasks)
		for addr, group := range groups {
			bs, err := c.getOrOpenBroker(addr)
			if err != nil {
				c.recordServerError(addr, err)
				continue
			}
			sub := buildProduceSubRequest(req, group)
			_ = c.sendRequest(bs, sub, &ProduceResponse{}, true)
		}
		return &ProduceResponse{}, nil
	}

	var lastErr error
	metadataEverSucceeded := false

	for attempt := 0; attempt < c.cfg.sendMaxAttempts && !allProduceDone(tasks); attempt++ {
		groups := c.groupProduceByLeader(tasks)
		for addr, group := range groups {
			bs, err := c.getOrOpenBroker(addr)
			if err != nil {
				lastErr = err
				c.recordServerError(addr, err)
				continue
			}

			sub := buildProduceSubRequest(req, group)
			resp := &ProduceResponse{}
			if err := c.sendRequest(bs, sub, resp, false); err != nil {
				lastErr = err
				c.recordServerError(addr, err)
				c.closeBrokerByAddr(addr)
				continue
			}
			c.clearServerError(addr)
			metadataEverSucceeded = true
			c.applyProduceResults(group, resp, &lastErr)
		}

		if !allProduceDone(tasks) && attempt < c.cfg.sendMaxAttempts-1 {
			time.Sleep(c.cfg.retryBackoff)
		}
	}

	resp := &ProduceResponse{}
	topicIndex := map[string]int{}
	for _, t := range tasks {
		if t.result == nil {
			continue
		}
		idx, ok := topicIndex[t.key.topic]
		if !ok {
			idx = len(resp.Topics)
			topicIndex[t.key.topic] = idx
			resp.Topics = append(resp.Topics, ProduceResponseTopic{Topic: t.key.topic})
		}
		resp.Topics[idx].Partitions = append(resp.Topics[idx].Partitions, *t.result)
	}

	if !allProduceDone(tasks) {
		if !metadataEverSucceeded && lastErr == nil {
			return resp, c.raiseOrSuppress(ErrSentinelMetadataAttemptsFail)
		}
		if lastErr == nil {
			lastErr = ErrSentinelMetadataAttemptsFail
		}
		return resp, c.raiseOrSuppress(lastErr)
	}
	for _, t := range tasks {
		if t.err != nil {
			return resp, c.raiseOrSuppress(t.err)
		}
	}
	return resp, nil
}

func allProduceDone(tasks []*produceTask) bool {
	for _, t := range tasks {
		if t.result == nil && t.err == nil {
			return false
		}
	}
	return true
}

func (c *Connection) groupProduceByLeader(tasks []*produceTask) map[string][]*produceTask {
	groups := make(map[string][]*produceTask)
	for _, t := range tasks {
		if t.result != nil || t.err != nil {
			continue
		}
		addr, err := c.leaderFor(t.key.topic, t.key.partition)
		if err != nil {
			if isTerminal(err) {
				t.err = err
				continue
			}
			// transient (e.g. LeaderNotAvailable before any metadata
			// has ever loaded): stays pending for the next round.
			continue
		}
		groups[addr] = append(groups[addr], t)
	}
	return groups
}

func isTerminal(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Code == ErrUnknownTopicOrPartition
}

func buildProduceSubRequest(orig *ProduceRequest, group []*produceTask) *ProduceRequest {
	byTopic := map[string]*ProduceRequestTopic{}
	sub := &ProduceRequest{RequiredAcks: orig.RequiredAcks, Timeout: orig.Timeout}
	for _, t := range group {
		rt, ok := byTopic[t.key.topic]
		if !ok {
			sub.Topics = append(sub.Topics, ProduceRequestTopic{Topic: t.key.topic})
			rt = &sub.Topics[len(sub.Topics)-1]
			byTopic[t.key.topic] = rt
		}
		rt.Partitions = append(rt.Partitions, ProduceRequestPartition{
			Partition: t.key.partition,
			Set:       t.set,
		})
	}
	return sub
}

func (c *Connection) applyProduceResults(group []*produceTask, resp *ProduceResponse, lastErr *error) {
	byKey := map[partitionKey]ProduceResponsePartition{}
	for _, t := range resp.Topics {
		for _, p := range t.Partitions {
			byKey[partitionKey{topic: t.Topic, partition: p.Partition}] = p
		}
	}
	for _, t := range group {
		p, ok := byKey[t.key]
		if !ok {
			continue
		}
		result := p
		c.classifyAndResolve(t.key.topic, p.ErrorCode, lastErr, func() {
			t.result = &result
		}, func(terminal bool, classified error) {
			if terminal {
				t.err = classified
			}
			*lastErr = classified
		})
	}
}

// classifyAndResolve applies spec.md §4.5 step 4's per-partition error
// classification: success merges, LeaderNotAvailable/
// NotLeaderForPartition invalidate the topic's cached metadata so the
// next round regroups against a refreshed leader, UnknownTopicOrPartition
// is terminal and not retried.
func (c *Connection) classifyAndResolve(topic string, code int16, lastErr *error, onSuccess func(), onFailure func(terminal bool, err error)) {
	switch partitionErrorCode(code) {
	case ErrNone:
		onSuccess()
	case ErrLeaderNotAvailable, ErrNotLeaderForPartition:
		c.invalidateTopic(topic)
		onFailure(false, classifyWireError(code))
	case ErrUnknownTopicOrPartition:
		onFailure(true, classifyWireError(code))
	default:
		onFailure(false, classifyWireError(code))
	}
}

// fetchTask is one partition's worth of a FetchRequest still awaiting a
// terminal outcome.
type fetchTask struct {
	key      partitionKey
	offset   int64
	maxBytes int32
	result   *FetchResponsePartition
	err      error
}

// Fetch implements the same grouped routing algorithm as Produce for
// FetchRequests: group by leader, attempt with retry/backoff, classify
// per-partition errors, regroup against a refreshed leader on
// LeaderNotAvailable/NotLeaderForPartition.
func (c *Connection) Fetch(req *FetchRequest) (*FetchResponse, error) {
	tasks := make([]*fetchTask, 0)
	for _, t := range req.Topics {
		for _, p := range t.Partitions {
			tasks = append(tasks, &fetchTask{
				key:      partitionKey{topic: t.Topic, partition: p.Partition},
				offset:   p.FetchOffset,
				maxBytes: p.MaxBytes,
			})
		}
	}

	var lastErr error
	metadataEverSucceeded := false

	for attempt := 0; attempt < c.cfg.sendMaxAttempts && !allFetchDone(tasks); attempt++ {
		groups := c.groupFetchByLeader(tasks)
		for addr, group := range groups {
			bs, err := c.getOrOpenBroker(addr)
			if err != nil {
				lastErr = err
				c.recordServerError(addr, err)
				continue
			}

			sub := buildFetchSubRequest(req, group)
			resp := &FetchResponse{}
			if err := c.sendRequest(bs, sub, resp, false); err != nil {
				lastErr = err
				c.recordServerError(addr, err)
				c.closeBrokerByAddr(addr)
				continue
			}
			c.clearServerError(addr)
			metadataEverSucceeded = true
			c.applyFetchResults(group, resp, &lastErr)
		}

		if !allFetchDone(tasks) && attempt < c.cfg.sendMaxAttempts-1 {
			time.Sleep(c.cfg.retryBackoff)
		}
	}

	resp := &FetchResponse{}
	topicIndex := map[string]int{}
	for _, t := range tasks {
		if t.result == nil {
			continue
		}
		idx, ok := topicIndex[t.key.topic]
		if !ok {
			idx = len(resp.Topics)
			topicIndex[t.key.topic] = idx
			resp.Topics = append(resp.Topics, FetchResponseTopic{Topic: t.key.topic})
		}
		resp.Topics[idx].Partitions = append(resp.Topics[idx].Partitions, *t.result)
	}

	if !allFetchDone(tasks) {
		if !metadataEverSucceeded && lastErr == nil {
			return resp, c.raiseOrSuppress(ErrSentinelMetadataAttemptsFail)
		}
		if lastErr == nil {
			lastErr = ErrSentinelMetadataAttemptsFail
		}
		return resp, c.raiseOrSuppress(lastErr)
	}
	for _, t := range tasks {
		if t.err != nil {
			return resp, c.raiseOrSuppress(t.err)
		}
	}
	return resp, nil
}

func allFetchDone(tasks []*fetchTask) bool {
	for _, t := range tasks {
		if t.result == nil && t.err == nil {
			return false
		}
	}
	return true
}

func (c *Connection) groupFetchByLeader(tasks []*fetchTask) map[string][]*fetchTask {
	groups := make(map[string][]*fetchTask)
	for _, t := range tasks {
		if t.result != nil || t.err != nil {
			continue
		}
		addr, err := c.leaderFor(t.key.topic, t.key.partition)
		if err != nil {
			if isTerminal(err) {
				t.err = err
				continue
			}
			continue
		}
		groups[addr] = append(groups[addr], t)
	}
	return groups
}

func buildFetchSubRequest(orig *FetchRequest, group []*fetchTask) *FetchRequest {
	byTopic := map[string]*FetchRequestTopic{}
	sub := &FetchRequest{MaxWaitTime: orig.MaxWaitTime, MinBytes: orig.MinBytes}
	for _, t := range group {
		rt, ok := byTopic[t.key.topic]
		if !ok {
			sub.Topics = append(sub.Topics, FetchRequestTopic{Topic: t.key.topic})
			rt = &sub.Topics[len(sub.Topics)-1]
			byTopic[t.key.topic] = rt
		}
		rt.Partitions = append(rt.Partitions, FetchRequestPartition{
			Partition:   t.key.partition,
			FetchOffset: t.offset,
			MaxBytes:    t.maxBytes,
		})
	}
	return sub
}

func (c *Connection) applyFetchResults(group []*fetchTask, resp *FetchResponse, lastErr *error) {
	byKey := map[partitionKey]FetchResponsePartition{}
	for _, t := range resp.Topics {
		for _, p := range t.Partitions {
			byKey[partitionKey{topic: t.Topic, partition: p.Partition}] = p
		}
	}
	for _, t := range group {
		p, ok := byKey[t.key]
		if !ok {
			continue
		}
		result := p
		c.classifyAndResolve(t.key.topic, p.ErrorCode, lastErr, func() {
			t.result = &result
		}, func(terminal bool, classified error) {
			if terminal {
				t.err = classified
			}
			*lastErr = classified
		})
	}
}

// offsetTask is one partition's worth of an OffsetRequest still awaiting
// a terminal outcome.
type offsetTask struct {
	key                partitionKey
	time               int64
	maxNumberOfOffsets int32
	result             *OffsetResponsePartition
	err                error
}

// Offset implements the same grouped routing algorithm as Produce and
// Fetch for OffsetRequests.
func (c *Connection) Offset(req *OffsetRequest) (*OffsetResponse, error) {
	tasks := make([]*offsetTask, 0)
	for _, t := range req.Topics {
		for _, p := range t.Partitions {
			tasks = append(tasks, &offsetTask{
				key:                partitionKey{topic: t.Topic, partition: p.Partition},
				time:               p.Time,
				maxNumberOfOffsets: p.MaxNumberOfOffsets,
			})
		}
	}

	var lastErr error
	metadataEverSucceeded := false

	for attempt := 0; attempt < c.cfg.sendMaxAttempts && !allOffsetDone(tasks); attempt++ {
		groups := c.groupOffsetByLeader(tasks)
		for addr, group := range groups {
			bs, err := c.getOrOpenBroker(addr)
			if err != nil {
				lastErr = err
				c.recordServerError(addr, err)
				continue
			}

			sub := buildOffsetSubRequest(group)
			resp := &OffsetResponse{}
			if err := c.sendRequest(bs, sub, resp, false); err != nil {
				lastErr = err
				c.recordServerError(addr, err)
				c.closeBrokerByAddr(addr)
				continue
			}
			c.clearServerError(addr)
			metadataEverSucceeded = true
			c.applyOffsetResults(group, resp, &lastErr)
		}

		if !allOffsetDone(tasks) && attempt < c.cfg.sendMaxAttempts-1 {
			time.Sleep(c.cfg.retryBackoff)
		}
	}

	resp := &OffsetResponse{}
	topicIndex := map[string]int{}
	for _, t := range tasks {
		if t.result == nil {
			continue
		}
		idx, ok := topicIndex[t.key.topic]
		if !ok {
			idx = len(resp.Topics)
			topicIndex[t.key.topic] = idx
			resp.Topics = append(resp.Topics, OffsetResponseTopic{Topic: t.key.topic})
		}
		resp.Topics[idx].Partitions = append(resp.Topics[idx].Partitions, *t.result)
	}

	if !allOffsetDone(tasks) {
		if !metadataEverSucceeded && lastErr == nil {
			return resp, c.raiseOrSuppress(ErrSentinelMetadataAttemptsFail)
		}
		if lastErr == nil {
			lastErr = ErrSentinelMetadataAttemptsFail
		}
		return resp, c.raiseOrSuppress(lastErr)
	}
	for _, t := range tasks {
		if t.err != nil {
			return resp, c.raiseOrSuppress(t.err)
		}
	}
	return resp, nil
}

func allOffsetDone(tasks []*offsetTask) bool {
	for _, t := range tasks {
		if t.result == nil && t.err == nil {
			return false
		}
	}
	return true
}

func (c *Connection) groupOffsetByLeader(tasks []*offsetTask) map[string][]*offsetTask {
	groups := make(map[string][]*offsetTask)
	for _, t := range tasks {
		if t.result != nil || t.err != nil {
			continue
		}
		addr, err := c.leaderFor(t.key.topic, t.key.partition)
		if err != nil {
			if isTerminal(err) {
				t.err = err
				continue
			}
			continue
		}
		groups[addr] = append(groups[addr], t)
	}
	return groups
}

func buildOffsetSubRequest(group []*offsetTask) *OffsetRequest {
	byTopic := map[string]*OffsetRequestTopic{}
	sub := &OffsetRequest{}
	for _, t := range group {
		rt, ok := byTopic[t.key.topic]
		if !ok {
			sub.Topics = append(sub.Topics, OffsetRequestTopic{Topic: t.key.topic})
			rt = &sub.Topics[len(sub.Topics)-1]
			byTopic[t.key.topic] = rt
		}
		rt.Partitions = append(rt.Partitions, OffsetRequestPartition{
			Partition:          t.key.partition,
			Time:               t.time,
			MaxNumberOfOffsets: t.maxNumberOfOffsets,
		})
	}
	return sub
}

func (c *Connection) applyOffsetResults(group []*offsetTask, resp *OffsetResponse, lastErr *error) {
	byKey := map[partitionKey]OffsetResponsePartition{}
	for _, t := range resp.Topics {
		for _, p := range t.Partitions {
			byKey[partitionKey{topic: t.Topic, partition: p.Partition}] = p
		}
	}
	for _, t := range group {
		p, ok := byKey[t.key]
		if !ok {
			continue
		}
		result := p
		c.classifyAndResolve(t.key.topic, p.ErrorCode, lastErr, func() {
			t.result = &result
		}, func(terminal bool, classified error) {
			if terminal {
				t.err = classified
			}
			*lastErr = classified
		})
	}
}
