package smsgateway

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	// maxBatchSize caps in-flight sends per bulk batch regardless of the
	// profile's concurrency ceiling.
	maxBatchSize = 10

	batchPause = 100 * time.Millisecond
)

// BulkSend fans a batch of messages out through SendSMS in batches of
// min(MaxConcurrent, 10), pausing 100ms between batches to throttle
// admission pressure on the gate. Results are returned in input order;
// per-message failures appear as structured results, and an unknown
// profile fails the whole call.
func (s *Simulator) BulkSend(ctx context.Context, messages []SendRequest, profile string) ([]*SendResult, error) {
	s.mu.Lock()
	cfg, ok := s.configs[profile]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("smsgateway: unknown provider profile %q", profile)
	}
	batchSize := cfg.MaxConcurrent
	s.mu.Unlock()

	if batchSize <= 0 || batchSize > maxBatchSize {
		batchSize = maxBatchSize
	}

	results := make([]*SendResult, len(messages))
	for start := 0; start < len(messages); start += batchSize {
		end := start + batchSize
		if end > len(messages) {
			end = len(messages)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				req := messages[i]
				req.Profile = profile
				res, err := s.SendSMS(ctx, req)
				if err != nil {
					res = &SendResult{
						Success: false,
						Status:  StatusFailed,
						Error:   err.Error(),
					}
				}
				results[i] = res
			}(i)
		}
		wg.Wait()

		if end < len(messages) {
			if err := s.sleep(ctx, batchPause); err != nil {
				return results, err
			}
		}
	}
	return results, nil
}
