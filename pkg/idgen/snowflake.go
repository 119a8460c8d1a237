package idgen

import (
	"fmt"
	"sync"
	"time"
)

// ============================================================================
// Snowflake id generator
// ============================================================================
//
// 64 bits: 0 | 41-bit ms timestamp | 10-bit worker id | 12-bit sequence
//
// Purchase transaction ids, ledger entry numbers and refund numbers are all
// built from it so they stay unique across API replicas (one worker id each).
// ============================================================================

const (
	epoch          = int64(1704067200000) // 2024-01-01 00:00:00 UTC
	workerIDBits   = 10
	sequenceBits   = 12
	maxWorkerID    = -1 ^ (-1 << workerIDBits)
	maxSequence    = -1 ^ (-1 << sequenceBits)
	workerIDShift  = sequenceBits
	timestampShift = sequenceBits + workerIDBits
)

type Snowflake struct {
	mu        sync.Mutex
	timestamp int64
	workerID  int64
	sequence  int64
}

var (
	defaultGenerator *Snowflake
	once             sync.Once
)

// NewSnowflake creates a generator for workerID (0-1023).
func NewSnowflake(workerID int64) (*Snowflake, error) {
	if workerID < 0 || workerID > maxWorkerID {
		return nil, fmt.Errorf("worker id must be within 0-%d, got %d", maxWorkerID, workerID)
	}
	return &Snowflake{workerID: workerID}, nil
}

// Init sets up the default generator. Only the first call has an effect.
func Init(workerID int64) error {
	var err error
	once.Do(func() {
		defaultGenerator, err = NewSnowflake(workerID)
	})
	return err
}

func NextID() int64 {
	if defaultGenerator == nil {
		_ = Init(1)
	}
	return defaultGenerator.Generate()
}

func (s *Snowflake) Generate() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()

	if now == s.timestamp {
		s.sequence = (s.sequence + 1) & maxSequence
		if s.sequence == 0 {
			// sequence exhausted for this millisecond
			for now <= s.timestamp {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		s.sequence = 0
	}

	s.timestamp = now

	return ((now - epoch) << timestampShift) |
		(s.workerID << workerIDShift) |
		s.sequence
}

func generate(prefix string) string {
	return fmt.Sprintf("%s%s%d", prefix, time.Now().Format("20060102"), NextID())
}

// GeneratePurchaseNo e.g. PUR20240115<snowflake>
func GeneratePurchaseNo() string {
	return generate("PUR")
}

// GenerateTrialNo transaction id of a trial-view purchase record.
func GenerateTrialNo() string {
	return generate("TRL")
}

// GenerateEntryNo ledger entry number.
func GenerateEntryNo() string {
	return generate("TXN")
}

func GenerateRefundNo() string {
	return generate("REF")
}
