package idgen

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSnowflake_RejectsBadWorker(t *testing.T) {
	_, err := NewSnowflake(-1)
	assert.Error(t, err)
	_, err = NewSnowflake(maxWorkerID + 1)
	assert.Error(t, err)
}

func TestSnowflake_UniqueUnderConcurrency(t *testing.T) {
	sf, err := NewSnowflake(7)
	require.NoError(t, err)

	const n = 2000
	ids := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < n/4; j++ {
				ids <- sf.Generate()
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]struct{}, n)
	for id := range ids {
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %d", id)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, n)
}

func TestGenerators_Prefix(t *testing.T) {
	assert.True(t, strings.HasPrefix(GeneratePurchaseNo(), "PUR"))
	assert.True(t, strings.HasPrefix(GenerateTrialNo(), "TRL"))
	assert.True(t, strings.HasPrefix(GenerateEntryNo(), "TXN"))
	assert.True(t, strings.HasPrefix(GenerateRefundNo(), "REF"))
	assert.NotEqual(t, GenerateEntryNo(), GenerateEntryNo())
}
