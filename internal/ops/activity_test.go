package ops

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityLog_AppendOrder(t *testing.T) {
	log := NewActivityLog()
	log.Append(CategorySystem, "first")
	log.Append(CategoryTask, "second")
	log.Append(CategoryAI, "third")

	entries := log.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "first", entries[0].Message)
	assert.Equal(t, "second", entries[1].Message)
	assert.Equal(t, "third", entries[2].Message)
	assert.Equal(t, CategoryTask, entries[1].Category)
	assert.False(t, entries[0].Timestamp.IsZero())
}

func TestActivityLog_Tail(t *testing.T) {
	log := NewActivityLog()
	for i := 0; i < 5; i++ {
		log.Append(CategorySystem, fmt.Sprintf("entry %d", i))
	}

	tail := log.Tail(2)
	require.Len(t, tail, 2)
	assert.Equal(t, "entry 3", tail[0].Message)
	assert.Equal(t, "entry 4", tail[1].Message)

	assert.Len(t, log.Tail(0), 5)
	assert.Len(t, log.Tail(100), 5)
}

func TestActivityLog_OnAppendHookSeesArrivalOrder(t *testing.T) {
	log := NewActivityLog()
	var got []string
	log.OnAppend(func(e Entry) {
		got = append(got, e.Message)
	})

	log.Append(CategoryComms, "a")
	log.Append(CategoryComms, "b")

	assert.Equal(t, []string{"a", "b"}, got)
}

func TestActivityLog_ConcurrentAppends(t *testing.T) {
	log := NewActivityLog()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				log.Append(CategoryTask, fmt.Sprintf("writer %d", n))
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 200, log.Len())
}
