package remotelog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphaarc/platform/internal/domain"
)

// decodeAll reads the full stream and decodes every NDJSON line.
func decodeAll(t *testing.T, r io.Reader) []domain.LogEvent {
	t.Helper()
	var events []domain.LogEvent
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		var ev domain.LogEvent
		require.NoError(t, json.Unmarshal([]byte(line), &ev), "line %q", line)
		events = append(events, ev)
	}
	require.NoError(t, sc.Err())
	return events
}

func TestOrderPreservation(t *testing.T) {
	l := New()

	const n = 1000
	done := make(chan []domain.LogEvent)
	go func() { done <- decodeAll(t, l.Reader()) }()

	for i := 0; i < n; i++ {
		l.LogData(domain.LogTypeInfo, fmt.Sprintf("event-%d", i), map[string]int{"seq": i})
	}
	l.Close()

	events := <-done
	require.Len(t, events, n)
	for i, ev := range events {
		assert.Equal(t, fmt.Sprintf("event-%d", i), ev.Message)
		assert.Equal(t, domain.LogTypeInfo, ev.Type)
	}
}

func TestTimestampsNonDecreasing(t *testing.T) {
	// A clock that jumps backwards must not produce out-of-order timestamps.
	ticks := []time.Time{
		time.Unix(100, 0),
		time.Unix(99, 0),
		time.Unix(101, 0),
	}
	i := 0
	l := New(WithClock(func() time.Time {
		ts := ticks[i%len(ticks)]
		i++
		return ts
	}))

	done := make(chan []domain.LogEvent)
	go func() { done <- decodeAll(t, l.Reader()) }()

	for range ticks {
		l.Log(domain.LogTypeInfo, "tick")
	}
	l.Close()

	events := <-done
	require.Len(t, events, 3)
	for i := 1; i < len(events); i++ {
		assert.False(t, events[i].Timestamp.Before(events[i-1].Timestamp),
			"timestamp %d went backwards", i)
	}
}

func TestCloseExactlyOnce(t *testing.T) {
	l := New()
	go io.Copy(io.Discard, l.Reader())

	l.Log(domain.LogTypeInfo, "one")
	l.Close()
	assert.Panics(t, func() { l.Close() })
}

func TestLogAfterClosePanics(t *testing.T) {
	l := New()
	go io.Copy(io.Discard, l.Reader())

	l.Close()
	assert.Panics(t, func() { l.Log(domain.LogTypeInfo, "too late") })
}

func TestAbandonDropsWritesWithoutPanic(t *testing.T) {
	l := New()

	// Consumer disconnects before the producer finishes.
	l.Abandon(fmt.Errorf("client went away"))

	assert.NotPanics(t, func() {
		l.Log(domain.LogTypeInfo, "dropped")
		l.Log(domain.LogTypeSuccess, "also dropped")
	})
	// Termination is still the owner's responsibility.
	assert.NotPanics(t, func() { l.Close() })
}

func TestAbandonUnblocksPendingWrite(t *testing.T) {
	l := New()

	wrote := make(chan struct{})
	go func() {
		// Nobody is reading: this write parks until Abandon.
		l.Log(domain.LogTypeInfo, "parked")
		close(wrote)
	}()

	time.Sleep(10 * time.Millisecond)
	l.Abandon(fmt.Errorf("client went away"))

	select {
	case <-wrote:
	case <-time.After(time.Second):
		t.Fatal("write did not unblock after Abandon")
	}
	l.Close()
}

func TestConcurrentRunsAreIsolated(t *testing.T) {
	// Two loggers driven concurrently must each produce exactly their own
	// ordered sequence with no cross-talk.
	a, b := New(), New()

	var wg sync.WaitGroup
	results := make([][]domain.LogEvent, 2)
	for i, l := range []*Logger{a, b} {
		wg.Add(1)
		go func(i int, r io.Reader) {
			defer wg.Done()
			results[i] = decodeAll(t, r)
		}(i, l.Reader())
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			a.Log(domain.LogTypeInfo, fmt.Sprintf("a-%d", i))
		}
		a.Close()
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			b.Log(domain.LogTypeWarn, fmt.Sprintf("b-%d", i))
		}
		b.Close()
	}()
	wg.Wait()

	require.Len(t, results[0], 1000)
	require.Len(t, results[1], 50)
	for i, ev := range results[0] {
		assert.Equal(t, fmt.Sprintf("a-%d", i), ev.Message)
	}
	for i, ev := range results[1] {
		assert.Equal(t, fmt.Sprintf("b-%d", i), ev.Message)
		assert.Equal(t, domain.LogTypeWarn, ev.Type)
	}
}

func TestTapSeesEventsInOrder(t *testing.T) {
	var tapped []domain.LogEvent
	l := New(WithTap(func(ev domain.LogEvent) { tapped = append(tapped, ev) }))
	go io.Copy(io.Discard, l.Reader())

	l.Log(domain.LogTypeInfo, "one")
	l.LogData(domain.LogTypeResult, "two", "payload")
	l.Close()

	require.Len(t, tapped, 2)
	assert.Equal(t, "one", tapped[0].Message)
	assert.Equal(t, domain.LogTypeResult, tapped[1].Type)
}
