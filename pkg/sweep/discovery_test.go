package sweep

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestDiscoveryLogSequence(t *testing.T) {
	l := NewDiscoveryLog()
	l.Append(ZeroEvent{Parameter: 1, Seq: 42})
	l.Append(ZeroEvent{Parameter: 2})
	l.Append(ZeroEvent{Parameter: 3})

	want := []ZeroEvent{
		{Seq: 1, Parameter: 1},
		{Seq: 2, Parameter: 2},
		{Seq: 3, Parameter: 3},
	}
	if diff := cmp.Diff(want, l.All()); diff != "" {
		t.Errorf("log mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscoveryLogClearRestartsNumbering(t *testing.T) {
	l := NewDiscoveryLog()
	for i := 0; i < 4; i++ {
		l.Append(ZeroEvent{Parameter: float64(i)})
	}
	l.Clear()
	assert.Equal(t, 0, l.Len())

	l.Append(ZeroEvent{Parameter: 10})
	l.Append(ZeroEvent{Parameter: 20})
	var seqs []int
	for _, ev := range l.All() {
		seqs = append(seqs, ev.Seq)
	}
	assert.Equal(t, []int{1, 2}, seqs)
}

func TestDiscoveryLogAllIsCopy(t *testing.T) {
	l := NewDiscoveryLog()
	l.Append(ZeroEvent{Parameter: 1})
	all := l.All()
	all[0].Parameter = 7
	assert.Equal(t, 1.0, l.All()[0].Parameter)
}

func TestDiscoveryLogConcurrentReaders(t *testing.T) {
	l := NewDiscoveryLog()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			l.Append(ZeroEvent{Parameter: float64(i)})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			evs := l.All()
			for j, ev := range evs {
				if ev.Seq != j+1 {
					t.Errorf("gap in sequence: index %d has seq %d", j, ev.Seq)
					return
				}
			}
		}
	}()
	wg.Wait()
	assert.Equal(t, 200, l.Len())
}

func TestReferenceSetVerify(t *testing.T) {
	assert.True(t, KnownZeros.Verify(14.1340, 0.01))
	assert.False(t, KnownZeros.Verify(100.0, 0.01))
	assert.True(t, KnownZeros.Verify(49.78, 0.01))
	assert.False(t, KnownZeros.Verify(14.15, 0.01))
	assert.Len(t, KnownZeros, 10)
}

func TestZeroEventString(t *testing.T) {
	ev := ZeroEvent{Seq: 3, Parameter: 25.0, Magnitude: 0.0148725, Verified: true}
	assert.Equal(t, "#3: t ≈ 25.000000  (|ζ| = 0.01487250) ✓ VERIFIED", ev.String())
	ev.Verified = false
	assert.Equal(t, "#3: t ≈ 25.000000  (|ζ| = 0.01487250)", ev.String())
}
