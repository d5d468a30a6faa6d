// container_test.go

package props

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestContainer_LoadReturnsInitialSnapshot(t *testing.T) {
	free := NewFreeList[int](2)
	c := NewContainer(free, 42)
	assert.Equal(t, 42, *c.Load())
}

func TestContainer_PublishReplacesSnapshotAtomically(t *testing.T) {
	free := NewFreeList[int](2)
	c := NewContainer(free, 1)
	c.Publish(2)
	assert.Equal(t, 2, *c.Load())
	c.Publish(3)
	assert.Equal(t, 3, *c.Load())
}

func TestContainer_LoadNeverObservesTornWrite(t *testing.T) {
	type big struct{ A, B, C int }
	free := NewFreeList[big](4)
	c := NewContainer(free, big{1, 1, 1})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			v := i + 2
			c.Publish(big{v, v, v})
		}
	}()

	for i := 0; i < 1000; i++ {
		snap := c.Load()
		assert.True(t, snap.A == snap.B && snap.B == snap.C, "snapshot fields should always match: got %+v", *snap)
	}
	wg.Wait()
}

func TestContainer_LoadAlwaysReturnsLastPublishedSnapshot(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(0, 8).Draw(t, "capacity")
		free := NewFreeList[[3]uint64](capacity)
		c := NewContainer(free, [3]uint64{})

		values := rapid.SliceOfN(rapid.Uint64(), 1, 64).Draw(t, "values")
		for _, v := range values {
			c.Publish([3]uint64{v, v, v})
			snap := c.Load()
			if snap[0] != v || snap[1] != v || snap[2] != v {
				t.Fatalf("load after publish(%d) returned %v", v, *snap)
			}
		}
	})
}

func TestFreeList_ReusesReturnedSlots(t *testing.T) {
	fl := NewFreeList[int](1)
	p1 := fl.get()
	fl.put(p1)
	p2 := fl.get()
	assert.Same(t, p1, p2)
}

func TestFreeList_FallsBackToAllocationWhenExhausted(t *testing.T) {
	fl := NewFreeList[int](0)
	p := fl.get()
	assert.NotNil(t, p)
}
