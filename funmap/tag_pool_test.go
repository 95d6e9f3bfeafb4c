package funmap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTagPool(t *testing.T) {
	pool := NewTagPool()

	tag1 := pool.Tag("building", "yes")
	tag2 := pool.Tag("building", "house")
	tag3 := pool.Tag("roof", "yes")

	assert.Equal(t, Tag{Key: "building", Value: "yes"}, tag1)
	assert.Equal(t, "building", tag2.Key)
	assert.Equal(t, "yes", tag3.Value)

	keys, values := pool.Size()
	assert.Equal(t, 2, keys)
	assert.Equal(t, 2, values)
}

func TestTagPool_concurrentUse(t *testing.T) {
	pool := NewTagPool()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				pool.Tag("highway", "residential")
				pool.Tag("building", "yes")
			}
		}()
	}
	wg.Wait()

	keys, values := pool.Size()
	assert.Equal(t, 2, keys)
	assert.Equal(t, 2, values)
}
