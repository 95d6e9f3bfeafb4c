package funmap

import (
	"sync"
)

// TagPool interns tag keys and values so that every parsed tag shares the same backing strings.
// The pool only grows. It is meant to live as long as the process and be shared between parses.
type TagPool struct {
	keys   map[string]string
	values map[string]string
	mu     *sync.RWMutex
}

func NewTagPool() *TagPool {
	return &TagPool{
		keys:   make(map[string]string),
		values: make(map[string]string),
		mu:     new(sync.RWMutex),
	}
}

func (p *TagPool) Tag(key, value string) Tag {
	return Tag{
		Key:   p.intern(p.keys, key),
		Value: p.intern(p.values, value),
	}
}

func (p *TagPool) intern(pool map[string]string, s string) string {
	p.mu.RLock()
	interned, ok := pool[s]
	p.mu.RUnlock()
	if ok {
		return interned
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	interned, ok = pool[s]
	if ok {
		return interned
	}
	pool[s] = s
	return s
}

// Size returns the amount of distinct keys and values held
func (p *TagPool) Size() (keys, values int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.keys), len(p.values)
}
