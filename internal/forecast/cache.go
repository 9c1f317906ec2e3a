package forecast

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/couchcryptid/weather-forecast-service/internal/domain"
)

// tableKey fingerprints an observation window so identical inputs reuse the
// same derived feature table.
func tableKey(obs []domain.Observation) uint64 {
	d := xxhash.New()
	var buf [8]byte
	write := func(u uint64) {
		binary.LittleEndian.PutUint64(buf[:], u)
		_, _ = d.Write(buf[:])
	}
	write(uint64(len(obs)))
	for _, o := range obs {
		write(uint64(o.Time.Unix()))
		for _, q := range domain.Quantities {
			write(math.Float64bits(o.Value(q)))
		}
	}
	return d.Sum64()
}

// featureCache is a thread-safe LRU of derived feature tables. Cached slices
// are shared between callers and must be treated as read-only.
type featureCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[uint64]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   uint64
	value []domain.FeatureRow
	prev  *entry
	next  *entry
}

func newFeatureCache(maxEntries int) *featureCache {
	return &featureCache{
		maxEntries: maxEntries,
		entries:    make(map[uint64]*entry),
	}
}

func (c *featureCache) get(key uint64) ([]domain.FeatureRow, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *featureCache) put(key uint64, value []domain.FeatureRow) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *featureCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *featureCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *featureCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *featureCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *featureCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
