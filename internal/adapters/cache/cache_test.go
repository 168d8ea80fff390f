package cache_test

import (
	"sync"
	"testing"
	"time"

	"github.com/okian/roster/internal/adapters/cache"
	. "github.com/smartystreets/goconvey/convey"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestTTLCache(t *testing.T) {
	Convey("Given a cache with a 30 second TTL", t, func() {
		clk := &clock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
		c := cache.New[string](cache.WithClock(clk.Now))
		key := cache.Key{Source: cache.RosterSource("#CLAN"), Size: 15, Strategy: "strength"}

		Convey("Then the default TTL should apply", func() {
			So(c.TTL(), ShouldEqual, cache.DefaultTTL)
		})

		Convey("When a value is stored", func() {
			c.Put(key, "result")

			Convey("Then it should be returned before expiry", func() {
				clk.Advance(29 * time.Second)
				v, ok := c.Get(key)
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, "result")
			})

			Convey("And it should miss once the TTL elapses", func() {
				clk.Advance(30 * time.Second)
				_, ok := c.Get(key)
				So(ok, ShouldBeFalse)
				So(c.Len(), ShouldEqual, 0)
			})

			Convey("And a different size or strategy should miss", func() {
				_, ok := c.Get(cache.Key{Source: key.Source, Size: 20, Strategy: "strength"})
				So(ok, ShouldBeFalse)
				_, ok = c.Get(cache.Key{Source: key.Source, Size: 15, Strategy: "optimal"})
				So(ok, ShouldBeFalse)
			})

			Convey("And a newer roster version should miss", func() {
				newer := key
				newer.Version = key.Version + 1
				_, ok := c.Get(newer)
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When a roster is invalidated", func() {
			c.Put(key, "a")
			c.Put(cache.Key{Source: key.Source, Size: 20, Strategy: "optimal"}, "b")
			other := cache.Key{Source: cache.RosterSource("#OTHER"), Size: 15, Strategy: "strength"}
			c.Put(other, "c")

			removed := c.InvalidateRoster("#CLAN")

			Convey("Then only its entries should be dropped", func() {
				So(removed, ShouldEqual, 2)
				So(c.Len(), ShouldEqual, 1)
				_, ok := c.Get(other)
				So(ok, ShouldBeTrue)
			})
		})

		Convey("When sweeping", func() {
			c.Put(key, "old")
			clk.Advance(20 * time.Second)
			fresh := cache.Key{Source: cache.RosterSource("#NEW"), Size: 15, Strategy: "strength"}
			c.Put(fresh, "new")
			clk.Advance(15 * time.Second)

			Convey("Then only expired entries should be removed", func() {
				So(c.Sweep(), ShouldEqual, 1)
				So(c.Len(), ShouldEqual, 1)
				_, ok := c.Get(fresh)
				So(ok, ShouldBeTrue)
			})
		})
	})

	Convey("Given a cache with caching disabled", t, func() {
		c := cache.New[int](cache.WithTTL(0))
		key := cache.Key{Source: "x", Size: 5}
		c.Put(key, 1)

		Convey("Then nothing should be stored", func() {
			_, ok := c.Get(key)
			So(ok, ShouldBeFalse)
			So(c.Len(), ShouldEqual, 0)
		})
	})
}

func TestSources(t *testing.T) {
	Convey("Given inline payloads", t, func() {
		a := cache.PayloadSource([]byte(`[{"tag":"#A"}]`))
		b := cache.PayloadSource([]byte(`[{"tag":"#A"}]`))
		c := cache.PayloadSource([]byte(`[{"tag":"#B"}]`))

		Convey("Then equal payloads should share a source", func() {
			So(a, ShouldEqual, b)
			So(a, ShouldNotEqual, c)
			So(cache.Key{Source: a}.IsInline(), ShouldBeTrue)
		})

		Convey("And roster sources should not look inline", func() {
			So(cache.Key{Source: cache.RosterSource("#A")}.IsInline(), ShouldBeFalse)
		})
	})
}
