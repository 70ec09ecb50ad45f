package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{t: time.Unix(1_700_000_000, 0)} }

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestAllowWithinWindow(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock(Rules{"card:create": {Max: 3, Window: 10 * time.Second}}, clock.Now)

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("card:create"), "event %d", i+1)
		clock.Advance(time.Second)
	}
	assert.False(t, l.Allow("card:create"))
	assert.False(t, l.Allow("card:create"))
}

func TestWindowResetsAfterElapsed(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock(Rules{"vote:toggle": {Max: 2, Window: 10 * time.Second}}, clock.Now)

	assert.True(t, l.Allow("vote:toggle"))
	assert.True(t, l.Allow("vote:toggle"))
	assert.False(t, l.Allow("vote:toggle"))

	// Exactly at the window length the window is still open.
	clock.Advance(10 * time.Second)
	assert.False(t, l.Allow("vote:toggle"))

	clock.Advance(time.Millisecond)
	assert.True(t, l.Allow("vote:toggle"))
	assert.True(t, l.Allow("vote:toggle"))
	assert.False(t, l.Allow("vote:toggle"))
}

func TestKindsAreIndependent(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock(Rules{
		"a": {Max: 1, Window: time.Minute},
		"b": {Max: 1, Window: time.Minute},
	}, clock.Now)

	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
}

func TestUnlistedKindIsUnthrottled(t *testing.T) {
	l := New(Rules{})
	for i := 0; i < 1000; i++ {
		assert.True(t, l.Allow("anything"))
	}
}

func TestLimitersArePerConnection(t *testing.T) {
	rules := Rules{"card:create": {Max: 1, Window: time.Minute}}
	a, b := New(rules), New(rules)
	assert.True(t, a.Allow("card:create"))
	assert.False(t, a.Allow("card:create"))
	assert.True(t, b.Allow("card:create"))
}

func TestDefaultRulesCoverMutatingEvents(t *testing.T) {
	rules := DefaultRules()
	for _, kind := range []string{
		"board:join", "card:create", "card:update", "card:delete",
		"vote:toggle", "comment:create", "timer:start", "timer:stop", "board:delete",
	} {
		rule, ok := rules[kind]
		assert.True(t, ok, kind)
		assert.Positive(t, rule.Max, kind)
		assert.Positive(t, rule.Window, kind)
	}
}
