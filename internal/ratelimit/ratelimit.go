// Package ratelimit implements fixed-window counters per event kind.
// A Limiter belongs to a single connection and is not safe for concurrent use.
package ratelimit

import (
	"time"

	"retro/internal/protocol"
)

type Rule struct {
	Max    int
	Window time.Duration
}

// Rules maps an event kind to its rule. Kinds without an entry are unthrottled.
type Rules map[string]Rule

func DefaultRules() Rules {
	return Rules{
		protocol.EventBoardJoin:     {Max: 10, Window: 10 * time.Second},
		protocol.EventCardCreate:    {Max: 20, Window: 10 * time.Second},
		protocol.EventCardUpdate:    {Max: 30, Window: 10 * time.Second},
		protocol.EventCardDelete:    {Max: 20, Window: 10 * time.Second},
		protocol.EventVoteToggle:    {Max: 30, Window: 10 * time.Second},
		protocol.EventCommentCreate: {Max: 20, Window: 10 * time.Second},
		protocol.EventTimerStart:    {Max: 10, Window: 10 * time.Second},
		protocol.EventTimerStop:     {Max: 10, Window: 10 * time.Second},
		protocol.EventBoardDelete:   {Max: 3, Window: time.Minute},
	}
}

type window struct {
	start time.Time
	count int
}

type Limiter struct {
	rules   Rules
	windows map[string]*window
	now     func() time.Time
}

func New(rules Rules) *Limiter {
	return NewWithClock(rules, time.Now)
}

func NewWithClock(rules Rules, now func() time.Time) *Limiter {
	return &Limiter{
		rules:   rules,
		windows: make(map[string]*window),
		now:     now,
	}
}

// Allow counts one event of the given kind and reports whether it is within
// the kind's limit.
func (l *Limiter) Allow(kind string) bool {
	rule, ok := l.rules[kind]
	if !ok {
		return true
	}

	now := l.now()
	w, ok := l.windows[kind]
	if !ok {
		w = &window{start: now}
		l.windows[kind] = w
	} else if now.Sub(w.start) > rule.Window {
		w.start = now
		w.count = 0
	}

	w.count++
	return w.count <= rule.Max
}
