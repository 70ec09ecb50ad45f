// Package metrics is a best-effort side channel. Nothing in the sync path
// depends on a Recorder succeeding; Noop is always a valid choice.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Recorder interface {
	CardCreated()
	VoteToggled()
	CommentCreated()
	EventRateLimited(event string)
	BoardsSwept(n int)
	ConnectionOpened()
	ConnectionClosed()
}

type Noop struct{}

func (Noop) CardCreated()            {}
func (Noop) VoteToggled()            {}
func (Noop) CommentCreated()         {}
func (Noop) EventRateLimited(string) {}
func (Noop) BoardsSwept(int)         {}
func (Noop) ConnectionOpened()       {}
func (Noop) ConnectionClosed()       {}

type Prometheus struct {
	cardsCreated    prometheus.Counter
	votesToggled    prometheus.Counter
	commentsCreated prometheus.Counter
	rateLimited     *prometheus.CounterVec
	boardsSwept     prometheus.Counter
	wsConnections   prometheus.Gauge
}

func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	f := promauto.With(reg)
	return &Prometheus{
		cardsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "retro_cards_created_total",
			Help: "Cards created over the realtime channel",
		}),
		votesToggled: f.NewCounter(prometheus.CounterOpts{
			Name: "retro_votes_toggled_total",
			Help: "Vote toggles applied",
		}),
		commentsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "retro_comments_created_total",
			Help: "Comments created over the realtime channel",
		}),
		rateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Name: "retro_events_rate_limited_total",
			Help: "Inbound events rejected by the per-connection rate limiter",
		}, []string{"event"}),
		boardsSwept: f.NewCounter(prometheus.CounterOpts{
			Name: "retro_boards_swept_total",
			Help: "Boards deleted by the stale-board sweeper",
		}),
		wsConnections: f.NewGauge(prometheus.GaugeOpts{
			Name: "retro_ws_connections",
			Help: "Open websocket connections",
		}),
	}
}

func (p *Prometheus) CardCreated()    { p.cardsCreated.Inc() }
func (p *Prometheus) VoteToggled()    { p.votesToggled.Inc() }
func (p *Prometheus) CommentCreated() { p.commentsCreated.Inc() }

func (p *Prometheus) EventRateLimited(event string) {
	p.rateLimited.WithLabelValues(event).Inc()
}

func (p *Prometheus) BoardsSwept(n int) {
	if n > 0 {
		p.boardsSwept.Add(float64(n))
	}
}

func (p *Prometheus) ConnectionOpened() { p.wsConnections.Inc() }
func (p *Prometheus) ConnectionClosed() { p.wsConnections.Dec() }
