package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Matchmaking
	QueueJoinsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trivia_queue_joins_total",
		Help: "Players placed in the matchmaking queue",
	})
	QueueExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trivia_queue_expired_total",
		Help: "Waiting entries removed by the queue expiry job",
	})
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "trivia_queue_depth",
		Help: "Players waiting in the matchmaking queue, sampled by the expiry job",
	})
	MatchesCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trivia_matches_created_total",
		Help: "Matches created, by pairing source",
	}, []string{"source"})

	// Game
	AnswersSubmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trivia_answers_submitted_total",
		Help: "Answers recorded, by correctness",
	}, []string{"correct"})
	MatchesFinishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trivia_matches_finished_total",
		Help: "Matches that reached a terminal state, by result",
	}, []string{"result"})
	IdleMatchesCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trivia_idle_matches_cancelled_total",
		Help: "Active matches cancelled by the idle sweep",
	})
	AchievementsAwardedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trivia_achievements_awarded_total",
		Help: "Achievement awards newly granted",
	})

	// Infrastructure
	EventPublishErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trivia_event_publish_errors_total",
		Help: "Match events that could not be delivered to Kafka",
	})
	QuestionCacheRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trivia_question_cache_requests_total",
		Help: "Question pool lookups, by cache result",
	}, []string{"result"})
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "trivia_http_request_duration_seconds",
		Help:    "Latency of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)
