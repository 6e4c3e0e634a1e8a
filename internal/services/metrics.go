package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var moderationActions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "support_moderation_actions_total",
	Help: "Number of social account moderation actions, by action and outcome",
}, []string{"action", "outcome"})

var shortenerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "support_shortener_requests_total",
	Help: "Number of URL shortening attempts, by outcome",
}, []string{"outcome"})

var contributorQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "support_contributor_query_duration_seconds",
	Help:    "Time spent computing active contributor sets",
	Buckets: prometheus.DefBuckets,
}, []string{"query"})

var permissionCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "support_permission_cache_lookups_total",
	Help: "Permission set lookups, by cache result",
}, []string{"result"})
