package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pathshala_uploads_total",
		Help: "Textbook uploads by outcome.",
	}, []string{"outcome"})

	questionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pathshala_questions_total",
		Help: "Question requests by outcome.",
	}, []string{"outcome"})

	generationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pathshala_generations_total",
		Help: "Summary and quiz generations by kind and outcome.",
	}, []string{"kind", "outcome"})

	cacheDownloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pathshala_cache_downloads_total",
		Help: "Chapter downloads through the local cache by outcome.",
	}, []string{"outcome"})
)

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
