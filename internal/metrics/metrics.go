package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BotSessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bot_sessions_active",
		Help: "Bot sessions not yet in a terminal state",
	})

	BotDispatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_dispatches_total",
		Help: "Bot dispatch outcomes",
	}, []string{"outcome"})

	BotTerminations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bot_terminations_total",
		Help: "Bot sessions moved to completed by terminate",
	})

	SegmentsAppended = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "live_segments_appended_total",
		Help: "Transcript segments appended to live sessions",
	}, []string{"source"})

	LiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "live_sessions",
		Help: "Live transcript sessions currently buffered",
	})

	StreamFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stream_frames_total",
		Help: "Inbound stream frames by type",
	}, []string{"type"})

	StreamReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stream_reconnects_total",
		Help: "Stream reconnect attempts after a failure",
	})

	StreamsConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "streams_connected",
		Help: "Stream sessions with an open connection",
	})

	TranscriptsFinalized = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcripts_finalized_total",
		Help: "Finalized transcripts by sink and result",
	}, []string{"sink", "result"})
)

// Segment sources.
const (
	SourcePush   = "push"
	SourceStream = "stream"
)
