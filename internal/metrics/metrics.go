package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpdatesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bot_updates_processed_total",
		Help: "Inbound Telegram updates handled by the event loop.",
	})

	MessagesModerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_messages_moderated_total",
		Help: "Messages deleted by the moderation filter, by reason.",
	}, []string{"reason"})

	FunnelMessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_funnel_messages_sent_total",
		Help: "Funnel stage messages delivered, by stage.",
	}, []string{"stage"})

	BroadcastSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bot_broadcast_sent_total",
		Help: "Broadcast messages delivered to recipients.",
	})

	BroadcastFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bot_broadcast_failed_total",
		Help: "Broadcast deliveries that failed.",
	})

	LinkEventsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bot_link_events_recorded_total",
		Help: "Link share/click events persisted.",
	})
)
