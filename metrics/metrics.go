package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "free_ran_l2"

type MacMetrics struct {
	RaAttempts   *prometheus.CounterVec
	RaOutcomes   *prometheus.CounterVec
	RaBackoffs   prometheus.Counter
	HarqTx       *prometheus.CounterVec
	HarqDrops    *prometheus.CounterVec
	DlHarqResets prometheus.Counter
	MuxPdus      prometheus.Counter
	MuxBytes     *prometheus.CounterVec
	BsrSent      *prometheus.CounterVec
	PoolFree     prometheus.Gauge
}

func NewMacMetrics(reg prometheus.Registerer) *MacMetrics {
	m := &MacMetrics{
		RaAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ra",
			Name:      "preambles_total",
			Help:      "Preamble transmissions by contention type.",
		}, []string{"type"}),
		RaOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ra",
			Name:      "outcomes_total",
			Help:      "Random access procedure outcomes.",
		}, []string{"result"}),
		RaBackoffs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ra",
			Name:      "backoffs_total",
			Help:      "Backoff waits entered after a response error.",
		}),
		HarqTx: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "harq",
			Name:      "transmissions_total",
			Help:      "HARQ transmissions by direction and kind.",
		}, []string{"dir", "kind"}),
		HarqDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "harq",
			Name:      "drops_total",
			Help:      "Transport blocks or grants dropped by reason.",
		}, []string{"reason"}),
		DlHarqResets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "harq",
			Name:      "dl_duplicate_resets_total",
			Help:      "DL processes reset after repeated duplicates.",
		}),
		MuxPdus: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mux",
			Name:      "pdus_total",
			Help:      "MAC PDUs assembled.",
		}),
		MuxBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mux",
			Name:      "bytes_total",
			Help:      "Bytes multiplexed by kind (sdu, ce, padding).",
		}, []string{"kind"}),
		BsrSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bsr",
			Name:      "sent_total",
			Help:      "BSRs sent by trigger.",
		}, []string{"trigger"}),
		PoolFree: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "free_buffers",
			Help:      "Buffers available in the byte buffer pool.",
		}),
	}

	reg.MustRegister(m.RaAttempts, m.RaOutcomes, m.RaBackoffs, m.HarqTx, m.HarqDrops, m.DlHarqResets,
		m.MuxPdus, m.MuxBytes, m.BsrSent, m.PoolFree)
	return m
}

type RrcMetrics struct {
	Handovers   *prometheus.CounterVec
	Rejected    prometheus.Counter
	Transitions *prometheus.CounterVec
	ActiveUes   prometheus.Gauge
}

func NewRrcMetrics(reg prometheus.Registerer) *RrcMetrics {
	m := &RrcMetrics{
		Handovers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rrc",
			Name:      "handovers_total",
			Help:      "Handover procedures by type and result.",
		}, []string{"type", "result"}),
		Rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rrc",
			Name:      "ignored_events_total",
			Help:      "Mobility events with no matching transition.",
		}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rrc",
			Name:      "transitions_total",
			Help:      "Mobility FSM transitions by target state.",
		}, []string{"state"}),
		ActiveUes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "rrc",
			Name:      "active_ues",
			Help:      "UE contexts held by the eNB.",
		}),
	}

	reg.MustRegister(m.Handovers, m.Rejected, m.Transitions, m.ActiveUes)
	return m
}

// Handler serves the registry in the prometheus text format on a gin route.
func Handler(gatherer prometheus.Gatherer) gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}
