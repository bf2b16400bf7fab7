package metrics

import "github.com/prometheus/client_golang/prometheus"

// DBPoolStats is a snapshot of the database connection pool.
type DBPoolStats struct {
	Total    int32
	Acquired int32
	Idle     int32
	Max      int32
}

// RegisterDBPool exposes pool gauges read from stats on every scrape.
func RegisterDBPool(reg prometheus.Registerer, stats func() DBPoolStats) {
	if reg == nil || stats == nil {
		return
	}
	gauge := func(name, help string, pick func(DBPoolStats) int32) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "db_pool",
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(pick(stats())) })
	}
	reg.MustRegister(
		gauge("connections_total", "Open connections.", func(s DBPoolStats) int32 { return s.Total }),
		gauge("connections_acquired", "Connections in use.", func(s DBPoolStats) int32 { return s.Acquired }),
		gauge("connections_idle", "Idle connections.", func(s DBPoolStats) int32 { return s.Idle }),
		gauge("connections_max", "Configured pool size.", func(s DBPoolStats) int32 { return s.Max }),
	)
}
