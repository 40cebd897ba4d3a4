package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// PoolCollector implements prometheus.Collector for the connection pools of
// both backing stores. Stats are read on-demand during each Prometheus
// scrape — no polling goroutine.
type PoolCollector struct {
	pg *pgxpool.Pool
	kv *redis.Client

	pgAcquireCount      *prometheus.Desc
	pgAcquiredConns     *prometheus.Desc
	pgEmptyAcquireCount *prometheus.Desc
	pgIdleConns         *prometheus.Desc
	pgMaxConns          *prometheus.Desc
	pgTotalConns        *prometheus.Desc

	kvHits       *prometheus.Desc
	kvMisses     *prometheus.Desc
	kvTimeouts   *prometheus.Desc
	kvIdleConns  *prometheus.Desc
	kvTotalConns *prometheus.Desc
}

// NewPoolCollector creates a collector for the relational pool and,
// optionally, the key-value client (nil skips it).
func NewPoolCollector(pg *pgxpool.Pool, kv *redis.Client) *PoolCollector {
	return &PoolCollector{
		pg: pg,
		kv: kv,
		pgAcquireCount: prometheus.NewDesc(
			"homecrate_pgxpool_acquire_count",
			"Cumulative count of successful connection acquires.",
			nil, nil,
		),
		pgAcquiredConns: prometheus.NewDesc(
			"homecrate_pgxpool_acquired_conns",
			"Number of currently acquired connections.",
			nil, nil,
		),
		pgEmptyAcquireCount: prometheus.NewDesc(
			"homecrate_pgxpool_empty_acquire_count",
			"Cumulative count of acquires from an empty pool.",
			nil, nil,
		),
		pgIdleConns: prometheus.NewDesc(
			"homecrate_pgxpool_idle_conns",
			"Number of idle connections in the pool.",
			nil, nil,
		),
		pgMaxConns: prometheus.NewDesc(
			"homecrate_pgxpool_max_conns",
			"Maximum size of the pool.",
			nil, nil,
		),
		pgTotalConns: prometheus.NewDesc(
			"homecrate_pgxpool_total_conns",
			"Total connections currently in the pool.",
			nil, nil,
		),
		kvHits: prometheus.NewDesc(
			"homecrate_redis_pool_hits",
			"Number of times a free connection was found in the pool.",
			nil, nil,
		),
		kvMisses: prometheus.NewDesc(
			"homecrate_redis_pool_misses",
			"Number of times a free connection was not found in the pool.",
			nil, nil,
		),
		kvTimeouts: prometheus.NewDesc(
			"homecrate_redis_pool_timeouts",
			"Number of times a wait for a connection timed out.",
			nil, nil,
		),
		kvIdleConns: prometheus.NewDesc(
			"homecrate_redis_pool_idle_conns",
			"Number of idle connections in the pool.",
			nil, nil,
		),
		kvTotalConns: prometheus.NewDesc(
			"homecrate_redis_pool_total_conns",
			"Total connections in the pool.",
			nil, nil,
		),
	}
}

func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.pgAcquireCount
	ch <- c.pgAcquiredConns
	ch <- c.pgEmptyAcquireCount
	ch <- c.pgIdleConns
	ch <- c.pgMaxConns
	ch <- c.pgTotalConns
	if c.kv != nil {
		ch <- c.kvHits
		ch <- c.kvMisses
		ch <- c.kvTimeouts
		ch <- c.kvIdleConns
		ch <- c.kvTotalConns
	}
}

func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.pg.Stat()
	ch <- prometheus.MustNewConstMetric(c.pgAcquireCount, prometheus.CounterValue, float64(st.AcquireCount()))
	ch <- prometheus.MustNewConstMetric(c.pgAcquiredConns, prometheus.GaugeValue, float64(st.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.pgEmptyAcquireCount, prometheus.CounterValue, float64(st.EmptyAcquireCount()))
	ch <- prometheus.MustNewConstMetric(c.pgIdleConns, prometheus.GaugeValue, float64(st.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.pgMaxConns, prometheus.GaugeValue, float64(st.MaxConns()))
	ch <- prometheus.MustNewConstMetric(c.pgTotalConns, prometheus.GaugeValue, float64(st.TotalConns()))

	if c.kv != nil {
		ps := c.kv.PoolStats()
		ch <- prometheus.MustNewConstMetric(c.kvHits, prometheus.CounterValue, float64(ps.Hits))
		ch <- prometheus.MustNewConstMetric(c.kvMisses, prometheus.CounterValue, float64(ps.Misses))
		ch <- prometheus.MustNewConstMetric(c.kvTimeouts, prometheus.CounterValue, float64(ps.Timeouts))
		ch <- prometheus.MustNewConstMetric(c.kvIdleConns, prometheus.GaugeValue, float64(ps.IdleConns))
		ch <- prometheus.MustNewConstMetric(c.kvTotalConns, prometheus.GaugeValue, float64(ps.TotalConns))
	}
}
