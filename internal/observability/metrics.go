// Package observability exposes Prometheus metrics and a small mux
// HTTP admin surface for the decentralization and rewards engines:
// plan-generation latency, healer actions taken, and rewards totals
// computed, so an operator can watch the core's behavior the same way
// the reference node exposes its consensus/network metrics.
package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"topology-rewards-core/internal/collaborators"
)

// Server hosts the /metrics and /healthz endpoints for one running
// instance of the topology core.
type Server struct {
	listenAddr  string
	metricsPath string
	healthPath  string

	registry *prometheus.Registry

	planDuration    prometheus.Histogram
	healerActions   *prometheus.CounterVec
	checkerPenalty  prometheus.Histogram
	rewardsTotal    prometheus.Gauge
	rewardsRunCount prometheus.Counter

	server *http.Server

	mu               sync.RWMutex
	running          bool
	latestSnapshot   *collaborators.Snapshot
	snapshotEndpoint string
}

// Config configures a Server.
type Config struct {
	ListenAddr   string
	MetricsPath  string
	HealthPath   string
	SnapshotPath string // read-only registry-snapshot introspection endpoint; defaults to "/snapshot"
}

// NewServer builds a Server with its metrics registered but not yet
// listening; call Start to begin serving.
func NewServer(cfg Config) *Server {
	registry := prometheus.NewRegistry()

	snapshotPath := cfg.SnapshotPath
	if snapshotPath == "" {
		snapshotPath = "/snapshot"
	}

	s := &Server{
		listenAddr:       cfg.ListenAddr,
		metricsPath:      cfg.MetricsPath,
		healthPath:       cfg.HealthPath,
		snapshotEndpoint: snapshotPath,
		registry:         registry,
	}
	s.initMetrics()
	s.setupServer()
	return s
}

func (s *Server) initMetrics() {
	s.planDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "topology_plan_generation_seconds",
		Help:    "Time taken to produce a subnet change plan.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
	})
	s.healerActions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "topology_healer_actions_total",
		Help: "Healer plans produced, by action kind (replace, optimize).",
	}, []string{"action"})
	s.checkerPenalty = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "topology_business_rule_penalty",
		Help:    "Business-rule penalty score of produced plans.",
		Buckets: []float64{0, 1, 10, 100, 1000, 10000},
	})
	s.rewardsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "topology_rewards_total_xdr_permyriad",
		Help: "Most recently computed total rewards for a provider run.",
	})
	s.rewardsRunCount = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "topology_rewards_runs_total",
		Help: "Number of rewards-calculator runs completed.",
	})

	s.registry.MustRegister(
		s.planDuration,
		s.healerActions,
		s.checkerPenalty,
		s.rewardsTotal,
		s.rewardsRunCount,
	)
}

func (s *Server) setupServer() {
	router := mux.NewRouter()
	router.Path(s.metricsPath).Handler(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	router.PathPrefix(s.healthPath).HandlerFunc(s.healthHandler)
	router.Path(s.snapshotEndpoint).HandlerFunc(s.snapshotHandler)

	s.server = &http.Server{
		Addr:    s.listenAddr,
		Handler: router,
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// SetLatestSnapshot publishes a registry snapshot for read-only
// introspection via snapshotHandler. cmd/topology-node does not call
// it, so there /snapshot answers 503 until some caller publishes one.
func (s *Server) SetLatestSnapshot(snap *collaborators.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latestSnapshot = snap
}

type snapshotSummary struct {
	NodeCount                int    `json:"node_count"`
	SubnetCount              int    `json:"subnet_count"`
	OperatorCount            int    `json:"operator_count"`
	UnassignedNodesVersion   string `json:"unassigned_nodes_version"`
}

// snapshotHandler serves a read-only summary of the latest known
// registry snapshot; it never exposes a write path, matching the
// admin surface's read-only scope.
func (s *Server) snapshotHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	snap := s.latestSnapshot
	s.mu.RUnlock()

	if snap == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("no snapshot fetched yet"))
		return
	}

	summary := snapshotSummary{
		NodeCount:              len(snap.Nodes),
		SubnetCount:            len(snap.Subnets),
		OperatorCount:          len(snap.Operators),
		UnassignedNodesVersion: snap.UnassignedNodesVersion,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

// Start begins serving in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	go s.server.ListenAndServe()
	s.running = true
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	return s.server.Shutdown(ctx)
}

// ObservePlanDuration records how long one plan-generation run took
// (cmd/topology-node times each whole Heal call).
func (s *Server) ObservePlanDuration(d time.Duration) {
	s.planDuration.Observe(d.Seconds())
}

// RecordHealerAction increments the counter for one action kind taken
// by a heal run, e.g. "replace" or "optimize".
func (s *Server) RecordHealerAction(action string) {
	s.healerActions.WithLabelValues(action).Inc()
}

// ObserveCheckerPenalty records a produced plan's business-rule
// penalty score.
func (s *Server) ObserveCheckerPenalty(penalty int) {
	s.checkerPenalty.Observe(float64(penalty))
}

// RecordRewardsRun sets the total-rewards gauge and bumps the run
// counter for one CalculateProviderRewards call.
func (s *Server) RecordRewardsRun(totalXDRPermyriad float64) {
	s.rewardsTotal.Set(totalXDRPermyriad)
	s.rewardsRunCount.Inc()
}
