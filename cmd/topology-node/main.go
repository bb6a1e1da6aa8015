package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"topology-rewards-core/internal/collaborators"
	"topology-rewards-core/internal/decentralization/healer"
	"topology-rewards-core/internal/decentralization/rules"
	"topology-rewards-core/internal/decentralization/transform"
	"topology-rewards-core/internal/observability"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "topology-node",
	Short: "Decentralization and rewards core for a registry-driven subnet network",
	Long:  "Runs the decentralization engine's healer loop and exposes its metrics, reading registry state from a collaborator snapshot source.",
	Run:   run,
}

var (
	configFile          string
	metricsAddr         string
	registrySource      string
	sensitiveSubnetsFile string
	linkedClustersFile  string
	rewardsTableSource  string
	healIntervalSeconds int
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", ":9100", "Prometheus/health server listen address")
	rootCmd.PersistentFlags().StringVar(&registrySource, "registry-source", "", "registry snapshot source (collaborator endpoint)")
	rootCmd.PersistentFlags().StringVar(&sensitiveSubnetsFile, "sensitive-subnets", "./config/sensitive_subnets.json", "sensitive subnet id overrides")
	rootCmd.PersistentFlags().StringVar(&linkedClustersFile, "linked-clusters", "./config/linked_provider_clusters.json", "linked node-provider cluster file")
	rootCmd.PersistentFlags().StringVar(&rewardsTableSource, "rewards-table", "./config/node_rewards_table.json", "node rewards table source")
	rootCmd.PersistentFlags().IntVar(&healIntervalSeconds, "heal-interval", 600, "seconds between healer runs")

	viper.BindPFlags(rootCmd.PersistentFlags())
}

func run(cmd *cobra.Command, args []string) {
	fmt.Printf("starting topology-node v%s (build %s)\n", Version, BuildTime)

	metrics := observability.NewServer(observability.Config{
		ListenAddr:  metricsAddr,
		MetricsPath: "/metrics",
		HealthPath:  "/healthz",
	})
	if err := metrics.Start(); err != nil {
		log.Fatalf("failed to start metrics server: %v", err)
	}
	fmt.Printf("metrics listening on %s\n", metricsAddr)

	sensitive, err := loadSensitiveSubnets(sensitiveSubnetsFile)
	if err != nil {
		log.Fatalf("failed to load sensitive-subnets config: %v", err)
	}
	clusters, err := loadLinkedProviderClusters(linkedClustersFile)
	if err != nil {
		log.Fatalf("failed to load linked-provider-clusters config: %v", err)
	}

	checker := rules.NewChecker(sensitive, clusters)
	engine := transform.NewEngine(checker)
	h := healer.NewHealer(engine)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go healLoop(ctx, h, metrics, time.Duration(healIntervalSeconds)*time.Second)

	if registrySource != "" {
		go watchRegistryStream(ctx, registrySource, metrics)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	fmt.Println("shutting down topology-node")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metrics.Stop(shutdownCtx); err != nil {
		log.Printf("metrics server shutdown error: %v", err)
	}
}

// healLoop runs the healer on a fixed interval with an empty
// healer.Input; it fetches no registry snapshot itself, so each run
// sees no subnets. The loop owns the cadence and the metrics it
// reports.
func healLoop(ctx context.Context, h *healer.Healer, metrics *observability.Server, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			plans := h.Heal(healer.Input{})
			metrics.ObservePlanDuration(time.Since(start))
			for range plans {
				metrics.RecordHealerAction("heal")
			}
		}
	}
}

// watchRegistryStream keeps a registry-snapshot websocket feed open
// for the lifetime of ctx, reconnecting on drop, and records every
// incremental update as a healer-action metric sample so an operator
// can see stream activity alongside heal-loop activity.
func watchRegistryStream(ctx context.Context, url string, metrics *observability.Server) {
	for ctx.Err() == nil {
		client, err := collaborators.DialStream(url)
		if err != nil {
			log.Printf("registry stream dial failed, retrying: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
				continue
			}
		}

		for update := range client.Updates() {
			switch {
			case update.Health != nil:
				metrics.RecordHealerAction("stream-health-update")
			case update.SubnetPrincipal != nil:
				metrics.RecordHealerAction("stream-membership-update")
			case update.ElectedVersion != nil:
				metrics.RecordHealerAction("stream-version-update")
			}
		}
		client.Close()

		if ctx.Err() != nil {
			return
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
