package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"topology-rewards-core/internal/registry"
	"topology-rewards-core/internal/rewards"
)

var (
	rewardsMetricsFile   string
	rewardsNodesFile     string
	rewardsTableFile     string
	rewardsPeriodDays    uint64
)

var rewardsReportCmd = &cobra.Command{
	Use:   "rewards-report",
	Short: "Run the rewards pipeline over a metrics export and print a cross-checked total",
	RunE:  runRewardsReport,
}

func init() {
	rewardsReportCmd.Flags().StringVar(&rewardsMetricsFile, "metrics", "", "path to a JSON export of per-subnet daily node metrics")
	rewardsReportCmd.Flags().StringVar(&rewardsNodesFile, "nodes", "", "path to a JSON list of rewardable nodes for the provider")
	rewardsReportCmd.Flags().StringVar(&rewardsTableFile, "rewards-table", "./config/node_rewards_table.json", "node rewards table source")
	rewardsReportCmd.Flags().Uint64Var(&rewardsPeriodDays, "period-days", 30, "length of the reward period in days")
	rewardsReportCmd.MarkFlagRequired("metrics")
	rewardsReportCmd.MarkFlagRequired("nodes")
	rootCmd.AddCommand(rewardsReportCmd)
}

type metricsExportEntry struct {
	NodeID         string `json:"node_id"`
	SubnetID       string `json:"subnet_id"`
	DayIndex       uint64 `json:"day_index"`
	BlocksProposed uint64 `json:"blocks_proposed"`
	BlocksFailed   uint64 `json:"blocks_failed"`
}

func runRewardsReport(cmd *cobra.Command, args []string) error {
	entries, err := readMetricsExport(rewardsMetricsFile)
	if err != nil {
		return fmt.Errorf("reading metrics export: %w", err)
	}
	nodes, err := readRewardableNodes(rewardsNodesFile)
	if err != nil {
		return fmt.Errorf("reading rewardable nodes: %w", err)
	}
	table, err := loadRewardsTable(rewardsTableFile)
	if err != nil {
		return fmt.Errorf("loading rewards table: %w", err)
	}

	period, err := registry.NewRewardPeriod(
		registry.NewDayStart(0),
		registry.NewDayEnd((rewardsPeriodDays-1)*registry.NanosPerDay),
		registry.DayStartNanos(rewardsPeriodDays*registry.NanosPerDay),
	)
	if err != nil {
		return fmt.Errorf("building reward period: %w", err)
	}

	metrics := map[rewards.SubnetMetricsDailyKey][]rewards.NodeDailyMetric{}
	for _, e := range entries {
		nodeID, err := registry.ParsePrincipal(e.NodeID)
		if err != nil {
			return fmt.Errorf("parsing node id %q: %w", e.NodeID, err)
		}
		subnetID, err := registry.ParsePrincipal(e.SubnetID)
		if err != nil {
			return fmt.Errorf("parsing subnet id %q: %w", e.SubnetID, err)
		}
		ts := registry.NewDayEnd(e.DayIndex * registry.NanosPerDay)
		key := rewards.SubnetMetricsDailyKey{SubnetID: subnetID, Ts: ts}
		metrics[key] = append(metrics[key], rewards.NodeDailyMetric{
			NodeID:  nodeID,
			Metrics: registry.NewNodeMetricsDaily(ts, subnetID, e.BlocksProposed, e.BlocksFailed),
		})
	}

	calc, err := rewards.FromSubnetsMetrics(period, table, metrics)
	if err != nil {
		return fmt.Errorf("building calculator: %w", err)
	}
	results := calc.CalculateProviderRewards(nodes)

	report, err := rewards.FormatRewardsReport(results)
	if err != nil {
		return fmt.Errorf("formatting rewards report: %w", err)
	}
	fmt.Println(report)
	return nil
}

func readMetricsExport(path string) ([]metricsExportEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []metricsExportEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

type rewardableNodeFileFormat struct {
	NodeID   string `json:"node_id"`
	Region   string `json:"region"`
	NodeType string `json:"node_type"`
}

func readRewardableNodes(path string) ([]registry.RewardableNode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw []rewardableNodeFileFormat
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	nodes := make([]registry.RewardableNode, 0, len(raw))
	for _, r := range raw {
		id, err := registry.ParsePrincipal(r.NodeID)
		if err != nil {
			return nil, fmt.Errorf("parsing node id %q: %w", r.NodeID, err)
		}
		nodes = append(nodes, registry.RewardableNode{NodeId: id, Region: r.Region, NodeType: r.NodeType})
	}
	return nodes, nil
}

func loadRewardsTable(path string) (*registry.NodeRewardsTable, error) {
	table := registry.NewNodeRewardsTable()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return table, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, table); err != nil {
		return nil, err
	}
	return table, nil
}
