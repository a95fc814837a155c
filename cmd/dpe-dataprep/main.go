// Command dpe-dataprep acquires the ADEME DPE dataset and prepares the
// benchmark partitions: `fetch` pulls and cleans records from the Data
// Fair API, `setup` turns a fetched CSV into stratified train / test /
// private-test files.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/enerdata-io/dpe-dataprep/pkg/cleaning"
	"github.com/enerdata-io/dpe-dataprep/pkg/datafair"
	"github.com/enerdata-io/dpe-dataprep/pkg/dataset"
	"github.com/enerdata-io/dpe-dataprep/pkg/features"
	"github.com/enerdata-io/dpe-dataprep/pkg/logging"
	"github.com/enerdata-io/dpe-dataprep/pkg/pagination"
	"github.com/enerdata-io/dpe-dataprep/pkg/prep"
	"github.com/enerdata-io/dpe-dataprep/pkg/split"
)

var (
	logLevel  string
	logPretty bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dpe-dataprep",
		Short: "Fetch and partition the ADEME DPE dataset",
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logging.Setup(logging.Config{
				Level:  logging.LogLevel(logLevel),
				Pretty: logPretty,
				Output: os.Stderr,
			})
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logPretty, "log-pretty", false, "human-readable log output")

	rootCmd.AddCommand(newFetchCmd())
	rootCmd.AddCommand(newSetupCmd())

	return rootCmd
}

func newFetchCmd() *cobra.Command {
	var (
		target    int
		output    string
		noClean   bool
		redisAddr string
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch DPE records from the Data Fair API into a CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFetch(cmd.Context(), target, output, noClean, redisAddr)
		},
	}

	cmd.Flags().IntVar(&target, "n", 100_000, "number of rows to fetch")
	cmd.Flags().StringVar(&output, "output", "data/dpe_2025.csv", "output CSV path")
	cmd.Flags().BoolVar(&noClean, "no-clean", false, "skip row-validity cleaning")
	cmd.Flags().StringVar(&redisAddr, "redis", "", "redis address for the optional page cache")

	return cmd
}

func runFetch(ctx context.Context, target int, output string, noClean bool, redisAddr string) error {
	cfg := datafair.DefaultConfig()

	if redisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis at %s: %w", redisAddr, err)
		}
		defer redisClient.Close()
		cfg.Redis = redisClient
	}

	client, err := datafair.New(cfg)
	if err != nil {
		return fmt.Errorf("create data-fair client: %w", err)
	}

	driver := pagination.NewDriver(client, pagination.DefaultConfig())
	ds, err := driver.FetchRecords(ctx, target)
	if err != nil {
		return err
	}
	if ds.Len() == 0 {
		return fmt.Errorf("no data fetched, check the connection and the date filter")
	}

	if !noClean {
		cleaner := cleaning.New(cleaning.DefaultConfig())
		var report cleaning.Report
		ds, report, err = cleaner.Clean(ds)
		if err != nil {
			return err
		}
		renderCleaningReport(report)
	}

	if err := dataset.WriteFile(output, ds); err != nil {
		return err
	}

	fmt.Printf("Saved %s (%d rows x %d columns)\n", output, ds.Len(), len(ds.Columns))
	return nil
}

func renderCleaningReport(report cleaning.Report) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Cleaning stage", "Dropped"})
	for _, s := range report.Stages {
		t.AppendRow(table.Row{s.Stage, s.Dropped})
	}
	t.AppendFooter(table.Row{
		fmt.Sprintf("%d -> %d rows", report.Initial, report.Final),
		report.Dropped(),
	})
	t.Render()
}

func newSetupCmd() *cobra.Command {
	var (
		input     string
		outputDir string
		seed      int64
	)

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Partition a fetched CSV into benchmark train/test/private-test files",
		RunE: func(*cobra.Command, []string) error {
			return runSetup(input, outputDir, seed)
		},
	}

	cmd.Flags().StringVar(&input, "input", "data/dpe_2025.csv", "fetched CSV path")
	cmd.Flags().StringVar(&outputDir, "output-dir", "dev_phase", "benchmark output directory")
	cmd.Flags().Int64Var(&seed, "seed", 123, "random seed for the stratified splits")

	return cmd
}

func runSetup(input, outputDir string, seed int64) error {
	ds, err := dataset.ReadFile(input)
	if err != nil {
		return err
	}

	guard := features.New(features.DefaultConfig())
	partitioner := split.New(split.DefaultConfig(seed))
	pipeline := prep.NewPipeline(guard, partitioner)

	out, err := pipeline.Run(ds)
	if err != nil {
		return err
	}

	renderSplitSummary(out, guard.Target())

	if err := out.WriteFiles(outputDir); err != nil {
		return err
	}

	fmt.Printf("Benchmark files written under %s (stratified on %s, seed %d)\n",
		outputDir, out.Granularity, seed)
	return nil
}

func renderSplitSummary(out prep.Output, target string) {
	total := out.Rows()

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Subset", "Rows", "Share"})
	for _, s := range []struct {
		name   string
		bundle prep.Bundle
	}{
		{"train", out.Train},
		{"test", out.Test},
		{"private_test", out.PrivateTest},
	} {
		n := s.bundle.Features.Len()
		t.AppendRow(table.Row{s.name, n, fmt.Sprintf("%.1f%%", 100*float64(n)/float64(total))})
	}
	t.AppendFooter(table.Row{"total", total, ""})
	t.Render()

	renderLabelDistribution(out, target)
}

func renderLabelDistribution(out prep.Output, target string) {
	counts := map[string]map[string]int{}
	for name, b := range map[string]prep.Bundle{
		"train":        out.Train,
		"test":         out.Test,
		"private_test": out.PrivateTest,
	} {
		for _, r := range b.Labels.Rows {
			label := r.String(target)
			if counts[label] == nil {
				counts[label] = map[string]int{}
			}
			counts[label][name]++
		}
	}

	labels := make([]string, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{target, "train", "test", "private_test"})
	for _, l := range labels {
		t.AppendRow(table.Row{l, counts[l]["train"], counts[l]["test"], counts[l]["private_test"]})
	}
	t.Render()
}
