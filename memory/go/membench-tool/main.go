// Command-line application for inspecting, running and filtering the memory
// benchmarks.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	apipb "go.chromium.org/luci/swarming/proto/api_v2"
	"go.skia.org/infra/go/skerr"
	"go.skia.org/infra/go/sklog"
	"go.skia.org/infra/go/sklog/sklogimpl"
	"go.skia.org/infra/go/sklog/stdlogging"
	"go.skia.org/infra/perf/go/perfresults"
	"google.golang.org/protobuf/encoding/protojson"

	"go.skia.org/membench/memory/go/benchmarks"
	"go.skia.org/membench/memory/go/config"
	"go.skia.org/membench/memory/go/platform"
	"go.skia.org/membench/memory/go/read_values"
	"go.skia.org/membench/memory/go/run_benchmark"
	"go.skia.org/membench/memory/go/tracing"
)

var cfg = config.Default()

// newSwarmingClient is replaced in tests.
var newSwarmingClient = func(ctx context.Context) (run_benchmark.SwarmingClient, error) {
	return run_benchmark.NewSwarmingClient(ctx, cfg.Swarming.Server, nil)
}

// flags
var (
	configFile   string
	bot          string
	logToStdErr  bool
	outputFormat string
	dryRun       bool
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "membench-tool [sub]",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(c *cobra.Command, args []string) error {
			if !logToStdErr {
				devNull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
				if err != nil {
					return skerr.Wrap(err)
				}
				sklogimpl.SetLogger(stdlogging.New(devNull))
			}

			cfg = config.Default()
			if configFile != "" {
				var err error
				cfg, err = config.Load(configFile)
				if err != nil {
					return err
				}
			}
			if bot != "" {
				cfg.Bot = bot
			}
			if outputFormat != "" {
				cfg.OutputFormat = outputFormat
			}
			return cfg.Validate()
		},
	}
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file. Defaults are used when empty.")
	cmd.PersistentFlags().StringVar(&bot, "bot", "", "The bot to run on, overrides the config.")
	cmd.PersistentFlags().BoolVar(&logToStdErr, "logtostderr", false, "Otherwise logs are not produced.")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the registered benchmarks.",
		Long:  "Lists the registered benchmarks and whether each one is enabled on --bot.",
		Args:  cobra.NoArgs,
		RunE:  listAction,
	}
	optionsCmd := &cobra.Command{
		Use:   "options <benchmark>",
		Short: "Print the tracing startup config and metrics of a benchmark.",
		Args:  cobra.ExactArgs(1),
		RunE:  optionsAction,
	}
	commandCmd := &cobra.Command{
		Use:   "command <benchmark>",
		Short: "Print the command that runs a benchmark on --bot, quoted for a shell.",
		Args:  cobra.ExactArgs(1),
		RunE:  commandAction,
	}
	filterCmd := &cobra.Command{
		Use:   "filter <benchmark> <perf_results.json>...",
		Short: "Print the values of a benchmark run that the benchmark reports.",
		Long:  "Loads the perf results of one or more runs of a benchmark, in run order, and prints the values that pass the benchmark's filter.",
		Args:  cobra.MinimumNArgs(2),
		RunE:  filterAction,
	}
	filterCmd.Flags().StringVar(&outputFormat, "format", "", "Output format, one of "+strings.Join(read_values.Formats, ", ")+". Overrides the config.")
	triggerCmd := &cobra.Command{
		Use:   "trigger <benchmark>",
		Short: "Schedule swarming tasks that run a benchmark.",
		Args:  cobra.ExactArgs(1),
		RunE:  triggerAction,
	}
	triggerCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the swarming task request instead of scheduling it.")
	cancelCmd := &cobra.Command{
		Use:   "cancel <task-id>...",
		Short: "Cancel swarming tasks, killing them if running.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  cancelAction,
	}
	statusCmd := &cobra.Command{
		Use:   "status <task-id>...",
		Short: "Print the state of swarming tasks.",
		Long:  "Prints the state of each task. Fails if any task finished without completing.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  statusAction,
	}

	cmd.AddCommand(
		listCmd,
		optionsCmd,
		commandCmd,
		filterCmd,
		triggerCmd,
		cancelCmd,
		statusCmd,
	)
	return cmd
}

func benchmarkRequest(name string) run_benchmark.BenchmarkRequest {
	return run_benchmark.BenchmarkRequest{
		Commit:          cfg.Commit,
		Bot:             cfg.Bot,
		Browser:         cfg.Browser,
		Benchmark:       name,
		Story:           cfg.Story,
		StoryTags:       cfg.StoryTags,
		AlsoRunDisabled: cfg.AlsoRunDisabled,
		ExtraArgs:       cfg.ExtraArgs,
	}
}

func listAction(c *cobra.Command, args []string) error {
	browser, err := platform.GetPossibleBrowser(cfg.Bot, cfg.Browser)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(c.OutOrStdout())
	table.SetHeader([]string{"Benchmark", "Repeat", "Metrics", "Enabled", "Reason"})
	table.SetAutoWrapText(false)
	for _, b := range benchmarks.All() {
		ok, reason := b.CanRunOn(browser)
		table.Append([]string{
			b.Name,
			strconv.Itoa(b.Repeat()),
			strings.Join(b.Options().TimelineBasedMetrics(), ","),
			strconv.FormatBool(ok),
			reason,
		})
	}
	table.Render()
	_, err = fmt.Fprintf(c.OutOrStdout(), "device: %s, browser: %s\n", browser.Platform.GetDeviceTypeName(), browser.BrowserType)
	return err
}

func optionsAction(c *cobra.Command, args []string) error {
	b, err := benchmarks.Get(args[0])
	if err != nil {
		return err
	}
	o := b.Options()
	if err := tracing.WriteStartupConfig(c.OutOrStdout(), o.Config); err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.OutOrStdout(), "category filter: %s\nmetrics: %s\nperiodic dumps: %t\n",
		o.CategoryFilterString(), strings.Join(o.TimelineBasedMetrics(), ","), o.PeriodicDumpsEnabled())
	return err
}

func commandAction(c *cobra.Command, args []string) error {
	bt, err := run_benchmark.NewBenchmarkTest(benchmarkRequest(args[0]))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.OutOrStdout(), shellquote.Join(bt.GetCommand()...))
	return err
}

func filterAction(c *cobra.Command, args []string) error {
	b, err := benchmarks.Get(args[0])
	if err != nil {
		return err
	}
	runs := make([]*perfresults.PerfResults, 0, len(args)-1)
	for _, path := range args[1:] {
		pr, err := read_values.LoadResultsFile(path)
		if err != nil {
			return err
		}
		runs = append(runs, pr)
	}
	filtered := read_values.FilterResults(b, runs...)
	if cfg.Aggregation != "" {
		values, err := filtered.ValuesByChart(cfg.Aggregation)
		if err != nil {
			return err
		}
		for name, v := range values {
			filtered.Charts[name].SampleValues = v
		}
	}
	return filtered.Write(c.OutOrStdout(), cfg.OutputFormat)
}

func casReference() *apipb.CASReference {
	if cfg.Swarming.CASHash == "" {
		return nil
	}
	return &apipb.CASReference{
		CasInstance: cfg.Swarming.CASInstance,
		Digest: &apipb.Digest{
			Hash:      cfg.Swarming.CASHash,
			SizeBytes: cfg.Swarming.CASSizeBytes,
		},
	}
}

func triggerAction(c *cobra.Command, args []string) error {
	ctx := context.Background()
	if cfg.Swarming.CASHash == "" {
		return skerr.Fmt("swarming.cas_hash is required to trigger a benchmark")
	}
	if dryRun {
		req, err := run_benchmark.TaskRequest(cfg.Swarming.JobID, benchmarkRequest(args[0]), casReference())
		if err != nil {
			return err
		}
		b, err := protojson.MarshalOptions{Multiline: true}.Marshal(req)
		if err != nil {
			return skerr.Wrap(err)
		}
		_, err = fmt.Fprintln(c.OutOrStdout(), string(b))
		return err
	}
	sc, err := newSwarmingClient(ctx)
	if err != nil {
		return err
	}
	resp, err := run_benchmark.Run(ctx, sc, cfg.Swarming.JobID, benchmarkRequest(args[0]), casReference(), cfg.Swarming.Iterations)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(resp))
	for _, r := range resp {
		ids = append(ids, r.GetTaskId())
	}
	return json.NewEncoder(c.OutOrStdout()).Encode(ids)
}

func cancelAction(c *cobra.Command, args []string) error {
	ctx := context.Background()
	sc, err := newSwarmingClient(ctx)
	if err != nil {
		return err
	}
	if err := run_benchmark.CancelAll(ctx, sc, args); err != nil {
		return err
	}
	sklog.Infof("Cancelled %d tasks", len(args))
	return nil
}

func statusAction(c *cobra.Command, args []string) error {
	ctx := context.Background()
	sc, err := newSwarmingClient(ctx)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(c.OutOrStdout())
	table.SetHeader([]string{"Task", "State", "Finished", "Successful"})
	failed := 0
	for _, id := range args {
		state, err := run_benchmark.GetState(ctx, sc, id)
		if err != nil {
			return err
		}
		if state.IsTaskTerminalFailure() {
			failed++
		}
		table.Append([]string{
			id,
			string(state),
			strconv.FormatBool(state.IsTaskFinished()),
			strconv.FormatBool(state.IsTaskSuccessful()),
		})
	}
	table.Render()
	if failed > 0 {
		return skerr.Fmt("%d of %d tasks failed", failed, len(args))
	}
	return nil
}
