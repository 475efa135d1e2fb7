package client

import (
	"encoding/csv"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"github.com/panunburn/kv/cmd/util"
	"github.com/panunburn/kv/lib/protocol"
	"github.com/panunburn/kv/lib/replication"
	"github.com/panunburn/kv/rpc/client"
	"github.com/panunburn/kv/rpc/common"
	"github.com/rcrowley/go-metrics"
	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

var (
	perfCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Load test a running cluster",
		PreRunE: processPerfConfig,
		RunE:    runPerf,
	}
	perfNumThreads = 10
	perfOps        = 1000
	perfKeySpread  = 100
	perfSkip       = make([]string, 0)
)

func init() {
	key := "skip"
	perfCmd.Flags().String(key, "", util.WrapString("Tests to skip (comma separated, e.g. put,get)"))
	key = "threads"
	perfCmd.Flags().Int(key, 10, util.WrapString("Number of concurrent clients"))
	key = "ops"
	perfCmd.Flags().Int(key, 1000, util.WrapString("Requests per test, spread over all threads"))
	key = "keys"
	perfCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	perfCmd.Flags().String(key, "", util.WrapString("Optional path to save the results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	perfNumThreads = max(viper.GetInt("threads"), 1)
	perfOps = max(viper.GetInt("ops"), 1)
	perfKeySpread = max(viper.GetInt("keys"), 1)
	perfSkip = util.SplitList(viper.GetString("skip"))
	return nil
}

// perfResult holds the latencies of one test
type perfResult struct {
	test    string
	timer   metrics.Timer
	errors  metrics.Counter
	aborts  metrics.Counter
	elapsed time.Duration
	skipped bool
}

// perfTest produces the command a thread sends for its i-th request
type perfTest struct {
	name    string
	prepare bool
	next    func(keys []string, i int) protocol.Command
}

var perfTests = []perfTest{
	{name: "put", next: func(keys []string, i int) protocol.Command {
		return protocol.Put(keys[i%len(keys)], "test")
	}},
	{name: "get", prepare: true, next: func(keys []string, i int) protocol.Command {
		return protocol.Get(keys[i%len(keys)])
	}},
	{name: "delete", prepare: true, next: func(keys []string, i int) protocol.Command {
		return protocol.Delete(keys[i%len(keys)])
	}},
	{name: "mixed", prepare: true, next: func(keys []string, i int) protocol.Command {
		key := keys[i%len(keys)]
		switch i % 3 {
		case 0:
			return protocol.Put(key, "test")
		case 1:
			return protocol.Get(key)
		default:
			return protocol.Delete(key)
		}
	}},
}

func runPerf(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Load test for kv clusters")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Configuration:")
	fmt.Fprintln(out, clientConfig.String())
	fmt.Fprintf(out, "Threads: %d, Requests per test: %d, Keys: %d\n", perfNumThreads, perfOps, perfKeySpread)
	fmt.Fprintln(out)

	// one connection per thread, spread over all endpoints
	gateways := make([]client.IGatewayClient, perfNumThreads)
	defer func() {
		for _, g := range gateways {
			if g != nil {
				_ = g.Close()
			}
		}
	}()
	for i := range gateways {
		endpoints := clientConfig.Transport.Endpoints
		g, err := connectGateway(endpoints[i%len(endpoints)])
		if err != nil {
			return err
		}
		gateways[i] = g
	}

	// keys are unique to this run so concurrent perf runs do not conflict
	run := uuid.NewString()[:8]

	results := make([]*perfResult, 0, len(perfTests))
	for _, test := range perfTests {
		keys := make([]string, perfKeySpread)
		for i := range keys {
			keys[i] = fmt.Sprintf("__perf-%s-%s-%d", run, test.name, i)
		}

		result := runPerfTest(gateways, test, keys)
		results = append(results, result)
		printResult(out, result)

		cleanup(gateways[0], keys)
	}

	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Fprintf(out, "\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, clientConfig); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Fprintln(out, "Export complete")
	}
	return nil
}

func runPerfTest(gateways []client.IGatewayClient, test perfTest, keys []string) *perfResult {
	result := &perfResult{test: test.name}
	result.timer, result.errors, result.aborts = newPerfCounters()
	if slices.Contains(perfSkip, test.name) {
		result.skipped = true
		return result
	}

	if test.prepare {
		for _, key := range keys {
			if _, err := gateways[0].Process(protocol.Put(key, "test")); err != nil {
				client.Logger.Warningf("(%s) - error preparing key %s: %v", test.name, key, err)
			}
		}
	}

	start := time.Now()
	var wg conc.WaitGroup
	for thread, gateway := range gateways {
		ops := perfOps / len(gateways)
		if thread < perfOps%len(gateways) {
			ops++
		}
		wg.Go(func() {
			for i := 0; i < ops; i++ {
				// threads start at different keys
				command := test.next(keys, thread*ops+i)

				begin := time.Now()
				_, err := gateway.Process(command)
				result.timer.UpdateSince(begin)

				switch {
				case err == nil:
				case errors.Is(err, replication.ErrTransactionAbort):
					result.aborts.Inc(1)
				default:
					result.errors.Inc(1)
					client.Logger.Warningf("(%s) - error processing %s: %v", test.name, command, err)
				}
			}
		})
	}
	wg.Wait()
	result.elapsed = time.Since(start)

	return result
}

func cleanup(gateway client.IGatewayClient, keys []string) {
	for _, key := range keys {
		if _, err := gateway.Process(protocol.Delete(key)); err != nil {
			client.Logger.Warningf("error deleting key %s: %v", key, err)
		}
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

var percentiles = []float64{0.5, 0.95, 0.99}

// newPerfCounters returns standalone meters, the global go-metrics registry is not used
func newPerfCounters() (metrics.Timer, metrics.Counter, metrics.Counter) {
	return metrics.NewTimer(), metrics.NewCounter(), metrics.NewCounter()
}

func opsPerSec(result *perfResult) float64 {
	if result.elapsed <= 0 {
		return 0
	}
	return float64(result.timer.Count()) / result.elapsed.Seconds()
}

// printResult prints the result of a test in a formatted way
func printResult(out io.Writer, result *perfResult) {
	if result.skipped {
		fmt.Fprintf(out, "%-10sskipped\n", result.test)
		return
	}

	p := result.timer.Percentiles(percentiles)
	fmt.Fprintf(out, "%-10s%6d req  mean %-10s p50 %-10s p95 %-10s p99 %-10s %8.0f ops/sec  %d aborts  %d errors\n",
		result.test,
		result.timer.Count(),
		time.Duration(result.timer.Mean()),
		time.Duration(p[0]),
		time.Duration(p[1]),
		time.Duration(p[2]),
		opsPerSec(result),
		result.aborts.Count(),
		result.errors.Count(),
	)
}

// writeResultsToCSV writes the results to a CSV file
func writeResultsToCSV(csvPath string, results []*perfResult, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Test", "Requests", "MeanNs", "P50Ns", "P95Ns", "P99Ns", "MaxNs", "OpsPerSec",
		"Aborts", "Errors", "Skipped",
		"Endpoints", "TimeoutSec", "RetryCount", "ConnectionsPerEndpoint",
		"Serializer", "Transport", "Threads", "Keys",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for _, result := range results {
		p := result.timer.Percentiles(percentiles)
		row := []string{
			result.test,
			strconv.FormatInt(result.timer.Count(), 10),
			fmt.Sprintf("%.0f", result.timer.Mean()),
			fmt.Sprintf("%.0f", p[0]),
			fmt.Sprintf("%.0f", p[1]),
			fmt.Sprintf("%.0f", p[2]),
			strconv.FormatInt(result.timer.Max(), 10),
			fmt.Sprintf("%.0f", opsPerSec(result)),
			strconv.FormatInt(result.aborts.Count(), 10),
			strconv.FormatInt(result.errors.Count(), 10),
			strconv.FormatBool(result.skipped),
			strings.Join(config.Transport.Endpoints, ";"),
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.Transport.RetryCount),
			strconv.Itoa(config.Transport.ConnectionsPerEndpoint),
			viper.GetString("serializer"),
			viper.GetString("transport"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfKeySpread),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", result.test, err)
		}
	}
	return nil
}
