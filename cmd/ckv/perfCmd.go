package ckv

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kolbkit/ckv/cmd/util"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for ckv servers",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix  = "__test-" + uuid.NewString()
	perfNumThreads = 10
	perfKeySpread  = 100
	perfSkip       = make([]string, 0)
)

func init() {
	key := "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	perfKeySpread = viper.GetInt("keys")
	perfNumThreads = viper.GetInt("threads")
	if skip := viper.GetString("skip"); skip != "" {
		perfSkip = strings.Split(skip, ",")
	}
	return nil
}

// runPerf drives set/get/findKeys against the connected rpcClient and
// reports time per operation and operations per second via
// testing.Benchmark, the same tool the
// standard library's own benchmarks use outside of `go test`.
func runPerf(_ *cobra.Command, _ []string) error {
	fmt.Println("Performance testing tool for ckv servers")
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Printf("Run ID: %s\n", perfKeyPrefix)
	fmt.Println()

	results := make(map[string]testing.BenchmarkResult)

	results["set"] = runBench("set", func(b *testing.B) {
		getKey, iter := keyIterator("set")
		b.Cleanup(func() { iter(func(k string) { _ = rpcClient.Remove(k) }) })
		b.SetParallelism(perfNumThreads)
		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				if err := rpcClient.Set(getKey(counter), "test"); err != nil {
					log.Printf("(set) error: %v\n", err)
				}
				counter++
			}
		})
	})

	results["get"] = runBench("get", func(b *testing.B) {
		getKey, iter := keyIterator("get")
		iter(func(k string) { _ = rpcClient.Set(k, "test") })
		b.Cleanup(func() { iter(func(k string) { _ = rpcClient.Remove(k) }) })
		b.SetParallelism(perfNumThreads)
		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				if _, _, err := rpcClient.Get(getKey(counter)); err != nil {
					log.Printf("(get) error: %v\n", err)
				}
				counter++
			}
		})
	})

	results["findKeys"] = runBench("findKeys", func(b *testing.B) {
		_, iter := keyIterator("findKeys")
		iter(func(k string) { _ = rpcClient.Set(k, "test") })
		b.Cleanup(func() { iter(func(k string) { _ = rpcClient.Remove(k) }) })
		b.SetParallelism(perfNumThreads)
		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				if _, err := rpcClient.FindKeys(perfKeyPrefix+"-findKeys-*", ""); err != nil {
					log.Printf("(findKeys) error: %v\n", err)
				}
			}
		})
	})

	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// runBench executes fn as a benchmark unless name is in perfSkip, and
// prints its result immediately.
func runBench(name string, fn func(b *testing.B)) testing.BenchmarkResult {
	if shouldSkip(name) {
		fmt.Printf("%-20sskipped\n", name)
		return testing.BenchmarkResult{}
	}
	result := testing.Benchmark(fn)
	printResult(name, result)
	return result
}

func shouldSkip(test string) bool {
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// keyIterator returns a getKey(i) indexer over a wraparound key space
// and an iterate helper that visits every key once, both scoped to this
// perf run's prefix and a named test so parallel runs never collide.
func keyIterator(test string) (func(int) string, func(func(string))) {
	keys := make([]string, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, test, i)
	}
	getKey := func(i int) string { return keys[i%perfKeySpread] }
	iterate := func(fn func(string)) {
		for _, key := range keys {
			fn(key)
		}
	}
	return getKey, iterate
}

func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}
	nsPerOp := math.Max(float64(result.NsPerOp()), 1)
	opsPerSec := 1.0 / (nsPerOp / 1e9)
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}

func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped", "Threads", "Keys"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for test, result := range results {
		var nsPerOp, opsPerSec float64
		skipped := "false"
		if result.NsPerOp() == 0 {
			skipped = "true"
		} else {
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}
		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfKeySpread),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
