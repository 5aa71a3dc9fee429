package obj

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

	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/taskforge/ostore/cmd/util"
	"github.com/taskforge/ostore/lib/objstore"
	"github.com/taskforge/ostore/rpc/common"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for ostore servers",
		Long:    "",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfIDSpread         = 100
	perfSkip             = make([]string, 0)
	perfTimeoutMs        = int64(5000)
)

func init() {
	// add flags
	key := "skip"
	ObjectCommands.PersistentFlags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. put,get)"))
	key = "threads"
	ObjectCommands.PersistentFlags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "large-value-size"
	ObjectCommands.PersistentFlags().Int(key, 1000, util.WrapString("How large the value for the put-large test should be (in KB)"))
	key = "objects"
	ObjectCommands.PersistentFlags().Int(key, 100, util.WrapString("How many different object ids to use for the tests"))
	key = "op-timeout"
	ObjectCommands.PersistentFlags().Int64(key, 5000, util.WrapString("Store level timeout in milliseconds for the get and wait benchmarks"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfIDSpread = viper.GetInt("objects")
	perfNumThreads = viper.GetInt("threads")
	perfTimeoutMs = viper.GetInt64("op-timeout")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

// perfResult bundles the wall-clock result with the latency distribution
type perfResult struct {
	bench testing.BenchmarkResult
	timer gometrics.Timer
}

func runPerf(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for ostore servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	fmt.Println("starting tests...")

	timeout := time.Duration(perfTimeoutMs) * time.Millisecond

	// Create results map
	results := make(map[string]perfResult)

	// runBenchmark runs one named benchmark with the shared thread settings
	// and records every operation in a latency timer
	runBenchmark := func(name string, op func(timer gometrics.Timer, b *testing.B)) {
		timer := gometrics.NewTimer()
		bench := testing.Benchmark(func(b *testing.B) {
			if shouldSkip(name) {
				return
			}
			op(timer, b)
		})
		result := perfResult{bench: bench, timer: timer}
		results[name] = result
		printResult(name, result)
	}

	runBenchmark("put", func(timer gometrics.Timer, b *testing.B) {
		getID, iter := getIDs()
		value := []byte("test")

		// cleanup
		b.Cleanup(func() {
			iter(func(id objstore.ObjectID) {
				if err := rpcStore.Erase([]objstore.ObjectID{id}); err != nil {
					log.Printf("(put) - error erasing object: %v\n", err)
				}
			})
		})

		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				timer.Time(func() {
					if _, err := rpcStore.Put(objstore.NewObject(value, nil, nil), getID(counter)); err != nil {
						log.Printf("(put) - error storing object: %v\n", err)
					}
				})
				counter++
			}
		})
	})

	runBenchmark("put-large", func(timer gometrics.Timer, b *testing.B) {
		getID, iter := getIDs()
		value := make([]byte, perfLargeValueSizeKB*1024)

		b.Cleanup(func() {
			iter(func(id objstore.ObjectID) {
				if err := rpcStore.Erase([]objstore.ObjectID{id}); err != nil {
					log.Printf("(put-large) - error erasing object: %v\n", err)
				}
			})
		})

		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				timer.Time(func() {
					if _, err := rpcStore.Put(objstore.NewObject(value, nil, nil), getID(counter)); err != nil {
						log.Printf("(put-large) - error storing object: %v\n", err)
					}
				})
				counter++
			}
		})
	})

	runBenchmark("get", func(timer gometrics.Timer, b *testing.B) {
		getID, iter := getIDs()

		// store objects up front so every get resolves immediately
		iter(func(id objstore.ObjectID) {
			if _, err := rpcStore.Put(objstore.NewObject([]byte("test"), nil, nil), id); err != nil {
				log.Printf("(get) - error storing object: %v\n", err)
			}
		})

		b.Cleanup(func() {
			iter(func(id objstore.ObjectID) {
				if err := rpcStore.Erase([]objstore.ObjectID{id}); err != nil {
					log.Printf("(get) - error erasing object: %v\n", err)
				}
			})
		})

		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				timer.Time(func() {
					if _, err := rpcStore.Get([]objstore.ObjectID{getID(counter)}, 1, timeout, false); err != nil {
						log.Printf("(get) - error fetching object: %v\n", err)
					}
				})
				counter++
			}
		})
	})

	runBenchmark("wait", func(timer gometrics.Timer, b *testing.B) {
		getID, iter := getIDs()

		iter(func(id objstore.ObjectID) {
			if _, err := rpcStore.Put(objstore.NewObject([]byte("test"), nil, nil), id); err != nil {
				log.Printf("(wait) - error storing object: %v\n", err)
			}
		})

		b.Cleanup(func() {
			iter(func(id objstore.ObjectID) {
				if err := rpcStore.Erase([]objstore.ObjectID{id}); err != nil {
					log.Printf("(wait) - error erasing object: %v\n", err)
				}
			})
		})

		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				timer.Time(func() {
					if _, _, err := rpcStore.Wait([]objstore.ObjectID{getID(counter)}, 1, timeout); err != nil {
						log.Printf("(wait) - error waiting for object: %v\n", err)
					}
				})
				counter++
			}
		})
	})

	runBenchmark("has", func(timer gometrics.Timer, b *testing.B) {
		getID, iter := getIDs()

		iter(func(id objstore.ObjectID) {
			if _, err := rpcStore.Put(objstore.NewObject([]byte("test"), nil, nil), id); err != nil {
				log.Printf("(has) - error storing object: %v\n", err)
			}
		})

		b.Cleanup(func() {
			iter(func(id objstore.ObjectID) {
				if err := rpcStore.Erase([]objstore.ObjectID{id}); err != nil {
					log.Printf("(has) - error erasing object: %v\n", err)
				}
			})
		})

		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				timer.Time(func() {
					if _, _, err := rpcStore.Contains(getID(counter)); err != nil {
						log.Printf("(has) - error checking object: %v\n", err)
					}
				})
				counter++
			}
		})
	})

	runBenchmark("has-not", func(timer gometrics.Timer, b *testing.B) {
		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				timer.Time(func() {
					if _, _, err := rpcStore.Contains(objstore.NewObjectID()); err != nil {
						log.Printf("(has-not) - error checking object: %v\n", err)
					}
				})
			}
		})
	})

	runBenchmark("delete", func(timer gometrics.Timer, b *testing.B) {
		getID, iter := getIDs()

		iter(func(id objstore.ObjectID) {
			if _, err := rpcStore.Put(objstore.NewObject([]byte("test"), nil, nil), id); err != nil {
				log.Printf("(delete) - error storing object: %v\n", err)
			}
		})

		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				timer.Time(func() {
					if _, err := rpcStore.Delete([]objstore.ObjectID{getID(counter)}); err != nil {
						log.Printf("(delete) - error deleting object: %v\n", err)
					}
				})
				counter++
			}
		})
	})

	runBenchmark("mixed", func(timer gometrics.Timer, b *testing.B) {
		getID, iter := getIDs()

		iter(func(id objstore.ObjectID) {
			if _, err := rpcStore.Put(objstore.NewObject([]byte("test"), nil, nil), id); err != nil {
				log.Printf("(mixed) - error storing object: %v\n", err)
			}
		})

		b.Cleanup(func() {
			iter(func(id objstore.ObjectID) {
				if err := rpcStore.Erase([]objstore.ObjectID{id}); err != nil {
					log.Printf("(mixed) - error erasing object: %v\n", err)
				}
			})
		})

		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				id := getID(counter)
				var err error
				timer.Time(func() {
					switch counter % 4 {
					case 0: // put
						_, err = rpcStore.Put(objstore.NewObject([]byte("test"), nil, nil), id)
					case 1: // get
						_, err = rpcStore.Get([]objstore.ObjectID{id}, 1, timeout, false)
					case 2: // has
						_, _, err = rpcStore.Contains(id)
					case 3: // stats
						_, err = rpcStore.Stats()
					}
				})
				if err != nil {
					log.Printf("(mixed) - error performing operation (%d): %v\n", counter%4, err)
				}
				counter++
			}
		})
	})

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, util.GetClientConfig()); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// getIDs creates an array of test ids and functions to work with them
func getIDs() (func(int) objstore.ObjectID, func(func(objstore.ObjectID))) {
	ids := make([]objstore.ObjectID, perfIDSpread)
	for i := 0; i < perfIDSpread; i++ {
		ids[i] = objstore.NewObjectID()
	}

	// Function to get an id by index (with wraparound)
	getID := func(i int) objstore.ObjectID {
		return ids[i%perfIDSpread]
	}

	// Function to iterate over all ids and apply a function to each
	iterateIDs := func(fn func(objstore.ObjectID)) {
		for _, id := range ids {
			fn(id)
		}
	}

	return getID, iterateIDs
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result perfResult) {
	if result.bench.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.bench.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	snapshot := result.timer.Snapshot()
	percentiles := snapshot.Percentiles([]float64{0.5, 0.95, 0.99})

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\tp50=%s p95=%s p99=%s\n",
		test, nsPerOp, time.Duration(nsPerOp), opsPerSec,
		time.Duration(percentiles[0]), time.Duration(percentiles[1]), time.Duration(percentiles[2]))
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]perfResult, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "P50", "P95", "P99", "Skipped",
		"Endpoints", "TimeoutSec", "RetryCount", "ConnectionsPerEndpoint",
		"ShardID", "Serializer", "Transport",
		"Threads", "LargeValueSizeKB", "Object Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for test, result := range results {
		var nsPerOp float64
		var opsPerSec float64
		var skipped string

		if result.bench.NsPerOp() == 0 {
			skipped = "true"
			nsPerOp = 0
			opsPerSec = 0
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.bench.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		snapshot := result.timer.Snapshot()
		percentiles := snapshot.Percentiles([]float64{0.5, 0.95, 0.99})

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			time.Duration(percentiles[0]).String(),
			time.Duration(percentiles[1]).String(),
			time.Duration(percentiles[2]).String(),
			skipped,
			strings.Join(config.Transport.Endpoints, ";"),
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.Transport.RetryCount),
			strconv.Itoa(config.Transport.ConnectionsPerEndpoint),
			strconv.FormatUint(util.GetShardID(), 10),
			viper.GetString("serializer"),
			viper.GetString("transport"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfIDSpread),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %v", err)
		}
	}

	return nil
}
