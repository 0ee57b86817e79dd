// Command rollcat demonstrates the rolling prefetch cache: it opens one or
// more bucket/key objects as a single logical stream and either copies it to
// stdout or benchmarks read-ahead throughput.
package main

import (
	"fmt"
	"os"

	"github.com/marmos91/rollcache/cmd/rollcat/commands"

	// Registers the Prometheus-backed StreamMetrics constructor.
	_ "github.com/marmos91/rollcache/pkg/metrics/prometheus"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "rollcat:", err)
		os.Exit(1)
	}
}
