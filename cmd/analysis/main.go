// Command analysis measures how well a document bloom rejects absent
// patterns. For each capacity factor it builds a DocBloom over a random
// document, probes it with patterns drawn from a disjoint alphabet and
// compares the observed false positive rate against the filter's estimate.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jcalabro/rkgrep"
)

type config struct {
	docLen  int
	window  int
	factors []float64
	trials  int
	seed    uint64
	fpRate  float64
	workers int
}

func main() {
	log := initLogging("rkgrep-analysis")

	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		log.Error("invalid arguments", "err", err)
		os.Exit(2)
	}

	if _, err := run(log, cfg); err != nil {
		log.Error("analysis failed", "err", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (config, error) {
	var (
		cfg     config
		factors string
	)

	fs := flag.NewFlagSet("analysis", flag.ContinueOnError)
	fs.IntVar(&cfg.docLen, "doc", 1<<20, "document length in bytes")
	fs.IntVar(&cfg.window, "m", 16, "window (pattern) length")
	fs.StringVar(&factors, "capacity", "0.25,0.5,1,2", "comma separated capacities as multiples of the window count")
	fs.IntVar(&cfg.trials, "trials", 100000, "absent patterns probed per filter")
	fs.Uint64Var(&cfg.seed, "seed", 1, "random seed")
	fs.Float64Var(&cfg.fpRate, "fp", rkgrep.DefaultFalsePositiveRate, "target false positive rate")
	fs.IntVar(&cfg.workers, "workers", 0, "build workers (0 = GOMAXPROCS)")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	if cfg.window <= 0 || cfg.window > cfg.docLen {
		return cfg, fmt.Errorf("window %d must be in [1, %d]", cfg.window, cfg.docLen)
	}
	if cfg.fpRate <= 0 || cfg.fpRate >= 1 {
		return cfg, fmt.Errorf("fp must be in (0, 1), got %g", cfg.fpRate)
	}
	if cfg.trials <= 0 {
		return cfg, fmt.Errorf("trials must be positive, got %d", cfg.trials)
	}

	for _, s := range strings.Split(factors, ",") {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || f <= 0 {
			return cfg, fmt.Errorf("bad capacity factor %q", s)
		}
		cfg.factors = append(cfg.factors, f)
	}

	return cfg, nil
}

// measurement is the outcome of probing one filter.
type measurement struct {
	capacity  uint64
	observed  float64
	estimated float64
}

func run(log *slog.Logger, cfg config) ([]measurement, error) {
	rng := rand.New(rand.NewPCG(cfg.seed, cfg.seed^0x9e3779b97f4a7c15))

	// Lower case document, upper case probes: no probe can really occur.
	doc := randomBytes(rng, cfg.docLen, 'a')
	windows := cfg.docLen - cfg.window + 1
	log.Info("generated document", "bytes", cfg.docLen, "window", cfg.window, "windows", windows)

	probes := make([]uint64, cfg.trials)
	for i := range probes {
		probes[i], _ = rkgrep.HashInit(randomBytes(rng, cfg.window, 'A'), cfg.window)
	}

	var results []measurement
	for _, factor := range cfg.factors {
		capacity := uint64(max(float64(windows)*factor, 1))

		start := time.Now()
		b, err := rkgrep.BuildDocBloomParallelWithRate(doc, cfg.window, capacity, cfg.workers, cfg.fpRate)
		if err != nil {
			return nil, fmt.Errorf("failed to build filter with capacity %d: %w", capacity, err)
		}
		built := time.Since(start)

		var hits int
		start = time.Now()
		for _, h := range probes {
			if b.TestHash(h) {
				hits++
			}
		}
		probed := time.Since(start)

		res := measurement{
			capacity:  capacity,
			observed:  float64(hits) / float64(len(probes)),
			estimated: b.EstimatedFalsePositiveRate(),
		}
		results = append(results, res)

		log.Info("measured filter",
			"capacity", capacity,
			"factor", factor,
			"target_fp", cfg.fpRate,
			"build", built,
			"probe_ns", probed.Nanoseconds()/int64(len(probes)),
			"observed_fp", res.observed,
			"estimated_fp", res.estimated,
		)
		if res.observed > 2*res.estimated+0.001 {
			log.Warn("observed rate well above estimate", "capacity", capacity, "observed", res.observed, "estimated", res.estimated)
		}
	}

	return results, nil
}

// randomBytes returns n letters starting at base.
func randomBytes(rng *rand.Rand, n int, base byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = base + byte(rng.UintN(26))
	}
	return b
}
