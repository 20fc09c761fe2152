package main

import (
	"io"
	"log/slog"
	"testing"
)

func TestParseFlagsDefaults(t *testing.T) {
	cfg, err := parseFlags(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.window != 16 || cfg.docLen != 1<<20 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.factors) != 4 {
		t.Errorf("expected 4 capacity factors, got %v", cfg.factors)
	}
}

func TestParseFlagsRejectsBadInput(t *testing.T) {
	for _, args := range [][]string{
		{"-m", "0"},
		{"-doc", "4", "-m", "5"},
		{"-trials", "0"},
		{"-capacity", "1,x"},
		{"-capacity", "-1"},
		{"-fp", "0"},
		{"-fp", "1"},
	} {
		if _, err := parseFlags(args); err == nil {
			t.Errorf("%v: expected error", args)
		}
	}
}

func runWith(t *testing.T, args ...string) []measurement {
	t.Helper()

	cfg, err := parseFlags(args)
	if err != nil {
		t.Fatal(err)
	}
	results, err := run(slog.New(slog.NewTextHandler(io.Discard, nil)), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != len(cfg.factors) {
		t.Fatalf("expected %d results, got %d", len(cfg.factors), len(results))
	}
	return results
}

func TestRunSmall(t *testing.T) {
	for _, r := range runWith(t, "-doc", "20000", "-m", "8", "-trials", "20000", "-capacity", "1") {
		if r.estimated <= 0 || r.estimated > 0.05 {
			t.Errorf("capacity %d: estimated rate %f out of range", r.capacity, r.estimated)
		}
		if r.observed > 2*r.estimated+0.01 {
			t.Errorf("capacity %d: observed %f far above estimate %f", r.capacity, r.observed, r.estimated)
		}
	}
}

func TestRunHonoursTargetRate(t *testing.T) {
	args := []string{"-doc", "20000", "-m", "8", "-trials", "20000", "-capacity", "1"}
	loose := runWith(t, append(args, "-fp", "0.1")...)[0]
	tight := runWith(t, append(args, "-fp", "0.0001")...)[0]

	if tight.estimated >= loose.estimated {
		t.Errorf("estimated rate did not drop: fp=0.0001 gave %f, fp=0.1 gave %f", tight.estimated, loose.estimated)
	}
	if tight.observed > 0.005 {
		t.Errorf("fp=0.0001 observed %f", tight.observed)
	}
	if loose.observed > 2*loose.estimated+0.01 {
		t.Errorf("fp=0.1 observed %f far above estimate %f", loose.observed, loose.estimated)
	}
}
