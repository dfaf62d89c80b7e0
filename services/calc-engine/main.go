package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"cashflow_sim/pkg/core/config"
	"cashflow_sim/pkg/core/logger"
	"cashflow_sim/pkg/core/report"
	"cashflow_sim/pkg/core/round"
	"cashflow_sim/pkg/core/scenario"
	"cashflow_sim/pkg/core/simulate"
	"cashflow_sim/pkg/core/validate"
	"cashflow_sim/pkg/core/verify"
)

// Payload is the -data input. Omitted fields fall back to the simulator config.
type Payload struct {
	Balances *round.BalanceState `json:"balances"`
	Params   *round.PolicyParams `json:"params"`
	Strict   *bool               `json:"strict"`
}

type options struct {
	mode     string
	data     string
	file     string
	name     string
	rounds   int
	format   string
	simPath  string
	logLevel string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("calc-engine", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts options
	fs.StringVar(&opts.mode, "mode", "calculate", "Mode: calculate, check or run")
	fs.StringVar(&opts.data, "data", "", "JSON payload {balances, params, strict}; unquoted keys and trailing commas are tolerated")
	fs.StringVar(&opts.file, "scenario", "", "Scenario file (.yaml, .hjson or .json)")
	fs.StringVar(&opts.name, "name", "", "Scenario name to calculate or run")
	fs.IntVar(&opts.rounds, "rounds", 1, "Rounds to play in run mode")
	fs.StringVar(&opts.format, "format", "text", "Output: text, json or markdown")
	fs.StringVar(&opts.simPath, "config", "config/simulator.yaml", "Simulator config")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "Log level")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if err := logger.InitLogger(opts.logLevel); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	sim, err := config.LoadSimulator(opts.simPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	switch opts.mode {
	case "check":
		return runCheck(opts, stdout, stderr)
	case "calculate", "run":
		start, params, err := resolveInput(opts, sim)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		n := 1
		if opts.mode == "run" {
			n = opts.rounds
		}
		if n < 1 {
			fmt.Fprintf(stderr, "Error: -rounds must be at least 1\n")
			return 1
		}
		return runRounds(start, params, n, opts.format, stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown mode: %s\n", opts.mode)
		return 2
	}
}

// resolveInput picks the starting balances and policy from a named scenario,
// the -data payload, or the simulator defaults, in that order.
func resolveInput(opts options, sim config.Simulator) (round.BalanceState, round.PolicyParams, error) {
	if opts.name != "" {
		sc, err := findScenario(opts.file, opts.name)
		if err != nil {
			return round.BalanceState{}, round.PolicyParams{}, err
		}
		return sc.Balances, sc.Params, nil
	}

	start, params, strict := sim.Initial, sim.Policy, sim.Strict
	if opts.data != "" {
		var p Payload
		if err := scenario.DecodeLenient(opts.data, &p); err != nil {
			return start, params, fmt.Errorf("invalid -data: %w", err)
		}
		if p.Balances != nil {
			start = *p.Balances
		}
		if p.Params != nil {
			params = *p.Params
		}
		if p.Strict != nil {
			strict = *p.Strict
		}
	}

	if err := validate.CheckBalances(start); err != nil {
		return start, params, err
	}
	if strict {
		if err := validate.Strict(params, sim.Limits); err != nil {
			return start, params, err
		}
		return start, params, nil
	}
	clamped, notes := validate.ClampParams(params, sim.Limits)
	for _, n := range notes {
		logger.L.Warn("Parameter adjusted", zap.String("note", n))
	}
	return start, clamped, nil
}

func loadScenarios(file string) ([]scenario.Scenario, error) {
	if file == "" {
		return scenario.Builtin(), nil
	}
	return scenario.LoadFile(file)
}

func findScenario(file, name string) (scenario.Scenario, error) {
	list, err := loadScenarios(file)
	if err != nil {
		return scenario.Scenario{}, err
	}
	sc, ok := scenario.Find(list, name)
	if !ok {
		return scenario.Scenario{}, fmt.Errorf("scenario %q not found", name)
	}
	return sc, nil
}

func runCheck(opts options, stdout, stderr io.Writer) int {
	list, err := loadScenarios(opts.file)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if opts.name != "" {
		sc, ok := scenario.Find(list, opts.name)
		if !ok {
			fmt.Fprintf(stderr, "Error: scenario %q not found\n", opts.name)
			return 1
		}
		list = []scenario.Scenario{sc}
	}

	results := verify.SelfTest(list)
	if opts.format == "json" {
		writeJSON(stdout, results)
	} else {
		for _, r := range results {
			if r.Passed {
				fmt.Fprintf(stdout, "PASS  %s\n", r.Name)
				continue
			}
			fmt.Fprintf(stdout, "FAIL  %s\n", r.Name)
			for _, w := range r.Warnings {
				fmt.Fprintf(stdout, "      - %s\n", w)
			}
		}
	}

	if !verify.AllPassed(results) {
		return 1
	}
	if opts.format != "json" {
		fmt.Fprintf(stdout, "Success: %d scenarios passed\n", len(results))
	}
	return 0
}

type roundOutput struct {
	simulate.RoundRecord
	Verification verify.VerificationResult `json:"verification"`
}

func runRounds(start round.BalanceState, params round.PolicyParams, n int, format string, stdout, stderr io.Writer) int {
	records := simulate.Run(start, params, n)
	outputs := make([]roundOutput, len(records))
	failed := false
	for i, rec := range records {
		v := verify.CheckRound(rec.Start, rec.Params, rec.Result)
		outputs[i] = roundOutput{RoundRecord: rec, Verification: v}
		if !v.Passed {
			failed = true
			logger.L.Error("Round failed verification", zap.Int("round", rec.Round), zap.Strings("warnings", v.Warnings))
		}
	}

	switch format {
	case "json":
		if n == 1 {
			writeJSON(stdout, outputs[0])
		} else {
			writeJSON(stdout, outputs)
		}
	case "markdown", "md":
		for _, rec := range records {
			fmt.Fprintln(stdout, report.Markdown(rec))
		}
	case "text":
		for _, o := range outputs {
			writeText(stdout, o)
		}
	default:
		fmt.Fprintf(stderr, "Unknown format: %s\n", format)
		return 2
	}

	if failed {
		return 1
	}
	return 0
}

func writeText(w io.Writer, o roundOutput) {
	res := o.Result
	fmt.Fprintf(w, "Round %d\n", o.Round)
	for i, s := range res.Script {
		f := o.Frames[i]
		fmt.Fprintf(w, "  %s  %-9s -> %-9s %10.2f  %-45s  F=%.2f I=%.2f GS=%.2f A=%.2f\n",
			s.Code, s.From, s.To, s.Amount, s.Note, f.FirmCash, f.MarketCash, f.StakeholderCash, f.AssetsBook)
	}
	if len(res.Script) == 0 {
		fmt.Fprintln(w, "  (no cash moved)")
	}
	e := res.End
	fmt.Fprintf(w, "  End: F=%.2f I=%.2f GS=%.2f A=%.2f  total cash=%.2f\n",
		e.FirmCash, e.MarketCash, e.StakeholderCash, e.AssetsBook, e.TotalCash())
	if o.Verification.Passed {
		fmt.Fprintln(w, "  Checks: ok")
	} else {
		fmt.Fprintf(w, "  Checks: %s\n", strings.Join(o.Verification.Warnings, "; "))
	}
}

func writeJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		logger.L.Error("Failed to encode output", zap.Error(err))
	}
}
