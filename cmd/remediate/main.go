package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/jenniferbk/WCAGproject-sub000/observability"
	"github.com/jenniferbk/WCAGproject-sub000/remediate"
)

type options struct {
	planPath   string
	audit      string
	strip      bool
	output     string
	noVerify   bool
	deferTier2 bool
	validate   bool
	verbose    bool
	args       []string
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "remediate: %v\n", err)
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "remediate: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var opts options
	flag.Usage = func() {
		out := flag.CommandLine.Output()
		fmt.Fprintf(out, "Usage:\n")
		fmt.Fprintf(out, "  remediate -plan <plan.json>          apply a tagging plan\n")
		fmt.Fprintf(out, "  remediate -audit <pdf>               report accessibility state\n")
		fmt.Fprintf(out, "  remediate -strip -out <pdf> <pdf>    copy with structure tree removed\n")
		flag.PrintDefaults()
	}
	flag.StringVar(&opts.planPath, "plan", "", "Tagging plan JSON to apply")
	flag.StringVar(&opts.audit, "audit", "", "PDF to audit (read-only)")
	flag.BoolVar(&opts.strip, "strip", false, "Strip the structure tree into a copy")
	flag.StringVar(&opts.output, "out", "", "Output path for -strip")
	flag.BoolVar(&opts.noVerify, "no-verify", false, "Skip render verification of content edits")
	flag.BoolVar(&opts.deferTier2, "defer-tier2", false, "Record heading/contrast actions as warnings instead of applying")
	flag.BoolVar(&opts.validate, "validate", false, "Structurally validate the output file after saving")
	flag.BoolVar(&opts.verbose, "v", false, "Verbose logging")
	flag.Parse()
	opts.args = flag.Args()

	modes := 0
	for _, on := range []bool{opts.planPath != "", opts.audit != "", opts.strip} {
		if on {
			modes++
		}
	}
	if modes != 1 {
		flag.Usage()
		return options{}, fmt.Errorf("pick exactly one of -plan, -audit, -strip")
	}
	if opts.strip {
		if len(opts.args) != 1 || opts.output == "" {
			return options{}, fmt.Errorf("-strip needs an input argument and -out")
		}
	}
	return opts, nil
}

func run(opts options) error {
	log := observability.Logger(observability.NopLogger{})
	if opts.verbose {
		log = observability.NewSlog(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	cfg := remediate.DefaultConfig()
	cfg.Verify = !opts.noVerify
	cfg.DeferTier2 = opts.deferTier2
	cfg.ValidateOutput = opts.validate
	cfg.Logger = log
	engine, err := remediate.New(cfg)
	if err != nil {
		return err
	}

	switch {
	case opts.audit != "":
		audit, err := remediate.AuditFile(opts.audit, log)
		if err != nil {
			return fmt.Errorf("audit: %w", err)
		}
		return emit(audit)
	case opts.strip:
		return engine.StripStructTree(opts.args[0], opts.output)
	default:
		f, err := os.Open(opts.planPath)
		if err != nil {
			return fmt.Errorf("open plan: %w", err)
		}
		plan, err := remediate.ParsePlan(f)
		f.Close()
		if err != nil {
			return err
		}
		result := engine.Apply(context.Background(), plan.Request())
		if err := emit(result); err != nil {
			return err
		}
		if !result.Success {
			return fmt.Errorf("session failed with %d error(s)", len(result.Errors))
		}
		return nil
	}
}

func emit(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	fmt.Printf("%s\n", data)
	return nil
}
