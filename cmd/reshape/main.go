package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/shpitdev/reshape/internal/app"
	"github.com/shpitdev/reshape/internal/metrics"
	ddmetrics "github.com/shpitdev/reshape/internal/metrics/datadog"
	"github.com/shpitdev/reshape/internal/server"
	"github.com/shpitdev/reshape/internal/util"
	"github.com/shpitdev/reshape/internal/version"
	"github.com/shpitdev/reshape/pkg/sanitize"
	"github.com/shpitdev/reshape/pkg/session"
	"github.com/shpitdev/reshape/pkg/synth"
	"github.com/shpitdev/reshape/pkg/synth/gemini"
)

const defaultModel = "gemini-2.5-flash"

func main() {
	ctx := context.Background()

	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	switch os.Args[1] {
	case "help", "-h", "--help":
		usage(os.Stdout)
		return
	case "version":
		fmt.Println(version.Current)
		return
	case "local":
		os.Exit(runLocal(ctx, os.Args[2:]))
	case "serve":
		os.Exit(runServe(ctx, os.Args[2:]))
	default:
		_, _ = fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage(os.Stderr)
		os.Exit(2)
	}
}

func runLocal(ctx context.Context, args []string) int {
	genEnv, err := loadGenConfigFromEnv()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", util.RedactSecrets(err.Error()))
		return 2
	}

	fs := flag.NewFlagSet("local", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var inputPath string
	var instruction string
	var outputPath string
	var resultPath string
	var policyPath string
	var apply bool
	var cleanPass bool
	var noModel bool
	var model string
	var baseURL string
	var genRPS float64

	fs.StringVar(&inputPath, "input", "", "Input file path (csv, json, html, pdf, docx, txt)")
	fs.StringVar(&instruction, "instruction", "", "What to do with the table, in plain language")
	fs.StringVar(&outputPath, "output", "out.csv", "Output CSV path, written with -apply")
	fs.StringVar(&resultPath, "result", "", "Optional JSON path for the program result, written with -apply")
	fs.BoolVar(&apply, "apply", false, "Execute the plan instead of stopping after printing it")
	fs.BoolVar(&cleanPass, "clean", false, "Run the field-repair pass on the table before planning")
	fs.BoolVar(&noModel, "no-model", false, "Skip generation and plan from the rules only")
	fs.StringVar(&policyPath, "policy", "", "YAML file with extra denylist tokens")
	fs.StringVar(&model, "model", genEnv.Model, "Gemini model name (env: RESHAPE_MODEL)")
	fs.StringVar(&baseURL, "gemini-base-url", genEnv.BaseURL, "Gemini API base URL override (env: GEMINI_BASE_URL)")
	fs.Float64Var(&genRPS, "gen-rps", genEnv.RPS, "Generation rate limit (RPS), 0 disables (env: RESHAPE_GEN_RPS)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if inputPath == "" || instruction == "" {
		_, _ = fmt.Fprintln(os.Stderr, "local requires -input and -instruction")
		return 2
	}

	// Logs go to stderr so stdout carries only the plan.
	logger := log.New(os.Stderr, "", log.LstdFlags)

	validator, err := newValidator(policyPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "policy error: %s\n", util.RedactSecrets(err.Error()))
		return 2
	}

	genEnv.Model = model
	genEnv.BaseURL = baseURL
	genEnv.RPS = genRPS
	generator, err := newGenerator(ctx, genEnv, noModel, logger)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "gemini config error: %s\n", util.RedactSecrets(err.Error()))
		return 2
	}

	if err := app.RunLocal(ctx, app.Options{
		InputPath:   inputPath,
		Instruction: instruction,
		OutputPath:  outputPath,
		ResultPath:  resultPath,
		Apply:       apply,
		Clean:       cleanPass,
		Controller:  synth.NewController(generator, validator, logger),
		Validator:   validator,
		Logger:      logger,
	}); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "local run failed: %s\n", util.RedactSecrets(err.Error()))
		return 1
	}
	return 0
}

func runServe(ctx context.Context, args []string) int {
	genEnv, err := loadGenConfigFromEnv()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", util.RedactSecrets(err.Error()))
		return 2
	}

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	addr := fs.String("addr", ":8080", "Listen address")
	dbPath := fs.String("db", "", "SQLite path for sessions; empty keeps them in memory")
	policyPath := fs.String("policy", "", "YAML file with extra denylist tokens")
	noModel := fs.Bool("no-model", false, "Skip generation and plan from the rules only")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	logger := log.New(os.Stdout, "", log.LstdFlags)

	validator, err := newValidator(*policyPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "policy error: %s\n", util.RedactSecrets(err.Error()))
		return 2
	}
	generator, err := newGenerator(ctx, genEnv, *noModel, logger)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "gemini config error: %s\n", util.RedactSecrets(err.Error()))
		return 2
	}

	var store session.Store
	if strings.TrimSpace(*dbPath) != "" {
		db, err := session.OpenSQLite(ctx, *dbPath)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "sqlite error: %s\n", util.RedactSecrets(err.Error()))
			return 2
		}
		defer func() {
			_ = db.Close()
		}()
		store = db
		logger.Printf("reshape: sessions persisted to %s", *dbPath)
	} else {
		store = session.NewMemory()
		logger.Printf("reshape: sessions kept in memory")
	}

	backend := metrics.Backend(metrics.Noop{})
	if strings.TrimSpace(os.Getenv("DD_API_KEY")) != "" {
		dd, err := ddmetrics.NewBackend(ctx, ddmetrics.Options{
			Tags: ddmetrics.ParseTagsCSV(os.Getenv("DD_TAGS")),
		})
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "datadog error: %s\n", util.RedactSecrets(err.Error()))
			return 2
		}
		defer func() {
			_ = dd.Close()
		}()
		backend = dd
		logger.Printf("reshape: datadog metrics enabled")
	}

	srv := server.New(server.Options{
		Store:      store,
		Controller: synth.NewController(generator, validator, logger),
		Validator:  validator,
		Metrics:    backend,
		Logger:     logger,
	})

	logger.Printf("reshape %s listening on %s", version.Current, *addr)
	if err := http.ListenAndServe(*addr, srv.Handler()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "server error: %s\n", util.RedactSecrets(err.Error()))
		return 1
	}
	return 0
}

// newGenerator wires the generative synthesizer, or returns nil when
// generation is off. A missing API key means fallback-only planning,
// not a startup failure.
func newGenerator(ctx context.Context, cfg genConfig, noModel bool, logger *log.Logger) (synth.Generator, error) {
	if noModel {
		return nil, nil
	}
	if cfg.APIKey == "" {
		logger.Printf("reshape: GEMINI_API_KEY not set; planning from rules only")
		return nil, nil
	}
	gen, err := gemini.New(ctx, gemini.Config{
		APIKey:       cfg.APIKey,
		Model:        cfg.Model,
		BaseURL:      cfg.BaseURL,
		RateLimitRPS: cfg.RPS,
	})
	if err != nil {
		return nil, err
	}
	logger.Printf("reshape: generation enabled model=%s", gen.Model())
	return gen, nil
}

func newValidator(policyPath string) (*sanitize.Validator, error) {
	if strings.TrimSpace(policyPath) == "" {
		return sanitize.New(), nil
	}
	p, err := sanitize.LoadPolicy(policyPath)
	if err != nil {
		return nil, err
	}
	return sanitize.New(p.Deny...), nil
}

func usage(w *os.File) {
	_, _ = fmt.Fprintf(w, `reshape: turn plain-language instructions into reviewed table transformations

Usage:
  reshape <command> [flags]

Commands:
  local    Plan (and with -apply, run) a transformation on a local file
  serve    Run the session HTTP API
  version  Print the version

Examples:
  reshape local -input people.csv -instruction "remove rows where Age is null"
  reshape local -input people.csv -instruction "dedupe by Email" -apply -output deduped.csv
  reshape serve -addr :8080 -db sessions.db

Environment:
  GEMINI_API_KEY   Gemini API key; unset disables generation (rules only)
  GEMINI_BASE_URL  Optional Gemini base URL override (proxies/testing)
  RESHAPE_MODEL    Gemini model name (default %s)
  RESHAPE_GEN_RPS  Generation rate limit in requests/second, 0 disables
  DD_API_KEY       Datadog API key; set to enable metrics (serve only)
  DD_TAGS          Extra Datadog tags, comma-separated k:v pairs

`, defaultModel)
}

type genConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	RPS     float64
}

func loadGenConfigFromEnv() (genConfig, error) {
	rps, err := envFloat("RESHAPE_GEN_RPS", 0)
	if err != nil {
		return genConfig{}, err
	}
	model := strings.TrimSpace(os.Getenv("RESHAPE_MODEL"))
	if model == "" {
		model = defaultModel
	}
	return genConfig{
		APIKey:  strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		Model:   model,
		BaseURL: strings.TrimSpace(os.Getenv("GEMINI_BASE_URL")),
		RPS:     rps,
	}, nil
}

func envFloat(varName string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}
