// Command flowengine runs a workflow definition against a trigger payload
// and prints the execution result as JSON.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pulsely/flowengine/internal/engine"
	"github.com/pulsely/flowengine/internal/expressions"
	"github.com/pulsely/flowengine/internal/logging"
	"github.com/pulsely/flowengine/internal/nodes"
	"github.com/pulsely/flowengine/internal/providers"
	"github.com/pulsely/flowengine/internal/store"
	"github.com/pulsely/flowengine/internal/telemetry"
	"github.com/pulsely/flowengine/internal/validation"
	"github.com/pulsely/flowengine/pkg/schema"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		workflowPath = flag.String("workflow", "", "path to the workflow definition JSON (required)")
		triggerPath  = flag.String("trigger", "", "path to the trigger payload JSON (optional)")
		dbPath       = flag.String("db", "", "libsql database path for run history (overrides config)")
		userID       = flag.String("user", "", "user ID to attribute the run to")
		strict       = flag.Bool("strict", false, "treat dangling input references as errors")
		validateOnly = flag.Bool("validate", false, "validate the definition and exit")
	)
	flag.Parse()

	cfg := loadConfig()
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if *workflowPath == "" {
		fmt.Fprintln(os.Stderr, "usage: flowengine -workflow <file> [-trigger <file>] [-db <path>]")
		flag.PrintDefaults()
		return 2
	}

	def, err := loadWorkflow(*workflowPath)
	if err != nil {
		logger.Error("failed to load workflow", "error", err.Error())
		return 1
	}

	validator, err := validation.NewWorkflowValidator()
	if err != nil {
		logger.Error("failed to build validator", "error", err.Error())
		return 1
	}

	vr := validator.Validate(def)
	for _, w := range vr.Warnings {
		logger.Warn("validation warning", "path", w.Path, "message", w.Message)
	}
	if !vr.Valid() {
		for _, e := range vr.Errors {
			logger.Error("validation error", "path", e.Path, "message", e.Message)
		}
		return 1
	}
	if *validateOnly {
		fmt.Println("workflow definition is valid")
		return 0
	}

	trigger := map[string]any{}
	if *triggerPath != "" {
		data, err := os.ReadFile(*triggerPath)
		if err != nil {
			logger.Error("failed to read trigger payload", "error", err.Error())
			return 1
		}
		if err := json.Unmarshal(data, &trigger); err != nil {
			logger.Error("invalid trigger payload", "error", err.Error())
			return 1
		}
	}

	eng, cleanup, err := buildEngine(cfg, *dbPath, logger)
	if err != nil {
		logger.Error("failed to build engine", "error", err.Error())
		return 1
	}
	defer cleanup()

	runOpts := []engine.RunOption{}
	if *userID != "" {
		runOpts = append(runOpts, engine.WithUserID(*userID))
	}
	if *strict {
		runOpts = append(runOpts, engine.WithStrictInputs())
	}

	result := eng.Execute(context.Background(), def, trigger, runOpts...)

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Error("failed to encode result", "error", err.Error())
		return 1
	}
	fmt.Println(string(out))

	if !result.Success {
		return 1
	}
	return 0
}

func newLogger(cfg Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	var inner slog.Handler
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		inner = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		inner = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(logging.NewCorrelationHandler(inner))
}

func loadWorkflow(path string) (*schema.WorkflowDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	def := &schema.WorkflowDefinition{}
	if err := json.Unmarshal(data, def); err != nil {
		return nil, fmt.Errorf("parse workflow definition: %w", err)
	}
	return def, nil
}

// buildEngine wires the node registry, expression engines and optional run
// history store into an Engine.
func buildEngine(cfg Config, dbOverride string, logger *slog.Logger) (*engine.Engine, func(), error) {
	reg := nodes.NewRegistry()
	models := providers.NewModelRegistry()

	// CEL is optional; condition nodes reject "cel" when unavailable.
	cel, err := expressions.NewCELEngine()
	if err != nil {
		logger.Warn("cel engine unavailable", "error", err.Error())
		cel = nil
	}

	httpCfg := nodes.HTTPConfig{
		MaxResponseBody: cfg.MaxRespBytes,
		DefaultTimeout:  time.Duration(cfg.HTTPTimeout) * time.Second,
	}
	if err := nodes.RegisterBuiltins(reg, models, nil,
		expressions.NewExprEngine(), cel, expressions.NewGoJQEngine(), httpCfg); err != nil {
		return nil, nil, err
	}

	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithMetrics(telemetry.NewMetrics(prometheus.DefaultRegisterer)),
	}
	cleanup := func() {}

	path := cfg.DBPath
	if dbOverride != "" {
		path = dbOverride
	}
	if path != "" {
		st, err := store.NewLibSQLStore("file:" + path)
		if err != nil {
			return nil, nil, err
		}
		if err := st.Migrate(context.Background()); err != nil {
			st.Close()
			return nil, nil, err
		}
		opts = append(opts, engine.WithRecorder(st))
		cleanup = func() { st.Close() }
	}

	return engine.New(reg, opts...), cleanup, nil
}
