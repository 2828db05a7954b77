// ABOUTME: CLI for running policy-gated entry invocations from the terminal.
// ABOUTME: Loads config and entry definitions, dispatches, renders and stores the trace.

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/2389/coven-dispatch/internal/builtins"
	"github.com/2389/coven-dispatch/internal/config"
	"github.com/2389/coven-dispatch/internal/definition"
	"github.com/2389/coven-dispatch/internal/dispatch"
	"github.com/2389/coven-dispatch/internal/entry"
	"github.com/2389/coven-dispatch/internal/model"
	"github.com/2389/coven-dispatch/internal/registry"
	"github.com/2389/coven-dispatch/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	configPath := os.Getenv("COVEN_DISPATCH_CONFIG")
	if configPath == "" {
		configPath = "coven-dispatch.yaml"
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "run":
		err = cmdRun(configPath, args)
	case "entries":
		err = cmdEntries(configPath)
	case "history":
		err = cmdHistory(configPath)
	case "trace":
		err = cmdTrace(configPath, args)
	case "validate":
		err = cmdValidate(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Println("coven-dispatch - policy-gated recursive entry dispatcher")
	fmt.Println()
	fmt.Println("Usage: coven-dispatch <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  run <entry> [json]      Dispatch a top-level invocation")
	fmt.Println("  entries                 List registered entries")
	fmt.Println("  history                 List stored invocations")
	fmt.Println("  trace <invocation-id>   Show the stored trace of an invocation")
	fmt.Println("  validate <file>         Parse an entry definition file")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  COVEN_DISPATCH_CONFIG   Config file path (default: coven-dispatch.yaml)")
	fmt.Println("  COVEN_DISPATCH_APPROVE  Set to 'all' to approve every call without asking")
}

// setup loads the config and builds the registry with builtins plus the
// configured definition directory.
func setup(configPath string) (*config.Config, *registry.Registry, model.Client, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	logger := newLogger(cfg.Logging)

	var client model.Client
	if cfg.Entries.Script != "" {
		if client, err = model.LoadScript(cfg.Entries.Script); err != nil {
			return nil, nil, nil, nil, err
		}
	}

	reg := registry.New(logger)
	for _, c := range builtins.Base() {
		if err := reg.Register(c); err != nil {
			return nil, nil, nil, nil, err
		}
	}
	if cfg.Entries.Dir != "" {
		agents, err := definition.LoadDir(cfg.Entries.Dir, client, logger)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		for _, a := range agents {
			if err := reg.Register(a); err != nil {
				return nil, nil, nil, nil, err
			}
		}
	}
	return cfg, reg, client, logger, nil
}

func newLogger(lc config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(lc.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(lc.Format) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func cmdRun(configPath string, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: run <entry> [json-input]")
	}
	name := args[0]
	input := json.RawMessage(`{}`)
	if len(args) > 1 {
		if !json.Valid([]byte(args[1])) {
			return fmt.Errorf("input is not valid JSON")
		}
		input = json.RawMessage(args[1])
	}

	cfg, reg, _, logger, err := setup(configPath)
	if err != nil {
		return err
	}

	runner := dispatch.NewRunner(dispatch.Options{
		Registry:     reg,
		DefaultModel: model.Ref(cfg.Dispatcher.DefaultModel),
		MaxDepth:     cfg.Dispatcher.MaxDepth,
		Rules:        cfg.Rules(),
		Overrides:    cfg.Overrides(),
		Approver:     terminalApprover(),
		Logger:       logger,
	})

	inv, runErr := runner.Run(context.Background(), name, input)
	if inv != nil {
		renderInvocation(inv)
		if cfg.Database.Path != "" {
			s, err := store.NewSQLiteStore(cfg.Database.Path, logger)
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.SaveInvocation(context.Background(), inv); err != nil {
				return err
			}
		}
	}
	return runErr
}

// terminalApprover asks y/n on stdin, or approves everything when
// COVEN_DISPATCH_APPROVE=all.
func terminalApprover() dispatch.Approver {
	approveAll := os.Getenv("COVEN_DISPATCH_APPROVE") == "all"
	reader := bufio.NewReader(os.Stdin)
	return func(_ context.Context, desc entry.Descriptor, input json.RawMessage) (bool, error) {
		if approveAll {
			return true, nil
		}
		yellow := color.New(color.FgYellow)
		yellow.Printf("Approve %s %q with input %s? [y/N] ", desc.Kind, desc.Name, input)
		line, err := reader.ReadString('\n')
		if err != nil {
			return false, err
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes", nil
	}
}

func renderInvocation(inv *dispatch.Invocation) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	cyan := color.New(color.FgCyan)

	cyan.Printf("invocation %s\n", inv.ID)
	if inv.Err != "" {
		red.Printf("error: %s\n", inv.Err)
	} else {
		green.Printf("result: %s\n", inv.Output)
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DEPTH\tENTRY\tKIND\tOUTPUT\tERROR")
	for _, rec := range inv.Trace {
		indent := strings.Repeat("  ", rec.Depth)
		fmt.Fprintf(w, "%d\t%s%s\t%s\t%s\t%s\n",
			rec.Depth, indent, rec.Name, rec.Kind, truncate(string(rec.Output), 40), truncate(rec.Err, 40))
	}
	w.Flush()

	if len(inv.Usage) > 0 {
		fmt.Println()
		uw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(uw, "MODEL\tCALLS\tINPUT\tOUTPUT\tTHINKING")
		for ref, c := range inv.Usage {
			fmt.Fprintf(uw, "%s\t%d\t%d\t%d\t%d\n", ref, c.Calls, c.Input, c.Output, c.Thinking)
		}
		uw.Flush()
	}
}

func cmdEntries(configPath string) error {
	_, reg, _, _, err := setup(configPath)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKIND\tCAPABILITIES\tDESCRIPTION")
	for _, name := range reg.Names() {
		e, err := reg.Get(name)
		if err != nil {
			return err
		}
		desc := e.Describe()
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			desc.Name, desc.Kind, strings.Join(desc.Capabilities, ","), desc.Description)
	}
	return w.Flush()
}

func cmdHistory(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Database.Path == "" {
		return fmt.Errorf("database.path not configured")
	}
	s, err := store.NewSQLiteStore(cfg.Database.Path, newLogger(cfg.Logging))
	if err != nil {
		return err
	}
	defer s.Close()

	invs, err := s.ListInvocations(context.Background(), 50)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tENTRY\tSTARTED\tERROR")
	for _, inv := range invs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			inv.ID, inv.Entry, inv.StartedAt.Format("2006-01-02 15:04:05"), truncate(inv.Err, 60))
	}
	return w.Flush()
}

func cmdTrace(configPath string, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: trace <invocation-id>")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Database.Path == "" {
		return fmt.Errorf("database.path not configured")
	}
	s, err := store.NewSQLiteStore(cfg.Database.Path, newLogger(cfg.Logging))
	if err != nil {
		return err
	}
	defer s.Close()

	records, err := s.GetTrace(context.Background(), args[0])
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DEPTH\tENTRY\tKIND\tOUTPUT\tERROR")
	for _, rec := range records {
		indent := strings.Repeat("  ", rec.Depth)
		fmt.Fprintf(w, "%d\t%s%s\t%s\t%s\t%s\n",
			rec.Depth, indent, rec.Name, rec.Kind, truncate(string(rec.Output), 40), truncate(rec.Err, 40))
	}
	return w.Flush()
}

func cmdValidate(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: validate <file>")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	def, err := definition.Parse(data)
	if err != nil {
		return err
	}
	color.Green("OK: %s", def.Name)
	if def.Description != "" {
		fmt.Printf("description: %s\n", def.Description)
	}
	if def.Model != "" {
		fmt.Printf("model: %s\n", def.Model)
	}
	if len(def.Entries) > 0 {
		fmt.Printf("entries: %s\n", strings.Join(def.Entries, ", "))
	}
	return nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
