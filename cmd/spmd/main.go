package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/kestrelfw/spm/internal/api"
	"github.com/kestrelfw/spm/internal/auth"
	"github.com/kestrelfw/spm/internal/client"
	"github.com/kestrelfw/spm/internal/config"
	"github.com/kestrelfw/spm/internal/events"
	"github.com/kestrelfw/spm/internal/fault"
	"github.com/kestrelfw/spm/internal/journal"
	"github.com/kestrelfw/spm/internal/lock"
	"github.com/kestrelfw/spm/internal/log"
	"github.com/kestrelfw/spm/internal/mailbox"
	"github.com/kestrelfw/spm/internal/mem"
	"github.com/kestrelfw/spm/internal/registry"
	"github.com/kestrelfw/spm/internal/rpc"
	"github.com/kestrelfw/spm/internal/storage"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "system":
		os.Exit(runSystemNoun(args))
	case "config":
		os.Exit(runConfigNoun(args))

	case "start":
		os.Exit(runStart(args))
	case "version":
		fmt.Printf("spmd version %s\n", version)
		os.Exit(0)
	case "help", "--help", "-h":
		printUsage()
		os.Exit(0)

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`spmd - Secure partition manager daemon

Usage:
  spmd <noun> <action> [flags]

System Commands:
  system start      Start the partition manager in foreground
  system status     Show daemon health (use spmtop or GET /healthz)

Config Commands:
  config lock       Authorize current state (update integrity hashes)
  config check      Validate configuration and service manifest

General:
  version           Show version information
  help              Show this help message

Use 'spmd <noun> help' for resource-specific flags.
`)
}

func runSystemNoun(args []string) int {
	if len(args) < 1 {
		printSystemNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printSystemNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "start":
		if hasHelpFlag(actionArgs) {
			printSystemStartHelp()
			return 0
		}
		return runStart(actionArgs)
	case "status":
		fmt.Println("system status is served over the API: GET /healthz, or run spmtop")
		return 0
	case "help":
		printSystemNounHelp(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown system action: %s\n", action)
		return 1
	}
}

func runConfigNoun(args []string) int {
	if len(args) < 1 {
		printConfigNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printConfigNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "lock":
		if hasHelpFlag(actionArgs) {
			printConfigLockHelp()
			return 0
		}
		return runConfigLock(actionArgs)
	case "check":
		if hasHelpFlag(actionArgs) {
			printConfigCheckHelp()
			return 0
		}
		return runConfigCheck(actionArgs)
	case "help":
		printConfigNounHelp(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", action)
		return 1
	}
}

func isHelpToken(token string) bool {
	return token == "help" || token == "--help" || token == "-h"
}

func hasHelpFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			return true
		}
	}
	return false
}

func printSystemNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: spmd system <action>")
	fmt.Fprintln(w, "Actions: start, status")
}

func printConfigNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: spmd config <action> [flags]")
	fmt.Fprintln(w, "Actions: lock, check")
}

func printSystemStartHelp() {
	fmt.Println("Usage: spmd system start [--config PATH]")
	fmt.Println("Start the partition manager in the foreground.")
}

func printConfigLockHelp() {
	fmt.Println("Usage: spmd config lock [--config PATH]")
	fmt.Println("Authorize current configuration state by regenerating integrity hashes.")
}

func printConfigCheckHelp() {
	fmt.Println("Usage: spmd config check [--config PATH]")
	fmt.Println("Validate configuration, integrity hashes, and the service manifest.")
}

func resolveConfigPath(configPath string) (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.DiscoverConfigPath()
}

// --- ACTION IMPLEMENTATIONS ---

func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	path, err := resolveConfigPath(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to discover config: %v\n", err)
		return 1
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel)
	logger := log.WithComponent("main")
	logger.Info("spmd starting", "version", version, "config", path)

	pidLockPath := filepath.Join(filepath.Dir(cfg.Journal.Path), "spmd.lock")
	pidLock, err := lock.AcquirePIDLock(pidLockPath)
	if err != nil {
		logger.Error("failed to acquire PID lock (another instance may be running)", "path", pidLockPath, "error", err)
		return 1
	}
	defer pidLock.Release()
	logger.Info("acquired PID lock", "path", pidLockPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := storage.OpenSQLite(ctx, cfg.Journal.Path)
	if err != nil {
		logger.Error("failed to open journal database", "path", cfg.Journal.Path, "error", err)
		return 1
	}
	defer db.Close()
	jr := journal.New(db)
	logger.Info("journal opened", "path", cfg.Journal.Path)

	regions := make([]mem.RegionSpec, 0, len(cfg.Regions))
	for _, r := range cfg.Regions {
		regions = append(regions, mem.RegionSpec{
			Name:      r.Name,
			Base:      r.Base,
			Size:      r.Size,
			NonSecure: r.NonSecure,
		})
	}
	arena, err := mem.NewArena(regions)
	if err != nil {
		logger.Error("invalid memory region layout", "error", err)
		return 1
	}

	manifest, err := registry.LoadManifest(cfg.Manifest)
	if err != nil {
		logger.Error("failed to load service manifest", "path", cfg.Manifest, "error", err)
		return 1
	}

	hub := events.NewHub(256)
	reg := registry.New(manifest, hub, registry.WithPoolBudget(cfg.PoolBudget))
	logger.Info("service directory ready", "services", len(manifest.Services))

	dispatcher := client.New(reg, arena, arena)

	mb := mailbox.New(cfg.Mailbox.Depth)
	mbService := mailbox.NewService(mb, dispatcher, journalFaultHook(ctx, jr))
	if err := mbService.Bind(); err != nil {
		logger.Error("failed to bind mailbox transport", "error", err)
		return 1
	}
	defer mbService.Unbind()
	logger.Info("mailbox transport bound", "depth", cfg.Mailbox.Depth)

	go journalEnqueues(ctx, hub, jr)
	go pruneJournal(ctx, jr, cfg.Journal.Retention)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)

	if cfg.API.Enabled {
		tokens := make([]auth.TokenConfig, 0, len(cfg.API.Auth.Tokens))
		for _, t := range cfg.API.Auth.Tokens {
			tokens = append(tokens, auth.TokenConfig{
				Token:  t.Token,
				Scopes: t.Scopes,
			})
		}
		apiConfig := api.Config{
			Listen: cfg.API.Listen,
			APIKey: cfg.API.Auth.APIKey,
			Tokens: tokens,
		}
		apiServer := api.New(apiConfig, reg, jr, log.WithComponent("api"))
		go func() {
			if err := apiServer.Start(ctx); err != nil && err != context.Canceled {
				errCh <- fmt.Errorf("api: %w", err)
			}
		}()
		logger.Info("API server enabled", "listen", cfg.API.Listen)
	}

	logger.Info("spmd running (press Ctrl+C to stop)")

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	case err := <-errCh:
		logger.Error("component failed", "error", err)
		cancel()
		return 1
	}

	logger.Info("spmd stopped")
	return 0
}

// journalFaultHook persists every terminated caller context.
func journalFaultHook(ctx context.Context, jr *journal.Journal) mailbox.FaultHook {
	logger := log.WithComponent("journal")
	return func(op rpc.Op, p *rpc.Params, f *fault.Fault) {
		_, err := jr.Record(ctx, journal.Entry{
			SID:     p.SID,
			Handle:  int32(p.Handle),
			Kind:    op.String(),
			Trust:   "non-secure",
			Outcome: journal.OutcomeFault,
			Detail:  f.String(),
		})
		if err != nil {
			logger.Error("failed to journal fault", "error", err)
		}
	}
}

// journalEnqueues mirrors directory events into the journal: enqueued
// messages and busy bounces.
func journalEnqueues(ctx context.Context, hub *events.Hub, jr *journal.Journal) {
	logger := log.WithComponent("journal")
	ch, cancel := hub.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-ch:
			var outcome journal.Outcome
			switch ev.Type {
			case "message.enqueued":
				outcome = journal.OutcomeEnqueued
			case "message.busy":
				outcome = journal.OutcomeBusy
			default:
				continue
			}
			var data struct {
				MsgID  string `json:"msg_id"`
				SID    uint32 `json:"sid"`
				Kind   string `json:"kind"`
				Trust  string `json:"trust"`
				Handle int32  `json:"handle"`
			}
			if err := json.Unmarshal(ev.Data, &data); err != nil {
				logger.Warn("malformed directory event", "error", err)
				continue
			}
			_, err := jr.Record(ctx, journal.Entry{
				MsgID:   data.MsgID,
				SID:     data.SID,
				Handle:  data.Handle,
				Kind:    data.Kind,
				Trust:   data.Trust,
				Outcome: outcome,
			})
			if err != nil {
				logger.Error("failed to journal directory event", "error", err)
			}
		}
	}
}

// pruneJournal enforces the retention window once an hour.
func pruneJournal(ctx context.Context, jr *journal.Journal, retention time.Duration) {
	if retention <= 0 {
		return
	}
	logger := log.WithComponent("journal")
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := jr.Prune(ctx, retention); err != nil {
				logger.Error("journal prune failed", "error", err)
			}
		}
	}
}

func runConfigLock(args []string) int {
	fs := flag.NewFlagSet("lock", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	path, err := resolveConfigPath(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to discover config: %v\n", err)
		return 1
	}

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, "config.yaml")
	}

	dir := filepath.Dir(path)
	if err := config.GenerateChecksums(dir, []string{filepath.Base(path)}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write checksums: %v\n", err)
		return 1
	}

	fmt.Printf("Integrity hashes written to %s\n", filepath.Join(dir, ".checksums"))
	return 0
}

func runConfigCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	path, err := resolveConfigPath(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to discover config: %v\n", err)
		return 1
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration check FAILED: %v\n", err)
		return 1
	}

	manifest, err := registry.LoadManifest(cfg.Manifest)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Manifest check FAILED: %v\n", err)
		return 1
	}

	fmt.Printf("Configuration check PASSED (%d services, %d regions)\n",
		len(manifest.Services), len(cfg.Regions))
	return 0
}
