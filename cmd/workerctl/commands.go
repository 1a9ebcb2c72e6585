package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/loykin/workerctl/internal/config"
	"github.com/loykin/workerctl/internal/env"
	"github.com/loykin/workerctl/internal/history/factory"
	"github.com/loykin/workerctl/internal/logger"
	"github.com/loykin/workerctl/internal/supervisor"
)

// command binds the global flags to the lifecycle handlers.
type command struct {
	global *GlobalFlags
}

// loadConfig reads the optional TOML config. No config path means empty
// defaults, not an error.
func (c command) loadConfig() (config.FileConfig, error) {
	if c.global.ConfigPath == "" {
		return config.FileConfig{}, nil
	}
	return config.Load(c.global.ConfigPath)
}

// buildLogger composes the verbosity routing: config file first, then the
// persistent flags override it.
func (c command) buildLogger(fc config.FileConfig) *slog.Logger {
	lc := logger.Config{Color: true}
	if fc.Log != nil {
		lc = *fc.Log
	}
	if c.global.LogLevel != "" {
		lc.Level = c.global.LogLevel
	}
	if c.global.Verbose {
		lc.Level = "debug"
	}
	if c.global.Quiet {
		lc.Level = "error"
	}
	if c.global.NoColor {
		lc.Color = false
	}
	return logger.New(lc)
}

// buildSupervisor merges config-file defaults and explicit flags into
// supervisor options. Flags win where both are set.
func (c command) buildSupervisor(runner string, fc config.FileConfig, f StartFlags, log *slog.Logger) *supervisor.Supervisor {
	opts := supervisor.Options{
		RunnerPath: runner,
		StatePath:  firstOf(f.StateDir, fc.StateDir),
		Command:    firstOf(f.Command, fc.Command),
		Force:      f.Force || fc.Force,
		Settle:     fc.Settle,
		StopWait:   fc.StopWait,
		VerifyPID:  f.VerifyPID || fc.VerifyStartTime,
	}

	if len(fc.Env) > 0 || len(f.EnvKVs) > 0 {
		e := env.New()
		if fc.UseOSEnv || f.UseOSEnv {
			e.FromOS()
		}
		e.SetPairs(fc.Env)
		opts.Env = e.Merge(f.EnvKVs)
	}

	return supervisor.New(opts, log)
}

// attachHistory wires the lifecycle event sink when configured. A sink that
// cannot be built is reported and skipped; supervision never depends on it.
func (c command) attachHistory(sup *supervisor.Supervisor, fc config.FileConfig, dsn string, log *slog.Logger) func() {
	if dsn == "" && fc.History != nil {
		dsn = fc.History.DSN
	}
	if dsn == "" {
		return func() {}
	}
	sink, err := factory.NewSinkFromDSN(dsn)
	if err != nil {
		log.Warn("history sink unavailable", "dsn", dsn, "error", err)
		return func() {}
	}
	sup.SetHistory(sink)
	return func() { _ = sink.Close() }
}

func opCtx() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Start launches the worker in the background.
func (c command) Start(runner string, f StartFlags) error {
	fc, err := c.loadConfig()
	if err != nil {
		return err
	}
	log := c.buildLogger(fc)
	sup := c.buildSupervisor(runner, fc, f, log)
	closeSink := c.attachHistory(sup, fc, f.HistoryDSN, log)
	defer closeSink()

	ctx, cancel := opCtx()
	defer cancel()
	out, err := sup.Start(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("worker %s\n", out)
	return nil
}

// Stop terminates the worker if it is running.
func (c command) Stop(runner string, f StopFlags) error {
	fc, err := c.loadConfig()
	if err != nil {
		return err
	}
	if f.Wait > 0 {
		fc.StopWait = f.Wait
	}
	log := c.buildLogger(fc)
	sup := c.buildSupervisor(runner, fc, StartFlags{StateDir: f.StateDir}, log)
	closeSink := c.attachHistory(sup, fc, f.HistoryDSN, log)
	defer closeSink()

	ctx, cancel := opCtx()
	defer cancel()
	out, err := sup.Stop(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("worker %s\n", out)
	return nil
}

// Restart is stop, settle, start.
func (c command) Restart(runner string, f RestartFlags) error {
	fc, err := c.loadConfig()
	if err != nil {
		return err
	}
	if f.Settle > 0 {
		fc.Settle = f.Settle
	}
	if f.Wait > 0 {
		fc.StopWait = f.Wait
	}
	log := c.buildLogger(fc)
	sup := c.buildSupervisor(runner, fc, f.StartFlags, log)
	closeSink := c.attachHistory(sup, fc, f.HistoryDSN, log)
	defer closeSink()

	ctx, cancel := opCtx()
	defer cancel()
	if _, err := sup.Restart(ctx); err != nil {
		return err
	}
	fmt.Println("worker restarted")
	return nil
}

// Status is a pure query: it reports liveness and mutates nothing.
func (c command) Status(runner string, f StatusFlags) error {
	fc, err := c.loadConfig()
	if err != nil {
		return err
	}
	log := c.buildLogger(fc)
	sup := c.buildSupervisor(runner, fc, StartFlags{StateDir: f.StateDir}, log)

	st, err := sup.Status()
	if err != nil {
		return err
	}
	if f.JSON {
		b, err := json.MarshalIndent(st, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(b))
		return nil
	}
	if st.Running {
		fmt.Printf("worker running (pid %d)\n", st.PID)
	} else {
		fmt.Println("worker stopped")
	}
	return nil
}

func firstOf(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
