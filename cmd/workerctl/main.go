package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := buildRoot().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	c := command{global: globalFlags}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createStartCommand(c),
		createStopCommand(c),
		createRestartCommand(c),
		createStatusCommand(c),
	)
	return root
}

func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "workerctl",
		Short: "SysV-style supervisor for a single worker process",
		Long: `Workerctl starts, stops and inspects one long-running worker process,
keeping its PID and an append-only lifecycle log in a state directory
next to the worker.

Examples:
  workerctl start /srv/myworker
  workerctl status /srv/myworker
  workerctl restart /srv/myworker --settle=2s
  workerctl stop /srv/myworker --wait=10s`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	root.PersistentFlags().StringVar(&flags.LogLevel, "log-level", "", "diagnostic verbosity: debug|info|warn|error")
	root.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "shorthand for --log-level=debug")
	root.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "shorthand for --log-level=error")
	root.PersistentFlags().BoolVar(&flags.NoColor, "no-color", false, "disable colored diagnostics")

	return root
}

func createStartCommand(c command) *cobra.Command {
	f := &StartFlags{}
	cmd := &cobra.Command{
		Use:   "start <runner-dir>",
		Short: "Start the worker in the background",
		Long: `Start launches the worker detached from the terminal and records its PID.
Starting an already running worker is a successful no-op unless --force
is given, in which case a second worker is spawned and the previous one
is orphaned.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Start(args[0], *f)
		},
	}
	addStartFlags(cmd, f)
	return cmd
}

func addStartFlags(cmd *cobra.Command, f *StartFlags) {
	cmd.Flags().StringVar(&f.StateDir, "state-dir", "", "state directory (default <runner-dir>/.workerctl)")
	cmd.Flags().StringVar(&f.Command, "command", "", "override launch command (default ./run.sh)")
	cmd.Flags().BoolVar(&f.Force, "force", false, "spawn even when a worker is already running")
	cmd.Flags().StringArrayVar(&f.EnvKVs, "env", nil, "extra K=V environment for the worker (repeatable)")
	cmd.Flags().BoolVar(&f.UseOSEnv, "use-os-env", false, "base the worker environment on the OS environment")
	cmd.Flags().BoolVar(&f.VerifyPID, "verify-start-time", false, "persist and verify the process start time against PID reuse")
	cmd.Flags().StringVar(&f.HistoryDSN, "history-dsn", "", "lifecycle event sink DSN (sqlite/postgres/clickhouse)")
}

func createStopCommand(c command) *cobra.Command {
	f := &StopFlags{}
	cmd := &cobra.Command{
		Use:   "stop <runner-dir>",
		Short: "Stop the worker",
		Long: `Stop sends the worker a catchable termination signal and removes the PID
record. Stopping an already stopped worker is a successful no-op. By
default the signal is fire-and-forget; --wait polls for exit and kills
the worker when the deadline passes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Stop(args[0], *f)
		},
	}
	cmd.Flags().StringVar(&f.StateDir, "state-dir", "", "state directory (default <runner-dir>/.workerctl)")
	cmd.Flags().DurationVar(&f.Wait, "wait", 0, "wait for exit and escalate to a forced kill after this duration")
	cmd.Flags().StringVar(&f.HistoryDSN, "history-dsn", "", "lifecycle event sink DSN (sqlite/postgres/clickhouse)")
	return cmd
}

func createRestartCommand(c command) *cobra.Command {
	f := &RestartFlags{}
	cmd := &cobra.Command{
		Use:   "restart <runner-dir>",
		Short: "Restart the worker",
		Long: `Restart stops the worker, waits a settle period for the OS to release
its resources, then starts it again. Not atomic: an interruption
between the phases leaves the worker stopped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Restart(args[0], *f)
		},
	}
	addStartFlags(cmd, &f.StartFlags)
	cmd.Flags().DurationVar(&f.Settle, "settle", 0, "grace period between stop and start (default 1s)")
	cmd.Flags().DurationVar(&f.Wait, "wait", 0, "wait for exit and escalate to a forced kill after this duration")
	return cmd
}

func createStatusCommand(c command) *cobra.Command {
	f := &StatusFlags{}
	cmd := &cobra.Command{
		Use:   "status <runner-dir>",
		Short: "Report whether the worker is running",
		Long: `Status reads the PID record and probes the process table. It is a pure
query: no state is created, mutated or logged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Status(args[0], *f)
		},
	}
	cmd.Flags().StringVar(&f.StateDir, "state-dir", "", "state directory (default <runner-dir>/.workerctl)")
	cmd.Flags().BoolVar(&f.JSON, "json", false, "print status as JSON")
	return cmd
}
