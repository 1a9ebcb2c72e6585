package main

import "time"

// Flag structs decouple cobra from the handlers for testing.

// GlobalFlags holds the persistent flags shared by every command.
type GlobalFlags struct {
	ConfigPath string
	LogLevel   string
	Verbose    bool // shorthand for --log-level=debug
	Quiet      bool // shorthand for --log-level=error
	NoColor    bool
}

// StartFlags holds flags for the start command.
type StartFlags struct {
	StateDir   string
	Command    string
	Force      bool
	EnvKVs     []string
	UseOSEnv   bool
	VerifyPID  bool
	HistoryDSN string
}

// StopFlags holds flags for the stop command.
type StopFlags struct {
	StateDir   string
	Wait       time.Duration
	HistoryDSN string
}

// RestartFlags holds flags for the restart command.
type RestartFlags struct {
	StartFlags
	Settle time.Duration
	Wait   time.Duration
}

// StatusFlags holds flags for the status command.
type StatusFlags struct {
	StateDir string
	JSON     bool
}
