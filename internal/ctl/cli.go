// Package ctl implements predictctl, the companion CLI of predictd.
package ctl

import (
	"context"
	"fmt"
	"os"
)

// Config holds settings shared by all commands.
type Config struct {
	LogLvl string
	// Server is the predictd base URL used when --url is not given.
	Server string
	// PredictdBin is the daemon binary used by smoke.
	PredictdBin string
}

// ConfigFromEnv returns the defaults taken from the environment.
func ConfigFromEnv() *Config {
	return &Config{
		LogLvl:      envStr("PREDICTCTL_LOG_LEVEL", "info"),
		Server:      envStr("PREDICTD_URL", "http://127.0.0.1:8551"),
		PredictdBin: envStr("PREDICTD_BIN", ""),
	}
}

// MainWithArgs is a testable variant of Main that accepts args explicitly.
// It returns an exit code (0 for success, non-zero on error).
func MainWithArgs(args []string) int {
	root := buildRootCmdWith(ConfigFromEnv())
	if len(args) == 0 {
		_ = root.Help()
		return 2
	}
	root.SetArgs(args)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}
	return 0
}

// Main returns an exit code for use by cmd/predictctl.
func Main() int { return MainWithArgs(os.Args[1:]) }
