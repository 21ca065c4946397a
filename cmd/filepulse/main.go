// Package main is the entry point for the FilePulse CLI application
package main

import (
	"fmt"
	"os"

	"github.com/filepulse/filepulse/internal/cli"
	"github.com/filepulse/filepulse/pkg/errors"
	pplogger "github.com/filepulse/filepulse/pkg/logger"
	"go.uber.org/zap"
)

// Version information (set during build)
var (
	Version   = "dev"
	BuildDate = "unknown"
)

func main() {
	// Set version info for CLI
	cli.SetVersionInfo(Version, BuildDate)

	// Execute the root command
	if err := cli.Execute(); err != nil {
		errType, _ := errors.TypeOf(err)
		pplogger.Error("FilePulse execution failed",
			zap.String("type", string(errType)),
			zap.Error(err),
		)
		_ = pplogger.Sync()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	_ = pplogger.Sync()
}
