package main

import (
	"os"

	"go.uber.org/zap"

	"github.com/southsales/tolmap/cli"
	"github.com/southsales/tolmap/config"
	"github.com/southsales/tolmap/logging"
)

func main() {
	if err := cli.App.Run(os.Args); err != nil {
		level, format := config.DefaultLogLevel, config.DefaultLogFormat
		if v := os.Getenv(config.EnvLogFormat); v != "" {
			format = v
		}
		logging.Must(level, format).Fatal("tolmap failed", zap.Error(err))
	}
}
