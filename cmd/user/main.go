package main

import (
	"os"

	"github.com/Anthya1104/dss/internal/cli"
	"github.com/Anthya1104/dss/internal/config"
	"github.com/Anthya1104/dss/internal/logger"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := logger.InitLogger(config.LogLevelInfo); err != nil {
		logrus.Fatalf("Error initializing logger: %v", err)
	}

	if err := cli.ExecuteUser(); err != nil {
		logrus.Fatalf("Error executing command: %v", err)
		os.Exit(1)
	}
}
