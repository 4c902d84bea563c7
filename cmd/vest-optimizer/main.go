package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/iwvelando/vest-optimizer/internal/config"
	"github.com/iwvelando/vest-optimizer/internal/logging"
	"github.com/iwvelando/vest-optimizer/internal/scenario"
	"github.com/iwvelando/vest-optimizer/internal/sweep"
	"github.com/iwvelando/vest-optimizer/pkg/constants"
	"github.com/iwvelando/vest-optimizer/pkg/milp"
	"github.com/iwvelando/vest-optimizer/pkg/output"
	"github.com/iwvelando/vest-optimizer/pkg/validation"
	"go.uber.org/zap"
)

func main() {
	// Process command line flags first to get config location
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv, tsv")
	outputFileFlag := flag.String("output-file", "", "write the report to this file instead of stdout")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	flag.Parse()

	// Load the config file to get logging configuration
	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	logger, err := logging.New(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// CLI overrides take precedence over config
	if *outputFormatFlag != "" {
		conf.Output.Format = *outputFormatFlag
	}
	if *outputFileFlag != "" {
		conf.Output.File = *outputFileFlag
	}

	if err := validation.ValidateOutputFormat(conf.Output.Format); err != nil {
		logger.Fatal(err.Error(),
			zap.String("op", "main"),
		)
	}

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	solver := milp.NewHiGHS(logger, conf.Solver.Tolerance)
	optimizer, err := scenario.NewOptimizer(logger, solver, conf.Solver.Timeout)
	if err != nil {
		logger.Fatal("failed to initialize optimizer",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	runner, err := sweep.NewRunner(logger, optimizer, conf)
	if err != nil {
		logger.Fatal("invalid configuration",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := runner.Run(ctx)
	if err != nil {
		logger.Fatal("failed to run sweep",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	if conf.Output.File != "" {
		err = output.WriteFile(conf.Output.File, conf.Output.Format, report)
	} else {
		err = output.Write(os.Stdout, conf.Output.Format, report)
	}
	if err != nil {
		logger.Fatal("failed to write report",
			zap.String("op", "main"),
			zap.String("file", conf.Output.File),
			zap.Error(err),
		)
	}
}
