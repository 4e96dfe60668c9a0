package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"gapmend/adapters/checkpoint"
	"gapmend/adapters/export"
	"gapmend/adapters/tabular"
	"gapmend/app"
	"gapmend/domain/core"
	"gapmend/internal"
	"gapmend/internal/config"
	"gapmend/ports"
)

func main() {
	finePath := flag.String("fine", "", "fine-resolution measurement CSV (time,value)")
	sparsePath := flag.String("sparse", "", "sparse reference CSV (time,value)")
	outPath := flag.String("out", "reconstruction.csv", "output CSV path")
	xlsxPath := flag.String("xlsx", "", "optional Excel output path with credibility band")
	quantilesPath := flag.String("quantiles", "", "optional CSV path for the full quantile table")
	runID := flag.String("run-id", "", "run identifier (required with -resume)")
	resume := flag.Bool("resume", false, "resume the run from its last checkpoint")
	flag.Parse()

	if *finePath == "" || *sparsePath == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *resume && *runID == "" {
		log.Fatal("resume requires -run-id")
	}

	// .env is optional; environment variables win either way.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration: %v", err)
	}

	fine, err := tabular.LoadSeries(*finePath, "fine")
	if err != nil {
		log.Fatalf("load fine series: %v", err)
	}
	sparse, err := tabular.LoadSeries(*sparsePath, "sparse")
	if err != nil {
		log.Fatalf("load sparse series: %v", err)
	}

	var store ports.CheckpointStore
	if cfg.CheckpointPath != "" {
		store, err = checkpoint.Open(cfg.CheckpointPath)
		if err != nil {
			log.Fatalf("checkpoint store: %v", err)
		}
		defer store.Close()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := internal.NewDefaultLogger()
	service := app.NewReconstructionService(cfg, store, logger)

	req := app.ReconstructionRequest{
		Fine:   fine,
		Sparse: sparse,
		Resume: *resume,
	}
	if *runID != "" {
		id, err := core.ParseRunID(*runID)
		if err != nil {
			log.Fatalf("run-id: %v", err)
		}
		req.RunID = id
	}

	result, err := service.Run(ctx, req)
	if err != nil {
		log.Fatalf("reconstruction: %v", err)
	}
	for _, w := range result.Warnings {
		logger.Warn("%s", w)
	}

	if err := export.NewCSVWriter().Write(*outPath, result.Rows); err != nil {
		log.Fatalf("export csv: %v", err)
	}
	logger.Info("wrote %s (%d rows)", *outPath, len(result.Rows))

	if *xlsxPath != "" {
		if err := export.NewExcelWriter().Write(*xlsxPath, result.Rows); err != nil {
			log.Fatalf("export xlsx: %v", err)
		}
		logger.Info("wrote %s", *xlsxPath)
	}

	if *quantilesPath != "" {
		if err := export.NewQuantileCSVWriter().Write(*quantilesPath, result.Grid.Times, result.Summary); err != nil {
			log.Fatalf("export quantiles: %v", err)
		}
		logger.Info("wrote %s", *quantilesPath)
	}

	fmt.Printf("run %s: %d iterations, output %s\n", result.RunID, result.Iterations, *outPath)
}
