package cmd

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/evalia/internal/logger"
	"github.com/spigell/evalia/internal/report"
	"github.com/spigell/evalia/internal/storage"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the saved interview results or the interview history",
	Run: func(cmd *cobra.Command, _ []string) {
		runReport(cmd)
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().Bool("history", false, "list archived interviews instead of the latest results")
	reportCmd.Flags().IntP("limit", "n", 20, "maximum number of archived interviews to list")
}

func runReport(cmd *cobra.Command) {
	ctx := context.Background()

	config, err := getConfig()
	if err != nil {
		log.Fatalf("getting a config: %s", err)
	}

	// The report goes to stdout; keep the log out of it.
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"), "stderr")
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	history, _ := cmd.Flags().GetBool("history")
	if !history {
		results, err := storage.LoadResults(config.ResultsFile)
		if err != nil {
			logger.Fatal("loading interview results", zap.String("file", config.ResultsFile), zap.Error(err))
		}
		report.RenderDashboard(os.Stdout, results)
		return
	}

	path := strings.TrimSpace(config.HistoryDB)
	if path == "" {
		logger.Fatal("interview history is disabled", zap.String("hint", "set history-db in the configuration file"))
	}

	store, err := storage.OpenHistory(path, logger)
	if err != nil {
		logger.Fatal("opening interview history", zap.String("path", path), zap.Error(err))
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	interviews, err := store.List(ctx, limit)
	if err != nil {
		logger.Fatal("listing interviews", zap.Error(err))
	}

	if err := report.RenderHistory(os.Stdout, interviews); err != nil {
		logger.Fatal("rendering history", zap.Error(err))
	}
}
