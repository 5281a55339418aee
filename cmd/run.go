package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/evalia/internal/ai"
	"github.com/spigell/evalia/internal/ai/gemini"
	"github.com/spigell/evalia/internal/audio"
	"github.com/spigell/evalia/internal/domain"
	"github.com/spigell/evalia/internal/interview"
	"github.com/spigell/evalia/internal/logger"
	"github.com/spigell/evalia/internal/questionbank"
	"github.com/spigell/evalia/internal/secrets"
	"github.com/spigell/evalia/internal/storage"
)

const (
	providerGemini     = "gemini"
	questionSourceBank = "bank"
	audioModeFile      = "file"
	criticalMessage    = "A critical error occurred. Please restart"
)

var (
	critical     = logger.SeverityCritical
	withAIFields = logger.WithAIFields
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an interactive interview",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("questions", "q", "", "question source: gemini or bank")
	runCmd.Flags().StringP("audio-mode", "a", "", "answer capture: ffmpeg (microphone) or file")

	viper.BindPFlag("questions.source", runCmd.Flags().Lookup("questions"))
	viper.BindPFlag("audio.mode", runCmd.Flags().Lookup("audio-mode"))
}

// run is the interactive interview.
func run(_ *cobra.Command) {
	ctx := context.Background()

	config, err := getConfig()
	if err != nil {
		log.Fatalf("getting a config: %s", err)
	}

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"), config.LogFile)
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	logger.Info("starting the evalia", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	term := &terminal{in: os.Stdin, out: os.Stdout}

	deps, closeDeps, err := buildDeps(ctx, config, term, logger)
	if err != nil {
		logger.Fatal("preparing the interview", zap.Error(err),
			zap.String("hint", "set GEMINI_API_KEY or ai.gemini.api-key-file in the configuration file"),
		)
	}
	defer closeDeps()

	orchestrator, err := interview.New(deps)
	if err != nil {
		logger.Fatal("creating the orchestrator", zap.Error(err))
	}

	if err := interact(ctx, orchestrator, interview.NewSession(), term, logger); err != nil {
		if errors.Is(err, errExit) {
			logger.Info("exiting", zap.String("reason", "quit requested"))
			return
		}
		fmt.Fprintln(term.out, criticalMessage)
		logger.Fatal("exiting", zap.Error(err))
	}
}

// interact renders the session and feeds the chosen actions to the
// orchestrator until the user quits.
func interact(ctx context.Context, orchestrator *interview.Orchestrator, session *interview.Session, term *terminal, logger *zap.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(criticalMessage, critical, zap.Any("panic", r))
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	for {
		view := session.View()
		term.render(view)

		ev, err := term.choose(view)
		if err != nil {
			return err
		}

		if ev.Action != interview.ActionReRecord && ev.Action != interview.ActionReturnFromChat {
			fmt.Fprintln(term.out, "Processing...")
		}

		if err := orchestrator.Handle(ctx, session, ev); err != nil {
			if errors.Is(err, errExit) {
				return err
			}
			term.notify(err)
		}
	}
}

// buildDeps wires the collaborators of the orchestrator. The returned func
// releases what was opened.
func buildDeps(ctx context.Context, config *Config, term *terminal, logger *zap.Logger) (interview.Deps, func(), error) {
	noop := func() {}
	gc := config.AI.Gemini

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  gc.APIKeyFile,
		Value: gc.APIKey,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return interview.Deps{}, noop, err
	}

	aiLogger := withAIFields(logger, providerGemini, gc.Model)
	generator, err := gemini.NewGenerator(ctx, apiKey, gemini.GeneratorConfig{
		Model:        gc.Model,
		MaxRetries:   gc.MaxRetries,
		MaxLogLength: gc.MaxLogLength,
		Temperature:  gc.Temperature,
	}, aiLogger.With(zap.Int("ai_retry_attempts", gc.MaxRetries)))
	if err != nil {
		return interview.Deps{}, noop, err
	}

	classifier := buildClassifier(gc, generator, aiLogger)

	hrQuestions, techQuestions, err := buildQuestionGenerators(config.Questions, generator, aiLogger)
	if err != nil {
		return interview.Deps{}, noop, err
	}

	jsonGenerator := generator.WithJSONResponse()
	hrEvaluator, err := gemini.NewEvaluator(jsonGenerator, domain.RoundHR, aiLogger)
	if err != nil {
		return interview.Deps{}, noop, err
	}
	techEvaluator, err := gemini.NewEvaluator(jsonGenerator, domain.RoundTechnical, aiLogger)
	if err != nil {
		return interview.Deps{}, noop, err
	}

	capturer, err := buildCapturer(config.Audio, term, logger)
	if err != nil {
		return interview.Deps{}, noop, err
	}

	deps := interview.Deps{
		Classifier:    classifier,
		HRQuestions:   hrQuestions,
		TechQuestions: techQuestions,
		HREvaluator:   hrEvaluator,
		TechEvaluator: techEvaluator,
		Capturer:      capturer,
		Transcriber:   gemini.NewTranscriber(generator, aiLogger),
		Persister:     storage.NewResultsFile(config.ResultsFile, logger),
		Assistant:     gemini.NewAssistant(generator, aiLogger),
		Logger:        logger,
	}

	closer := noop
	if path := strings.TrimSpace(config.HistoryDB); path != "" {
		history, err := storage.OpenHistory(path, logger)
		if err != nil {
			logger.Warn("interview history disabled", zap.String("path", path), zap.Error(err))
		} else {
			deps.Archiver = history
			closer = func() { history.Close() }
		}
	}

	return deps, closer, nil
}

// buildClassifier pairs the primary model with the configured fallback model.
// An empty fallback or one equal to the primary model disables the fallback.
func buildClassifier(gc *GeminiConfig, generator *gemini.Generator, logger *zap.Logger) *gemini.Classifier {
	fallback := strings.TrimSpace(gc.FallbackModel)
	if fallback == "" || fallback == generator.Model() {
		return gemini.NewClassifier(generator, nil, logger)
	}
	return gemini.NewClassifier(generator, generator.WithModel(fallback), logger)
}

func buildQuestionGenerators(cfg *QuestionsConfig, generator *gemini.Generator, logger *zap.Logger) (ai.QuestionGenerator, ai.QuestionGenerator, error) {
	switch cfg.Source {
	case questionSourceBank:
		bank, err := questionbank.Load(cfg.BankFile)
		if err != nil {
			return nil, nil, err
		}
		hr, err := questionbank.NewGenerator(bank, domain.RoundHR, cfg.HRCount)
		if err != nil {
			return nil, nil, err
		}
		tech, err := questionbank.NewGenerator(bank, domain.RoundTechnical, cfg.TechCount)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using question bank", zap.String("file", cfg.BankFile))
		return hr, tech, nil
	case "", providerGemini:
		generator = generator.WithJSONResponse()
		hr, err := gemini.NewQuestionGenerator(generator, domain.RoundHR, cfg.HRCount, logger)
		if err != nil {
			return nil, nil, err
		}
		tech, err := gemini.NewQuestionGenerator(generator, domain.RoundTechnical, cfg.TechCount, logger)
		if err != nil {
			return nil, nil, err
		}
		return hr, tech, nil
	default:
		return nil, nil, fmt.Errorf("unsupported question source: %s", cfg.Source)
	}
}

func buildCapturer(cfg *AudioConfig, term *terminal, logger *zap.Logger) (interview.Capturer, error) {
	switch cfg.Mode {
	case audioModeFile:
		return audio.NewFileCapture(term.askAudioPath(), logger)
	case "", "ffmpeg":
		return audio.NewFFMPEGRecorder(cfg.Config, term.waitForEnter(), logger)
	default:
		return nil, fmt.Errorf("unsupported audio mode: %s", cfg.Mode)
	}
}

// redacted returns a copy of config safe to log.
func redacted(config *Config) Config {
	out := *config
	if config.AI != nil && config.AI.Gemini != nil {
		gc := *config.AI.Gemini
		if gc.APIKey != "" {
			gc.APIKey = "***"
		}
		out.AI = &AIConfig{Gemini: &gc}
	}
	return out
}
