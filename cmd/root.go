package cmd

import (
	"errors"
	"io/fs"
	"log"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/evalia/internal/audio"
	"github.com/spigell/evalia/internal/storage"
)

const (
	app = "evalia"
)

type Config struct {
	ResultsFile string           `mapstructure:"results-file"`
	HistoryDB   string           `mapstructure:"history-db"`
	LogFile     string           `mapstructure:"log-file"`
	Questions   *QuestionsConfig `mapstructure:"questions"`
	AI          *AIConfig        `mapstructure:"ai"`
	Audio       *AudioConfig     `mapstructure:"audio"`
}

type QuestionsConfig struct {
	// Source is either "gemini" or "bank".
	Source    string `mapstructure:"source"`
	BankFile  string `mapstructure:"bank-file"`
	HRCount   int    `mapstructure:"hr-count"`
	TechCount int    `mapstructure:"tech-count"`
}

type AIConfig struct {
	Gemini *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey        string  `mapstructure:"api-key"`
	APIKeyFile    string  `mapstructure:"api-key-file"`
	Model         string  `mapstructure:"model"`
	FallbackModel string  `mapstructure:"fallback-model"`
	MaxRetries    int     `mapstructure:"max-retries"`
	MaxLogLength  int     `mapstructure:"max-log-length"`
	Temperature   float64 `mapstructure:"temperature"`
}

type AudioConfig struct {
	// Mode is either "ffmpeg" (microphone) or "file" (prerecorded answers).
	Mode         string `mapstructure:"mode"`
	audio.Config `mapstructure:",squash"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "evalia runs a simulated job interview with spoken answers scored by Gemini",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envs := map[string]string{
		"ai.gemini.api-key":      "GEMINI_API_KEY",
		"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
		"results-file":           "EVALIA_RESULTS_FILE",
	}
	for key, env := range envs {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	setDefaults()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is evalia.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("results-file", "", "file the interview results are written to")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("results-file", rootCmd.PersistentFlags().Lookup("results-file"))
}

func setDefaults() {
	viper.SetDefault("results-file", storage.DefaultResultsFile)
	viper.SetDefault("history-db", storage.DefaultHistoryDB)
	viper.SetDefault("log-file", app+".log")
	viper.SetDefault("questions.source", "gemini")
	viper.SetDefault("questions.hr-count", 5)
	viper.SetDefault("questions.tech-count", 5)
	viper.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	viper.SetDefault("ai.gemini.fallback-model", "gemini-2.0-flash-lite")
	viper.SetDefault("ai.gemini.max-retries", 3)
	viper.SetDefault("ai.gemini.max-log-length", 200)
	viper.SetDefault("audio.mode", "ffmpeg")
	viper.SetDefault("audio.max-duration", "2m")
}

func initConfig() {
	// version needs no configuration.
	if runCmd.CalledAs() == "" && reportCmd.CalledAs() == "" {
		return
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env file: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// A missing default config is fine; everything has a default or an env binding.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return config, err
	}

	if config == nil {
		config = &Config{}
	}
	if config.Questions == nil {
		config.Questions = &QuestionsConfig{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}
	if config.Audio == nil {
		config.Audio = &AudioConfig{}
	}

	config.Questions.Source = strings.ToLower(strings.TrimSpace(config.Questions.Source))
	config.Audio.Mode = strings.ToLower(strings.TrimSpace(config.Audio.Mode))

	return config, nil
}
