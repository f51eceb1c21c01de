package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/continuum/internal/model"
)

// Version is set at build time with -ldflags "-X .../internal/cli.Version=..."
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
	noCache bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "continuum",
	Short: "Continuum - backstory consistency checking against long narratives",
	Long: `Continuum checks whether a character backstory is consistent with a
long-form narrative.

The backstory is decomposed into atomic claims. Each claim is checked
against evidence retrieved from the early, mid and late phases of the
narrative, and the verdicts are aggregated into a single prediction:
1 (consistent) or 0 (contradicted), with a rationale citing one claim.

A major claim contradicted throughout the narrative, or a claim that
presupposes one, is enough to reject the backstory.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number and build information for Continuum.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "continuum %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.continuum/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.BoolVar(&noCache, "no-cache", false, "disable completion and embedding cache")
	flags.String("provider", "", "LLM provider (openai, anthropic, ollama, mock)")
	flags.String("model", "", "LLM model name")
	flags.String("embedding-provider", "", "embedding provider (openai, ollama); empty uses keyword retrieval")
	flags.String("retrieval", "", "retrieval backend (memory, keyword, milvus)")
	flags.String("milvus", "", "milvus address for the milvus backend")
	flags.String("output-dir", "", "directory for results and debug reports")
	flags.Bool("submission", false, "write results.csv without the confidence column")

	// Bind flags to viper keys
	bindings := map[string]string{
		"output.verbose":           "verbose",
		"llm.provider":             "provider",
		"llm.model":                "model",
		"embedding.provider":       "embedding-provider",
		"retrieval.backend":        "retrieval",
		"retrieval.milvus_address": "milvus",
		"output.dir":               "output-dir",
		"output.submission":        "submission",
	}
	for key, flag := range bindings {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}

	rootCmd.AddCommand(versionCmd)
}

// initConfig loads .env files, registers defaults and reads the config file
// and CONTINUUM_* environment variables
func initConfig() {
	envFile := os.Getenv("CONTINUUM_ENV")
	if envFile == "" {
		envFile = ".env"
	}
	_ = godotenv.Load(envFile)
	_ = godotenv.Load(envFile + ".secret")

	if err := registerDefaults(viper.GetViper()); err != nil {
		fmt.Fprintf(os.Stderr, "Error registering defaults: %v\n", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".continuum"))
		viper.SetConfigName("config")
	}

	// CONTINUUM_LLM_PROVIDER overrides llm.provider, and so on
	viper.SetEnvPrefix("CONTINUUM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	err := viper.MergeInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case err == nil:
		if verbose {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	case errors.As(err, &notFound):
	default:
		fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
	}
}

// registerDefaults seeds v with every key of the default configuration so
// environment variables can override keys that no config file sets
func registerDefaults(v *viper.Viper) error {
	data, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return err
	}
	v.SetConfigType("yaml")
	return v.MergeConfig(bytes.NewReader(data))
}

// loadConfig resolves the effective configuration from v
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	applyEnvSecrets(cfg)
	return cfg, nil
}

// applyEnvSecrets fills provider credentials from the conventional variables
func applyEnvSecrets(cfg *model.Config) {
	if cfg.LLM.APIKey == "" {
		switch strings.ToLower(cfg.LLM.Provider) {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic", "claude":
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	if cfg.LLM.BaseURL == "" && strings.EqualFold(cfg.LLM.Provider, "ollama") {
		cfg.LLM.BaseURL = os.Getenv("OLLAMA_HOST")
	}
}

// checkCredentials fails early when a hosted provider has no key
func checkCredentials(cfg *model.Config) error {
	switch strings.ToLower(cfg.LLM.Provider) {
	case "openai":
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	case "anthropic", "claude":
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
		}
	}
	return nil
}

// newLogger builds the zap logger: JSON at info level, or the console
// development encoder at debug level with --verbose
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}
