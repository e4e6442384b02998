package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/avvvet/cardfit-services/internal/ranksvc/store"
	"github.com/avvvet/cardfit-services/internal/scoring"
)

const app = "cardctl"

// Config is the merged flag, env and config file settings of a command.
type Config struct {
	Cards       string `mapstructure:"cards"`
	Answers     string `mapstructure:"answers"`
	Rules       string `mapstructure:"rules"`
	Explain     bool   `mapstructure:"explain"`
	Top         int    `mapstructure:"top"`
	Store       string `mapstructure:"store"`
	PostgresURL string `mapstructure:"postgres-url"`
	MongoURI    string `mapstructure:"mongodb-uri"`
	Strict      bool   `mapstructure:"strict"`
	Debug       bool   `mapstructure:"debug"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:           app,
		Short:         "cardctl ranks card catalogs offline and maintains the catalog store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is cardctl.yaml in current directory, optional)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().String("rules", "", "ruleset yaml file (default is the embedded ruleset)")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("rules", rootCmd.PersistentFlags().Lookup("rules"))
}

func initConfig() {
	viper.SetEnvPrefix("CARDCTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	log.SetOutput(os.Stderr)
	if viper.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			log.Fatalf("reading config: %s", err)
		}
	}
}

// bindFlags binds the running command's flags to viper keys. Subcommands
// share key names, so binding happens at run time rather than in init.
func bindFlags(cmd *cobra.Command, _ []string) error {
	return viper.BindPFlags(cmd.Flags())
}

func getConfig() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &config, nil
}

func loadRules(path string) (*scoring.Ruleset, error) {
	rs, err := scoring.LoadRuleset(path)
	if err != nil {
		return nil, err
	}
	log.Debugf("using ruleset %s", rs.Version)
	return rs, nil
}

func loadCatalog(ctx context.Context, path string) ([]scoring.Card, error) {
	if path == "" {
		return nil, fmt.Errorf("--cards is required")
	}
	return store.NewFileCardStore(path).ListCards(ctx)
}
