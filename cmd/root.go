// Package cmd provides the termsim command-line interface.
//
// Configuration is read, in order of precedence, from command-line flags,
// TERMSIM_-prefixed environment variables (TERMSIM_SERVER_PORT,
// TERMSIM_REVEAL_INTERVAL_MS, ...), the file named by --config or
// TERMSIM_CONFIG_FILE, and finally .termsim.yml in the current directory.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pcstyle/termsim/internal/config"
	"github.com/pcstyle/termsim/internal/logging"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "termsim",
	Short: "Terminal transcript renderer and typing animation preview",
	Long: `termsim renders captured terminal sessions the way the typesim site shows
them: each output line is classified (header, separator, prompt, menu item,
setting, ...) and painted, and setting values such as 50-150ms or 8.0% are
highlighted. It also plays the character-by-character typing animation with
a blinking cursor.

Quick Start:
  termsim classify demo.txt        Paint a transcript in the terminal
  termsim classify -o json -       Classify stdin as JSON
  termsim reveal "hello world"     Play the typing animation
  termsim serve --transcript demo.txt
                                   Live browser preview`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .termsim.yml, can also use TERMSIM_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig selects the config file and enables environment overrides.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("TERMSIM_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".termsim")
	}

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(config.EnvKeyReplacer())
	config.SetDefaults(viper.GetViper())

	// A missing or unreadable config file falls back to defaults.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the CLI logger from the loaded configuration. Logs go to
// stderr so they never mix with rendered output.
func newLogger(cfg *config.Config) logging.Logger {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, using info\n", err)
	}

	return logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
}
