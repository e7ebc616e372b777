package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version information - set at build time
var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "metaline",
		Short: "Object metadata registry and schema tooling",
		Long: `Metaline records the structural definition of an application's persistent
types, derives a safe table-creation order from their foreign keys, and
applies the resulting schemas against a live database.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("models", "metaline.models.yaml", "path to the model definition file")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver (sqlite, postgres)")
	rootCmd.PersistentFlags().String("url", "metaline.db", "database URL or file path")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	cobra.OnInitialize(func() { initConfig(rootCmd) })

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(orderCmd)
	rootCmd.AddCommand(ddlCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(initCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig wires flags, environment, and an optional metaline.yaml config
// file into viper. Precedence: flags > env > config file > defaults.
func initConfig(rootCmd *cobra.Command) {
	viper.SetConfigName("metaline")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("METALINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	_ = viper.BindPFlag("models", rootCmd.PersistentFlags().Lookup("models"))
	_ = viper.BindPFlag("driver", rootCmd.PersistentFlags().Lookup("driver"))
	_ = viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	// A missing config file is fine; flags and env cover everything.
	_ = viper.ReadInConfig()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("metaline %s (%s)\n", Version, GitCommit)
	},
}
