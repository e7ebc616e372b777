package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/metaline-dev/metaline/dbinit"
	"github.com/metaline-dev/metaline/ddl"
)

var initForce bool
var initSnapshot bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create or update the database tables for the registered types",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}

		database, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()

		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		compiler := ddl.NewCompiler(reg)
		manifest, err := compiler.GenerateManifest()
		if err != nil {
			return err
		}

		coordinator := dbinit.NewCoordinator(logger)
		result, err := coordinator.InitializeSchemas(context.Background(), database, dbinit.Options{
			Manifest: manifest,
			Force:    initForce,
			Debug:    viper.GetBool("debug"),
		})
		if err != nil {
			return err
		}

		for _, name := range result.Initialized {
			color.Green("✓ %s", name)
		}
		for _, name := range result.Skipped {
			fmt.Printf("- %s (unchanged)\n", name)
		}
		for _, schemaErr := range result.Errors {
			color.Red("✗ %v", schemaErr)
		}
		fmt.Println(result.Summary())

		if initSnapshot {
			if err := reg.PersistSnapshot(context.Background(), database); err != nil {
				return fmt.Errorf("persisting registry snapshot: %w", err)
			}
		}

		if !result.OK() {
			return fmt.Errorf("%d schema(s) failed", len(result.Errors))
		}
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "drop and recreate existing tables (destructive)")
	initCmd.Flags().BoolVar(&initSnapshot, "snapshot", true, "write the registry snapshot table after initialization")
}
