package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/metaline-dev/metaline/ddl"
)

var ddlCmd = &cobra.Command{
	Use:   "ddl [type...]",
	Short: "Print the generated DDL for registered types",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}

		compiler := ddl.NewCompiler(reg)
		names := args
		if len(names) == 0 {
			var err error
			names, err = reg.GetInitializationOrder()
			if err != nil {
				return err
			}
		}

		for _, name := range names {
			schema, err := compiler.GenerateSchema(name)
			if err != nil {
				return err
			}
			fmt.Printf("-- %s (version %s)\n%s\n", schema.TypeName, schema.Version, schema.CreateSQL)
			for _, index := range schema.Indexes {
				fmt.Println(index)
			}
			for _, trigger := range schema.Triggers {
				fmt.Println(trigger)
			}
			fmt.Println()
		}
		return nil
	},
}
