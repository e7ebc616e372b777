package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/metaline-dev/metaline/registry"
)

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Print the safe table-creation order for the registered types",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}

		graph := reg.GetDependencyGraph()
		order, err := reg.GetInitializationOrder()
		if err != nil {
			var cycleErr *registry.CircularDependencyError
			if errors.As(err, &cycleErr) {
				color.Red("no valid order: %v", cycleErr)
			}
			return err
		}

		bold := color.New(color.Bold)
		for i, name := range order {
			deps := graph[name]
			if len(deps) > 0 {
				fmt.Printf("%2d. ", i+1)
				bold.Print(name)
				fmt.Printf("  (depends on: %s)\n", strings.Join(deps, ", "))
			} else {
				fmt.Printf("%2d. ", i+1)
				bold.Println(name)
			}
		}
		return nil
	},
}
