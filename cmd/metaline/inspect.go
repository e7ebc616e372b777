package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/metaline-dev/metaline/registry"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [type]",
	Short: "Print object metadata as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}

		var payload interface{}
		if len(args) > 0 {
			meta, ok := reg.GetObjectMetadata(args[0])
			if !ok {
				return &registry.NotRegisteredError{TypeName: args[0]}
			}
			payload = meta
		} else {
			payload = reg.GetAllObjectMetadata()
		}

		out, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}
