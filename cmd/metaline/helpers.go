package main

import (
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/metaline-dev/metaline/db"
	"github.com/metaline-dev/metaline/internal/modelfile"
	"github.com/metaline-dev/metaline/registry"
)

// loadRegistry builds a registry from the configured model file.
func loadRegistry() (*registry.Registry, error) {
	path := viper.GetString("models")
	defs, err := modelfile.Load(path)
	if err != nil {
		return nil, err
	}

	reg := registry.New()
	for _, def := range defs {
		if err := reg.Register(def); err != nil {
			return nil, fmt.Errorf("registering %s: %w", def.Name, err)
		}
	}
	return reg, nil
}

// openDatabase opens the configured database.
func openDatabase() (*db.SQL, error) {
	url := viper.GetString("url")
	switch driver := viper.GetString("driver"); driver {
	case "sqlite":
		return db.OpenSQLite(url)
	case "postgres":
		return db.OpenPostgres(url)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}
}

// newLogger builds a zap logger honoring the debug flag.
func newLogger() (*zap.Logger, error) {
	if viper.GetBool("debug") {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
