package cmd

import (
	"fmt"
	"os"

	"github.com/Tiliavir/ttt-timeline/internal/config"
	"github.com/Tiliavir/ttt-timeline/internal/storage"
	"github.com/Tiliavir/ttt-timeline/internal/storage/sqlite"
)

// fail prints err and exits: 1 for usage errors, 2 for storage errors.
func fail(code int, err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(code)
}

// loadConfig returns the configuration and the directory it was read from.
func loadConfig() (config.Config, string) {
	dir, err := config.Dir()
	if err != nil {
		fail(2, err)
	}
	cfg, err := config.LoadFrom(dir)
	if err != nil {
		fail(1, err)
	}
	return cfg, dir
}

// openStore opens the configured entry store.
func openStore(cfg config.Config, dir string) storage.Store {
	path := cfg.StoragePath(dir)
	if cfg.Storage.Backend == config.BackendSQLite {
		store, err := sqlite.Open(path)
		if err != nil {
			fail(2, err)
		}
		return store
	}
	return storage.NewFiles(path)
}
