package backend

import (
	"fmt"

	"budget/internal/config"
	"budget/internal/storage/jsonfile"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		DataDirectory: appConfig.DataDir,
		ExpensesFile:  appConfig.ExpensesFile,
		BackupCorrupt: appConfig.BackupCorrupt,

		SQLiteDBPath: appConfig.SQLiteDBPath,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case JSONBackend:
		// Empty directory and file name fall back to the defaults
	}

	return nil
}

// JSONStoreConfig returns the record store location, filling in defaults.
func (c Config) JSONStoreConfig() jsonfile.Config {
	cfg := jsonfile.DefaultConfig()
	if c.DataDirectory != "" {
		cfg.Dir = c.DataDirectory
	}
	if c.ExpensesFile != "" {
		cfg.File = c.ExpensesFile
	}
	cfg.BackupCorrupt = c.BackupCorrupt
	return cfg
}
