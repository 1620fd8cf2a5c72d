// Command authflow runs browser consent flows that store provider
// credentials in a management API.
package main

import (
	"context"
	"os"

	"github.com/custodia-labs/authflow/internal/adapters/driven/config/file"
	"github.com/custodia-labs/authflow/internal/adapters/driven/management"
	"github.com/custodia-labs/authflow/internal/adapters/driven/secrets/keyring"
	"github.com/custodia-labs/authflow/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/authflow/internal/adapters/driving/cli"
	"github.com/custodia-labs/authflow/internal/adapters/driving/oauth"
	"github.com/custodia-labs/authflow/internal/core/domain"
	"github.com/custodia-labs/authflow/internal/core/ports/driven"
	"github.com/custodia-labs/authflow/internal/core/services"
	"github.com/custodia-labs/authflow/internal/logger"
)

func main() {
	cli.SetBootstrap(bootstrap)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

func bootstrap(configDir string) (cli.Services, error) {
	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return cli.Services{}, err
	}
	logger.Debug("using config %s", configStore.Path())

	// The config file is re-read on change; connections are assembled
	// fresh for every request so edits apply to running flows.
	go func() {
		err := configStore.Watch(context.Background(), func() {
			logger.Info("configuration reloaded from %s", configStore.Path())
		})
		if err != nil {
			logger.Warn("config watcher stopped: %v", err)
		}
	}()

	api := management.NewClient(management.Config{})
	connections := services.NewConnectionService(configStore, secretStore(), api)

	notifier := cli.NewNotifier(os.Stdout)
	flows := services.NewFlowOrchestrator(
		api,
		connections,
		oauth.NewCallbackHost(domain.DefaultCallbackShutdownDelay),
		notifier,
		connections.FlowConfig(),
	)

	return cli.Services{
		Flow:       flows,
		Connection: connections,
		Import:     services.NewCredentialImporter(connections, api),
		Notifier:   notifier,
	}, nil
}

// secretStore prefers the OS keyring and falls back to process memory.
func secretStore() driven.SecretStore {
	store := keyring.NewStore(keyring.DefaultService)
	if store.Available() {
		return store
	}
	logger.Warn("system keyring unavailable; secrets will not persist")
	return memory.NewSecretStore()
}
