package kv

import (
	"github.com/spf13/cobra"

	"github.com/wirekv/wirekv/cmd/util"
	"github.com/wirekv/wirekv/rpc/client"
)

var (
	kvClient *client.Client

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:               "kv",
		Short:             "Perform key-value store operations",
		PersistentPreRunE: setupKVClient,
		PersistentPostRun: teardownKVClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common RPC flags to the KV command
	util.SetupRPCClientFlags(KeyValueCommands)

	// Add subcommands
	KeyValueCommands.AddCommand(setCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupKVClient connects the client to the configured server
func setupKVClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Get client configuration components
	config := util.GetClientConfig()

	// Connect to the server
	var err error
	kvClient, err = client.Dial(*config)
	return err
}

// teardownKVClient terminates the client actor
func teardownKVClient(_ *cobra.Command, _ []string) {
	if kvClient != nil {
		_ = kvClient.Close()
	}
}
