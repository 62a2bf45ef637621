package ckv

import (
	"github.com/spf13/cobra"

	"github.com/kolbkit/ckv/cmd/util"
	"github.com/kolbkit/ckv/rpc/client"
)

var (
	rpcClient client.Client

	// KeyValueCommands represents the kv command group
	KeyValueCommands = &cobra.Command{
		Use:               "kv",
		Short:             "Perform key-value facade operations against a remote ckv server",
		PersistentPreRunE: setupClient,
	}
)

func init() {
	cobra.OnInitialize(util.InitClientConfig)

	util.SetupRPCClientFlags(KeyValueCommands)

	KeyValueCommands.AddCommand(setCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(removeCmd)
	KeyValueCommands.AddCommand(findKeysCmd)
	KeyValueCommands.AddCommand(getSubCmd)
	KeyValueCommands.AddCommand(setSubCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupClient initializes the RPC client shared by every kv subcommand.
func setupClient(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	config := util.GetClientConfig()

	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	t, err := util.GetTransport()
	if err != nil {
		return err
	}

	rpcClient, err = client.NewRPCClient(*config, t, s)
	return err
}
