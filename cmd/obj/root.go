package obj

import (
	"github.com/spf13/cobra"
	"github.com/taskforge/ostore/cmd/util"
	"github.com/taskforge/ostore/rpc/client"
)

var (
	rpcStore client.IRemoteObjectStore

	// ObjectCommands represents the obj command group
	ObjectCommands = &cobra.Command{
		Use:               "obj",
		Short:             "Perform object store operations",
		PersistentPreRunE: setupObjClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common RPC flags to the obj command
	util.SetupRPCClientFlags(ObjectCommands)

	// Set default shard ID for object operations
	ObjectCommands.PersistentFlags().Int("shard", 100, util.WrapString("ID of the shard to connect to"))

	// Add subcommands
	ObjectCommands.AddCommand(putCmd)
	ObjectCommands.AddCommand(getCmd)
	ObjectCommands.AddCommand(waitCmd)
	ObjectCommands.AddCommand(delCmd)
	ObjectCommands.AddCommand(eraseCmd)
	ObjectCommands.AddCommand(hasCmd)
	ObjectCommands.AddCommand(statsCmd)
	ObjectCommands.AddCommand(perfTestCmd)
}

// setupObjClient initializes the RPC object store client
func setupObjClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Get client configuration components
	config := util.GetClientConfig()
	shardId := util.GetShardID()

	// Get serializer and transport
	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	t, err := util.GetTransport()
	if err != nil {
		return err
	}

	// Create the object store client
	rpcStore, err = client.NewRPCObjectStore(
		shardId,
		*config,
		t,
		s,
	)

	return err
}
