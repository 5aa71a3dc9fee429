package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/taskforge/ostore/cmd/obj"
	"github.com/taskforge/ostore/cmd/serve"
	"github.com/taskforge/ostore/cmd/util"
)

const (
	Version = "0.3.1"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "ostore",
		Short: "sharded in-memory object store",
		Long: fmt.Sprintf(`ostore (v%s)

A sharded in-memory object store written in Go. Objects are immutable
records addressed by 128 bit ids, with blocking reads, error objects
and fallback-store bookkeeping.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of ostore",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("ostore v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(obj.ObjectCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "json", util.WrapString("serializer to use (json, gob, binary)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "http", util.WrapString("transport to use (http, tcp, unix)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
