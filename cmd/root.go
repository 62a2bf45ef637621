package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kolbkit/ckv/cmd/ckv"
	"github.com/kolbkit/ckv/cmd/serve"
	"github.com/kolbkit/ckv/cmd/util"
)

const (
	Version = "1.0.0"
)

var (
	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "ckv",
		Short: "cache-and-buffer key/value facade",
		Long: fmt.Sprintf(`ckv (v%s)

A uniform key/value persistence facade over interchangeable backends,
fronted by an in-process cache-and-buffer layer and a per-key
serializer that keeps concurrent operations on the same key ordered.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of ckv",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("ckv v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(ckv.KeyValueCommands)
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
