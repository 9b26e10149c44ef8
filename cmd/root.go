package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wirekv/wirekv/cmd/kv"
	"github.com/wirekv/wirekv/cmd/serve"
)

const (
	Version = "0.3.1"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "wirekv",
		Short: "in-memory key-value server",
		Long: fmt.Sprintf(`wirekv (v%s)

An in-memory key-value server and client speaking a RESP-style
frame protocol over TCP.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of wirekv",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("wirekv v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
