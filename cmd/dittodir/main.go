package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X main.version=..."
var (
	version = "dev"
	commit  = "none"
)

var rootCmd = &cobra.Command{
	Use:   "dittodir",
	Short: "DittoDir - per-owner virtual directory server",
	Long: `
DittoDir keeps a virtual folder tree for every owner and serves it over HTTP.
Folders and files are persisted as flat records in a pluggable record store
(memory, badger, s3, duckdb or sqlite).

Run "dittodir init" to write a default configuration file, then
"dittodir start" to serve it.
`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(initCmd, startCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
