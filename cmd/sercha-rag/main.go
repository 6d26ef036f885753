// Package main is the sercha-rag server binary.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// configPath is the optional YAML config file
	configPath string
	// version is set at build time with -ldflags "-X main.version=..."
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sercha-rag",
	Short: "Retrieval-augmented chat backend",
	Long: `sercha-rag serves a JSON API for users to manage collections of documents
and ask questions answered from those documents by a language model.

Configuration comes from built-in defaults, an optional YAML file and
environment variables (AUTH_JWT_SECRET, DATABASE_URL, PINECONE_API_KEY, ...).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)
}
