package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// settings holds flags, environment and the optional config file
	settings   = viper.New()
	configFile string
)

// rootCmd represents the base command for the mailresponder application
var rootCmd = &cobra.Command{
	Use:   "mailresponder",
	Short: "Classifies emails and drafts replies that learn from your feedback",
	Long: `mailresponder reads your unread email, classifies each message as URGENT,
WORK, PERSONAL or SPAM and drafts a reply with a local language model.

Feedback you give on a draft is stored in a feedback memory. Similar
feedback is included in the prompt of future drafts, so the replies
adapt to your style over time.

It can run as:
  - A standalone CLI tool (default)
  - An MCP (Model Context Protocol) server for AI assistants`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "mailresponder version %s\n" .Version}}`)

	// If no subcommand is provided, run the process command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "process")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Path to a YAML config file. Can also use MAILRESPONDER_CONFIG env var.")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.String("log-format", "text", "Log format: text, json")
	flags.String("memory-backend", "sqlite", "Feedback memory backend: sqlite, redis, postgres, memory")
	flags.String("ollama-host", "", "Ollama server URL (default: OLLAMA_HOST or http://localhost:11434)")

	_ = settings.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = settings.BindPFlag("log.format", flags.Lookup("log-format"))
	_ = settings.BindPFlag("memory.backend", flags.Lookup("memory-backend"))
	_ = settings.BindPFlag("llm.host", flags.Lookup("ollama-host"))

	rootCmd.AddCommand(newProcessCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMemoryCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}

// resolveConfigFile returns the --config flag or MAILRESPONDER_CONFIG.
func resolveConfigFile() string {
	if configFile != "" {
		return configFile
	}
	return os.Getenv("MAILRESPONDER_CONFIG")
}

// bindFlags binds command-local flags to config keys. Commands bind at run
// time because several of them share a key.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for key, name := range keys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			return fmt.Errorf("unknown flag %q", name)
		}
		if err := settings.BindPFlag(key, flag); err != nil {
			return err
		}
	}
	return nil
}
