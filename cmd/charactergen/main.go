// Command charactergen is a terminal client for the character generator
// server. It generates and saves images, and composes prompts locally.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/keithlinneman/charactergen/internal/cfg"
)

const (
	serverEnv     = cfg.EnvPrefix + "SERVER_URL"
	defaultServer = "http://localhost:3000"
)

type rootOptions struct {
	server string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "charactergen",
		Short: "Generate fictional character images from the command line",
		Long: `charactergen talks to a running character generator server.

It retries rate-limited and transient failures the same way the web UI does,
saves generated images as PNG files, and composes prompts from the option
catalog without a server round trip.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	server := os.Getenv(serverEnv)
	if server == "" {
		server = defaultServer
	}
	root.PersistentFlags().StringVarP(&opts.server, "server", "s", server, "server base URL (env "+serverEnv+")")

	root.AddCommand(
		newGenerateCmd(opts),
		newPromptCmd(),
		newOptionsCmd(),
		newVersionCmd(),
	)
	return root
}

func main() {
	// a missing .env is fine; CHARGEN_SERVER_URL may live there
	_ = cfg.LoadDotenv(".env")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
