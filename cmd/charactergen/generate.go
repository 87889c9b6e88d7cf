package main

import (
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/keithlinneman/charactergen/internal/genclient"
	"github.com/keithlinneman/charactergen/internal/prompt"
)

type generateOptions struct {
	outDir   string
	random   bool
	attempts int
	delay    time.Duration
}

func newGenerateCmd(root *rootOptions) *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate [prompt...]",
		Short: "Generate an image and save it as a PNG",
		Long: `Send a prompt to the server and save the resulting image to the output
directory as character-<unix ms>.png. The prompt is read from the arguments,
or from stdin when the only argument is "-". With --random a prompt is
composed from a random pick of every option.`,
		Example: `  charactergen generate "a wandering bard with a lute, watercolor"
  echo "an elven archer" | charactergen generate -
  charactergen generate --random -o ./out`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := promptText(cmd.InOrStdin(), args, opts.random)
			if err != nil {
				return err
			}

			errOut := cmd.ErrOrStderr()
			client := genclient.New(root.server,
				genclient.WithRetry(opts.attempts, opts.delay),
				genclient.WithOnRetry(func(attempt int, delay time.Duration, err error) {
					fmt.Fprintf(errOut, "attempt %d failed: %v (retrying in %s)\n", attempt, err, delay)
				}),
			)

			fmt.Fprintln(errOut, "generating...")
			url, err := client.Generate(cmd.Context(), text)
			if err != nil {
				return err
			}

			path, err := genclient.SaveImage(opts.outDir, url, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.outDir, "out", "o", ".", "directory to save the image in")
	f.BoolVarP(&opts.random, "random", "r", false, "compose a random character prompt")
	f.IntVar(&opts.attempts, "attempts", genclient.DefaultMaxAttempts, "maximum attempts including the first")
	f.DurationVar(&opts.delay, "retry-delay", genclient.DefaultInitialDelay, "delay before the first retry, doubled each time")
	return cmd
}

func promptText(stdin io.Reader, args []string, random bool) (string, error) {
	if random {
		if len(args) > 0 {
			return "", fmt.Errorf("--random does not take a prompt")
		}
		return prompt.Compose(prompt.Randomize(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))), nil
	}
	if len(args) == 1 && args[0] == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read prompt from stdin: %w", err)
		}
		return string(b), nil
	}
	// an empty prompt is rejected by genclient before any request
	return strings.Join(args, " "), nil
}
