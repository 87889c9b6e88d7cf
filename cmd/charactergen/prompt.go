package main

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"unicode"

	"github.com/spf13/cobra"

	"github.com/keithlinneman/charactergen/internal/prompt"
)

// flagName turns a field like hairColor into hair-color
func flagName(field string) string {
	var b strings.Builder
	for _, r := range field {
		if unicode.IsUpper(r) {
			b.WriteByte('-')
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

func newPromptCmd() *cobra.Command {
	var (
		random bool
		seed   uint64
	)
	values := make(map[string]*string, len(prompt.Fields))

	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Compose a character prompt from the option catalog",
		Long: `Fill the prompt template from option flags. Unset flags keep their
defaults. Values must come from the catalog; see "charactergen options".`,
		Example: `  charactergen prompt --gender male --hair-color silver --age elderly
  charactergen prompt --random --seed 42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o := prompt.Defaults()
			if random {
				if seed == 0 {
					seed = rand.Uint64()
				}
				o = prompt.Randomize(rand.New(rand.NewPCG(seed, seed)))
			}
			for _, field := range prompt.Fields {
				if cmd.Flags().Changed(flagName(field)) {
					o.Set(field, *values[field])
				}
			}
			if err := prompt.Validate(o); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), prompt.Compose(o))
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&random, "random", "r", false, "start from a random character instead of the defaults")
	f.Uint64Var(&seed, "seed", 0, "seed for --random (0 picks one)")
	defaults := prompt.Defaults()
	for _, field := range prompt.Fields {
		def, _ := defaults.Get(field)
		values[field] = f.String(flagName(field), def, field+" option")
	}
	return cmd
}

func newOptionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "options [field...]",
		Short: "List the option catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := prompt.Fields
			if len(args) > 0 {
				fields = args
			}
			out := cmd.OutOrStdout()
			for _, field := range fields {
				vs := prompt.Values(field)
				if vs == nil {
					return fmt.Errorf("unknown field %q", field)
				}
				fmt.Fprintf(out, "%s (--%s):\n", field, flagName(field))
				for _, v := range vs {
					fmt.Fprintf(out, "  %s\n", v)
				}
			}
			return nil
		},
	}
}
