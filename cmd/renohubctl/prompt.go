package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"renohub/internal/app"
	"renohub/internal/prompt"
)

type promptFlags struct {
	kind string
	data string
}

func (f *promptFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.kind, "type", "t", string(prompt.KindSummary), "prompt type: summary or suggestion")
	cmd.Flags().StringVarP(&f.data, "data", "d", "", "JSON file with the prompt data, - for stdin (summary defaults to a live snapshot)")
}

// request resolves the flags into a prompt request. A summary without
// --data aggregates a fresh snapshot through a.
func (f *promptFlags) request(ctx context.Context, a *app.App, stdin io.Reader) (prompt.Request, error) {
	kind, err := prompt.ParseKind(f.kind)
	if err != nil {
		return prompt.Request{}, err
	}

	switch f.data {
	case "":
		if kind != prompt.KindSummary {
			return prompt.Request{}, fmt.Errorf("--data is required for %s prompts", kind)
		}
		if a == nil {
			return prompt.Request{}, fmt.Errorf("--data is required")
		}
		snap, err := a.Service.Snapshot(ctx)
		if err != nil {
			return prompt.Request{}, err
		}
		raw, err := json.Marshal(prompt.FromSnapshot(snap))
		if err != nil {
			return prompt.Request{}, err
		}
		return prompt.Request{Type: kind, Data: raw}, nil
	case "-":
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return prompt.Request{}, fmt.Errorf("read stdin: %w", err)
		}
		return prompt.Request{Type: kind, Data: raw}, nil
	default:
		raw, err := os.ReadFile(f.data)
		if err != nil {
			return prompt.Request{}, fmt.Errorf("read data file: %w", err)
		}
		return prompt.Request{Type: kind, Data: raw}, nil
	}
}

func promptCMD() *cobra.Command {
	var flags promptFlags

	var cmd = &cobra.Command{
		Use:   "prompt",
		Short: "Render a text-generation prompt without sending it",
		Long: "Render a text-generation prompt without sending it.\n" +
			"A snapshot file written by `renohubctl snapshot` is valid summary data.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var a *app.App
			if flags.data == "" {
				var err error
				if a, _, err = openApp(cmd.Context()); err != nil {
					return err
				}
				defer a.Close()
			}

			req, err := flags.request(cmd.Context(), a, cmd.InOrStdin())
			if err != nil {
				return err
			}
			text, err := prompt.Build(req.Type, req.Data)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}
	flags.register(cmd)

	return cmd
}

func summarizeCMD() *cobra.Command {
	var flags promptFlags

	var cmd = &cobra.Command{
		Use:   "summarize",
		Short: "Render a prompt and print the generated text",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			req, err := flags.request(cmd.Context(), a, cmd.InOrStdin())
			if err != nil {
				return err
			}
			text, err := a.Service.Summarize(cmd.Context(), req)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}
	flags.register(cmd)

	return cmd
}
