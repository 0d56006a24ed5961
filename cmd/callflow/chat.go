package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/aretw0/callflow"
	"github.com/aretw0/callflow/internal/presentation/tui"
	"github.com/aretw0/callflow/pkg/adapters/openai"
	"github.com/aretw0/callflow/pkg/observability"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the assistant in the terminal",
	Long: `Runs one conversation against an OpenAI chat model, with your typed lines standing in
for the caller's speech. Type 'exit' to leave.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.OpenAI.APIKey == "" {
			return errors.New("OPENAI_API_KEY is required for chat")
		}
		trace, _ := cmd.Flags().GetBool("trace")
		if model, _ := cmd.Flags().GetString("model"); cmd.Flags().Changed("model") {
			cfg.OpenAI.Model = model
		}

		ctx := cmd.Context()
		eng, err := newEngine(ctx, callflow.WithLifecycleHooks(observability.LogHooks(logger)))
		if err != nil {
			return err
		}
		conv, _, err := eng.Sessions().Start(ctx)
		if err != nil {
			return err
		}

		driver := openai.NewDriver(
			openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL),
			conv.Dispatcher,
			conv.Transcript,
			openai.WithModel(cfg.OpenAI.Model),
			openai.WithLogger(logger),
		)

		out := cmd.OutOrStdout()
		tui.PrintBanner(out)
		runner := &callflow.Runner{
			Input:     cmd.InOrStdin(),
			Output:    out,
			Logger:    logger,
			Renderer:  tui.NewRenderer(),
			ShowTrace: trace,
		}
		return runner.Run(ctx, driver)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().Bool("trace", false, "Show the actions invoked on each turn")
	chatCmd.Flags().String("model", "", "Chat model (overrides OPENAI_MODEL)")
}
