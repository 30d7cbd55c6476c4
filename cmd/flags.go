package cmd

import (
	"github.com/spf13/cobra"
)

// AddModelFlag adds the --model/-m flag with completion from the config
func AddModelFlag(cmd *cobra.Command, dest *string) {
	cmd.Flags().StringVarP(dest, "model", "m", "", "Model to ask (default from config)")
	if err := cmd.RegisterFlagCompletionFunc("model", modelFlagCompletion); err != nil {
		panic("failed to register model completion: " + err.Error())
	}
}

// AddConversationFlag adds the --conversation/-c flag
func AddConversationFlag(cmd *cobra.Command, dest *string) {
	cmd.Flags().StringVarP(dest, "conversation", "c", "", "Conversation ID")
}

// AddEngineFlags adds the markdown engine and highlighting flags
func AddEngineFlags(cmd *cobra.Command, engine *string, highlight *bool) {
	cmd.Flags().StringVar(engine, "engine", "", "Markdown engine: basic or commonmark (default from config)")
	cmd.Flags().BoolVar(highlight, "highlight", false, "Highlight code blocks")
	if err := cmd.RegisterFlagCompletionFunc("engine", cobra.FixedCompletions(
		[]string{"basic", "commonmark"}, cobra.ShellCompDirectiveNoFileComp)); err != nil {
		panic("failed to register engine completion: " + err.Error())
	}
}

func modelFlagCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return cfg.ModelNames(), cobra.ShellCompDirectiveNoFileComp
}
