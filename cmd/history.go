package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/samsaffron/alicia/internal/ui"
	"github.com/spf13/cobra"
)

var (
	historyConversation string
	historyLimit        int
	historyRaw          bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show stored conversations",
	Long: `Without --conversation, list recent conversations. With it, print
that conversation's messages.

Examples:
  alicia history
  alicia history -c 0b6f... --limit 10
  alicia history clear -c 0b6f...`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete a conversation and its generated images",
	Args:  cobra.NoArgs,
	RunE:  runHistoryClear,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.PersistentFlags().StringVarP(&historyConversation, "conversation", "c", "", "Conversation ID")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "Show only the most recent messages (0 = all)")
	historyCmd.Flags().BoolVar(&historyRaw, "raw", false, "Print replies as markdown")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	tr := ui.NewTranscript(cmd.OutOrStdout(), ui.TerminalWidth(stdoutFile(cmd)))
	tr.Raw = historyRaw

	if historyConversation == "" {
		convs, err := a.service.Conversations(ctx, historyLimit)
		if err != nil {
			return err
		}
		if len(convs) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "No conversations yet.")
			return nil
		}
		tr.PrintConversations(convs)
		return nil
	}

	views, err := a.service.History(ctx, historyConversation, historyLimit)
	if err != nil {
		return err
	}
	if len(views) == 0 {
		return fmt.Errorf("conversation %s has no messages", historyConversation)
	}
	tr.PrintAll(views)
	return nil
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	if historyConversation == "" {
		return errors.New("--conversation is required")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.service.Clear(cmd.Context(), historyConversation); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Cleared conversation %s\n", historyConversation)
	return nil
}

// stdoutFile returns the command's output as a file when it is one, for
// terminal width detection.
func stdoutFile(cmd *cobra.Command) *os.File {
	if f, ok := cmd.OutOrStdout().(*os.File); ok {
		return f
	}
	return os.Stdout
}
