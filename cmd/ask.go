package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/samsaffron/alicia/internal/history"
	"github.com/samsaffron/alicia/internal/signal"
	"github.com/samsaffron/alicia/internal/ui"
	"github.com/spf13/cobra"
)

var (
	askModel        string
	askConversation string
	askRaw          bool
	askImage        bool
)

var askCmd = &cobra.Command{
	Use:   "ask <message>",
	Short: "Ask a model from the terminal",
	Long: `Send one message and print the reply. The exchange is stored like a
web chat turn; pass --conversation to continue an earlier one.

Examples:
  alicia ask "what is a goroutine?"
  alicia ask -m wormgpt "halo"
  alicia ask -c 0b6f... "and channels?"
  alicia ask --image "a red bicycle"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	AddModelFlag(askCmd, &askModel)
	AddConversationFlag(askCmd, &askConversation)
	askCmd.Flags().BoolVar(&askRaw, "raw", false, "Print the reply as markdown")
	askCmd.Flags().BoolVar(&askImage, "image", false, "Generate an image from the message")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context())
	defer stop()

	conversation := askConversation
	if conversation == "" {
		conversation = history.NewID()
	}
	text := strings.Join(args, " ")

	if askImage {
		turn, err := a.service.GenerateImage(ctx, conversation, text)
		if err != nil {
			return err
		}
		if turn.Reply.Image == "" {
			return errors.New(turn.Reply.Raw)
		}
		fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(a.imageDir, filepath.Base(turn.Reply.Image)))
		fmt.Fprintf(cmd.ErrOrStderr(), "conversation: %s\n", conversation)
		return nil
	}

	turn, err := a.service.Send(ctx, conversation, text, askModel)
	if err != nil {
		return err
	}

	tr := ui.NewTranscript(cmd.OutOrStdout(), ui.TerminalWidth(stdoutFile(cmd)))
	tr.Raw = askRaw
	tr.Print(turn.Reply)
	fmt.Fprintf(cmd.ErrOrStderr(), "conversation: %s\n", conversation)
	return nil
}
