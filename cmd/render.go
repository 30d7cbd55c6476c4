package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/samsaffron/alicia/internal/markup"
	"github.com/spf13/cobra"
)

var (
	renderPlain     bool
	renderCollapse  bool
	renderEngine    string
	renderHighlight bool
	renderCSS       bool
)

var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Render markdown to a safe HTML fragment",
	Long: `Render markdown the way chat replies are rendered. Reads the file
argument, or stdin when none is given.

Examples:
  alicia render reply.md
  echo '**hi**' | alicia render
  alicia render --collapse long.md         # include the show more wrapper
  alicia render --plain reply.md           # text for speech
  alicia render --engine commonmark --highlight reply.md
  alicia render --css > highlight.css      # stylesheet for highlighted code`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().BoolVar(&renderPlain, "plain", false, "Print the plain-text reading instead of HTML")
	renderCmd.Flags().BoolVar(&renderCollapse, "collapse", false, "Wrap long output in the collapsible disclosure")
	renderCmd.Flags().BoolVar(&renderCSS, "css", false, "Print the highlight stylesheet and exit")
	AddEngineFlags(renderCmd, &renderEngine, &renderHighlight)
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if renderCSS {
		return markup.WriteHighlightCSS(out, cfg.Render.HighlightStyle)
	}

	input, err := readRenderInput(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	if renderPlain {
		_, err = fmt.Fprintln(out, markup.PlainText(input))
		return err
	}

	rc := cfg.Render
	if renderEngine != "" {
		rc.Engine = renderEngine
	}
	if cmd.Flags().Changed("highlight") {
		rc.Highlight = renderHighlight
	}
	renderer, err := newRenderer(rc)
	if err != nil {
		return err
	}

	html := renderer.Render(input)
	if renderCollapse {
		html = renderer.Message(input).Markup()
	}
	_, err = fmt.Fprintln(out, html)
	return err
}

func readRenderInput(stdin io.Reader, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read %s: %w", args[0], err)
	}
	return string(data), nil
}
