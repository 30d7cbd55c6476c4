package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var modelsJSON bool

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List configured models",
	Long: `List the models a chat can select. Models come from the models
section of the config; chatgpt and wormgpt are built in.

Examples:
  alicia models
  alicia models --json`,
	Args: cobra.NoArgs,
	RunE: runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.Flags().BoolVar(&modelsJSON, "json", false, "Output as JSON")
}

type modelInfo struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Target  string `json:"target,omitempty"`
	Default bool   `json:"default,omitempty"`
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var models []modelInfo
	for _, name := range cfg.ModelNames() {
		mc := cfg.Models[name]
		target := mc.Model
		if mc.Kind == "endpoint" {
			target = mc.URL
		}
		models = append(models, modelInfo{
			Name:    name,
			Kind:    mc.Kind,
			Target:  target,
			Default: name == cfg.DefaultModel,
		})
	}

	if modelsJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(models)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	for _, m := range models {
		marker := " "
		if m.Default {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %s\t%s\t%s\n", marker, m.Name, m.Kind, m.Target)
	}
	return w.Flush()
}
