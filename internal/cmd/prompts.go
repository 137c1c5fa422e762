package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pippora/pippora/internal/ailink"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Inspect generation prompts",
}

var promptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List loaded prompts and their models",
	Long: `List the prompts used for analysis, painting and blog writing.

Built-in prompts are used unless openai.prompts_dir points at a directory of
replacements; openai.models overrides the model per prompt slug.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		link, err := ailink.New(cfg.OpenAI)
		if err != nil {
			return err
		}

		prompts := link.Prompts()
		if len(prompts) == 0 {
			fmt.Println("No prompts found.")
			return nil
		}

		writer := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(writer, "SLUG\tVERSION\tMODEL\tDESCRIPTION") // nolint:errcheck // tabwriter buffers; errors surface at Flush
		for _, p := range prompts {
			_, _ = fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n", p.Slug, p.Version, p.Model, p.Description) // nolint:errcheck // tabwriter buffers
		}
		return writer.Flush()
	},
}

func init() {
	rootCmd.AddCommand(promptsCmd)
	promptsCmd.AddCommand(promptsListCmd)
}
