package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"transmission-api/internal/llm"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List completion models that support text generation",
	RunE:  runModels,
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Time one tiny completion against the configured model",
	RunE:  runProbe,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(probeCmd)
}

func runModels(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := llm.New(cmd.Context(), cfg.LLM, newLogger(cfg))
	if err != nil {
		return err
	}

	models, err := client.ListModels(cmd.Context())
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDISPLAY NAME")
	for _, m := range models {
		fmt.Fprintf(tw, "%s\t%s\n", m.Name, m.DisplayName)
	}
	return tw.Flush()
}

func runProbe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := llm.New(cmd.Context(), cfg.LLM, newLogger(cfg))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	res, err := llm.Probe(cmd.Context(), client, client.Model())
	if err != nil {
		fmt.Fprintf(out, "FALLIDO  model=%s\n", client.Model())
		return err
	}
	fmt.Fprintf(out, "EXITOSO  model=%s  %.2fs  %q\n", res.Model, res.Seconds, res.Text)
	return nil
}
