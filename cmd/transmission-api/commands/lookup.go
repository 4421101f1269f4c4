package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"transmission-api/internal/lookup"
	"transmission-api/internal/query"
)

var lookupJSON bool

var lookupCmd = &cobra.Command{
	Use:   "lookup <query>",
	Short: "Answer a single vehicle query and exit",
	Example: `  transmission-api lookup "Honda Accord 2000"
  transmission-api lookup --json golf 6 cambios 2015`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLookup,
}

func init() {
	lookupCmd.Flags().BoolVar(&lookupJSON, "json", false, "print the full result as JSON")
	rootCmd.AddCommand(lookupCmd)
}

func runLookup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	a, err := buildApp(cmd.Context(), cfg, log, false)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.service.Lookup(cmd.Context(), strings.Join(args, " "))
	if werr := printResult(cmd.OutOrStdout(), res, lookupJSON); werr != nil {
		return werr
	}
	if errors.Is(err, query.ErrInvalidQuery) {
		return fmt.Errorf("invalid query")
	}
	return err
}

func printResult(w io.Writer, res *lookup.Result, asJSON bool) error {
	if res == nil {
		return nil
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	_, err := fmt.Fprintln(w, toPlainText(res.Reply))
	return err
}

var plainText = strings.NewReplacer("<br>", "\n", "<b>", "", "</b>", "")

func toPlainText(reply string) string {
	return plainText.Replace(reply)
}
