package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tradegate/internal/trading"
)

// addAnalyzeCommands adds the pipeline run commands.
func addAnalyzeCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newAnalyzeCmd(app))
	rootCmd.AddCommand(newSignalsCmd(app))
}

func newAnalyzeCmd(app *App) *cobra.Command {
	var accountID, venue, contextFile string

	cmd := &cobra.Command{
		Use:   "analyze <symbol>",
		Short: "Run the signal pipeline for a symbol",
		Long: `Analyze runs a full pipeline pass: generates a signal from market
context, validates it with the independent model, enforces the account's
venue constraints, and submits the resulting order if one is authorized.

Market context is read from --context-file, or from stdin when the flag
is omitted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Pipeline == nil {
				output.Error("Pipeline not configured: check credentials and run 'tradegate init'")
				return fmt.Errorf("pipeline unavailable")
			}

			marketContext, err := readMarketContext(contextFile)
			if err != nil {
				return err
			}

			result, err := app.Pipeline.Process(cmd.Context(), trading.Request{
				AccountID:     accountID,
				Venue:         venue,
				Symbol:        args[0],
				MarketContext: marketContext,
			})
			if result != nil && output.IsJSON() {
				return output.JSON(result)
			}
			if err != nil {
				output.Error("Pipeline failed: %v", err)
				if result != nil && result.Reason != "" {
					output.Dim("Reason: %s", result.Reason)
				}
				return err
			}

			printResult(output, result)
			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "default", "account identifier")
	cmd.Flags().StringVar(&venue, "venue", "binance", "trading venue")
	cmd.Flags().StringVar(&contextFile, "context-file", "", "file with market context (default: stdin)")
	return cmd
}

func newSignalsCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "signals",
		Short: "List recently generated signals",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				output.Error("Store unavailable")
				return fmt.Errorf("store unavailable")
			}

			signals, err := app.Store.RecentSignals(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(signals)
			}
			if len(signals) == 0 {
				output.Dim("No signals recorded.")
				return nil
			}
			for _, s := range signals {
				output.Printf("%-28s %-10s %-6s %-8s %5.1fx  %s\n",
					s.ID, s.Symbol, s.Side, s.TradingType, s.Leverage,
					s.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of signals to show")
	return cmd
}

func printResult(output *Output, result *trading.Result) {
	s := result.Signal
	if s != nil {
		output.Bold("Signal %s", s.ID)
		output.Printf("  %s %s %s at %gx (confidence %.2f)\n",
			strings.ToUpper(string(s.Side)), s.Symbol, s.TradingType, s.Leverage, s.Confidence)
		if s.Rationale != "" {
			output.Dim("  %s", s.Rationale)
		}
	}
	if v := result.Verdict; v != nil {
		output.Printf("  Validation: %s", v.Status)
		if len(v.RiskFlags) > 0 {
			flags := make([]string, 0, len(v.RiskFlags))
			for _, f := range v.RiskFlags {
				flags = append(flags, string(f))
			}
			output.Printf(" [%s]", strings.Join(flags, ", "))
		}
		output.Println()
	}
	if d := result.Decision; d != nil {
		output.Printf("  Enforcement: %s", d.Action)
		if d.CorrectedTradingType != "" {
			output.Printf(" (type corrected to %s)", d.CorrectedTradingType)
		}
		if d.CorrectedLeverage > 0 {
			output.Printf(" (leverage clamped to %gx)", d.CorrectedLeverage)
		}
		output.Println()
	}

	switch result.Outcome {
	case trading.OutcomeExecuted, trading.OutcomeCorrected:
		output.Success("Order %s submitted (%s)", result.Order.ClientOrderID, result.Order.Status)
	case trading.OutcomeRejected:
		output.Warn("Signal rejected: %s", result.Reason)
	default:
		output.Error("Pipeline run failed: %s", result.Reason)
	}
}

func readMarketContext(path string) (string, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading context file: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading market context from stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
