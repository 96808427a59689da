package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"tradegate/internal/models"
)

// addAuditCommands adds audit trail inspection commands.
func addAuditCommands(rootCmd *cobra.Command, app *App) {
	auditCmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the append-only audit trail",
	}
	auditCmd.AddCommand(newAuditTailCmd(app))
	rootCmd.AddCommand(auditCmd)
}

func newAuditTailCmd(app *App) *cobra.Command {
	var limit int
	var signalID string

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show recent audit entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			path := filepath.Join(app.Config.Audit.LogDir, "audit.log")
			entries, err := readAuditEntries(path, signalID, limit)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(entries)
			}
			if len(entries) == 0 {
				output.Dim("No audit entries.")
				return nil
			}
			for _, e := range entries {
				output.Printf("%s %-12s %-28s %-10s %s\n",
					e.Timestamp.Format("2006-01-02T15:04:05.000000Z07:00"),
					e.Stage, e.SignalID, e.Outcome, e.Detail)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of entries to show")
	cmd.Flags().StringVar(&signalID, "signal", "", "only entries for this signal ID")
	return cmd
}

// readAuditEntries scans the JSONL audit file and returns the last matching
// entries in file order. Unparseable lines are skipped rather than failing
// the read; the file may be mid-write.
func readAuditEntries(path, signalID string, limit int) ([]models.AuditEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	var entries []models.AuditEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var e models.AuditEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		if signalID != "" && e.SignalID != signalID {
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading audit log: %w", err)
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}
