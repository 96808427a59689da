package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tradegate/internal/models"
)

// addProfileCommands adds constraint profile management commands.
func addProfileCommands(rootCmd *cobra.Command, app *App) {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage per-account venue constraint profiles",
		Long: `Constraint profiles define which trading types and leverage levels an
account permits on a venue. Signals for an account with no profile on a
venue are rejected.`,
	}

	profileCmd.AddCommand(newProfileSetCmd(app))
	profileCmd.AddCommand(newProfileGetCmd(app))
	profileCmd.AddCommand(newProfileListCmd(app))
	profileCmd.AddCommand(newProfileDeleteCmd(app))
	rootCmd.AddCommand(profileCmd)
}

func newProfileSetCmd(app *App) *cobra.Command {
	var accountID string
	var types []string
	var maxLeverage float64

	cmd := &cobra.Command{
		Use:   "set <venue>",
		Short: "Create or replace a constraint profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("store unavailable")
			}

			allowed := make([]models.TradingType, 0, len(types))
			for _, t := range types {
				parsed, err := models.ParseTradingType(t)
				if err != nil {
					return err
				}
				allowed = append(allowed, parsed)
			}

			profile, err := models.NewConstraintProfile(accountID, args[0], allowed, maxLeverage)
			if err != nil {
				return err
			}
			if err := app.Profiles.PutProfile(cmd.Context(), profile); err != nil {
				return err
			}

			output.Success("Profile saved: %s on %s allows [%s] up to %gx",
				profile.AccountID, profile.Venue, joinTypes(profile.AllowedTypes), profile.MaxLeverage)
			if profile.SpotOnly() && maxLeverage > 1 {
				output.Dim("Spot-only profiles are fixed at 1x leverage.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "default", "account identifier")
	cmd.Flags().StringSliceVar(&types, "types", []string{"spot"}, "allowed trading types (spot, margin, futures)")
	cmd.Flags().Float64Var(&maxLeverage, "max-leverage", 1, "maximum permitted leverage")
	return cmd
}

func newProfileGetCmd(app *App) *cobra.Command {
	var accountID string

	cmd := &cobra.Command{
		Use:   "get <venue>",
		Short: "Show the effective constraint profile for a venue",
		Long: `Shows the profile as the enforcer sees it, with venue hard limits
already applied on top of the stored configuration.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Profiles == nil {
				return fmt.Errorf("store unavailable")
			}

			profile, err := app.Profiles.GetProfile(cmd.Context(), accountID, args[0])
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(profile)
			}
			output.Bold("%s on %s", profile.AccountID, profile.Venue)
			output.Printf("  Allowed types: %s\n", joinTypes(profile.AllowedTypes))
			output.Printf("  Max leverage:  %gx\n", profile.MaxLeverage)
			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "default", "account identifier")
	return cmd
}

func newProfileListCmd(app *App) *cobra.Command {
	var accountID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored constraint profiles for an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("store unavailable")
			}

			profiles, err := app.Store.ListProfiles(cmd.Context(), accountID)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(profiles)
			}
			if len(profiles) == 0 {
				output.Dim("No profiles stored for account %s.", accountID)
				return nil
			}
			for _, p := range profiles {
				output.Printf("%-12s [%s] up to %gx\n", p.Venue, joinTypes(p.AllowedTypes), p.MaxLeverage)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "default", "account identifier")
	return cmd
}

func newProfileDeleteCmd(app *App) *cobra.Command {
	var accountID string

	cmd := &cobra.Command{
		Use:   "delete <venue>",
		Short: "Delete a constraint profile",
		Long:  "After deletion, signals for this account and venue are rejected.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("store unavailable")
			}
			if err := app.Store.DeleteProfile(cmd.Context(), accountID, args[0]); err != nil {
				return err
			}
			output.Success("Profile deleted. Signals for %s on %s will now be rejected.", accountID, args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "default", "account identifier")
	return cmd
}

func joinTypes(types []models.TradingType) string {
	parts := make([]string, 0, len(types))
	for _, t := range types {
		parts = append(parts, string(t))
	}
	return strings.Join(parts, ", ")
}
