package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ManuelReschke/SubGate/app/models"
	"github.com/ManuelReschke/SubGate/app/repository"
	"github.com/ManuelReschke/SubGate/internal/pkg/billing"
	"github.com/ManuelReschke/SubGate/internal/pkg/middleware"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [external-id]",
		Short: "Show the access decision and stored record for a subscriber",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := loadEngine(needDatabase | needOverrides)
			if err != nil {
				return err
			}
			report, err := subscriberStatus(cmd.Context(), engine, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
}

// subscriberStatus pairs the access decision with the stored record. Users
// allowed only through an override have no record.
func subscriberStatus(ctx context.Context, engine *billing.Engine, externalID string) (map[string]interface{}, error) {
	decision, err := engine.Gate.Check(ctx, externalID)
	if err != nil {
		return nil, err
	}
	sub, err := engine.Subscribers.GetByExternalID(ctx, externalID)
	if err != nil && !errors.Is(err, repository.ErrSubscriberNotFound) {
		return nil, err
	}
	return map[string]interface{}{
		"decision":   decision,
		"subscriber": sub,
	}, nil
}

func deactivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate [external-id]",
		Short: "Deactivate a subscriber manually",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := loadEngine(needDatabase)
			if err != nil {
				return err
			}
			t, err := engine.Reconciler.ManualDeactivate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), t)
		},
	}
}

func overrideCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "override",
		Short: "Manage the access override set",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add [external-id...]",
		Short: "Grant access regardless of subscription status",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := loadEngine(needOverrides)
			if err != nil {
				return err
			}
			for _, id := range args {
				added, err := engine.Overrides.Add(cmd.Context(), strings.TrimSpace(id))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s added=%v\n", id, added)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove [external-id...]",
		Short: "Remove ids from the override set",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := loadEngine(needOverrides)
			if err != nil {
				return err
			}
			for _, id := range args {
				if err := engine.Overrides.Remove(cmd.Context(), strings.TrimSpace(id)); err != nil {
					return err
				}
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the override set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := loadEngine(needOverrides)
			if err != nil {
				return err
			}
			ids, err := engine.Overrides.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Empty the override set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := loadEngine(needOverrides)
			if err != nil {
				return err
			}
			return engine.Overrides.Clear(cmd.Context())
		},
	})

	return cmd
}

func subscribersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subscribers",
		Short: "List stored subscribers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, _ := cmd.Flags().GetString("status")
			limit, _ := cmd.Flags().GetInt("limit")
			offset, _ := cmd.Flags().GetInt("offset")

			st := models.SubscriptionStatus(status)
			if st != "" && st != models.SubscriptionActive && st != models.SubscriptionInactive {
				return fmt.Errorf("invalid status %q", status)
			}

			engine, err := loadEngine(needDatabase)
			if err != nil {
				return err
			}
			subs, err := engine.Subscribers.List(cmd.Context(), st, offset, limit)
			if err != nil {
				return err
			}
			total, err := engine.Subscribers.Count(cmd.Context(), st)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{
				"subscribers": subs,
				"total":       total,
			})
		},
	}

	cmd.Flags().StringP("status", "s", "", "Filter by status (active, inactive)")
	cmd.Flags().IntP("limit", "l", 50, "Page size")
	cmd.Flags().Int("offset", 0, "Page offset")

	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show subscriber statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := loadEngine(needDatabase)
			if err != nil {
				return err
			}
			data, err := engine.Statistics.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
}

func hashKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-key [raw-key]",
		Short: "Print a bcrypt hash usable as SERVICE_API_KEY or ADMIN_API_KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := middleware.HashAPIKey(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
