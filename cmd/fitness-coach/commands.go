package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"ai-fitness-coach/internal/httpapi"

	"github.com/spf13/cobra"
)

func newIngestCmd(e *env) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Sync the workout catalog from Ghost",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !e.cfg.GhostEnabled() {
				return errors.New("GHOST_API_URL and GHOST_CONTENT_API_KEY must be set to ingest")
			}
			svc, err := e.services(cmd.Context())
			if err != nil {
				return err
			}
			report, err := svc.App.IngestWorkouts(cmd.Context(), force)
			if err != nil {
				return fmt.Errorf("ingestion failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fetched %d, saved %d, skipped %d, failed %d, removed %d.\n",
				report.Fetched, report.Saved, report.Skipped, report.Failed, report.Removed)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "re-extract posts that have not changed")
	return cmd
}

func newPlanCmd(e *env) *cobra.Command {
	var userID, goal string
	var force bool
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Generate (or show) the weekly plan for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := e.services(cmd.Context())
			if err != nil {
				return err
			}
			plan, err := svc.App.GeneratePlanForUser(cmd.Context(), userID, goal, force)
			if plan == nil {
				return err
			}
			if err != nil {
				e.log.Warn("plan was generated but not stored", "error", err)
			}
			return printJSON(cmd.OutOrStdout(), plan)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "cli", "user ID")
	cmd.Flags().StringVar(&goal, "goal", "", "training goal, e.g. \"build endurance\"")
	cmd.Flags().BoolVar(&force, "force", false, "always generate a new plan")
	return cmd
}

func newChatCmd(e *env) *cobra.Command {
	var userID string
	var day int
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Send a message about one day of the current plan",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := e.services(cmd.Context())
			if err != nil {
				return err
			}
			reply, err := svc.App.Chat(cmd.Context(), userID, day, strings.Join(args, " "))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "[%s] %s\n", reply.Result.Intent, reply.Result.ResponseText)
			if reply.Updated {
				if pd, ok := reply.Plan.Day(day); ok {
					fmt.Fprintf(out, "Day %d (%s): %s\n", pd.Day, pd.DayName, pd.Activity)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "cli", "user ID")
	cmd.Flags().IntVar(&day, "day", 1, "day number, 1 = Monday")
	return cmd
}

func newHistoryCmd(e *env) *cobra.Command {
	var userID string
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the most recent plan versions for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := e.services(cmd.Context())
			if err != nil {
				return err
			}
			plans, err := svc.History.ListRecent(cmd.Context(), userID, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(plans) == 0 {
				fmt.Fprintln(out, "No plans yet.")
			}
			for _, sp := range plans {
				fmt.Fprintf(out, "%s  %-9s  %s (%s)\n",
					sp.CreatedAt.Local().Format("2006-01-02 15:04"), sp.Plan.Status, sp.Plan.Goal, sp.Plan.WeeklyFocus)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "cli", "user ID")
	cmd.Flags().IntVar(&limit, "limit", 5, "number of versions to show")
	return cmd
}

func newClipCmd(e *env) *cobra.Command {
	var index bool
	cmd := &cobra.Command{
		Use:   "clip <url>",
		Short: "Import a workout page into Ghost",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := e.services(cmd.Context())
			if err != nil {
				return err
			}
			res, err := svc.App.ClipURL(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %q as post %s\n", res.Item.Name(), res.Post.ID)
			if !index {
				return nil
			}
			return svc.App.IndexClip(cmd.Context(), res)
		},
	}
	cmd.Flags().BoolVar(&index, "index", true, "make the workout searchable right away")
	return cmd
}

func newUsageCmd(e *env) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show LLM usage per day and per agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := e.services(cmd.Context())
			if err != nil {
				return err
			}
			report, err := svc.App.Usage(cmd.Context(), days)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, d := range report.Daily {
				fmt.Fprintf(out, "%s  %6d prompt  %6d completion  %4d calls\n", d.Date, d.TotalPrompt, d.TotalCompletion, d.TotalExecution)
			}
			for _, a := range report.Agents {
				fmt.Fprintf(out, "%-14s %4d calls  avg prompt %5d  max prompt %5d  avg %dms\n",
					a.AgentName, a.Executions, a.AvgPrompt, a.MaxPrompt, a.AvgLatencyMS)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "days to report")
	return cmd
}

func newMetricsCleanupCmd(e *env) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "metrics-cleanup",
		Short: "Remove old metric records",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := e.services(cmd.Context())
			if err != nil {
				return err
			}
			affected, err := svc.App.CleanupMetrics(cmd.Context(), days)
			if err != nil {
				return fmt.Errorf("cleanup failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Successfully removed %d old metric records.\n", affected)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "keep records for the last N days")
	return cmd
}

func newTokenCmd(e *env) *cobra.Command {
	var userID string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if e.cfg.APIJWTSecret == "" {
				return errors.New("API_JWT_SECRET environment variable not set")
			}
			tok, err := httpapi.NewVerifier(e.cfg.APIJWTSecret).Issue(userID, ttl, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user ID carried as the token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 30*24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
