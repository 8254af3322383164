package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	bookvaluev1 "github.com/simaogato/bookvalue-backend/internal/adapter/grpc/bookvalue/v1"
)

// NewCheckAlertsCommand creates the check-alerts command.
func NewCheckAlertsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check-alerts",
		Short: "Run one alert evaluation pass",
		Long: `Run one alert evaluation pass on the server.

Each active alert fires at most once until its condition clears.
The response lists every evaluated alert with its outcome.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(cmd, opts, map[string]interface{}{}, bookvaluev1.ValuationServiceClient.CheckAlerts)
		},
	}
}

// NewSnapshotsCommand creates the snapshots command group.
func NewSnapshotsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "Generate and list analytics snapshots",
	}

	var (
		userID string
		asOf   string
	)
	generate := &cobra.Command{
		Use:   "generate",
		Short: "Generate current-period snapshots for one user or all users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]interface{}{}
			if userID != "" {
				req["user_id"] = userID
			}
			if asOf != "" {
				req["as_of"] = asOf
			}
			return call(cmd, opts, req, bookvaluev1.ValuationServiceClient.GenerateSnapshots)
		},
	}
	generate.Flags().StringVar(&userID, "user", "", "user ID (default: every user)")
	generate.Flags().StringVar(&asOf, "as-of", "", "RFC 3339 instant to generate for (default: now)")

	var (
		subjectID string
		kind      string
		frame     string
		limit     int
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots for a user or batch, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if subjectID == "" {
				return fmt.Errorf("--subject is required")
			}
			req := map[string]interface{}{
				"subject_id":   subjectID,
				"subject_kind": kind,
				"time_frame":   frame,
			}
			if limit > 0 {
				req["limit"] = limit
			}
			return call(cmd, opts, req, bookvaluev1.ValuationServiceClient.ListSnapshots)
		},
	}
	list.Flags().StringVar(&subjectID, "subject", "", "user or batch ID")
	list.Flags().StringVar(&kind, "kind", "USER", "subject kind (USER|BATCH)")
	list.Flags().StringVar(&frame, "time-frame", "MONTH", "time frame (DAY|WEEK|MONTH|QUARTER|YEAR)")
	list.Flags().IntVar(&limit, "limit", 0, "maximum snapshots to return")

	cmd.AddCommand(generate, list)
	return cmd
}

// NewCompareCommand creates the compare command.
func NewCompareCommand(opts *RootOptions) *cobra.Command {
	var (
		ownerID string
		frame   string
	)

	cmd := &cobra.Command{
		Use:   "compare <batch-id>...",
		Short: "Compare the latest snapshots of several batches",
		Long: `Compare the latest snapshots of several batches side by side.

Example:
  valuectl compare 0b8f... 5c21... --time-frame WEEK --owner 9e4d...`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]interface{}, len(args))
			for i, id := range args {
				ids[i] = id
			}
			req := map[string]interface{}{
				"batch_ids":  ids,
				"time_frame": frame,
			}
			if ownerID != "" {
				req["owner_id"] = ownerID
			}
			return call(cmd, opts, req, bookvaluev1.ValuationServiceClient.CompareBatches)
		},
	}

	cmd.Flags().StringVar(&ownerID, "owner", "", "reject batches not owned by this user")
	cmd.Flags().StringVar(&frame, "time-frame", "MONTH", "time frame (DAY|WEEK|MONTH|QUARTER|YEAR)")

	return cmd
}

// NewRefreshCommand creates the refresh command.
func NewRefreshCommand(opts *RootOptions) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "refresh [book-id]",
		Short: "Fetch fresh quotes for one book, or every book of a user with --user",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case userID != "" && len(args) == 0:
				return call(cmd, opts, map[string]interface{}{"user_id": userID}, bookvaluev1.ValuationServiceClient.RefreshUser)
			case userID == "" && len(args) == 1:
				return call(cmd, opts, map[string]interface{}{"book_id": args[0]}, bookvaluev1.ValuationServiceClient.RefreshBook)
			}
			return fmt.Errorf("provide either a book ID or --user")
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "refresh every book owned by this user")

	return cmd
}

// NewBatchesCommand creates the batches command group.
func NewBatchesCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batches",
		Short: "Manage batch membership",
	}

	add := &cobra.Command{
		Use:   "add <batch-id> <book-id>...",
		Short: "Add books to a batch and print the recomputed counters",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]interface{}, 0, len(args)-1)
			for _, id := range args[1:] {
				ids = append(ids, id)
			}
			req := map[string]interface{}{
				"batch_id": args[0],
				"book_ids": ids,
			}
			return call(cmd, opts, req, bookvaluev1.ValuationServiceClient.AddBatchBooks)
		},
	}

	remove := &cobra.Command{
		Use:   "remove <batch-id> <book-id>",
		Short: "Remove a book from a batch and print the recomputed counters",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]interface{}{
				"batch_id": args[0],
				"book_id":  args[1],
			}
			return call(cmd, opts, req, bookvaluev1.ValuationServiceClient.RemoveBatchBook)
		},
	}

	cmd.AddCommand(add, remove)
	return cmd
}

// NewAlertsCommand creates the alerts command group.
func NewAlertsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Manage price alerts",
	}

	var inactive bool
	setActive := &cobra.Command{
		Use:   "set-active <alert-id>",
		Short: "Activate an alert, or deactivate it with --inactive",
		Long: `Activate an alert, or deactivate it with --inactive.

Reactivating an alert re-arms it so it may fire again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]interface{}{"alert_id": args[0], "active": !inactive}
			return call(cmd, opts, req, bookvaluev1.ValuationServiceClient.SetAlertActive)
		},
	}
	setActive.Flags().BoolVar(&inactive, "inactive", false, "deactivate instead")

	cmd.AddCommand(setActive)
	return cmd
}

// NewNotificationsCommand creates the notifications command group.
func NewNotificationsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Read alert notifications",
	}

	var (
		unread bool
		limit  int
	)
	list := &cobra.Command{
		Use:   "list <user-id>",
		Short: "List a user's notifications, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]interface{}{"user_id": args[0], "unread_only": unread}
			if limit > 0 {
				req["limit"] = limit
			}
			return call(cmd, opts, req, bookvaluev1.ValuationServiceClient.ListNotifications)
		},
	}
	list.Flags().BoolVar(&unread, "unread", false, "only unread notifications")
	list.Flags().IntVar(&limit, "limit", 0, "maximum notifications to return")

	read := &cobra.Command{
		Use:   "read <notification-id>",
		Short: "Mark a notification as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(cmd, opts, map[string]interface{}{"notification_id": args[0]}, bookvaluev1.ValuationServiceClient.MarkNotificationRead)
		},
	}

	cmd.AddCommand(list, read)
	return cmd
}
