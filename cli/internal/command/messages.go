package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/itchan-dev/echobox/shared/dashboard"
	"github.com/itchan-dev/echobox/shared/domain"
)

func (a *app) newMessagesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "messages",
		Aliases: []string{"msg"},
		Short:   "Triage received messages (admin)",
	}
	cmd.AddCommand(a.newListCommand(), a.newReadCommand(), a.newOpenCommand())
	return cmd
}

// loadDashboard checks the admin session and fetches the current list.
func (a *app) loadDashboard(ctx context.Context) (*dashboard.Dashboard, error) {
	if _, err := a.requireSession(); err != nil {
		return nil, err
	}
	client, err := a.client()
	if err != nil {
		return nil, err
	}
	pageSize := dashboard.DefaultPageSize
	if cfg, err := a.config(); err == nil {
		pageSize = cfg.Public.PageSize
	}
	dash := dashboard.New(client, pageSize)
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := dash.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	return dash, nil
}

func (a *app) newListCommand() *cobra.Command {
	var (
		typ, search, sort string
		unread            bool
		page              int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filters := dashboard.Filters{UnreadOnly: unread, Search: search}
			if typ != "" {
				t, ok := domain.ParseType(typ)
				if !ok {
					return fmt.Errorf("unknown message type %q", typ)
				}
				filters.Type = t
			}
			dash, err := a.loadDashboard(cmd.Context())
			if err != nil {
				return err
			}
			renderPage(cmd.OutOrStdout(), dash.View(filters, dashboard.ParseSortOrder(sort), page), dash.UnreadCount())
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&typ, "type", "t", "", "Only this type: text, image, voice or document")
	flags.BoolVarP(&unread, "unread", "u", false, "Only unread messages")
	flags.StringVarP(&search, "search", "s", "", "Case-insensitive text search")
	flags.StringVar(&sort, "sort", string(dashboard.SortNewest), "newest, oldest or unread")
	flags.IntVarP(&page, "page", "p", 1, "Page number")
	return cmd
}

func (a *app) newReadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "read <id>",
		Short: "Mark a message as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dash, err := a.loadDashboard(cmd.Context())
			if err != nil {
				return err
			}
			if err := dash.MarkAsRead(cmd.Context(), args[0]); err != nil {
				return markReadError(args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked %s as read.\n", args[0])
			return nil
		},
	}
}

func (a *app) newOpenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "open <id>",
		Short: "Print a message and mark it as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dash, err := a.loadDashboard(cmd.Context())
			if err != nil {
				return err
			}
			m, ok := dash.Message(args[0])
			if !ok {
				return fmt.Errorf("message %s not found", args[0])
			}
			renderMessage(cmd.OutOrStdout(), m)
			if m.IsRead {
				return nil
			}
			if err := dash.MarkAsRead(cmd.Context(), m.Id); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "could not mark this message as read:", err)
			}
			return nil
		},
	}
}

func markReadError(id string, err error) error {
	if errors.Is(err, dashboard.ErrMessageNotFound) {
		return fmt.Errorf("message %s not found", id)
	}
	return fmt.Errorf("failed to mark %s as read: %w", id, err)
}
