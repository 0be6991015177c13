package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/nhle/theora/internal/app"
	"github.com/nhle/theora/internal/credential"
	"github.com/nhle/theora/internal/model"
	"github.com/nhle/theora/internal/state"
	"github.com/nhle/theora/internal/store"
)

var (
	errSignedOut  = errors.New("not signed in; run `theora signin --uid <id>` first")
	errNoProvider = errors.New("no AI provider configured; set THEORA_ANTHROPIC_API_KEY or run `theora key set`")
)

func requireUser(a *app.App) (*model.Identity, error) {
	u := a.State.User()
	if u == nil {
		return nil, errSignedOut
	}
	return u, nil
}

func dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Open the interactive dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return a.RunDashboard(ctx)
			})
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print a summary of the signed-in user's data",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				u, err := requireUser(a)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				snap := a.State.Snapshot()
				fmt.Fprintf(out, "User:          %s (%s)\n", snap.UserName, u.ID)
				fmt.Fprintf(out, "Todos:         %s\n", a.State.CompressedTodos())
				fmt.Fprintf(out, "Events:        %s\n", a.State.CompressedEvents())
				fmt.Fprintf(out, "Budget:        %s\n", a.State.CompressedBudget())
				fmt.Fprintf(out, "Notifications: %d unread\n", model.UnreadCount(snap.Notifications))
				fmt.Fprintf(out, "AI provider:   %s (style %s)\n", snap.AIProvider, snap.AIResponseStyle)
				return nil
			})
		},
	}
}

func briefCmd() *cobra.Command {
	var (
		slot string
		all  bool
	)
	cmd := &cobra.Command{
		Use:   "brief",
		Short: "Print AI insights, generating missing ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			slots := []model.AISlot{model.AISlot(slot)}
			if all {
				slots = model.AISlots
			}
			for _, s := range slots {
				if !s.Valid() {
					return fmt.Errorf("unknown slot %q", s)
				}
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if _, err := requireUser(a); err != nil {
					return err
				}
				if a.Insights == nil {
					return errNoProvider
				}
				out := cmd.OutOrStdout()
				for _, s := range slots {
					text, err := a.Insights.Get(ctx, s)
					if err != nil {
						a.Log.Warn().Err(err).Str("slot", string(s)).Msg("showing fallback text")
					}
					if all {
						fmt.Fprintf(out, "## %s\n", s)
					}
					fmt.Fprintln(out, text)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&slot, "slot", "s", string(model.SlotDailyBrief), "dailyBrief, budgetInsight or timeManagementAdvice")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "print every slot")
	return cmd
}

func chatCmd() *cobra.Command {
	var newSession bool
	cmd := &cobra.Command{
		Use:   "chat MESSAGE",
		Short: "Send a message to the current chat session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if _, err := requireUser(a); err != nil {
					return err
				}
				if a.Chat == nil {
					return errNoProvider
				}
				if newSession {
					a.State.AddChatSession("")
				}
				reply, err := a.Chat.Send(ctx, strings.Join(args, " "))
				if reply.Message != "" {
					fmt.Fprintln(cmd.OutOrStdout(), reply.Message)
				}
				return err
			})
		},
	}
	cmd.Flags().BoolVarP(&newSession, "new", "n", false, "start a new chat session")
	return cmd
}

func signinCmd() *cobra.Command {
	var uid, name, email string
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in as a user and load their data",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if name != "" || email != "" {
					if err := a.Profiles.Set(ctx, uid, model.Profile{DisplayName: name, Email: email}); err != nil {
						return fmt.Errorf("saving profile: %w", err)
					}
				}
				if err := a.Auth.SignIn(model.Identity{ID: uid, DisplayName: name, Email: email}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", a.State.UserName())
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&uid, "uid", "u", "", "user id (required)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "display name")
	cmd.Flags().StringVarP(&email, "email", "e", "", "email address")
	_ = cmd.MarkFlagRequired("uid")
	return cmd
}

func signoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Sign out; local data stays cached for the next sign-in",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return a.Auth.SignOut()
			})
		},
	}
}

func todoCmd() *cobra.Command {
	todo := &cobra.Command{Use: "todo", Short: "Todo operations"}

	var priority, due, category string
	add := &cobra.Command{
		Use:   "add TITLE",
		Short: "Add a todo",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if _, err := requireUser(a); err != nil {
					return err
				}
				t, err := a.State.AddTodo(model.Todo{
					Title:    strings.Join(args, " "),
					Priority: model.Priority(priority),
					DueDate:  due,
					Category: category,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", t.Title, t.ID)
				return nil
			})
		},
	}
	add.Flags().StringVarP(&priority, "priority", "p", string(model.PriorityMedium), "low, medium or high")
	add.Flags().StringVarP(&due, "due", "d", "", "due date (YYYY-MM-DD or ISO date-time)")
	add.Flags().StringVar(&category, "category", "", "category")
	todo.AddCommand(add)

	done := &cobra.Command{
		Use:   "done ID",
		Short: "Mark a todo completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if _, err := requireUser(a); err != nil {
					return err
				}
				completed := true
				return a.State.UpdateTodo(args[0], model.TodoPatch{Completed: &completed})
			})
		},
	}
	todo.AddCommand(done)

	list := &cobra.Command{
		Use:   "list",
		Short: "List todos",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if _, err := requireUser(a); err != nil {
					return err
				}
				for _, t := range a.State.Todos() {
					mark := " "
					if t.Completed {
						mark = "x"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "[%s] %-6s %s  %s\n", mark, t.Priority, t.Title, t.ID)
				}
				return nil
			})
		},
	}
	todo.AddCommand(list)
	return todo
}

func spendCmd() *cobra.Command {
	var note, date string
	cmd := &cobra.Command{
		Use:   "spend AMOUNT CATEGORY",
		Short: "Record a transaction",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[0])
			if err != nil {
				return fmt.Errorf("parsing amount %q: %w", args[0], err)
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if _, err := requireUser(a); err != nil {
					return err
				}
				if _, err := a.State.AddTransaction(model.Transaction{
					Amount:      amount,
					Category:    args[1],
					Description: note,
					Date:        date,
				}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Remaining: %s\n",
					state.FormatMoney(a.State.Currency(), a.State.RemainingBudget()))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&note, "note", "m", "", "description")
	cmd.Flags().StringVarP(&date, "date", "d", "", "transaction date (defaults to today)")
	return cmd
}

func notifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notify",
		Short: "Compose one notification now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if _, err := requireUser(a); err != nil {
					return err
				}
				if a.Notifier == nil {
					return errNoProvider
				}
				n, ok := a.Notifier.Tick(ctx)
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Notifications are turned off.")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", n.Type, n.Message)
				return nil
			})
		},
	}
}

var keyNames = map[string]string{
	"anthropic": credential.KeyAnthropicAPIKey,
	"gemini":    credential.KeyGeminiAPIKey,
	"remote":    credential.KeyRemoteToken,
}

func keyCmd() *cobra.Command {
	key := &cobra.Command{Use: "key", Short: "Manage API keys in the OS keyring"}

	resolve := func(name string) (string, error) {
		k, ok := keyNames[name]
		if !ok {
			return "", fmt.Errorf("unknown key %q (want anthropic, gemini or remote)", name)
		}
		return k, nil
	}

	key.AddCommand(&cobra.Command{
		Use:   "set NAME VALUE",
		Short: "Store a key (anthropic, gemini or remote)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := resolve(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return a.Credentials.Set(k, args[1])
			})
		},
	})
	key.AddCommand(&cobra.Command{
		Use:   "delete NAME",
		Short: "Remove a stored key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := resolve(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return a.Credentials.Delete(k)
			})
		},
	})
	return key
}

func resetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop the local cache of the signed-in user and reload",
		Long: "Removes every locally cached field of the signed-in user, then reloads.\n" +
			"With a remote store configured the remote copy is restored; otherwise the\n" +
			"user starts over with defaults.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to reset without --yes")
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				u, err := requireUser(a)
				if err != nil {
					return err
				}
				if err := a.Local.ClearAll(store.UserKeys(u.ID)); err != nil {
					return err
				}
				if err := a.State.Init(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Local data reloaded.")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm")
	return cmd
}
