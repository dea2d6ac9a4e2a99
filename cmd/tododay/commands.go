package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tododay/tododay/internal/config"
	"github.com/tododay/tododay/internal/storage"
)

// newRootCmd builds the command tree around a.
func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Day-scoped todo list with full-text search",
		Long: `tododay keeps a todo list organised by calendar day.

Todos created on earlier days that were never finished become stale and can
be carried over to today, dismissed or marked complete.

Environment variables:
` + config.Usage(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.bootstrap(cmd)
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.AddCommand(
		newAddCmd(a),
		newListCmd(a),
		newGetCmd(a),
		newUpdateCmd(a),
		newDeleteCmd(a),
		newStaleCmd(a),
		newResolveCmd(a),
		newSearchCmd(a),
		newStatusCmd(a),
		newVersionCmd(a),
	)
	return root
}

func newAddCmd(a *app) *cobra.Command {
	var status, priority string
	cmd := &cobra.Command{
		Use:   "add <content>",
		Short: "Create a todo",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := storage.CreateTodoInput{Content: strings.Join(args, " ")}
			if status != "" {
				st, err := storage.ParseStatus(status)
				if err != nil {
					return err
				}
				in.Status = st
			}
			if priority != "" {
				p, err := storage.ParsePriority(priority)
				if err != nil {
					return err
				}
				in.Priority = p
			}
			todo, err := a.store.CreateTodo(cmd.Context(), in)
			if err != nil {
				return err
			}
			a.printTodo(todo)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "initial status (incomplete, inactive, complete)")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "priority (low, normal, high)")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var day string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List todos created on a day (default today)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			date := time.Now()
			if day != "" {
				var err error
				date, err = storage.ParseDay(day, a.store.Location())
				if err != nil {
					return fmt.Errorf("--date: %w", err)
				}
			}
			todos, err := a.store.GetRelevantTodos(cmd.Context(), date)
			if err != nil {
				return err
			}
			a.printTodos(todos)
			return nil
		},
	}
	cmd.Flags().StringVar(&day, "date", "", "day as YYYY-MM-DD")
	return cmd
}

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			todo, err := a.store.GetTodo(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.printTodo(todo)
			if len(todo.ContentTokens) > 0 {
				fmt.Fprintf(a.out, "tokens\t%s\n", strings.Join(todo.ContentTokens, " "))
			}
			fmt.Fprintf(a.out, "created\t%s\n", todo.CreatedAt.In(a.store.Location()).Format(time.RFC3339))
			if todo.UpdatedAt != nil {
				fmt.Fprintf(a.out, "updated\t%s\n", todo.UpdatedAt.In(a.store.Location()).Format(time.RFC3339))
			}
			return nil
		},
	}
}

func newUpdateCmd(a *app) *cobra.Command {
	var content, status, priority string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := storage.UpdateTodoInput{ID: args[0]}
			flags := cmd.Flags()
			if flags.Changed("content") {
				in.Content = &content
			}
			if flags.Changed("status") {
				st, err := storage.ParseStatus(status)
				if err != nil {
					return err
				}
				in.Status = &st
			}
			if flags.Changed("priority") {
				p, err := storage.ParsePriority(priority)
				if err != nil {
					return err
				}
				in.Priority = &p
			}
			if in.Content == nil && in.Status == nil && in.Priority == nil {
				return errors.New("nothing to update: pass --content, --status or --priority")
			}
			todo, err := a.store.UpdateTodo(cmd.Context(), in)
			if err != nil {
				return err
			}
			a.printTodo(todo)
			return nil
		},
	}
	cmd.Flags().StringVar(&content, "content", "", "new content")
	cmd.Flags().StringVar(&status, "status", "", "new status")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "new priority")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a todo",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.store.DeleteTodo(cmd.Context(), args[0])
		},
	}
}

func newStaleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stale",
		Short: "List unfinished todos from earlier days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			todos, err := a.store.GetStaleTodos(cmd.Context())
			if err != nil {
				return err
			}
			a.printTodos(todos)
			return nil
		},
	}
}

func newResolveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <id>=<action>...",
		Short: "Apply carry-over, mark-inactive or mark-completed to stale todos",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actions, err := parseActions(args)
			if err != nil {
				return err
			}
			return a.store.HandleStaleTodosActions(cmd.Context(), actions)
		},
	}
}

// parseActions reads id=action pairs. Unknown actions are passed through so
// the resolver can log and skip them.
func parseActions(args []string) ([]storage.StaleTodoAction, error) {
	actions := make([]storage.StaleTodoAction, 0, len(args))
	for _, arg := range args {
		id, action, ok := strings.Cut(arg, "=")
		if !ok || id == "" || action == "" {
			return nil, fmt.Errorf("malformed %q: want <id>=<action>", arg)
		}
		actions = append(actions, storage.StaleTodoAction{ID: id, Action: storage.StaleAction(action)})
	}
	return actions, nil
}

func newSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search over todo content",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			todos, err := a.store.FulltextSearch(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			a.printTodos(todos)
			return nil
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show database location, layout version and size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := a.store.SchemaVersion(cmd.Context())
			if err != nil {
				return err
			}
			count, err := a.store.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "database\t%s\n", a.cfg.DBPath())
			fmt.Fprintf(a.out, "schema\tv%d\n", v)
			fmt.Fprintf(a.out, "todos\t%d\n", count)
			fmt.Fprintf(a.out, "zone\t%s\n", a.store.Location())
			return nil
		},
	}
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		// No store needed.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(*cobra.Command, []string) error {
			fmt.Fprintf(a.out, "%s v%s\n", appName, version)
			return nil
		},
	}
}
