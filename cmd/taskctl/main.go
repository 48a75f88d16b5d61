// taskctl is an admin CLI that drives the task engine against the
// configured database directly, without going through the HTTP server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Waterbottle88/todolist-api/internal/config"
	"github.com/Waterbottle88/todolist-api/internal/db"
	"github.com/Waterbottle88/todolist-api/pkg/engine"
	"github.com/Waterbottle88/todolist-api/pkg/task"
)

var user string

func main() {
	rootCmd := &cobra.Command{
		Use:   "taskctl",
		Short: "Manage todolist tasks from the command line",
	}
	rootCmd.PersistentFlags().StringVarP(&user, "user", "u", "", "owner user id (required for task commands)")

	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(completeCmd())
	rootCmd.AddCommand(reopenCmd())
	rootCmd.AddCommand(rmCmd())
	rootCmd.AddCommand(statsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withEngine connects, runs fn, and tears the pool down.
func withEngine(fn func(ctx context.Context, eng *engine.Engine) error) error {
	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer pool.Close()
	return fn(ctx, engine.New(task.NewPgStore(pool)))
}

func requireUser() error {
	if user == "" {
		return fmt.Errorf("--user is required")
	}
	return nil
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the tasks table and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			pool, err := db.Connect(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := task.NewPgStore(pool).EnsureTable(ctx); err != nil {
				return err
			}
			fmt.Println("schema ready")
			return nil
		},
	}
}

func addCmd() *cobra.Command {
	var description, parent string
	var priority int

	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Create a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			return withEngine(func(ctx context.Context, eng *engine.Engine) error {
				in := engine.CreateInput{
					Title:       args[0],
					Description: description,
					Priority:    task.Priority(priority),
				}
				if parent != "" {
					in.ParentID = &parent
				}
				t, err := eng.Create(ctx, user, in)
				if err != nil {
					return err
				}
				fmt.Printf("created %s\n", t.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "task description")
	cmd.Flags().IntVarP(&priority, "priority", "p", 0, "priority 1 (critical) to 5 (lowest)")
	cmd.Flags().StringVar(&parent, "parent", "", "parent task id")
	return cmd
}

func listCmd() *cobra.Command {
	var status, search, parent, sortSpec string
	var createdAfter, createdBefore, completedAfter, completedBefore string
	var rootOnly, subtasksOnly bool
	var priority, page, size int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			if rootOnly && subtasksOnly {
				return fmt.Errorf("--root and --subtasks are mutually exclusive")
			}
			return withEngine(func(ctx context.Context, eng *engine.Engine) error {
				var q task.Query
				if status != "" {
					st := task.Status(status)
					if !st.Valid() {
						return fmt.Errorf("unknown status %q", status)
					}
					q.Filter.Status = &st
				}
				if priority != 0 {
					p := task.Priority(priority)
					if !p.Valid() {
						return fmt.Errorf("priority must be between %d and %d", task.PriorityCritical, task.PriorityLowest)
					}
					q.Filter.Priority = &p
				}
				q.Filter.Search = search
				if parent != "" {
					q.Filter.ParentID = &parent
				}
				q.Filter.RootOnly = rootOnly
				q.Filter.SubtasksOnly = subtasksOnly

				var err error
				if q.Filter.CreatedAfter, err = task.ParseTime(createdAfter); err != nil {
					return err
				}
				if q.Filter.CreatedBefore, err = task.ParseTime(createdBefore); err != nil {
					return err
				}
				if q.Filter.CompletedAfter, err = task.ParseTime(completedAfter); err != nil {
					return err
				}
				if q.Filter.CompletedBefore, err = task.ParseTime(completedBefore); err != nil {
					return err
				}
				if err := q.Filter.CheckRanges(); err != nil {
					return err
				}

				q.Sort = task.ParseSort(sortSpec)
				q.Page = page
				q.Size = size

				result, err := eng.List(ctx, user, q)
				if err != nil {
					return err
				}
				for _, t := range result.Items {
					parentLabel := "-"
					if t.ParentID != nil {
						parentLabel = *t.ParentID
					}
					fmt.Printf("%s  [%s]  p%d  parent=%s  %s\n", t.ID, t.Status, t.Priority, parentLabel, t.Title)
				}
				fmt.Printf("page %d/%d, %d total\n", result.Page, result.LastPage, result.Total)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status (pending|done)")
	cmd.Flags().IntVar(&priority, "priority", 0, "filter by priority 1 (critical) to 5 (lowest)")
	cmd.Flags().StringVar(&search, "search", "", "substring match on title or description")
	cmd.Flags().StringVar(&parent, "parent", "", "filter by parent task id")
	cmd.Flags().BoolVar(&rootOnly, "root", false, "root tasks only")
	cmd.Flags().BoolVar(&subtasksOnly, "subtasks", false, "subtasks only")
	cmd.Flags().StringVar(&createdAfter, "created-after", "", "created on or after (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&createdBefore, "created-before", "", "created on or before (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&completedAfter, "completed-after", "", "completed on or after (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&completedBefore, "completed-before", "", "completed on or before (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&sortSpec, "sort", "", "comma-separated sort fields, '-' prefix for descending")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&size, "size", task.DefaultPageSize, "page size")
	return cmd
}

func completeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete [id]",
		Short: "Mark a task done (fails while subtasks are pending)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			return withEngine(func(ctx context.Context, eng *engine.Engine) error {
				t, err := eng.Complete(ctx, user, args[0])
				if err != nil {
					return err
				}
				fmt.Printf("completed %s at %s\n", t.ID, t.CompletedAt.Format("2006-01-02 15:04:05"))
				return nil
			})
		},
	}
}

func reopenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reopen [id]",
		Short: "Put a done task back to pending",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			return withEngine(func(ctx context.Context, eng *engine.Engine) error {
				t, err := eng.Reopen(ctx, user, args[0])
				if err != nil {
					return err
				}
				fmt.Printf("reopened %s\n", t.ID)
				return nil
			})
		},
	}
}

func rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm [id]",
		Short: "Delete a task and its entire subtree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			return withEngine(func(ctx context.Context, eng *engine.Engine) error {
				if err := eng.Delete(ctx, user, args[0]); err != nil {
					return err
				}
				fmt.Printf("deleted %s and its subtree\n", args[0])
				return nil
			})
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate task statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			return withEngine(func(ctx context.Context, eng *engine.Engine) error {
				st, err := eng.Stats(ctx, user)
				if err != nil {
					return err
				}
				out, err := json.MarshalIndent(st, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			})
		},
	}
}
