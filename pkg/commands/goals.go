package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/stefanpenner/wellspring/pkg/goals"
)

const dateLayout = "2006-01-02"

// with opens the store for the duration of fn.
func (a *app) with(cmd *cobra.Command, fn func(ctx context.Context, w io.Writer) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := a.open(ctx, cmd.ErrOrStderr()); err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, cmd.OutOrStdout())
}

func requireArgs(n int, what string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) < n {
			return errors.New("requires " + what)
		}
		return nil
	}
}

// position parses a 1-based position as shown by `list`.
func position(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: position %q must be a number from 1", goals.ErrValidation, s)
	}
	return n - 1, nil
}

func addList(topLevel *cobra.Command, a *app) {
	oo := &OutputOptions{}
	var status string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List goals by bucket",
		Example: `
wellspring list
wellspring list --status active --json
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := a.with(cmd, func(_ context.Context, w io.Writer) error {
				only := goals.Statuses
				if status != "" {
					st, err := goals.ParseStatus(status)
					if err != nil {
						return err
					}
					only = []goals.Status{st}
				}
				snap := a.store.Snapshot()
				if oo.JSON {
					out := map[goals.Status][]goals.Goal{}
					for _, st := range only {
						out[st] = nonNilGoals(snap.Bucket(st))
					}
					return outputJSON(w, out)
				}
				printBuckets(w, snap, only)
				return nil
			})
			return oo.HandleError(cmd.OutOrStdout(), err)
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "only list one bucket (active, backlog, completed)")
	AddOutputArg(cmd, oo)
	topLevel.AddCommand(cmd)
}

func nonNilGoals(gs []goals.Goal) []goals.Goal {
	if gs == nil {
		return []goals.Goal{}
	}
	return gs
}

func addShow(topLevel *cobra.Command, a *app) {
	oo := &OutputOptions{}

	cmd := &cobra.Command{
		Use:   "show <goal>",
		Short: "Show one goal",
		Args:  requireArgs(1, "a goal id or title"),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.with(cmd, func(_ context.Context, w io.Writer) error {
				g, err := a.resolveGoal(strings.Join(args, " "))
				if err != nil {
					return err
				}
				if oo.JSON {
					return outputJSON(w, g)
				}
				printGoal(w, g)
				return nil
			})
			return oo.HandleError(cmd.OutOrStdout(), err)
		},
	}

	AddOutputArg(cmd, oo)
	topLevel.AddCommand(cmd)
}

type addOptions struct {
	Category   string
	Progress   int
	Target     string
	Values     []string
	Milestones []string
	Notes      string
}

func addAdd(topLevel *cobra.Command, a *app) {
	oo := &OutputOptions{}
	ao := &addOptions{}

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a goal to the end of the backlog",
		Example: `
wellspring add Run a 10k --category fitness --target 2026-06-01 --milestone "5k" --milestone "8k"
`,
		Args: requireArgs(1, "a title"),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.with(cmd, func(ctx context.Context, w io.Writer) error {
				d := goals.Draft{
					Title:          strings.Join(args, " "),
					Category:       goals.Category(strings.ToLower(ao.Category)),
					Progress:       ao.Progress,
					LinkedValueIDs: ao.Values,
					Milestones:     ao.Milestones,
					Notes:          ao.Notes,
				}
				if ao.Target != "" {
					t, err := time.Parse(dateLayout, ao.Target)
					if err != nil {
						return fmt.Errorf("%w: target date %q is not YYYY-MM-DD", goals.ErrValidation, ao.Target)
					}
					d.TargetDate = &t
				}
				g, err := a.store.AddGoal(ctx, d)
				if err != nil {
					return a.fail("add", err)
				}
				if oo.JSON {
					return outputJSON(w, g)
				}
				fmt.Fprintf(w, "Added: %s (%s)\n", g.Title, shortID(g.ID))
				return nil
			})
			return oo.HandleError(cmd.OutOrStdout(), err)
		},
	}

	cmd.Flags().StringVar(&ao.Category, "category", "", "category (personal, career, health, fitness, finance, learning, relationships, other)")
	cmd.Flags().IntVar(&ao.Progress, "progress", 0, "starting progress, 0-100")
	cmd.Flags().StringVar(&ao.Target, "target", "", "target date, YYYY-MM-DD")
	cmd.Flags().StringSliceVar(&ao.Values, "value", nil, "linked value id (repeatable)")
	cmd.Flags().StringArrayVar(&ao.Milestones, "milestone", nil, "milestone title (repeatable)")
	cmd.Flags().StringVar(&ao.Notes, "notes", "", "free-form notes")
	AddOutputArg(cmd, oo)
	topLevel.AddCommand(cmd)
}

// moveTo moves g to target at index, or the end of target when index < 0.
func (a *app) moveTo(ctx context.Context, w io.Writer, oo *OutputOptions, g goals.Goal, target goals.Status, index int, verb string) error {
	if index < 0 {
		index = len(a.store.GoalsByStatus(target))
	}
	if err := a.store.MoveGoalToStatus(ctx, g.ID, target, index); err != nil {
		return a.fail("move", err)
	}
	moved, err := a.store.Goal(g.ID)
	if err != nil {
		return err
	}
	if oo.JSON {
		return outputJSON(w, moved)
	}
	fmt.Fprintf(w, "%s: %s → %s\n", verb, moved.Title, moved.Status)
	return nil
}

func addMove(topLevel *cobra.Command, a *app) {
	oo := &OutputOptions{}
	var index string

	cmd := &cobra.Command{
		Use:   "move <goal> <status>",
		Short: "Move a goal to another bucket",
		Example: `
wellspring move "Run a 10k" active
wellspring move 3f2a backlog --index 1
`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.with(cmd, func(ctx context.Context, w io.Writer) error {
				g, err := a.resolveGoal(args[0])
				if err != nil {
					return err
				}
				target, err := goals.ParseStatus(args[1])
				if err != nil {
					return err
				}
				at := -1
				if index != "" {
					if at, err = position(index); err != nil {
						return err
					}
				}
				return a.moveTo(ctx, w, oo, g, target, at, "Moved")
			})
			return oo.HandleError(cmd.OutOrStdout(), err)
		},
	}

	cmd.Flags().StringVar(&index, "index", "", "1-based position in the target bucket (default: end)")
	AddOutputArg(cmd, oo)
	topLevel.AddCommand(cmd)
}

func addFocus(topLevel *cobra.Command, a *app) {
	oo := &OutputOptions{}

	cmd := &cobra.Command{
		Use:   "focus <goal>",
		Short: "Make a goal active",
		Args:  requireArgs(1, "a goal id or title"),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.with(cmd, func(ctx context.Context, w io.Writer) error {
				g, err := a.resolveGoal(strings.Join(args, " "))
				if err != nil {
					return err
				}
				return a.moveTo(ctx, w, oo, g, goals.StatusActive, -1, "Focused")
			})
			return oo.HandleError(cmd.OutOrStdout(), err)
		},
	}

	AddOutputArg(cmd, oo)
	topLevel.AddCommand(cmd)
}

func addComplete(topLevel *cobra.Command, a *app) {
	oo := &OutputOptions{}

	cmd := &cobra.Command{
		Use:     "complete <goal>",
		Aliases: []string{"done"},
		Short:   "Mark a goal completed",
		Args:    requireArgs(1, "a goal id or title"),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.with(cmd, func(ctx context.Context, w io.Writer) error {
				g, err := a.resolveGoal(strings.Join(args, " "))
				if err != nil {
					return err
				}
				return a.moveTo(ctx, w, oo, g, goals.StatusCompleted, 0, "Completed")
			})
			return oo.HandleError(cmd.OutOrStdout(), err)
		},
	}

	AddOutputArg(cmd, oo)
	topLevel.AddCommand(cmd)
}

func addReopen(topLevel *cobra.Command, a *app) {
	oo := &OutputOptions{}

	cmd := &cobra.Command{
		Use:     "reopen <goal>",
		Aliases: []string{"uncomplete"},
		Short:   "Move a completed goal back to the backlog",
		Args:    requireArgs(1, "a goal id or title"),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.with(cmd, func(ctx context.Context, w io.Writer) error {
				g, err := a.resolveGoal(strings.Join(args, " "))
				if err != nil {
					return err
				}
				return a.moveTo(ctx, w, oo, g, goals.StatusBacklog, -1, "Reopened")
			})
			return oo.HandleError(cmd.OutOrStdout(), err)
		},
	}

	AddOutputArg(cmd, oo)
	topLevel.AddCommand(cmd)
}

func addReorder(topLevel *cobra.Command, a *app) {
	oo := &OutputOptions{}

	cmd := &cobra.Command{
		Use:   "reorder <status> <from> <to>",
		Short: "Move a goal to another position in its bucket",
		Example: `
wellspring reorder backlog 1 3
`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.with(cmd, func(ctx context.Context, w io.Writer) error {
				st, err := goals.ParseStatus(args[0])
				if err != nil {
					return err
				}
				from, err := position(args[1])
				if err != nil {
					return err
				}
				to, err := position(args[2])
				if err != nil {
					return err
				}
				if err := a.store.ReorderGoals(ctx, st, from, to); err != nil {
					return a.fail("reorder", err)
				}
				bucket := a.store.GoalsByStatus(st)
				if oo.JSON {
					return outputJSON(w, bucket)
				}
				printBuckets(w, a.store.Snapshot(), []goals.Status{st})
				return nil
			})
			return oo.HandleError(cmd.OutOrStdout(), err)
		},
	}

	AddOutputArg(cmd, oo)
	topLevel.AddCommand(cmd)
}

func addProgress(topLevel *cobra.Command, a *app) {
	oo := &OutputOptions{}

	cmd := &cobra.Command{
		Use:   "progress <goal> <percent>",
		Short: "Set a goal's progress (clamped to 0-100)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.with(cmd, func(ctx context.Context, w io.Writer) error {
				g, err := a.resolveGoal(args[0])
				if err != nil {
					return err
				}
				p, err := strconv.Atoi(strings.TrimSuffix(args[1], "%"))
				if err != nil {
					return fmt.Errorf("%w: progress %q is not a number", goals.ErrValidation, args[1])
				}
				if err := a.store.UpdateProgress(ctx, g.ID, p); err != nil {
					return a.fail("progress", err)
				}
				updated, err := a.store.Goal(g.ID)
				if err != nil {
					return err
				}
				if oo.JSON {
					return outputJSON(w, updated)
				}
				fmt.Fprintf(w, "%s: %d%%\n", updated.Title, updated.Progress)
				return nil
			})
			return oo.HandleError(cmd.OutOrStdout(), err)
		},
	}

	AddOutputArg(cmd, oo)
	topLevel.AddCommand(cmd)
}

func addRename(topLevel *cobra.Command, a *app) {
	oo := &OutputOptions{}

	cmd := &cobra.Command{
		Use:   "rename <goal> <title>",
		Short: "Change a goal's title",
		Args:  requireArgs(2, "a goal and a new title"),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.with(cmd, func(ctx context.Context, w io.Writer) error {
				g, err := a.resolveGoal(args[0])
				if err != nil {
					return err
				}
				title := strings.Join(args[1:], " ")
				if err := a.store.SetTitle(ctx, g.ID, title); err != nil {
					return a.fail("rename", err)
				}
				updated, err := a.store.Goal(g.ID)
				if err != nil {
					return err
				}
				if oo.JSON {
					return outputJSON(w, updated)
				}
				fmt.Fprintf(w, "Renamed: %s → %s\n", g.Title, updated.Title)
				return nil
			})
			return oo.HandleError(cmd.OutOrStdout(), err)
		},
	}

	AddOutputArg(cmd, oo)
	topLevel.AddCommand(cmd)
}

func addNote(topLevel *cobra.Command, a *app) {
	oo := &OutputOptions{}

	cmd := &cobra.Command{
		Use:   "note <goal> <text>",
		Short: "Append a line to a goal's notes",
		Args:  requireArgs(2, "a goal and some text"),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.with(cmd, func(ctx context.Context, w io.Writer) error {
				g, err := a.resolveGoal(args[0])
				if err != nil {
					return err
				}
				text := strings.Join(args[1:], " ")
				notes := strings.TrimRight(g.Notes, "\n")
				if notes != "" {
					notes += "\n\n"
				}
				notes += text + "\n"
				if err := a.store.SetNotes(ctx, g.ID, notes); err != nil {
					return a.fail("note", err)
				}
				updated, err := a.store.Goal(g.ID)
				if err != nil {
					return err
				}
				if oo.JSON {
					return outputJSON(w, updated)
				}
				fmt.Fprintf(w, "Note added to %s\n", updated.Title)
				return nil
			})
			return oo.HandleError(cmd.OutOrStdout(), err)
		},
	}

	AddOutputArg(cmd, oo)
	topLevel.AddCommand(cmd)
}

func addDelete(topLevel *cobra.Command, a *app) {
	oo := &OutputOptions{}

	cmd := &cobra.Command{
		Use:     "delete <goal>",
		Aliases: []string{"rm"},
		Short:   "Delete a goal",
		Args:    requireArgs(1, "a goal id or title"),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.with(cmd, func(ctx context.Context, w io.Writer) error {
				g, err := a.resolveGoal(strings.Join(args, " "))
				if err != nil {
					return err
				}
				if err := a.store.DeleteGoal(ctx, g.ID); err != nil {
					return a.fail("delete", err)
				}
				if oo.JSON {
					return outputJSON(w, map[string]string{"deleted": g.ID})
				}
				fmt.Fprintf(w, "Deleted: %s\n", g.Title)
				return nil
			})
			return oo.HandleError(cmd.OutOrStdout(), err)
		},
	}

	AddOutputArg(cmd, oo)
	topLevel.AddCommand(cmd)
}

func addMilestone(topLevel *cobra.Command, a *app) {
	cmd := &cobra.Command{
		Use:   "milestone",
		Short: "Manage a goal's milestones",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	addMilestoneAdd(cmd, a)
	addMilestoneToggle(cmd, a)

	topLevel.AddCommand(cmd)
}

func addMilestoneAdd(topLevel *cobra.Command, a *app) {
	oo := &OutputOptions{}

	cmd := &cobra.Command{
		Use:   "add <goal> <title>",
		Short: "Add a milestone",
		Args:  requireArgs(2, "a goal and a milestone title"),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.with(cmd, func(ctx context.Context, w io.Writer) error {
				g, err := a.resolveGoal(args[0])
				if err != nil {
					return err
				}
				ms, err := a.store.AddMilestone(ctx, g.ID, strings.Join(args[1:], " "))
				if err != nil {
					return a.fail("milestone", err)
				}
				if oo.JSON {
					return outputJSON(w, ms)
				}
				fmt.Fprintf(w, "Milestone added to %s: %s\n", g.Title, ms.Title)
				return nil
			})
			return oo.HandleError(cmd.OutOrStdout(), err)
		},
	}

	AddOutputArg(cmd, oo)
	topLevel.AddCommand(cmd)
}

func addMilestoneToggle(topLevel *cobra.Command, a *app) {
	oo := &OutputOptions{}

	cmd := &cobra.Command{
		Use:   "toggle <goal> <milestone>",
		Short: "Mark a milestone done or not done",
		Long:  "The milestone is named by its number in `show`, its id or its title.",
		Args:  requireArgs(2, "a goal and a milestone"),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.with(cmd, func(ctx context.Context, w io.Writer) error {
				g, err := a.resolveGoal(args[0])
				if err != nil {
					return err
				}
				ms, err := findMilestone(g, strings.Join(args[1:], " "))
				if err != nil {
					return err
				}
				if err := a.store.ToggleMilestone(ctx, g.ID, ms.ID); err != nil {
					return a.fail("milestone", err)
				}
				updated, err := a.store.Goal(g.ID)
				if err != nil {
					return err
				}
				if oo.JSON {
					return outputJSON(w, updated)
				}
				state := "not done"
				for _, m := range updated.Milestones {
					if m.ID == ms.ID && m.IsComplete() {
						state = "done"
					}
				}
				fmt.Fprintf(w, "%s: %s\n", ms.Title, state)
				return nil
			})
			return oo.HandleError(cmd.OutOrStdout(), err)
		},
	}

	AddOutputArg(cmd, oo)
	topLevel.AddCommand(cmd)
}

func findMilestone(g goals.Goal, ref string) (goals.Milestone, error) {
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(g.Milestones) {
		return g.Milestones[n-1], nil
	}
	for _, ms := range g.Milestones {
		if ms.ID == ref || strings.EqualFold(ms.Title, ref) {
			return ms, nil
		}
	}
	return goals.Milestone{}, fmt.Errorf("%w: milestone %s on %s", goals.ErrNotFound, ref, g.Title)
}
