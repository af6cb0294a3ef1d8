package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/starford/notebase/internal"
	"github.com/starford/notebase/internal/activities"
	"github.com/starford/notebase/internal/filterstore"
	"github.com/starford/notebase/internal/query"
)

// withFilters opens the filter store alone; filter commands never touch the
// content client.
func withFilters(cmd *cli.Command, fn func(*filterstore.Store) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := filterstore.Open(cfg.Filters.Path, internal.NewLogger(cfg, os.Stderr))
	if err != nil {
		return err
	}
	return fn(store)
}

func filterCommand() *cli.Command {
	return &cli.Command{
		Name:  "filter",
		Usage: "Manage the current filter and saved presets",
		Commands: []*cli.Command{
			{
				Name:  "set",
				Usage: "Change the current filter; unset flags keep their value",
				Flags: filterFlags(),
				Action: func(_ context.Context, cmd *cli.Command) error {
					return withFilters(cmd, func(store *filterstore.Store) error {
						state := applyFilterFlags(cmd, store.Current())
						if err := store.SetCurrent(state); err != nil {
							return err
						}
						fmt.Println(query.Build(state))
						return nil
					})
				},
			},
			{
				Name:  "clear",
				Usage: "Reset the current filter",
				Action: func(_ context.Context, cmd *cli.Command) error {
					return withFilters(cmd, func(store *filterstore.Store) error {
						return store.SetCurrent(query.DefaultState())
					})
				},
			},
			{
				Name:      "save",
				Usage:     "Save the current filter as a preset",
				ArgsUsage: "<label>",
				Action: func(_ context.Context, cmd *cli.Command) error {
					args, err := requireArgs(cmd, "label")
					if err != nil {
						return err
					}
					return withFilters(cmd, func(store *filterstore.Store) error {
						f, err := store.Save(strings.Join(args, " "), store.Current())
						if err != nil {
							return err
						}
						fmt.Println(f.ID)
						return nil
					})
				},
			},
			{
				Name:  "ls",
				Usage: "List saved presets",
				Action: func(_ context.Context, cmd *cli.Command) error {
					return withFilters(cmd, func(store *filterstore.Store) error {
						renderSavedFilters(os.Stdout, store.Current(), store.Saved())
						return nil
					})
				},
			},
			{
				Name:      "use",
				Usage:     "Make a saved preset the current filter",
				ArgsUsage: "<id>",
				Action: func(_ context.Context, cmd *cli.Command) error {
					args, err := requireArgs(cmd, "id")
					if err != nil {
						return err
					}
					return withFilters(cmd, func(store *filterstore.Store) error {
						f, err := store.Get(args[0])
						if err != nil {
							return err
						}
						return store.SetCurrent(f.FilterState)
					})
				},
			},
			{
				Name:      "rm",
				Usage:     "Delete a saved preset",
				ArgsUsage: "<id>",
				Action: func(_ context.Context, cmd *cli.Command) error {
					args, err := requireArgs(cmd, "id")
					if err != nil {
						return err
					}
					return withFilters(cmd, func(store *filterstore.Store) error {
						return store.Delete(args[0])
					})
				},
			},
		},
	}
}

// watchCommand prints the activity feed and reloads it whenever the stored
// filter changes, e.g. through `filter set` in another terminal.
func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Show the item list and follow changes to the current filter",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			return withClient(ctx, cmd, func(ctx context.Context, stack *internal.ClientStack) error {
				unsubscribe := stack.Activities.Subscribe(func(feed activities.Feed) {
					if feed.Err != nil {
						fmt.Fprintf(os.Stderr, "load failed: %v\n", feed.Err)
						return
					}
					renderList(os.Stdout, feed.Result, feed.Filter)
				})
				defer unsubscribe()

				if err := stack.Activities.SetFilter(stack.Filters.Current()); err != nil {
					return err
				}
				stack.Activities.FlushFilter()

				err := stack.Filters.Watch(ctx, func(state query.FilterState) {
					if err := stack.Activities.SetFilter(state); err != nil {
						slog.Warn("ignoring filter change", slog.String("error", err.Error()))
					}
				})
				return err
			})
		},
	}
}
