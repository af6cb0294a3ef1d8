package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/starford/notebase/internal"
	"github.com/starford/notebase/internal/activities"
	"github.com/starford/notebase/internal/query"
)

// withClient runs fn with the configured client stack. Logs go to stderr so
// command output stays clean.
func withClient(ctx context.Context, cmd *cli.Command, fn func(context.Context, *internal.ClientStack) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := internal.NewLogger(cfg, os.Stderr)

	stack, err := internal.OpenClient(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stack.Close()
	return fn(ctx, stack)
}

func requireArgs(cmd *cli.Command, names ...string) ([]string, error) {
	args := cmd.Args().Slice()
	if len(args) < len(names) {
		return nil, fmt.Errorf("usage: %s %s", cmd.Name, "<"+strings.Join(names, "> <")+">")
	}
	return args, nil
}

func filterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "Only items of this type"},
		&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Only items whose path contains this text"},
		&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Search text, or a filter expression with --querylang"},
		&cli.BoolFlag{Name: "querylang", Usage: "Treat --query as a filter expression"},
	}
}

// applyFilterFlags overrides state with the filter flags that were set.
func applyFilterFlags(cmd *cli.Command, state query.FilterState) query.FilterState {
	if cmd.IsSet("type") {
		state.TypeFilter = cmd.String("type")
		state.TypeFilterEnabled = state.TypeFilter != ""
	}
	if cmd.IsSet("path") {
		state.PathFilter = cmd.String("path")
		state.PathFilterEnabled = state.PathFilter != ""
	}
	if cmd.IsSet("query") {
		state.Query = cmd.String("query")
	}
	if cmd.IsSet("querylang") {
		state.Mode = query.ModeFulltext
		if cmd.Bool("querylang") {
			state.Mode = query.ModeQueryLang
		}
	}
	return state.Normalized()
}

func listCommand() *cli.Command {
	flags := append(filterFlags(),
		&cli.IntFlag{Name: "page", Value: 1, Usage: "1-based page"},
		&cli.IntFlag{Name: "per-page", Value: activities.DefaultPageSize, Usage: "Page size"},
		&cli.BoolFlag{Name: "json", Usage: "Print JSON instead of a table"},
	)
	return &cli.Command{
		Name:  "list",
		Usage: "List items matching the current filter, overridden by flags",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withClient(ctx, cmd, func(ctx context.Context, stack *internal.ClientStack) error {
				state := applyFilterFlags(cmd, stack.Filters.Current())
				if err := state.Validate(); err != nil {
					return err
				}
				filter := query.Build(state)
				res, err := stack.Cached.GetList(ctx, int(cmd.Int("page")), int(cmd.Int("per-page")), filter)
				if err != nil {
					return err
				}
				if cmd.Bool("json") {
					return printJSON(os.Stdout, res)
				}
				renderList(os.Stdout, res, filter)
				return nil
			})
		},
	}
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one item",
		ArgsUsage: "<id>",
		Flags:     []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "Print JSON"}},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args, err := requireArgs(cmd, "id")
			if err != nil {
				return err
			}
			return withClient(ctx, cmd, func(ctx context.Context, stack *internal.ClientStack) error {
				item, err := stack.Cached.GetItem(ctx, args[0])
				if err != nil {
					return err
				}
				if cmd.Bool("json") {
					return printJSON(os.Stdout, item)
				}
				renderItem(os.Stdout, item)
				return nil
			})
		},
	}
}

func toggleCommand() *cli.Command {
	return &cli.Command{
		Name:      "toggle",
		Usage:     "Complete an open item or reopen a completed one",
		ArgsUsage: "<id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args, err := requireArgs(cmd, "id")
			if err != nil {
				return err
			}
			return withClient(ctx, cmd, func(ctx context.Context, stack *internal.ClientStack) error {
				item, err := stack.Activities.Toggle(ctx, args[0])
				if err != nil {
					return err
				}
				if item.Done() {
					fmt.Printf("%s: completed %s\n", item.Title(), item.Frontmatter.Completed)
				} else {
					fmt.Printf("%s: reopened\n", item.Title())
				}
				return nil
			})
		},
	}
}

func payCommand() *cli.Command {
	return &cli.Command{
		Name:      "pay",
		Usage:     "Add a transaction to a debt (positive: owed to me)",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.FloatFlag{Name: "amount", Aliases: []string{"a"}, Required: true, Usage: "Signed amount, e.g. --amount=-12.5"},
			&cli.StringFlag{Name: "comment", Aliases: []string{"m"}, Usage: "Note"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args, err := requireArgs(cmd, "id")
			if err != nil {
				return err
			}
			return withClient(ctx, cmd, func(ctx context.Context, stack *internal.ClientStack) error {
				tx, err := stack.Activities.AddTransaction(ctx, args[0], cmd.Float("amount"), cmd.String("comment"))
				if err != nil {
					return err
				}
				fmt.Printf("added %s (%+.2f)\n", tx.ID, tx.Amount)
				return nil
			})
		},
	}
}

func transactionCommand() *cli.Command {
	return &cli.Command{
		Name:  "tx",
		Usage: "Edit or remove debt transactions",
		Commands: []*cli.Command{
			{
				Name:      "edit",
				Usage:     "Change the amount, comment or date of a transaction",
				ArgsUsage: "<id> <transaction-id>",
				Flags: []cli.Flag{
					&cli.FloatFlag{Name: "amount", Aliases: []string{"a"}},
					&cli.StringFlag{Name: "comment", Aliases: []string{"m"}, Usage: "New note; empty removes it"},
					&cli.StringFlag{Name: "created", Usage: "RFC 3339 timestamp"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					args, err := requireArgs(cmd, "id", "transaction-id")
					if err != nil {
						return err
					}
					var upd activities.TransactionUpdate
					if cmd.IsSet("amount") {
						v := cmd.Float("amount")
						upd.Amount = &v
					}
					if cmd.IsSet("comment") {
						v := cmd.String("comment")
						upd.Comment = &v
					}
					if cmd.IsSet("created") {
						v := cmd.String("created")
						upd.Created = &v
					}
					return withClient(ctx, cmd, func(ctx context.Context, stack *internal.ClientStack) error {
						tx, err := stack.Activities.UpdateTransaction(ctx, args[0], args[1], upd)
						if err != nil {
							return err
						}
						fmt.Printf("updated %s (%+.2f)\n", tx.ID, tx.Amount)
						return nil
					})
				},
			},
			{
				Name:      "rm",
				Usage:     "Remove a transaction",
				ArgsUsage: "<id> <transaction-id>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					args, err := requireArgs(cmd, "id", "transaction-id")
					if err != nil {
						return err
					}
					return withClient(ctx, cmd, func(ctx context.Context, stack *internal.ClientStack) error {
						return stack.Activities.RemoveTransaction(ctx, args[0], args[1])
					})
				},
			},
		},
	}
}

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Toggle a grocery list entry; --add appends a new one",
		ArgsUsage: "<id> <name>",
		Flags:     []cli.Flag{&cli.BoolFlag{Name: "add", Usage: "Append the entry instead of toggling it"}},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args, err := requireArgs(cmd, "id", "name")
			if err != nil {
				return err
			}
			name := strings.Join(args[1:], " ")
			return withClient(ctx, cmd, func(ctx context.Context, stack *internal.ClientStack) error {
				var err error
				if cmd.Bool("add") {
					_, err = stack.Activities.AddChecklistItem(ctx, args[0], name)
				} else {
					_, err = stack.Activities.ToggleChecklistItem(ctx, args[0], name)
				}
				if err != nil {
					return err
				}
				item, err := stack.Cached.GetItem(ctx, args[0])
				if err != nil {
					return err
				}
				renderChecklist(os.Stdout, item.Frontmatter.Checklist)
				return nil
			})
		},
	}
}

func nextEpisodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "next",
		Usage:     "Advance a track to its next episode",
		ArgsUsage: "<id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args, err := requireArgs(cmd, "id")
			if err != nil {
				return err
			}
			return withClient(ctx, cmd, func(ctx context.Context, stack *internal.ClientStack) error {
				item, err := stack.Activities.AdvanceEpisode(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Printf("%s: episode %d\n", item.Title(), *item.Frontmatter.Episode)
				return nil
			})
		},
	}
}

func editCommand() *cli.Command {
	return &cli.Command{
		Name:      "edit",
		Usage:     "Replace the body of an item with stdin or --file",
		ArgsUsage: "<id>",
		Flags:     []cli.Flag{&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Read the body from this file"}},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args, err := requireArgs(cmd, "id")
			if err != nil {
				return err
			}
			var body []byte
			if path := cmd.String("file"); path != "" {
				body, err = os.ReadFile(path)
			} else {
				body, err = io.ReadAll(os.Stdin)
			}
			if err != nil {
				return fmt.Errorf("read body: %w", err)
			}
			if len(body) == 0 {
				return errors.New("refusing to write an empty body")
			}
			return withClient(ctx, cmd, func(ctx context.Context, stack *internal.ClientStack) error {
				return stack.Activities.EditContent(ctx, args[0], string(body))
			})
		},
	}
}
