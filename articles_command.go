package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

const titleColumnWidth = 60

// withArticles opens the configured article store for the duration of fn.
func (c *commandContext) withArticles(cmdCtx context.Context, fn func(articleStore) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := openArticleStore(cmdCtx, cfg)
	if err != nil {
		return fmt.Errorf("open article store: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func newArticlesCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "articles",
		Short: "Browse published articles",
	}
	cmd.AddCommand(newArticlesListCommand(ctx))
	return cmd
}

func newArticlesListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent articles, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withArticles(cmd.Context(), func(store articleStore) error {
				list, err := store.ListArticles(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(list) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No articles yet")
					return nil
				}
				rows := make([][]string, 0, len(list))
				for _, a := range list {
					rows = append(rows, []string{
						a.CreatedAt.Local().Format(time.DateTime),
						string(a.Category),
						truncate(a.Title, titleColumnWidth),
						a.Author,
						strconv.Itoa(a.Views),
					})
				}
				headers := []string{"Published", "Category", "Title", "Author", "Views"}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, 4))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of articles to show")
	return cmd
}

func newDBCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Article database maintenance",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply the schema to the configured article store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withArticles(cmd.Context(), func(store articleStore) error {
				if err := store.Migrate(cmd.Context()); err != nil {
					return err
				}
				cfg, _ := ctx.ensureConfig()
				fmt.Fprintf(cmd.OutOrStdout(), "Schema up to date (%s)\n", cfg.Store.Driver)
				return nil
			})
		},
	})
	return cmd
}
