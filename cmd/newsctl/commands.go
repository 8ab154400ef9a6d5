// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/olegiv/newsdesk/internal/app"
	"github.com/olegiv/newsdesk/internal/auth"
	"github.com/olegiv/newsdesk/internal/handler/api"
	"github.com/olegiv/newsdesk/internal/legacy"
	"github.com/olegiv/newsdesk/internal/store"
)

const minAdminPasswordLength = 8

// withStore opens the configured database, checks it answers and hands the
// queries to fn. The pool is closed afterwards.
func withStore(ctx context.Context, e *env, fn func(*store.Queries) error) error {
	m, err := app.OpenStore(e.cfg, e.logger)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	if err := m.Ping(ctx); err != nil {
		return fmt.Errorf("database not reachable: %w", err)
	}
	return fn(store.New(m))
}

func newMigrateCmd(e *env) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withStore(ctx, e, func(q *store.Queries) error {
				if seed {
					return app.Prepare(ctx, q, e.logger)
				}
				applied, err := q.Manager().Migrate(ctx)
				if err != nil {
					return fmt.Errorf("running migrations: %w", err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", len(applied))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "also create the default categories")
	return cmd
}

func newCreateAdminCmd(e *env) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create the admin account unless it already exists",
		Long: `Create an admin account. The password is taken from --password,
then from NEWSDESK_ADMIN_PASSWORD, and is otherwise read from stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv("NEWSDESK_ADMIN_PASSWORD")
			}
			if password == "" {
				var err error
				password, err = promptLine(cmd.InOrStdin(), cmd.ErrOrStderr(), "Admin password: ")
				if err != nil {
					return err
				}
			}
			if len(password) < minAdminPasswordLength {
				return fmt.Errorf("password must be at least %d characters", minAdminPasswordLength)
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return fmt.Errorf("hashing password: %w", err)
			}

			ctx := cmd.Context()
			return withStore(ctx, e, func(q *store.Queries) error {
				created, err := store.SeedAdmin(ctx, q, email, hash)
				if err != nil {
					return err
				}
				if !created {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s already exists\n", email)
					return nil
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created admin %s\n", email)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", store.DefaultAdminEmail, "admin email address")
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	return cmd
}

func promptLine(in io.Reader, out io.Writer, prompt string) (string, error) {
	_, _ = fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newImportMongoCmd(e *env) *cobra.Command {
	var uri string
	var dryRun, asJSON bool
	cmd := &cobra.Command{
		Use:   "import-mongo",
		Short: "Copy blogs and users from the legacy MongoDB database",
		Long: `Copy the blogs and users collections of the legacy MongoDB database
into the relational store. Records whose slug or email already exists are
skipped, so the import can be repeated safely.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if uri == "" {
				uri = e.cfg.LegacyMongoURL
			}
			if uri == "" {
				return errors.New("no source: pass --uri or set LEGACY_MONGO_URL")
			}

			ctx := cmd.Context()
			src, err := legacy.OpenMongo(ctx, uri, app.StorePolicy(e.cfg))
			if err != nil {
				return err
			}
			defer func() { _ = src.Close(context.Background()) }()

			return withStore(ctx, e, func(q *store.Queries) error {
				res, err := legacy.NewImporter(src, q, e.logger, legacy.Options{DryRun: dryRun}).Run(ctx)
				if err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), res, dryRun, asJSON)
			})
		},
	}
	cmd.Flags().StringVar(&uri, "uri", "", "mongodb:// URL naming the database (default LEGACY_MONGO_URL)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be imported without writing")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON, including the id mapping")
	return cmd
}

func printResult(w io.Writer, res *legacy.Result, dryRun, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	if dryRun {
		_, _ = fmt.Fprintln(w, "dry run, nothing written")
	}
	_, _ = fmt.Fprintf(w, "blogs:      %d imported, %d skipped\n", res.BlogsImported, res.BlogsSkipped)
	_, _ = fmt.Fprintf(w, "users:      %d imported, %d skipped\n", res.UsersImported, res.UsersSkipped)
	_, _ = fmt.Fprintf(w, "categories: %d created\n", res.CategoriesCreated)
	_, _ = fmt.Fprintf(w, "failed:     %d\n", res.Failed)
	return nil
}

func newRoutesCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "routes",
		Short:       "Print the API route table as Markdown",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"config": "none"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := chi.NewRouter()
			r.Mount("/api", api.NewHandler(api.Deps{}, api.Options{}).Routes())
			_, err := fmt.Fprintln(cmd.OutOrStdout(), api.RoutesDoc(r))
			return err
		},
	}
}

func newCheckEnvCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "check-env",
		Short: "Report which configuration variables are set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status := e.cfg.EnvStatus()
			names := make([]string, 0, len(status))
			for name := range status {
				names = append(names, name)
			}
			sort.Strings(names)

			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "environment: %s\n", e.cfg.Env)
			for _, name := range names {
				mark := "missing"
				if status[name] {
					mark = "set"
				}
				_, _ = fmt.Fprintf(w, "  %-24s %s\n", name, mark)
			}
			return e.cfg.Validate()
		},
	}
}
