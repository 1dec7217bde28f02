package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/atinyakov/go-user-directory/internal/client"
	"github.com/atinyakov/go-user-directory/internal/models"
)

var errMissingID = errors.New("user id is required")

// Runner holds the output of the CLI; each action builds its client from
// the root flags.
type Runner struct {
	output io.Writer
}

func NewRunner(out io.Writer) *Runner {
	return &Runner{output: out}
}

func (r *Runner) client(cmd *cli.Command) *client.Client {
	return client.New(cmd.String("addr"), client.WithRealIP(cmd.String("real-ip")))
}

func (r *Runner) withTimeout(ctx context.Context, cmd *cli.Command) (context.Context, context.CancelFunc) {
	if d := cmd.Duration("timeout"); d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}

func (r *Runner) Populate(ctx context.Context, cmd *cli.Command) error {
	ctx, cancel := r.withTimeout(ctx, cmd)
	defer cancel()

	resp, err := r.client(cmd).Populate(ctx, cmd.Int("count"))
	if err != nil {
		return fmt.Errorf("populate: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(resp)
	}
	r.writePlain("%s\n", resp.Message)
	r.writePlain("  inserted: %d  rejected: %d  target: %d  failed chunks: %d  took: %dms\n",
		resp.InsertedCount, resp.RejectedCount, resp.TargetCount, resp.FailedChunks, resp.DurationMs)
	return nil
}

func (r *Runner) DeleteAll(ctx context.Context, cmd *cli.Command) error {
	ctx, cancel := r.withTimeout(ctx, cmd)
	defer cancel()

	resp, err := r.client(cmd).DeleteAll(ctx)
	if err != nil {
		if resp.DeletedCount > 0 {
			r.writePlain("%s\n", resp.Message)
		}
		return fmt.Errorf("delete all: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(resp)
	}
	r.writePlain("%s (state: %s)\n", resp.Message, resp.State)
	return nil
}

func (r *Runner) List(ctx context.Context, cmd *cli.Command) error {
	ctx, cancel := r.withTimeout(ctx, cmd)
	defer cancel()

	page, err := r.client(cmd).List(ctx, cmd.Int("page"), cmd.Int("limit"))
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(page)
	}
	return r.writeUsers(page.Users, page.Page, page.TotalPages, page.Total)
}

func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	ctx, cancel := r.withTimeout(ctx, cmd)
	defer cancel()

	f := models.SearchFilter{
		Username: cmd.String("name"),
		Email:    cmd.String("email"),
		Phone:    cmd.String("phone"),
	}

	resp, err := r.client(cmd).Search(ctx, f, cmd.Int("page"), cmd.Int("limit"))
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(resp)
	}
	return r.writeUsers(resp.Users, resp.Page, resp.TotalPages, resp.Total)
}

func (r *Runner) DeleteUser(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return errMissingID
	}

	ctx, cancel := r.withTimeout(ctx, cmd)
	defer cancel()

	u, err := r.client(cmd).DeleteUser(ctx, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(u)
	}
	r.writePlain("deleted %s (%s)\n", u.ID, u.Email)
	return nil
}

func (r *Runner) Stats(ctx context.Context, cmd *cli.Command) error {
	ctx, cancel := r.withTimeout(ctx, cmd)
	defer cancel()

	stats, err := r.client(cmd).Stats(ctx)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(stats)
	}
	r.writePlain("users: %d\n", stats.Users)
	return nil
}

func (r *Runner) Ping(ctx context.Context, cmd *cli.Command) error {
	ctx, cancel := r.withTimeout(ctx, cmd)
	defer cancel()

	if err := r.client(cmd).Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	r.writePlain("ok\n")
	return nil
}

func (r *Runner) writeUsers(users []models.User, page, totalPages int, total int64) error {
	w := tabwriter.NewWriter(r.output, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tPHONE")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.ID, u.Username, u.Email, u.Phone)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	r.writePlain("page %d of %d, %d users\n", page, totalPages, total)
	return nil
}

func (r *Runner) writeJSON(data any) error {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	out = append(out, '\n')
	if _, err := r.output.Write(out); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) {
	fmt.Fprintf(r.output, format, args...)
}
