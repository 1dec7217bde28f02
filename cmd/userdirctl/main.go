package main

import (
	"context"
	"io"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/atinyakov/go-user-directory/internal/client"
)

var buildVersion = "dev"

func main() {
	log.SetFlags(0)
	log.SetPrefix("userdirctl: ")

	if err := newCommand(os.Stdout, os.Stderr).Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func newCommand(out, errOut io.Writer) *cli.Command {
	r := NewRunner(out)

	return &cli.Command{
		Name:      "userdirctl",
		Usage:     "Operate a user directory server",
		Version:   buildVersion,
		Writer:    out,
		ErrWriter: errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Aliases: []string{"a"},
				Usage:   "Base URL of the directory server",
				Value:   client.DefaultBaseURL,
				Sources: cli.EnvVars("USERDIR_ADDR"),
			},
			&cli.StringFlag{
				Name:    "real-ip",
				Usage:   "Value sent as X-Real-IP for subnet-gated endpoints",
				Sources: cli.EnvVars("USERDIR_REAL_IP"),
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Request timeout; bulk operations may need minutes",
				Value: 10 * time.Minute,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print raw JSON responses",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "populate",
				Usage: "Generate and insert synthetic users",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "count",
						Aliases: []string{"n"},
						Usage:   "Number of users, 0 for the server default",
					},
				},
				Action: r.Populate,
			},
			{
				Name:   "delete-all",
				Usage:  "Remove every user in chunks",
				Action: r.DeleteAll,
			},
			{
				Name:   "list",
				Usage:  "List users page by page",
				Flags:  pageFlags(),
				Action: r.List,
			},
			{
				Name:  "search",
				Usage: "Search users by substring",
				Flags: append(pageFlags(),
					&cli.StringFlag{Name: "name", Usage: "Username contains"},
					&cli.StringFlag{Name: "email", Usage: "Email contains"},
					&cli.StringFlag{Name: "phone", Usage: "Phone contains"},
				),
				Action: r.Search,
			},
			{
				Name:      "delete",
				Usage:     "Delete one user by id",
				ArgsUsage: "<id>",
				Action:    r.DeleteUser,
			},
			{
				Name:   "stats",
				Usage:  "Show the number of stored users",
				Action: r.Stats,
			},
			{
				Name:   "ping",
				Usage:  "Check the server and its storage",
				Action: r.Ping,
			},
		},
	}
}

func pageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "page", Aliases: []string{"p"}, Usage: "Page number", Value: 1},
		&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Page size", Value: 20},
	}
}
