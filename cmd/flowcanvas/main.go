// Package main provides the flowcanvas command line tool for inspecting, rendering and
// replaying workflow documents.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	catalogFlag := &cli.StringFlag{
		Name:    "catalog-path",
		Usage:   "Template catalog YAML file, the built-in catalog is used when empty",
		Sources: cli.EnvVars("CATALOG_PATH"),
	}

	return &cli.Command{
		Name:                  "flowcanvas",
		Usage:                 "Inspect, render and replay workflow documents",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			catalogFlag,
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "validate",
				Usage:     "Report the entries a document would lose when loaded",
				ArgsUsage: "<workflow.json>",
				Action:    validateAction,
			},
			{
				Name:      "render",
				Usage:     "Render a document to PNG",
				ArgsUsage: "<workflow.json> <out.png>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "max-size",
						Usage: "Longest side of the image in pixels",
						Value: 2048,
					},
				},
				Action: renderAction,
			},
			{
				Name:      "replay",
				Usage:     "Feed recorded input events through an editing session and save the result",
				ArgsUsage: "<events.jsonl>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "store",
						Usage:    "Workflow store URL (file://, postgres://, redis://)",
						Required: true,
						Sources:  cli.EnvVars("DATABASE_URL"),
					},
					&cli.StringFlag{
						Name:  "workflow",
						Usage: "Workflow to load before replaying, a new one is created when empty",
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "Name of the workflow created when --workflow is empty",
						Value: "Replayed workflow",
					},
					&cli.FloatFlag{
						Name:  "width",
						Usage: "Viewport width the events were recorded with",
						Value: 1280,
					},
					&cli.FloatFlag{
						Name:  "height",
						Usage: "Viewport height the events were recorded with",
						Value: 800,
					},
				},
				Action: replayAction,
			},
			{
				Name:  "catalog",
				Usage: "List the node templates",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "kind",
						Usage: "Only list templates of this kind (trigger, action, condition)",
					},
				},
				Action: catalogAction,
			},
		},
	}
}
