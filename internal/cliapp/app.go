// Package cliapp is the pagesaver command line: one-shot snapshots of a
// page and PDF conversion of saved snapshots.
package cliapp

import (
	"time"

	"github.com/urfave/cli/v2"

	"github.com/edgecomet/pagesaver/internal/pdfclient"
)

// NewApp builds the pagesaver CLI.
func NewApp() *cli.App {
	return &cli.App{
		Name:  "pagesaver",
		Usage: "save web pages as single self-contained HTML files",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "debug logging on stderr",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "save",
				Usage:     "capture a page and save it, or only the selected elements",
				ArgsUsage: " ",
				Action:    SaveAction,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "snapshot service YAML config; flags override it",
					},
					&cli.StringFlag{
						Name:     "url",
						Aliases:  []string{"u"},
						Usage:    "page to capture",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "mode",
						Aliases: []string{"m"},
						Usage:   "full or selection",
						Value:   "full",
					},
					&cli.StringSliceFlag{
						Name:    "select",
						Aliases: []string{"s"},
						Usage:   "CSS selector to add to the selection (repeatable)",
					},
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "directory receiving the snapshot",
					},
					&cli.BoolFlag{
						Name:  "chrome",
						Usage: "capture with headless Chrome; --chrome=false fetches over HTTP",
						Value: true,
					},
					&cli.StringFlag{
						Name:  "pdf",
						Usage: "PDF service endpoint; conversion is skipped when empty",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "overall deadline",
						Value: 2 * time.Minute,
					},
				},
			},
			{
				Name:      "convert",
				Usage:     "convert a saved HTML snapshot to PDF through the PDF service",
				ArgsUsage: "<file.html>",
				Action:    ConvertAction,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "endpoint",
						Usage: "PDF service endpoint",
						Value: pdfclient.DefaultEndpoint,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "PDF file name, defaults to the HTML name with .pdf",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "conversion deadline",
						Value: 60 * time.Second,
					},
				},
			},
		},
	}
}
