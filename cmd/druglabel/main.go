// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func dbFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "db",
		Aliases: []string{"d"},
		Usage:   "Path to BadgerDB database directory (defaults to DRUGLABEL_DATA_DIR)",
	}
}

func chunkFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "max-tokens",
			Usage: "Token ceiling of a chunk (defaults to DRUGLABEL_CHUNK_MAX_TOKENS)",
		},
		&cli.IntFlag{
			Name:  "overlap",
			Usage: "Sentences carried into the next chunk (defaults to DRUGLABEL_CHUNK_OVERLAP)",
		},
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "druglabel",
		Usage: "Normalize, enrich, chunk, and rank drug label exports",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Environment file read before the environment",
				Value: ".env",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "process",
				Usage:  "Run a label export through every pipeline stage",
				Action: processCommand,
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Usage:    "JSON array of label documents",
						Required: true,
					},
					dbFlag(),
					&cli.StringFlag{
						Name:  "artifacts",
						Usage: "Directory for stage artifacts (defaults to DRUGLABEL_ARTIFACTS_DIR)",
					},
					&cli.StringFlag{
						Name:  "vector-backend",
						Usage: "Chunk store: badger, chromem or pgvector",
					},
					&cli.StringFlag{
						Name:  "postgres-dsn",
						Usage: "Also write drugs and rankings to this Postgres database",
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Neighbor documents kept per ranking",
					},
					&cli.BoolFlag{
						Name:  "contraindication-tags",
						Usage: "Extract contraindication tags",
					},
				}, chunkFlags()...),
			},
			{
				Name:   "normalize",
				Usage:  "Normalize label markup and write items.json",
				Action: normalizeCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Usage:    "JSON array of label documents",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "output",
						Aliases:  []string{"o"},
						Usage:    "Output directory",
						Required: true,
					},
				},
			},
			{
				Name:   "chunk",
				Usage:  "Print the chunks of a structured artifact as JSON lines",
				Action: chunkCommand,
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Usage:    "structured_items.json artifact",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "estimate-tokens",
						Usage: "Count tokens as len/4 instead of loading tiktoken tables",
					},
				}, chunkFlags()...),
			},
			{
				Name:   "similar",
				Usage:  "Rank the neighbors of one document",
				Action: similarCommand,
				Flags: []cli.Flag{
					dbFlag(),
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Set id of the document",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Neighbor documents to return",
						Value: 5,
					},
				},
			},
			{
				Name:   "search",
				Usage:  "Search chunks and list matching documents",
				Action: searchCommand,
				Flags: []cli.Flag{
					dbFlag(),
					&cli.StringFlag{
						Name:     "query",
						Aliases:  []string{"q"},
						Usage:    "Search text",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum documents returned",
						Value: 10,
					},
				},
			},
			{
				Name:   "rank",
				Usage:  "Recompute and store the similarity ranking of every enriched document",
				Action: rankCommand,
				Flags: []cli.Flag{
					dbFlag(),
					&cli.StringFlag{
						Name:  "postgres-dsn",
						Usage: "Also write rankings to this Postgres database",
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Neighbor documents kept per ranking",
					},
				},
			},
			{
				Name:   "tags",
				Usage:  "List documents carrying a tag",
				Action: tagsCommand,
				Flags: []cli.Flag{
					dbFlag(),
					&cli.StringFlag{
						Name:  "kind",
						Usage: "Tag kind: condition, substance, indication, strength, population or contraindication",
						Value: "condition",
					},
					&cli.StringFlag{
						Name:     "tag",
						Aliases:  []string{"t"},
						Usage:    "Tag to look up (case-insensitive)",
						Required: true,
					},
				},
			},
			{
				Name:   "reindex",
				Usage:  "Re-chunk and re-embed every enriched document",
				Action: reindexCommand,
				Flags:  append([]cli.Flag{dbFlag()}, chunkFlags()...),
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
