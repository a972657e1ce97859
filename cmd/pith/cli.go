package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/pithlabs/pith/internal/errors"
	"github.com/pithlabs/pith/internal/ops"
	"github.com/pithlabs/pith/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(env *ops.Env) *cli.App {
	app := &cli.App{
		Name:    "pith",
		Usage:   "Business-context manifest engine",
		Version: Version,
		Commands: []*cli.Command{
			reduceCmd(env),
			synthesizeCmd(env),
			manifestCmd(env),
			versionsCmd(env),
			compileCmd(env),
			feedbackCmd(env),
			generationsCmd(env),
			memoryCmd(env),
			reflectCmd(env),
			exportCmd(env),
			importCmd(env),
			webCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// reduceCmd creates the reduce command.
func reduceCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "reduce",
		Usage: "Preview the reduction of a raw context document (reads from stdin, persists nothing)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "workspace", Aliases: []string{"w"}, Required: true, Usage: "Workspace ID"},
			&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Usage: "Source tag: initial-onboarding|reflection|seed"},
		},
		Action: func(c *cli.Context) error {
			rawContext, err := requireStdin("raw context")
			if err != nil {
				return err
			}

			output, err := env.Reduce(ops.ReduceInput{
				WorkspaceID: c.String("workspace"),
				RawContext:  rawContext,
				Source:      c.String("source"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// synthesizeCmd creates the synthesize command.
func synthesizeCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "synthesize",
		Usage: "Reduce + enrich a raw context document and store it as a new manifest version (reads from stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "workspace", Aliases: []string{"w"}, Required: true, Usage: "Workspace ID"},
			&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Usage: "Source tag: initial-onboarding|reflection|seed"},
		},
		Action: func(c *cli.Context) error {
			rawContext, err := requireStdin("raw context")
			if err != nil {
				return err
			}

			output, err := env.Synthesize(c.Context, ops.SynthesizeInput{
				WorkspaceID: c.String("workspace"),
				RawContext:  rawContext,
				Source:      c.String("source"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// manifestCmd creates the manifest command.
func manifestCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "manifest",
		Usage: "Fetch a manifest, the latest version by default",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "workspace", Aliases: []string{"w"}, Required: true, Usage: "Workspace ID"},
			&cli.IntFlag{Name: "manifest-version", Usage: "Specific retained version"},
		},
		Action: func(c *cli.Context) error {
			output, err := env.GetManifest(ops.GetManifestInput{
				WorkspaceID: c.String("workspace"),
				Version:     c.Int("manifest-version"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// versionsCmd creates the versions command.
func versionsCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "versions",
		Usage: "List retained manifest versions, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "workspace", Aliases: []string{"w"}, Required: true, Usage: "Workspace ID"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 20, Usage: "Maximum versions to return"},
		},
		Action: func(c *cli.Context) error {
			output, err := env.ListVersions(ops.ListVersionsInput{
				WorkspaceID: c.String("workspace"),
				Limit:       c.Int("limit"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// compileCmd creates the compile command.
func compileCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "compile",
		Usage: "Compile the system prompt for a generation call",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "workspace", Aliases: []string{"w"}, Required: true, Usage: "Workspace ID"},
			&cli.StringFlag{Name: "content-type", Aliases: []string{"t"}, Required: true, Usage: "Content type, e.g. email, blog, social, landing_page"},
			&cli.StringFlag{Name: "icp", Usage: "Target ICP role"},
			&cli.BoolFlag{Name: "memories", Usage: "Augment with recent memories (result is not cached)"},
			&cli.BoolFlag{Name: "raw", Usage: "Print the prompt text instead of JSON"},
		},
		Action: func(c *cli.Context) error {
			output, err := env.CompilePrompt(ops.CompilePromptInput{
				WorkspaceID:     c.String("workspace"),
				ContentType:     c.String("content-type"),
				TargetICP:       c.String("icp"),
				IncludeMemories: c.Bool("memories"),
			})
			if err != nil {
				return outputError(err)
			}
			if c.Bool("raw") {
				fmt.Println(output.Prompt)
				return nil
			}
			return outputJSON(output)
		},
	}
}

// feedbackCmd creates the feedback command.
func feedbackCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "feedback",
		Usage:     "Record a 1-5 score (and optional edits) on a generation",
		ArgsUsage: "<generation-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "workspace", Aliases: []string{"w"}, Required: true, Usage: "Workspace ID"},
			&cli.IntFlag{Name: "score", Aliases: []string{"s"}, Required: true, Usage: "Score from 1 to 5"},
			&cli.StringFlag{Name: "edits", Aliases: []string{"e"}, Usage: "What was changed in the output"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("generation-id argument is required"))
			}

			input := ops.RecordFeedbackInput{
				WorkspaceID:  c.String("workspace"),
				GenerationID: c.Args().First(),
				Score:        c.Int("score"),
			}
			if edits := c.String("edits"); edits != "" {
				input.Edits = &edits
			}

			output, err := env.RecordFeedback(input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// generationsCmd creates the generations command.
func generationsCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "generations",
		Usage: "List generation log entries",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "workspace", Aliases: []string{"w"}, Required: true, Usage: "Workspace ID"},
			&cli.StringFlag{Name: "content-type", Aliases: []string{"t"}, Usage: "Filter by content type"},
			&cli.BoolFlag{Name: "rated", Usage: "Only rated entries, best first"},
			&cli.IntFlag{Name: "min-score", Usage: "Minimum score, with --rated"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 20, Usage: "Maximum entries to return"},
		},
		Action: func(c *cli.Context) error {
			output, err := env.ListGenerations(ops.ListGenerationsInput{
				WorkspaceID: c.String("workspace"),
				ContentType: c.String("content-type"),
				RatedOnly:   c.Bool("rated"),
				MinScore:    c.Int("min-score"),
				Limit:       c.Int("limit"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// memoryCmd creates the memory command with its subcommands.
func memoryCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "memory",
		Usage: "Inspect and manage learned memories",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List memories, most recent first",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "workspace", Aliases: []string{"w"}, Required: true, Usage: "Workspace ID"},
					&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "Filter: correction|preference|pattern|insight"},
					&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 20, Usage: "Maximum memories to return"},
				},
				Action: func(c *cli.Context) error {
					output, err := env.ListMemories(ops.ListMemoriesInput{
						WorkspaceID: c.String("workspace"),
						Type:        c.String("type"),
						Limit:       c.Int("limit"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "summary",
				Usage: "Aggregate memory view: counts by type and top entries by confidence",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "workspace", Aliases: []string{"w"}, Required: true, Usage: "Workspace ID"},
				},
				Action: func(c *cli.Context) error {
					output, err := env.MemorySummary(ops.MemorySummaryInput{
						WorkspaceID: c.String("workspace"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "add",
				Usage: "Add a memory directly",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "workspace", Aliases: []string{"w"}, Required: true, Usage: "Workspace ID"},
					&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Required: true, Usage: "correction|preference|pattern|insight"},
					&cli.StringFlag{Name: "summary", Aliases: []string{"s"}, Required: true, Usage: "One-line observation"},
					&cli.Float64Flag{Name: "confidence", Aliases: []string{"c"}, Value: 0.7, Usage: "Confidence in [0,1]"},
				},
				Action: func(c *cli.Context) error {
					output, err := env.AddMemory(ops.AddMemoryInput{
						WorkspaceID: c.String("workspace"),
						Type:        c.String("type"),
						Content:     map[string]any{"summary": c.String("summary")},
						Confidence:  c.Float64("confidence"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete one memory",
				ArgsUsage: "<memory-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "workspace", Aliases: []string{"w"}, Required: true, Usage: "Workspace ID"},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() < 1 {
						return outputError(errors.NewInvalidRequest("memory-id argument is required"))
					}
					output, err := env.DeleteMemory(ops.DeleteMemoryInput{
						WorkspaceID: c.String("workspace"),
						MemoryID:    c.Args().First(),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

// reflectCmd creates the reflect command.
func reflectCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "reflect",
		Usage: "Run a reflection cycle (or check whether one is due)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "workspace", Aliases: []string{"w"}, Required: true, Usage: "Workspace ID"},
			&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Run even when the threshold is not met"},
			&cli.BoolFlag{Name: "check", Usage: "Only report whether reflection is due"},
		},
		Action: func(c *cli.Context) error {
			if c.Bool("check") {
				output, err := env.ReflectCheck(ops.ReflectCheckInput{
					WorkspaceID: c.String("workspace"),
				})
				if err != nil {
					return outputError(err)
				}
				return outputJSON(output)
			}

			output, err := env.Reflect(c.Context, ops.ReflectInput{
				WorkspaceID: c.String("workspace"),
				Force:       c.Bool("force"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export manifest versions to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "workspace", Aliases: []string{"w"}, Usage: "Only this workspace (default: all)"},
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Output path (default: ~/.pith/exports/)"},
		},
		Action: func(c *cli.Context) error {
			output, err := env.Export(c.Context, ops.ExportInput{
				Path:        c.String("path"),
				WorkspaceID: c.String("workspace"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// importCmd creates the import command.
func importCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import manifest versions from a JSONL export file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Export file to read"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "error", Usage: "Collision handling: error|skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := env.Import(ops.ImportInput{
				Path: c.String("path"),
				Mode: ops.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// webCmd creates the web command.
func webCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "web",
		Usage: "Serve the read-only web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Aliases: []string{"b"}, Value: "127.0.0.1", Usage: "Bind address"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 7764, Usage: "Listen port"},
		},
		Action: func(c *cli.Context) error {
			srv := web.NewServer(env, Version, c.String("bind"), c.Int("port"))
			return web.Run(srv)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if pithErr, ok := err.(*errors.PithError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", pithErr.Code, pithErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// requireStdin reads piped input, failing with a usable message when run
// from a terminal.
func requireStdin(what string) (string, error) {
	if !stdinHasData() {
		return "", outputError(errors.NewInvalidRequest(fmt.Sprintf("%s must be piped via stdin", what)))
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", outputError(errors.NewInternal(err))
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", outputError(errors.NewInvalidRequest(fmt.Sprintf("%s is required", what)))
	}
	return text, nil
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}
