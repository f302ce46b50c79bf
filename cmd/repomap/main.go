// Command repomap prints a ranked, token-budgeted map of a repository.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/cyber-nic/repomap"
)

func main() {
	app := &cli.App{
		Name:  "repomap",
		Usage: "print a ranked, token-budgeted repository map",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "root", Usage: "repo root (defaults to the nearest .git ancestor of the input path)"},
			&cli.IntFlag{Name: "max-map-tokens", Value: repomap.DefaultMaxMapTokens, Usage: "token budget for the rendered map"},
			&cli.IntFlag{Name: "max-context-window", Value: repomap.DefaultMaxContextWindow, Usage: "model context window, used to expand the budget when no chat files are pinned"},
			&cli.StringSliceFlag{Name: "chat-file", Usage: "file currently in the chat/edit set (repeatable); never rendered in the map"},
			&cli.BoolFlag{Name: "force-refresh", Usage: "bypass the on-disk tag cache"},
			&cli.BoolFlag{Name: "exclude-unranked", Usage: "drop definitions with zero PageRank score"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "print extraction/ranking diagnostics to stderr"},
			&cli.BoolFlag{Name: "debug", Usage: "enable debug logging"},
			&cli.BoolFlag{Name: "trace", Usage: "enable trace logging"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("repomap failed")
	}
}

func run(c *cli.Context) error {
	configureLogging(c.Bool("trace"), c.Bool("debug"))

	inputPath := "."
	if c.Args().Len() > 0 {
		inputPath = c.Args().First()
	}

	absPath, err := filepath.Abs(inputPath)
	if err != nil {
		return fmt.Errorf("resolve %q: %w", inputPath, err)
	}

	root := c.String("root")
	if root == "" {
		root, err = repomap.FindGitRoot(absPath)
		if err != nil {
			root = absPath
			log.Warn().Err(err).Msg("no .git root found; using input path as root")
		}
	}

	rm := repomap.NewRepoMap(
		root,
		repomap.WithMaxMapTokens(c.Int("max-map-tokens")),
		repomap.WithMaxContextWindow(c.Int("max-context-window")),
		repomap.WithVerbose(c.Bool("verbose")),
	)

	allFiles, _ := rm.ListFiles(absPath)

	chatFlags := c.StringSlice("chat-file")
	var chatFiles []string
	chatSet := make(map[string]struct{}, len(chatFlags))
	for _, f := range chatFlags {
		abs, err := filepath.Abs(f)
		if err != nil {
			continue
		}
		chatFiles = append(chatFiles, abs)
		chatSet[abs] = struct{}{}
	}

	var otherFiles []string
	for _, f := range allFiles {
		if _, isChat := chatSet[f]; !isChat {
			otherFiles = append(otherFiles, f)
		}
	}

	result, _ := rm.GetRepoMap(repomap.Options{
		ChatFiles:       chatFiles,
		OtherFiles:      otherFiles,
		ForceRefresh:    c.Bool("force-refresh"),
		ExcludeUnranked: c.Bool("exclude-unranked"),
	})

	if result == nil || strings.TrimSpace(result.Text) == "" {
		fmt.Println("(empty repo map)")
		return nil
	}

	fmt.Println(result.Text)
	return nil
}

func configureLogging(trace, debug bool) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if trace {
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}
