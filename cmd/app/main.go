// CLI for the band catalog: import and analyze audio, recommend songs,
// curate albums and setlists, and serve the HTTP API.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Robby2D2/big-flavor-band-agent-sub001/pkg/cache"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/pkg/catalog"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/pkg/curate"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/pkg/recommend"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/pkg/server"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/pkg/tuning"
)

var (
	flagDB      string
	flagCache   string
	flagConfig  string
	flagWorkers int

	log zerolog.Logger
	cfg tuning.Config
)

var rootCmd = &cobra.Command{
	Use:   "app",
	Short: "Music catalog analysis, recommendation, and curation",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
		var err error
		cfg, err = tuning.Load(flagConfig)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <directory>",
	Short: "Import audio files into the catalog and queue them for analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(args[0])
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze one audio file and print the result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalyze(args[0])
	},
}

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend the next song to play",
	RunE: func(cmd *cobra.Command, args []string) error {
		current, _ := cmd.Flags().GetString("current")
		mood, _ := cmd.Flags().GetString("mood")
		energy, _ := cmd.Flags().GetString("energy")
		return runRecommend(current, mood, energy)
	},
}

var similarCmd = &cobra.Command{
	Use:   "similar <song-id>",
	Short: "Find songs similar to a reference song",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return runSimilar(args[0], limit)
	},
}

var albumCmd = &cobra.Command{
	Use:   "album",
	Short: "Curate a themed album from the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		theme, _ := cmd.Flags().GetString("theme")
		minutes, _ := cmd.Flags().GetFloat64("minutes")
		return runAlbum(theme, minutes)
	},
}

var setlistCmd = &cobra.Command{
	Use:   "setlist",
	Short: "Build a live setlist with an energy-flow strategy",
	RunE: func(cmd *cobra.Command, args []string) error {
		flow, _ := cmd.Flags().GetString("flow")
		minutes, _ := cmd.Flags().GetFloat64("minutes")
		return runSetlist(flow, minutes)
	},
}

var flowCmd = &cobra.Command{
	Use:   "flow <song-id> <song-id> [song-id...]",
	Short: "Analyze the transition flow of an ordered song sequence",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFlow(args)
	},
}

var cacheCmd = &cobra.Command{
	Use:   "cache <stats|clear>",
	Short: "Inspect or clear the analysis cache",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCache(args[0])
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		return runServe(addr)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "catalog.db", "Path to the catalog database")
	rootCmd.PersistentFlags().StringVar(&flagCache, "cache", "analysis_cache.json", "Path to the analysis cache file")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Optional YAML config file")
	rootCmd.PersistentFlags().IntVar(&flagWorkers, "workers", 4, "Analysis worker count")

	recommendCmd.Flags().String("current", "", "ID of the song playing now")
	recommendCmd.Flags().String("mood", "", "Requested mood")
	recommendCmd.Flags().String("energy", "", "Requested energy level")
	similarCmd.Flags().Int("limit", 0, "Maximum number of matches")
	albumCmd.Flags().String("theme", "", "Album theme")
	albumCmd.Flags().Float64("minutes", 0, "Target album length in minutes")
	setlistCmd.Flags().String("flow", "", "Energy flow: building, consistent, or varied")
	setlistCmd.Flags().Float64("minutes", 0, "Target setlist length in minutes")
	serveCmd.Flags().String("addr", ":8080", "Listen address")

	rootCmd.AddCommand(importCmd, analyzeCmd, recommendCmd, similarCmd,
		albumCmd, setlistCmd, flowCmd, cacheCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openStore() (*catalog.Store, error) {
	store, err := catalog.Open(flagDB)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	return store, nil
}

func runImport(dir string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	cacheStore := cache.Open(flagCache, log)
	analyzer := cache.NewAnalyzer(cacheStore, cfg, log)
	pool := catalog.NewPool(store, analyzer, 2*flagWorkers, log)
	pool.Start(flagWorkers)

	count, err := catalog.NewImporter(store, pool, log).ImportDir(rootCmd.Context(), dir)
	pool.Stop()
	if err != nil {
		return err
	}
	log.Info().Int("songs", count).Msg("import complete")
	return nil
}

func runAnalyze(path string) error {
	cacheStore := cache.Open(flagCache, log)
	analyzer := cache.NewAnalyzer(cacheStore, cfg, log)
	return printJSON(analyzer.Analyze(path, path))
}

func runRecommend(currentID, mood, energy string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := rootCmd.Context()
	songs, err := store.List(ctx)
	if err != nil {
		return err
	}
	var current *catalog.Song
	if currentID != "" {
		song, err := store.Get(ctx, currentID)
		if err != nil {
			return err
		}
		current = &song
	}

	rec, err := recommend.New(cfg).Next(songs, current, mood, energy)
	if err != nil {
		return err
	}
	return printJSON(rec)
}

func runSimilar(id string, limit int) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := rootCmd.Context()
	reference, err := store.Get(ctx, id)
	if err != nil {
		return err
	}
	songs, err := store.List(ctx)
	if err != nil {
		return err
	}

	result, err := recommend.New(cfg).Similar(reference, songs, limit)
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runAlbum(theme string, minutes float64) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	songs, err := store.List(rootCmd.Context())
	if err != nil {
		return err
	}
	album, err := curate.New(cfg).Album(songs, theme, minutes)
	if err != nil {
		return err
	}
	return printJSON(album)
}

func runSetlist(flow string, minutes float64) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	songs, err := store.List(rootCmd.Context())
	if err != nil {
		return err
	}
	setlist, err := curate.New(cfg).Setlist(songs, minutes, flow)
	if err != nil {
		return err
	}
	return printJSON(setlist)
}

func runFlow(ids []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := rootCmd.Context()
	songs := make([]catalog.Song, 0, len(ids))
	for _, id := range ids {
		song, err := store.Get(ctx, id)
		if err != nil {
			return err
		}
		songs = append(songs, song)
	}

	analysis, err := curate.New(cfg).Flow(songs)
	if err != nil {
		return err
	}
	return printJSON(analysis)
}

func runCache(action string) error {
	cacheStore := cache.Open(flagCache, log)
	switch strings.ToLower(action) {
	case "stats":
		return printJSON(cacheStore.Stats())
	case "clear":
		cacheStore.Clear()
		log.Info().Msg("cache cleared")
		return nil
	default:
		return fmt.Errorf("unknown cache action %q", action)
	}
}

func runServe(addr string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	cacheStore := cache.Open(flagCache, log)
	return server.New(store, cacheStore, cfg, log).Run(addr)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
