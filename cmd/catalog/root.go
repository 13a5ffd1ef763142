package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"jamesfarrell.me/invideo-search/internal/app"
	"jamesfarrell.me/invideo-search/internal/config"
	"jamesfarrell.me/invideo-search/internal/storage/models"
	"jamesfarrell.me/invideo-search/internal/transcript"
)

var (
	configFile     string
	transcriptFile string
	videoFilter    string
	limit          int
)

var rootCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Process videos and search their transcripts",
	Long: `catalog drives the same service as the HTTP API from the command line.
Settings come from .env, an optional YAML file and the environment.`,
	SilenceUsage: true,
}

var processCmd = &cobra.Command{
	Use:   "process <url-or-id>",
	Short: "Fetch, segment, embed and store a video's transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts []app.Option
		if transcriptFile != "" {
			opts = append(opts, app.WithTranscripts(transcript.FileSource{Path: transcriptFile}))
		}
		return withApp(cmd.Context(), opts, func(a *app.App) error {
			video, newly, err := a.Service.Process(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(models.ProcessResponse{Video: video, NewlyProcessed: newly})
		})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search stored segments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), nil, func(a *app.App) error {
			results, err := a.Service.Search(cmd.Context(), args[0], videoFilter, limit)
			if err != nil {
				return err
			}
			return printJSON(results)
		})
	},
}

var segmentsCmd = &cobra.Command{
	Use:   "segments <video-id>",
	Short: "List a video's segments in order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), nil, func(a *app.App) error {
			segments, err := a.Service.Segments(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(segments)
		})
	},
}

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List recently processed videos",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), nil, func(a *app.App) error {
			return printJSON(a.Service.Recent(cmd.Context(), limit))
		})
	},
}

var infoCmd = &cobra.Command{
	Use:   "info <video-id>",
	Short: "Show what is known about a video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), nil, func(a *app.App) error {
			return printJSON(a.Service.VideoInfo(cmd.Context(), args[0]))
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file (default catalog.yaml if present)")

	processCmd.Flags().StringVar(&transcriptFile, "transcript", "", "read the transcript from a JSON file instead of YouTube")
	searchCmd.Flags().StringVar(&videoFilter, "video", "", "restrict the search to one video id")
	searchCmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of results")
	recentCmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of videos")

	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(segmentsCmd)
	rootCmd.AddCommand(recentCmd)
	rootCmd.AddCommand(infoCmd)
}

func withApp(ctx context.Context, opts []app.Option, fn func(*app.App) error) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
	}

	path := configFile
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	cfg, err := config.Load(path, os.Getenv)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a, err := app.New(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
