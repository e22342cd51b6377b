package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourusername/ncm-fetch-go/internal/app"
	"github.com/yourusername/ncm-fetch-go/internal/domain"
	"github.com/yourusername/ncm-fetch-go/internal/infrastructure"
	"github.com/yourusername/ncm-fetch-go/pkg/logger"
)

var (
	configPath string
	serverURL  string
	rootCmd    = &cobra.Command{
		Use:   "ncm-fetch",
		Short: "ncm-fetch CLI - cloud music metadata and audio fetcher",
		Long:  `A command-line interface for searching, resolving and downloading cloud music.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:5000", "Server URL for list/stats")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(urlCmd)
	rootCmd.AddCommand(lyricCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(playlistCmd)
	rootCmd.AddCommand(albumCmd)
	rootCmd.AddCommand(fmCmd)
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(recommendCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(meCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(configInitCmd)
}

// stack is the fully wired engine the direct commands run against.
type stack struct {
	config      *domain.Config
	client      *infrastructure.NeteaseClient
	resolver    *app.QualityResolver
	coordinator *app.DownloadCoordinator
	repo        *infrastructure.SQLiteCatalogRepository
	store       *infrastructure.LocalFileStore
	log         *zap.Logger
}

func (s *stack) Close() {
	if s.repo != nil {
		s.repo.Close()
	}
}

// buildStack wires the engine for direct (serverless) commands. Commands
// that never download pass withCatalog=false and skip the database.
func buildStack(withCatalog bool) (*stack, error) {
	config, err := app.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	log := logger.NewQuiet()
	transport := infrastructure.NewTransport(&config.Netease, log)
	client := infrastructure.NewNeteaseClient(transport, log)

	var mirror domain.MirrorResolver
	if config.Mirror.Enabled {
		mirror = infrastructure.NewMirrorClient(&config.Mirror, log)
	}
	resolver := app.NewQualityResolver(client, mirror, log)

	s := &stack{
		config:   config,
		client:   client,
		resolver: resolver,
		log:      log,
	}
	if !withCatalog {
		return s, nil
	}

	repo, err := infrastructure.NewSQLiteCatalogRepository(config.Catalog.DatabasePath)
	if err != nil {
		return nil, err
	}
	store, err := infrastructure.NewLocalFileStore(config.Download.Dir)
	if err != nil {
		repo.Close()
		return nil, err
	}
	streamer := infrastructure.NewAudioStreamer(config.Download.StreamTimeout)

	s.repo = repo
	s.store = store
	s.coordinator = app.NewDownloadCoordinator(repo, resolver, streamer, store, &config.Download, log)
	return s, nil
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func parseSongID(arg string) int64 {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		fatal(fmt.Errorf("invalid song id %q", arg))
	}
	return id
}

var searchCmd = &cobra.Command{
	Use:   "search [keyword]",
	Short: "Search songs by keyword",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		s, err := buildStack(false)
		if err != nil {
			fatal(err)
		}
		defer s.Close()

		keyword := args[0]
		for _, a := range args[1:] {
			keyword += " " + a
		}
		result, err := s.client.SearchSongs(cmd.Context(), keyword, limit, offset)
		if err != nil {
			fatal(err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tARTIST\tALBUM\tDURATION\tFEE")
		for _, song := range result.Songs {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\n",
				song.ID, song.Title, song.ArtistNames(), song.Album.Name,
				song.DurationString(), song.Fee)
		}
		w.Flush()
		fmt.Printf("\n%d of %d results\n", len(result.Songs), result.Total)
	},
}

var infoCmd = &cobra.Command{
	Use:   "info [id]",
	Short: "Show song metadata",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s, err := buildStack(false)
		if err != nil {
			fatal(err)
		}
		defer s.Close()

		song, err := s.resolver.Song(cmd.Context(), parseSongID(args[0]))
		if err != nil {
			fatal(err)
		}

		fmt.Printf("Song Details:\n")
		fmt.Printf("  ID:       %d\n", song.ID)
		fmt.Printf("  Title:    %s\n", song.Title)
		fmt.Printf("  Artist:   %s\n", song.ArtistNames())
		fmt.Printf("  Album:    %s\n", song.Album.Name)
		fmt.Printf("  Duration: %s\n", song.DurationString())
		fmt.Printf("  Fee:      %d\n", song.Fee)
	},
}

var urlCmd = &cobra.Command{
	Use:   "url [id]",
	Short: "Resolve a playable URL for a song",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		level, _ := cmd.Flags().GetString("level")

		s, err := buildStack(false)
		if err != nil {
			fatal(err)
		}
		defer s.Close()

		quality := domain.QualityLevel(level)
		if !quality.Valid() {
			fatal(fmt.Errorf("unknown quality level %q", level))
		}

		res, err := s.resolver.Resolve(cmd.Context(), parseSongID(args[0]), quality)
		if err != nil {
			fatal(err)
		}

		fmt.Printf("URL:       %s\n", res.URL.URL)
		fmt.Printf("Requested: %s\n", res.Requested)
		fmt.Printf("Used:      %s\n", res.Used)
		fmt.Printf("Backend:   %s\n", res.Backend)
		fmt.Printf("Bitrate:   %d\n", res.URL.Bitrate)
		fmt.Printf("Size:      %d bytes\n", res.URL.Size)
	},
}

var lyricCmd = &cobra.Command{
	Use:   "lyric [id]",
	Short: "Show lyrics for a song",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		translated, _ := cmd.Flags().GetBool("translated")

		s, err := buildStack(false)
		if err != nil {
			fatal(err)
		}
		defer s.Close()

		lyric, err := s.client.Lyric(cmd.Context(), parseSongID(args[0]))
		if err != nil {
			fatal(err)
		}

		if translated && lyric.Translated != "" {
			fmt.Println(lyric.Translated)
			return
		}
		if lyric.Raw == "" {
			fmt.Println("(no lyrics)")
			return
		}
		fmt.Println(lyric.Raw)
	},
}

var fmCmd = &cobra.Command{
	Use:   "fm",
	Short: "Show the personalized radio feed (requires login)",
	Run: func(cmd *cobra.Command, args []string) {
		s, err := buildStack(false)
		if err != nil {
			fatal(err)
		}
		defer s.Close()

		songs, err := s.client.PersonalFM(cmd.Context())
		if err != nil {
			fatal(err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tARTIST\tDURATION")
		for _, song := range songs {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
				song.ID, song.Title, song.ArtistNames(), song.DurationString())
		}
		w.Flush()
	},
}

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Show the new-songs chart",
	Run: func(cmd *cobra.Command, args []string) {
		area, _ := cmd.Flags().GetInt("area")

		s, err := buildStack(false)
		if err != nil {
			fatal(err)
		}
		defer s.Close()

		songs, err := s.client.NewSongs(cmd.Context(), area)
		if err != nil {
			fatal(err)
		}
		printSongTable(songs)
	},
}

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Show the daily recommendations (requires login)",
	Run: func(cmd *cobra.Command, args []string) {
		s, err := buildStack(false)
		if err != nil {
			fatal(err)
		}
		defer s.Close()

		songs, err := s.client.RecommendSongs(cmd.Context())
		if err != nil {
			fatal(err)
		}
		printSongTable(songs)
	},
}

func printSongTable(songs []domain.Song) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tARTIST\tALBUM\tDURATION")
	for _, song := range songs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			song.ID, song.Title, song.ArtistNames(), song.Album.Name, song.DurationString())
	}
	w.Flush()
}

var configInitCmd = &cobra.Command{
	Use:   "config-init [path]",
	Short: "Write a config file with default values",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := "configs/config.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil {
			fatal(fmt.Errorf("%s already exists", path))
		}
		if err := app.SaveConfig(domain.DefaultConfig(), path); err != nil {
			fatal(err)
		}
		fmt.Printf("Wrote %s\n", path)
	},
}

func init() {
	searchCmd.Flags().Int("limit", 30, "Maximum results")
	searchCmd.Flags().Int("offset", 0, "Result offset for paging")
	urlCmd.Flags().String("level", string(domain.LevelExHigh), "Quality level")
	newCmd.Flags().Int("area", 0, "Area filter (0 all, 7 chinese, 8 japanese, 16 korean, 96 western)")
	lyricCmd.Flags().Bool("translated", false, "Prefer the translated lyric when available")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
