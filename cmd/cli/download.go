package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/yourusername/ncm-fetch-go/internal/app"
	"github.com/yourusername/ncm-fetch-go/internal/domain"
)

var downloadCmd = &cobra.Command{
	Use:   "download [id...]",
	Short: "Download songs by id",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ids := make([]int64, 0, len(args))
		for _, a := range args {
			ids = append(ids, parseSongID(a))
		}
		runDownload(cmd.Context(), ids)
	},
}

var playlistCmd = &cobra.Command{
	Use:   "playlist [id]",
	Short: "Download every track of a playlist",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s, err := buildStack(true)
		if err != nil {
			fatal(err)
		}
		defer s.Close()

		id := parseSongID(args[0])
		info, _, err := s.client.PlaylistDetail(cmd.Context(), id)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("Playlist: %s by %s (%d tracks)\n", info.Name, info.Creator, info.TrackCount)

		songs, err := s.client.PlaylistTracks(cmd.Context(), id)
		if err != nil {
			fatal(err)
		}
		s.resolver.Prime(songs)
		ids := make([]int64, 0, len(songs))
		for _, song := range songs {
			ids = append(ids, song.ID)
		}
		downloadWithStack(cmd.Context(), s, ids)
	},
}

var albumCmd = &cobra.Command{
	Use:   "album [id]",
	Short: "Download every song on an album",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s, err := buildStack(true)
		if err != nil {
			fatal(err)
		}
		defer s.Close()

		name, songs, err := s.client.AlbumSongs(cmd.Context(), parseSongID(args[0]))
		if err != nil {
			fatal(err)
		}
		fmt.Printf("Album: %s (%d songs)\n", name, len(songs))

		s.resolver.Prime(songs)
		ids := make([]int64, 0, len(songs))
		for _, song := range songs {
			ids = append(ids, song.ID)
		}
		downloadWithStack(cmd.Context(), s, ids)
	},
}

func runDownload(ctx context.Context, ids []int64) {
	s, err := buildStack(true)
	if err != nil {
		fatal(err)
	}
	defer s.Close()
	downloadWithStack(ctx, s, ids)
}

// downloadWithStack enqueues ids and renders a per-song progress bar by
// watching catalog records leave the Downloading state.
func downloadWithStack(ctx context.Context, s *stack, ids []int64) {
	if _, err := s.coordinator.Reconcile(); err != nil {
		fatal(err)
	}

	results := s.coordinator.Request(ctx, ids)

	var queued []int64
	cached := 0
	for _, r := range results {
		switch r.Outcome {
		case app.OutcomeQueued:
			queued = append(queued, r.ID)
		case app.OutcomeCached:
			cached++
		}
	}
	if cached > 0 {
		fmt.Printf("%d already downloaded\n", cached)
	}
	if len(queued) == 0 {
		return
	}

	bar := progressbar.NewOptions(len(queued),
		progressbar.OptionSetDescription("downloading"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	done := make(chan struct{})
	go func() {
		s.coordinator.Wait()
		close(done)
	}()

	finished := map[int64]bool{}
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for len(finished) < len(queued) {
		select {
		case <-ticker.C:
		case <-done:
		}
		for _, id := range queued {
			if finished[id] {
				continue
			}
			record, err := s.repo.FindByID(id)
			if err != nil || record == nil {
				continue
			}
			if record.Status != domain.StatusDownloading {
				finished[id] = true
				bar.Add(1)
			}
		}
		select {
		case <-done:
			// Workers are gone; whatever is not finished never will be
			// in this run.
			if len(finished) < len(queued) {
				for _, id := range queued {
					if !finished[id] {
						finished[id] = true
						bar.Add(1)
					}
				}
			}
		default:
		}
	}
	bar.Finish()

	ok, failed := 0, 0
	for _, id := range queued {
		record, err := s.repo.FindByID(id)
		if err == nil && record != nil && record.IsCompleted() {
			ok++
			fmt.Printf("  %s (%d bytes)\n", record.FilePath, record.FileSize)
		} else {
			failed++
			fmt.Fprintf(os.Stderr, "  %d failed (left pending for retry)\n", id)
		}
	}
	fmt.Printf("%d downloaded, %d failed\n", ok, failed)
}
