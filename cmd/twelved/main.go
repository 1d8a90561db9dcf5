// Package main is the entry point for the Twelve Remix media daemon.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/anuragxone/twelve-remix/internal/artwork"
	"github.com/anuragxone/twelve-remix/internal/datasource/local"
	"github.com/anuragxone/twelve-remix/internal/infra/mpd"
	"github.com/anuragxone/twelve-remix/internal/prefs"
	"github.com/anuragxone/twelve-remix/internal/provider"
	"github.com/anuragxone/twelve-remix/internal/repository"
	"github.com/anuragxone/twelve-remix/internal/resumption"
	"github.com/anuragxone/twelve-remix/internal/sources"
	"github.com/anuragxone/twelve-remix/internal/store"
	"github.com/anuragxone/twelve-remix/internal/version"
)

func main() {
	port := flag.String("port", "3001", "HTTP server port")
	mpdHost := flag.String("mpd-host", "localhost", "MPD host")
	mpdPort := flag.Int("mpd-port", 6600, "MPD port")
	mpdPassword := flag.String("mpd-password", "", "MPD password")
	dataDir := flag.String("data-dir", "./data", "Directory for the database, preferences and artwork cache")
	volumeRoots := flag.String("volume-roots", "", "Comma-separated mount roots to watch for removable music volumes")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Print startup banner
	versionInfo := version.GetInfo()
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().Msgf("  %s", versionInfo.String())
	log.Info().Msg("  Media Aggregation Daemon")
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().
		Str("port", *port).
		Str("mpd_host", *mpdHost).
		Int("mpd_port", *mpdPort).
		Str("data_dir", *dataDir).
		Bool("password_set", *mpdPassword != "").
		Msg("Configuration")

	if err := os.MkdirAll(*dataDir, 0755); err != nil {
		log.Fatal().Err(err).Msg("Failed to create data directory")
	}

	// Persistence
	st := store.New(filepath.Join(*dataDir, "twelved.db"))
	if err := st.Open(); err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer st.Close()

	pf := prefs.New(filepath.Join(*dataDir, "prefs.yaml"))
	if err := pf.Load(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load preferences")
	}

	// MPD client for the local library
	mpdClient := mpd.NewClient(*mpdHost, *mpdPort, *mpdPassword)
	if err := mpdClient.Connect(); err != nil {
		log.Warn().Err(err).Msg("MPD unreachable at startup, local library degraded until it comes back")
	} else {
		log.Info().Msg("MPD connection verified")
	}
	defer mpdClient.Close()

	artworkSvc := artwork.NewService(mpdClient, filepath.Join(*dataDir, "artwork"))
	localSrc := local.New(mpdClient, st, artworkSvc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Volume watcher: removable music mounts appearing or vanishing refresh
	// the local library.
	if *volumeRoots != "" {
		volumeSvc := sources.NewService(strings.Split(*volumeRoots, ","))
		if err := volumeSvc.Start(); err != nil {
			log.Warn().Err(err).Msg("Volume watcher unavailable")
		} else {
			defer volumeSvc.Close()
			go func() {
				for range volumeSvc.Changed().Subscribe(ctx) {
					localSrc.NotifyContentChanged()
				}
			}()
		}
	}

	// MPD database updates refresh the local library too.
	go watchMPDDatabase(ctx, mpdClient, localSrc)

	// Provider registry and router
	repo := repository.New(st, pf, repository.Config{Local: localSrc})
	if err := repo.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start provider registry")
	}

	// Playback resumption: repair the persisted queue against what still
	// resolves before handing it to a player frontend.
	resumptionMgr := resumption.NewManager(st, repo.Audio)
	if state, err := resumptionMgr.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to load resumption state")
	} else if !state.Empty() {
		log.Info().Int("queue", len(state.Queue)).Int("index", state.Index).Msg("Resumption queue restored")
	}

	// HTTP surface
	mux := http.NewServeMux()
	registerAPI(mux, repo, resumptionMgr, mpdClient)

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      corsMiddleware(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Info().Msg("Shutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}
	}()

	log.Info().Str("addr", ":"+*port).Msg("HTTP server listening")
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("HTTP server error")
	}

	log.Info().Msg("Server stopped")
}

// watchMPDDatabase forwards MPD database update events into local library
// change notifications, reconnecting the idle channel when it drops.
func watchMPDDatabase(ctx context.Context, client *mpd.Client, src *local.Source) {
	for {
		events, err := client.Watch("database")
		if err != nil {
			log.Debug().Err(err).Msg("MPD idle watch unavailable, retrying")
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
				continue
			}
		}
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					goto reconnect
				}
				src.NotifyContentChanged()
			}
		}
	reconnect:
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// identifierFromQuery parses "kind" and "instance" request parameters.
func identifierFromQuery(r *http.Request) (provider.Identifier, error) {
	kind, err := provider.ParseKind(r.URL.Query().Get("kind"))
	if err != nil {
		return provider.Identifier{}, err
	}
	instance, err := strconv.ParseInt(r.URL.Query().Get("instance"), 10, 64)
	if err != nil {
		instance = 0
	}
	return provider.Identifier{Kind: kind, InstanceID: instance}, nil
}
