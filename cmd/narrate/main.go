// Command narrate turns a PDF into a narrated WAV file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/google/gops/agent"
	"github.com/lexiqai/doc-narrator/internal/audio"
	"github.com/lexiqai/doc-narrator/internal/config"
	"github.com/lexiqai/doc-narrator/internal/document"
	"github.com/lexiqai/doc-narrator/internal/observability"
	"github.com/lexiqai/doc-narrator/internal/pipeline"
	"github.com/lexiqai/doc-narrator/internal/storage"
	"github.com/rs/zerolog"
)

func main() {
	flags := flag.NewFlagSet("narrate", flag.ExitOnError)
	in := flags.String("in", "", "input PDF path or URL (required)")
	out := flags.String("out", "", "output WAV URL or path (default OUTPUT_URL/<name>.wav)")
	voice := flags.String("voice", "", "voice name (default DEFAULT_VOICE)")
	speed := flags.Float64("speed", 0, "speech speed 0.25-2 (default DEFAULT_SPEED)")
	pause := flags.Float64("pause", -1, "seconds of silence between segments (default PAUSE_DURATION)")
	pages := flags.String("pages", "", `1-indexed pages, e.g. "3", "1,2,5" or "2-4" (default all)`)
	textOnly := flags.Bool("text-only", false, "print the cleaned text and exit without remote calls")
	gops := flags.Bool("gops", false, "start the gops diagnostics agent")
	flags.Parse(os.Args[1:])

	if *in == "" {
		flags.Usage()
		os.Exit(2)
	}

	if *gops {
		startGops()
	}

	// Extraction needs no credentials, so a failed load only matters later
	cfg, cfgErr := config.Load()
	if cfgErr != nil && !*textOnly {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", cfgErr)
		os.Exit(1)
	}
	if cfg == nil {
		cfg = textOnlyConfig()
	}

	observability.InitLoggerTo(os.Stderr, cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger, options{
		in:       *in,
		out:      *out,
		voice:    *voice,
		speed:    *speed,
		pause:    *pause,
		pages:    *pages,
		textOnly: *textOnly,
	}); err != nil {
		var pe *pipeline.Error
		if errors.As(err, &pe) {
			fmt.Fprintf(os.Stderr, "narrate: %s problem during %s: %v\n", pe.Kind, pe.Stage, pe.Err)
		} else {
			fmt.Fprintf(os.Stderr, "narrate: %v\n", err)
		}
		os.Exit(1)
	}
}

type options struct {
	in, out  string
	voice    string
	speed    float64
	pause    float64
	pages    string
	textOnly bool
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts options) error {
	selection, err := document.ParsePageSelection(opts.pages)
	if err != nil {
		return err
	}

	store, err := storage.NewStore(cfg.OutputURL)
	if err != nil {
		return err
	}
	doc, err := store.Load(ctx, opts.in)
	if err != nil {
		return err
	}

	if opts.textOnly {
		p := pipeline.New(cfg, nil, nil, pipeline.WithLogger(logger))
		text, err := p.Extract(ctx, doc, selection)
		if err != nil {
			return err
		}
		fmt.Println(text)
		return nil
	}

	p, err := pipeline.NewFromConfig(cfg, logger)
	if err != nil {
		return err
	}

	result, err := p.Run(ctx, pipeline.Input{
		Document:     doc,
		Pages:        selection,
		Voice:        opts.voice,
		Speed:        opts.speed,
		PauseSeconds: opts.pause,
		OnProgress: func(pr pipeline.Progress) {
			if pr.Stage == pipeline.StageFormat {
				fmt.Fprintf(os.Stderr, "formatted page %d/%d (%d attempts, %s)\n", pr.Page+1, pr.Total, pr.Attempts, pr.Elapsed.Round(time.Millisecond))
				return
			}
			fmt.Fprintf(os.Stderr, "%s...\n", pr.Stage)
		},
	})
	if err != nil {
		return err
	}

	wav, err := audio.EncodeWAV(result.Waveform)
	if err != nil {
		return err
	}

	location, err := save(ctx, store, wav, opts.in, opts.out)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %s (%s of audio)\n", location, result.Stats.AudioLength.Round(time.Millisecond))
	return nil
}

// save writes to -out when given, otherwise next to OUTPUT_URL named after the input
func save(ctx context.Context, store *storage.Store, wav []byte, in, out string) (string, error) {
	if out == "" {
		name := strings.TrimSuffix(path.Base(in), path.Ext(in)) + ".wav"
		return store.Save(ctx, wav, name)
	}
	target, err := storage.Normalize(out)
	if err != nil {
		return "", err
	}
	dir, name := path.Split(target)
	outStore, err := storage.NewStore(strings.TrimSuffix(dir, "/"))
	if err != nil {
		return "", err
	}
	return outStore.Save(ctx, wav, name)
}

func textOnlyConfig() *config.Config {
	cfg := &config.Config{
		OutputURL:            "file:///tmp/doc-narrator",
		IgnoreBoilerplate:    true,
		BoilerplateWindow:    5,
		BoilerplateThreshold: 0.6,
		PageSeparator:        "\n",
		RetryMaxAttempts:     1,
		LogLevel:             config.GetEnv("LOG_LEVEL", "info"),
	}
	if url := os.Getenv("OUTPUT_URL"); url != "" {
		cfg.OutputURL = url
	}
	return cfg
}

func startGops() {
	if err := agent.Listen(agent.Options{ShutdownCleanup: true}); err != nil {
		fmt.Fprintf(os.Stderr, "gops: %v\n", err)
	}
}
