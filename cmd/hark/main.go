package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"hark/internal/assistant"
	"hark/internal/audio"
	"hark/internal/backend"
	"hark/internal/bus"
	"hark/internal/config"
	"hark/internal/notify"
	"hark/internal/proxy"
	"hark/internal/search"
	"hark/internal/speech"
	"hark/internal/stt"
	"hark/internal/tts"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

// Names our own playback shows up under in PulseAudio.
var selfStreams = []string{"hark", "ALSA plug-in [hark]"}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	proxyAddr := cli.StringP("proxy", "p", "", "Socks proxy address (overrides SOCKS_PROXY)")
	modelPath := cli.StringP("model", "m", "", "Whisper model path (overrides WHISPER_MODEL_PATH)")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	log.Info("Booting up")

	if err := godotenv.Load(*envFile); err != nil {
		log.Debug("No env file loaded", "path", *envFile, "err", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Error("Bad configuration", "err", err)
		os.Exit(1)
	}
	if *proxyAddr != "" {
		cfg.SocksProxy = *proxyAddr
	}
	if *modelPath != "" {
		cfg.Whisper.ModelPath = *modelPath
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	streamClient, err := proxy.NewClient(cfg.SocksProxy, 0)
	if err != nil {
		log.Error("Failed to dial socks proxy", "proxy", cfg.SocksProxy, "err", err)
		os.Exit(1)
	}
	searchClient, err := proxy.NewClient(cfg.SocksProxy, 10*time.Second)
	if err != nil {
		log.Error("Failed to dial socks proxy", "proxy", cfg.SocksProxy, "err", err)
		os.Exit(1)
	}

	var gen backend.Backend
	switch cfg.Backend.Kind {
	case "openai":
		client := openai.NewClient(
			option.WithAPIKey(cfg.Backend.APIKey),
			option.WithHTTPClient(streamClient),
		)
		gen = backend.NewOpenAI(client, cfg.Backend.Model, cfg.Backend.System)
	default:
		gen = backend.NewOllama(cfg.Backend.URL, cfg.Backend.Model, streamClient)
	}
	log.Debug("Loaded backend", "kind", cfg.Backend.Kind, "model", cfg.Backend.Model)

	rec := audio.NewRecorder(cfg.Audio.SampleRate, cfg.Audio.Channels)
	if err := rec.Init(); err != nil {
		log.Error("Failed to init audio", "err", err)
		os.Exit(1)
	}
	defer rec.Close()
	audio.LogDevices()

	log.Debug("Loaded recorder")

	whisper, err := stt.NewTranscriber(cfg.Whisper.ModelPath, stt.Options{
		Language:      cfg.Whisper.Language,
		TranslateToEn: cfg.Whisper.Translate,
		Threads:       cfg.Whisper.Threads,
		InitialPrompt: cfg.Whisper.InitialPrompt,
		BeamSize:      cfg.Whisper.BeamSize,
	})
	if err != nil {
		log.Error("Failed to init whisper", "err", err)
		os.Exit(1)
	}
	defer whisper.Close()

	log.Debug("Loaded whisper")

	espeak, err := tts.NewEspeak(cfg.Voice.Name, cfg.Voice.Rate)
	if err != nil {
		log.Error("Failed to init espeak", "err", err)
		os.Exit(1)
	}
	defer espeak.Close()

	player := audio.NewPlayer()
	voice := speech.NewVoice(espeak, player)
	monitor := speech.NewMonitor(rec, speech.MonitorConfig{
		Threshold: cfg.Interrupt.Threshold,
		Burst:     cfg.Interrupt.Burst,
		Settle:    cfg.Interrupt.Settle,
		Disabled:  !cfg.Interrupt.Enabled,
	})

	var opts []assistant.Option
	if cfg.Duck.Enabled {
		opts = append(opts, assistant.WithDucker(audio.NewDucker(selfStreams, 5)))
	}
	if cfg.ChimePath != "" {
		opts = append(opts, assistant.WithChime(notify.NewChime(cfg.ChimePath, player)))
	}
	if cfg.BusURL != "" {
		b, err := bus.Dial(ctx, cfg.BusURL, "hark")
		if err != nil {
			log.Warn("Event bus unavailable, continuing without it", "err", err)
		} else {
			defer b.Close()
			opts = append(opts, assistant.WithPublisher(b))
		}
	}

	var loop *assistant.Loop
	streamOpt := speech.Options{
		Temperature: cfg.Backend.Temperature,
		TopP:        cfg.Backend.TopP,
		MaxTokens:   cfg.Backend.MaxTokens,
		OnSentence:  func(s string) { loop.OnSentence(s) },
	}
	if cfg.Search.Enabled {
		streamOpt.Augmenter = search.NewAugmenter(cfg.Search.URL, searchClient)
	}
	streamer := speech.NewStreamer(gen, voice, monitor, streamOpt)

	loop = assistant.New(rec, whisper, voice, streamer, assistant.Config{
		Window:     cfg.Audio.Window,
		Threshold:  cfg.Interrupt.Threshold,
		DuckFactor: cfg.Duck.Factor,
	}, opts...)

	log.Info("Boot up - successful")

	if err := loop.Run(ctx); err != nil {
		log.Error("Assistant stopped", "err", err)
		os.Exit(1)
	}
}
