package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/eiannone/keyboard"
	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"hark/internal/audio"
	"hark/internal/clip"
	"hark/internal/config"
	"hark/internal/ipc"
	"hark/internal/notify"
	"hark/internal/stt"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

const triggerKey = '`'

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	modelPath := cli.StringP("model", "m", "", "Whisper model path (overrides WHISPER_MODEL_PATH)")
	keys := cli.BoolP("keys", "k", false, "Trigger with the backtick key in this terminal")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	if err := godotenv.Load(*envFile); err != nil {
		log.Debug("No env file loaded", "path", *envFile, "err", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Error("Bad configuration", "err", err)
		os.Exit(1)
	}
	if *modelPath != "" {
		cfg.Whisper.ModelPath = *modelPath
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec := audio.NewRecorder(cfg.Audio.SampleRate, cfg.Audio.Channels)
	if err := rec.Init(); err != nil {
		log.Error("Failed to init audio", "err", err)
		os.Exit(1)
	}
	defer rec.Close()

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

	desktop := notify.NewNotifier("hark")
	var chime *notify.Chime
	if cfg.ChimePath != "" {
		chime = notify.NewChime(cfg.ChimePath, audio.NewPlayer())
	}

	worker := clip.NewWorker(rec, whisper, clip.Config{
		Window:    cfg.Clip.Window,
		Threshold: cfg.Interrupt.Threshold,
	})
	worker.OnStart = func(source string) {
		if source == "mic" && chime != nil {
			if err := chime.Play(ctx); err != nil {
				log.Warn("Failed to play chime", "err", err)
			}
		}
		if err := desktop.Send(ctx, "Listening...", ""); err != nil {
			log.Debug("Desktop notification failed", "err", err)
		}
	}

	closer, err := ipc.StartServer(cfg.Clip.Socket, func(msg ipc.ControlMessage) {
		switch msg.Cmd {
		case ipc.CmdTrigger:
			worker.Trigger(ctx)
		case ipc.CmdFile:
			worker.TranscribeFile(ctx, msg.Arg)
		default:
			log.Warn("Unknown command", "cmd", msg.Cmd)
		}
	})
	if err != nil {
		log.Error("Failed ipc server", "err", err)
		os.Exit(1)
	}
	defer closer.Close()

	if *keys {
		go readKeys(ctx, stop, worker)
	}

	log.Info("Clipboard daemon ready", "socket", cfg.Clip.Socket)

	clip.Deliver(ctx, worker.Results(), clip.SystemClipboard(), func(r clip.Result) {
		if err := desktop.Send(ctx, "Copied", r.Text); err != nil {
			log.Debug("Desktop notification failed", "err", err)
		}
	})
	worker.Close()
}

func readKeys(ctx context.Context, stop context.CancelFunc, w *clip.Worker) {
	if err := keyboard.Open(); err != nil {
		log.Error("Failed to open keyboard", "err", err)
		return
	}
	defer keyboard.Close()

	log.Info("Press ` to record, Esc to quit")

	for ctx.Err() == nil {
		char, key, err := keyboard.GetKey()
		if err != nil {
			log.Warn("Error getting key", "err", err)
			continue
		}
		switch {
		case key == keyboard.KeyEsc || key == keyboard.KeyCtrlC:
			stop()
			return
		case char == triggerKey:
			w.Trigger(ctx)
		}
	}
}
