package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/mrsingh-rishi/voice-assistant/call"
	"github.com/mrsingh-rishi/voice-assistant/config"
	"github.com/mrsingh-rishi/voice-assistant/conversation"
	"github.com/mrsingh-rishi/voice-assistant/llm"
	"github.com/mrsingh-rishi/voice-assistant/metrics"
	"github.com/mrsingh-rishi/voice-assistant/server"
	"github.com/mrsingh-rishi/voice-assistant/stt"
	"github.com/mrsingh-rishi/voice-assistant/tts"
	"github.com/sashabaranov/go-openai"
)

func newPipeline(cfg *config.Config, m *metrics.Metrics) (*call.Pipeline, error) {
	oaConfig := openai.DefaultConfig(cfg.OpenAI.APIKey)
	if cfg.OpenAI.BaseURL != "" {
		oaConfig.BaseURL = cfg.OpenAI.BaseURL
	}
	client := openai.NewClientWithConfig(oaConfig)

	var engine stt.Engine
	switch cfg.STT.Provider {
	case config.ProviderDeepgram:
		engine = stt.NewDeepgramEngine(cfg.STT.DeepgramAPIKey, cfg.STT.DeepgramURL, cfg.STT.Model)
	default:
		engine = stt.NewOpenAIEngine(client, cfg.STT.Model)
	}
	order, err := stt.ParseOrder(cfg.STT.SegmentOrder)
	if err != nil {
		return nil, err
	}
	transcriber := stt.NewTranscriber(engine, stt.Config{
		SegmentDuration: cfg.SegmentDuration(),
		Workers:         cfg.STT.Workers,
		Order:           order,
	}, m)

	responder := llm.NewResponder(client, llm.Config{
		Model:       cfg.Chat.Model,
		Temperature: cfg.Chat.Temperature,
		MaxTokens:   cfg.Chat.MaxTokens,
	})

	var load tts.Loader
	switch cfg.TTS.Provider {
	case config.ProviderElevenLabs:
		load = tts.ElevenLabsLoader(tts.ElevenLabsConfig{
			APIKey:  cfg.TTS.ElevenLabsAPIKey,
			VoiceID: cfg.TTS.ElevenLabsVoiceID,
			ModelID: cfg.TTS.ElevenLabsModelID,
			BaseURL: cfg.TTS.ElevenLabsURL,
		})
	default:
		load = tts.OpenAILoader(client, cfg.TTS.Model, cfg.TTS.Voice)
	}
	synthesizer := tts.NewSynthesizer(load, m)

	sessions := conversation.NewStore(conversation.Config{
		SystemPrompt: cfg.Chat.SystemPrompt,
		ResetPrompt:  cfg.Chat.ResetPrompt,
		MaxTokens:    cfg.Chat.ContextMaxTokens,
		OnEvict:      m.Evicted,
	})

	return call.NewPipeline(transcriber, responder, synthesizer, sessions, call.Config{
		TempDir:  cfg.TempDir,
		Language: cfg.STT.Language,
		Timeout:  cfg.RequestTimeout,
	}, m), nil
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (default $CONFIG_FILE)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	level, _ := cfg.Level()
	log.SetLevel(level)

	m := metrics.New()
	pipeline, err := newPipeline(cfg, m)
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}

	srv := server.New(pipeline, m, server.Config{
		MaxUploadBytes:   cfg.MaxUploadBytes,
		CORSAllowOrigins: cfg.CORSAllowOrigins,
	})

	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}
	go func() {
		if err := srv.Listen(addr); err != nil {
			log.Fatalf("Server stopped: %v", err)
		}
	}()
	log.Infow("voice assistant ready",
		"addr", addr,
		"stt", cfg.STT.Provider,
		"tts", cfg.TTS.Provider,
		"chat_model", cfg.Chat.Model,
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("shutdown", "error", err)
	}
}
