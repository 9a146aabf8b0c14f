package config

import (
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/joho/godotenv"
	"github.com/mrsingh-rishi/voice-assistant/conversation"
	"github.com/mrsingh-rishi/voice-assistant/stt"
	"github.com/mrsingh-rishi/voice-assistant/tts"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	ProviderOpenAI     = "openai"
	ProviderDeepgram   = "deepgram"
	ProviderElevenLabs = "elevenlabs"
)

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

type ChatConfig struct {
	Model            string  `yaml:"model"`
	MaxTokens        int     `yaml:"max_tokens"`
	Temperature      float32 `yaml:"temperature"`
	SystemPrompt     string  `yaml:"system_prompt"`
	ResetPrompt      string  `yaml:"reset_prompt"`
	ContextMaxTokens int     `yaml:"context_max_tokens"`
}

type STTConfig struct {
	Provider       string `yaml:"provider"`
	Model          string `yaml:"model"`
	Language       string `yaml:"language"`
	SegmentSeconds int    `yaml:"segment_seconds"`
	Workers        int    `yaml:"workers"` // one less than the CPU count when zero
	SegmentOrder   string `yaml:"segment_order"`
	DeepgramAPIKey string `yaml:"deepgram_api_key"`
	DeepgramURL    string `yaml:"deepgram_url"`
}

type TTSConfig struct {
	Provider          string `yaml:"provider"`
	Model             string `yaml:"model"`
	Voice             string `yaml:"voice"`
	ElevenLabsAPIKey  string `yaml:"eleven_labs_api_key"`
	ElevenLabsVoiceID string `yaml:"eleven_labs_voice_id"`
	ElevenLabsModelID string `yaml:"eleven_labs_model_id"`
	ElevenLabsURL     string `yaml:"eleven_labs_url"`
}

type Config struct {
	Port             string        `yaml:"port"`
	LogLevel         string        `yaml:"log_level"`
	TempDir          string        `yaml:"temp_dir"`
	MaxUploadBytes   int           `yaml:"max_upload_bytes"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	CORSAllowOrigins string        `yaml:"cors_allow_origins"`

	OpenAI OpenAIConfig `yaml:"openai"`
	Chat   ChatConfig   `yaml:"chat"`
	STT    STTConfig    `yaml:"stt"`
	TTS    TTSConfig    `yaml:"tts"`
}

func Default() *Config {
	return &Config{
		Port:             "3000",
		LogLevel:         "info",
		MaxUploadBytes:   25 << 20,
		CORSAllowOrigins: "*",
		Chat: ChatConfig{
			Model:            "gpt-3.5-turbo",
			MaxTokens:        4096,
			Temperature:      0.7,
			SystemPrompt:     conversation.DefaultSystemPrompt,
			ResetPrompt:      conversation.DefaultResetPrompt,
			ContextMaxTokens: conversation.DefaultMaxTokens,
		},
		STT: STTConfig{
			Provider:       ProviderOpenAI,
			Model:          "whisper-1",
			SegmentSeconds: 10,
			SegmentOrder:   stt.OrderChronological.String(),
			DeepgramURL:    stt.DefaultDeepgramURL,
		},
		TTS: TTSConfig{
			Provider:          ProviderOpenAI,
			Model:             "tts-1",
			Voice:             "alloy",
			ElevenLabsVoiceID: "JBFqnCBsd6RMkjVDRZzb",
			ElevenLabsModelID: tts.DefaultElevenLabsModel,
			ElevenLabsURL:     tts.DefaultElevenLabsURL,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (or $CONFIG_FILE), then the env files (".env" when none are given), then the
// process environment. Missing env files are skipped.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "read config file")
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config file %s", path)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				log.Infof("No %s file found, falling back to environment variables", f)
				continue
			}
			return nil, errors.Wrapf(err, "load %s", f)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	strs := map[string]*string{
		"PORT":                 &c.Port,
		"LOG_LEVEL":            &c.LogLevel,
		"TEMP_DIR":             &c.TempDir,
		"CORS_ALLOW_ORIGINS":   &c.CORSAllowOrigins,
		"OPENAI_BASE_URL":      &c.OpenAI.BaseURL,
		"CHAT_MODEL":           &c.Chat.Model,
		"SYSTEM_PROMPT":        &c.Chat.SystemPrompt,
		"RESET_PROMPT":         &c.Chat.ResetPrompt,
		"STT_PROVIDER":         &c.STT.Provider,
		"STT_MODEL":            &c.STT.Model,
		"STT_LANGUAGE":         &c.STT.Language,
		"SEGMENT_ORDER":        &c.STT.SegmentOrder,
		"DEEPGRAM_API_KEY":     &c.STT.DeepgramAPIKey,
		"DEEPGRAM_URL":         &c.STT.DeepgramURL,
		"TTS_PROVIDER":         &c.TTS.Provider,
		"TTS_MODEL":            &c.TTS.Model,
		"TTS_VOICE":            &c.TTS.Voice,
		"ELEVEN_LABS_API_KEY":  &c.TTS.ElevenLabsAPIKey,
		"ELEVEN_LABS_VOICE_ID": &c.TTS.ElevenLabsVoiceID,
		"ELEVEN_LABS_MODEL_ID": &c.TTS.ElevenLabsModelID,
		"ELEVEN_LABS_URL":      &c.TTS.ElevenLabsURL,
	}
	ints := map[string]*int{
		"CHAT_MAX_TOKENS":    &c.Chat.MaxTokens,
		"CONTEXT_MAX_TOKENS": &c.Chat.ContextMaxTokens,
		"SEGMENT_SECONDS":    &c.STT.SegmentSeconds,
		"TRANSCRIBE_WORKERS": &c.STT.Workers,
		"MAX_UPLOAD_BYTES":   &c.MaxUploadBytes,
	}

	// OPENAI_API_KEY wins over the older OPEN_AI_API_KEY when both are set.
	for _, key := range []string{"OPEN_AI_API_KEY", "OPENAI_API_KEY"} {
		if v, ok := lookup(key); ok && v != "" {
			c.OpenAI.APIKey = v
		}
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	for key, dst := range ints {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return errors.Wrapf(err, "%s", key)
		}
		*dst = n
	}

	if v, ok := lookup("CHAT_TEMPERATURE"); ok && v != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 32)
		if err != nil {
			return errors.Wrap(err, "CHAT_TEMPERATURE")
		}
		c.Chat.Temperature = float32(f)
	}
	if v, ok := lookup("REQUEST_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return errors.Wrap(err, "REQUEST_TIMEOUT")
		}
		c.RequestTimeout = d
	}
	return nil
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...interface{}) {
		problems = append(problems, errors.Errorf(format, args...).Error())
	}

	if c.OpenAI.APIKey == "" {
		add("OPENAI_API_KEY must be set")
	}

	switch c.STT.Provider {
	case ProviderOpenAI:
	case ProviderDeepgram:
		if c.STT.DeepgramAPIKey == "" {
			add("DEEPGRAM_API_KEY must be set for the deepgram provider")
		}
	default:
		add("unknown STT_PROVIDER %q", c.STT.Provider)
	}

	switch c.TTS.Provider {
	case ProviderOpenAI:
	case ProviderElevenLabs:
		if c.TTS.ElevenLabsAPIKey == "" {
			add("ELEVEN_LABS_API_KEY must be set for the elevenlabs provider")
		}
		if c.TTS.ElevenLabsVoiceID == "" {
			add("ELEVEN_LABS_VOICE_ID must be set for the elevenlabs provider")
		}
	default:
		add("unknown TTS_PROVIDER %q", c.TTS.Provider)
	}

	if _, err := stt.ParseOrder(c.STT.SegmentOrder); err != nil {
		add("SEGMENT_ORDER: %v", err)
	}
	if _, err := c.Level(); err != nil {
		add("LOG_LEVEL: %v", err)
	}

	for name, n := range map[string]int{
		"CHAT_MAX_TOKENS":    c.Chat.MaxTokens,
		"CONTEXT_MAX_TOKENS": c.Chat.ContextMaxTokens,
		"SEGMENT_SECONDS":    c.STT.SegmentSeconds,
		"MAX_UPLOAD_BYTES":   c.MaxUploadBytes,
	} {
		if n <= 0 {
			add("%s must be positive, got %d", name, n)
		}
	}
	if c.STT.Workers < 0 {
		add("TRANSCRIBE_WORKERS must not be negative, got %d", c.STT.Workers)
	}
	if c.RequestTimeout < 0 {
		add("REQUEST_TIMEOUT must not be negative, got %s", c.RequestTimeout)
	}
	if c.Port == "" {
		add("PORT must be set")
	}

	if len(problems) > 0 {
		return errors.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (log.Level, error) {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "trace":
		return log.LevelTrace, nil
	case "debug":
		return log.LevelDebug, nil
	case "", "info":
		return log.LevelInfo, nil
	case "warn", "warning":
		return log.LevelWarn, nil
	case "error":
		return log.LevelError, nil
	}
	return log.LevelInfo, errors.Errorf("unknown level %q", c.LogLevel)
}

// SegmentDuration is the transcription window.
func (c *Config) SegmentDuration() time.Duration {
	return time.Duration(c.STT.SegmentSeconds) * time.Second
}
