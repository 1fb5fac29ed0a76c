package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server     ServerConfig
	Callback   CallbackConfig
	GenAI      GenAIConfig
	AI33       AI33Config
	T2V        T2VConfig
	Processing ProcessingConfig
}

type ServerConfig struct {
	Port     string
	LogLevel string
}

// CallbackConfig is the webhook receiver's own listener, separate from
// the control-plane server so it can be started and stopped per run.
type CallbackConfig struct {
	Host string
	Port string
}

type GenAIConfig struct {
	APIKey  string
	BaseURL string
	VoiceID string
	Model   string
}

type AI33Config struct {
	APIKey  string
	BaseURL string
	VoiceID string
	Model   string
}

type T2VConfig struct {
	APIKey      string
	BaseURL     string
	AspectRatio string
}

type ProcessingConfig struct {
	BatchSize          int
	T2VBatchSize       int
	T2VTaskDelayMS     int
	T2VMaxRetries      int
	SubtitleWaitSec    int
	SubtitleDelaySec   int
	HWAccel            string
	DownloadTimeoutSec int
}

func Load() (*Config, error) {
	// Local runs keep credentials in a .env next to the binary.
	_ = godotenv.Load()

	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("GENAI_API_KEY")
	readSecret("AI33_API_KEY")
	readSecret("T2V_API_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("callback.host", "CALLBACK_HOST")
	_ = viper.BindEnv("callback.port", "CALLBACK_PORT")
	_ = viper.BindEnv("genai.api_key", "GENAI_API_KEY")
	_ = viper.BindEnv("genai.base_url", "GENAI_BASE_URL")
	_ = viper.BindEnv("genai.voice_id", "GENAI_VOICE_ID")
	_ = viper.BindEnv("genai.model", "GENAI_MODEL")
	_ = viper.BindEnv("ai33.api_key", "AI33_API_KEY")
	_ = viper.BindEnv("ai33.base_url", "AI33_BASE_URL")
	_ = viper.BindEnv("ai33.voice_id", "AI33_VOICE_ID")
	_ = viper.BindEnv("ai33.model", "AI33_MODEL")
	_ = viper.BindEnv("t2v.api_key", "T2V_API_KEY")
	_ = viper.BindEnv("t2v.base_url", "T2V_BASE_URL")
	_ = viper.BindEnv("t2v.aspect_ratio", "T2V_ASPECT_RATIO")
	_ = viper.BindEnv("processing.batch_size", "PROCESSING_BATCH_SIZE")
	_ = viper.BindEnv("processing.t2v_batch_size", "T2V_BATCH_SIZE")
	_ = viper.BindEnv("processing.t2v_task_delay_ms", "T2V_TASK_DELAY_MS")
	_ = viper.BindEnv("processing.t2v_max_retries", "T2V_MAX_RETRIES")
	_ = viper.BindEnv("processing.subtitle_wait_sec", "SUBTITLE_WAIT_SEC")
	_ = viper.BindEnv("processing.subtitle_delay_sec", "SUBTITLE_DELAY_SEC")
	_ = viper.BindEnv("processing.hw_accel", "HW_ACCEL")
	_ = viper.BindEnv("processing.download_timeout_sec", "DOWNLOAD_TIMEOUT_SEC")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("callback.host", "localhost")
	viper.SetDefault("callback.port", "9999")
	viper.SetDefault("genai.base_url", "https://genaipro.vn/api/v1")
	viper.SetDefault("ai33.base_url", "https://api.ai33.pro")
	viper.SetDefault("t2v.aspect_ratio", "VIDEO_ASPECT_RATIO_LANDSCAPE")
	viper.SetDefault("processing.batch_size", 10)
	viper.SetDefault("processing.t2v_batch_size", 1)
	viper.SetDefault("processing.t2v_task_delay_ms", 2000)
	viper.SetDefault("processing.t2v_max_retries", 3)
	viper.SetDefault("processing.subtitle_wait_sec", 30)
	viper.SetDefault("processing.subtitle_delay_sec", 2)
	viper.SetDefault("processing.hw_accel", "cpu")
	viper.SetDefault("processing.download_timeout_sec", 600)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Callback: CallbackConfig{
			Host: viper.GetString("callback.host"),
			Port: viper.GetString("callback.port"),
		},
		GenAI: GenAIConfig{
			APIKey:  viper.GetString("genai.api_key"),
			BaseURL: viper.GetString("genai.base_url"),
			VoiceID: viper.GetString("genai.voice_id"),
			Model:   viper.GetString("genai.model"),
		},
		AI33: AI33Config{
			APIKey:  viper.GetString("ai33.api_key"),
			BaseURL: viper.GetString("ai33.base_url"),
			VoiceID: viper.GetString("ai33.voice_id"),
			Model:   viper.GetString("ai33.model"),
		},
		T2V: T2VConfig{
			APIKey:      viper.GetString("t2v.api_key"),
			BaseURL:     viper.GetString("t2v.base_url"),
			AspectRatio: viper.GetString("t2v.aspect_ratio"),
		},
		Processing: ProcessingConfig{
			BatchSize:          viper.GetInt("processing.batch_size"),
			T2VBatchSize:       viper.GetInt("processing.t2v_batch_size"),
			T2VTaskDelayMS:     viper.GetInt("processing.t2v_task_delay_ms"),
			T2VMaxRetries:      viper.GetInt("processing.t2v_max_retries"),
			SubtitleWaitSec:    viper.GetInt("processing.subtitle_wait_sec"),
			SubtitleDelaySec:   viper.GetInt("processing.subtitle_delay_sec"),
			HWAccel:            viper.GetString("processing.hw_accel"),
			DownloadTimeoutSec: viper.GetInt("processing.download_timeout_sec"),
		},
	}

	return cfg, nil
}
