// Package config загружает конфигурацию сервера из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- HTTP / WebSocket ---
	HTTPAddr            string        `envconfig:"HTTP_ADDR" default:":8080"`
	HTTPShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"15s"`
	// Сколько сообщений обрабатываем параллельно по всем соединениям.
	ServerMaxInflight int `envconfig:"SERVER_MAX_INFLIGHT" default:"64"`
	// Буфер исходящих сообщений одного соединения. Переполнение = медленный клиент, соединение закрываем.
	WSSendBuffer      int           `envconfig:"WS_SEND_BUFFER" default:"64"`
	WSMaxMessageBytes int64         `envconfig:"WS_MAX_MESSAGE_BYTES" default:"65536"`
	WSWriteWait       time.Duration `envconfig:"WS_WRITE_WAIT" default:"10s"`
	WSPongWait        time.Duration `envconfig:"WS_PONG_WAIT" default:"60s"`
	// Разрешить клиенту передавать ip_address и device_fingerprint в query.
	// Включать только за прокси, который сам проставляет эти параметры: иначе
	// украденный токен вместе с IP жертвы проходит проверку привязки.
	WSTrustClientAddress bool `envconfig:"WS_TRUST_CLIENT_ADDRESS" default:"false"`

	// --- Database ---
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт ставим "postgres" (имя сервиса в docker-compose), а для локалки переопределяй DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"arena"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"puzzle_arena"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	// Пустой путь = логи только в stdout
	AppLogFile  string `envconfig:"APP_LOG_FILE" default:""`
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"Europe/Moscow"`

	// --- Auth / secrets ---
	JWTSecret   string `envconfig:"JWT_SECRET" required:"true"`
	VaultSecret string `envconfig:"VAULT_SECRET" required:"true"`
	VaultSalt   string `envconfig:"VAULT_SALT" required:"true"`

	// --- Difficulty ---
	DifficultyMin            float64       `envconfig:"DIFFICULTY_MIN" default:"1.0"`
	DifficultyMax            float64       `envconfig:"DIFFICULTY_MAX" default:"2.0"`
	DifficultyBaseline       float64       `envconfig:"DIFFICULTY_BASELINE" default:"1.0"`
	DifficultyAlpha          float64       `envconfig:"DIFFICULTY_ALPHA" default:"0.3"`
	DifficultyLambda         float64       `envconfig:"DIFFICULTY_LAMBDA" default:"0.1"`
	DifficultyDecayRate      float64       `envconfig:"DIFFICULTY_DECAY_RATE" default:"0.98"`
	DifficultyLookback       time.Duration `envconfig:"DIFFICULTY_LOOKBACK" default:"720h"`
	DifficultyWeightAccuracy float64       `envconfig:"DIFFICULTY_WEIGHT_ACCURACY" default:"0.4"`
	DifficultyWeightSpeed    float64       `envconfig:"DIFFICULTY_WEIGHT_SPEED" default:"0.3"`
	DifficultyWeightEffic    float64       `envconfig:"DIFFICULTY_WEIGHT_EFFICIENCY" default:"0.3"`

	// --- Puzzle ---
	PuzzleBaseColors         int     `envconfig:"PUZZLE_BASE_COLORS" default:"3"`
	PuzzleMaxColors          int     `envconfig:"PUZZLE_MAX_COLORS" default:"12"`
	PuzzleBaseCapacity       int     `envconfig:"PUZZLE_BASE_CAPACITY" default:"4"`
	PuzzleCapacityMultiplier float64 `envconfig:"PUZZLE_CAPACITY_MULTIPLIER" default:"0.5"`
	PuzzleMaxCapacity        int     `envconfig:"PUZZLE_MAX_CAPACITY" default:"8"`
	PuzzleMinBuffer          int     `envconfig:"PUZZLE_MIN_BUFFER" default:"1"`
	PuzzleMaxBuffer          int     `envconfig:"PUZZLE_MAX_BUFFER" default:"3"`
	PuzzleBaseTubes          int     `envconfig:"PUZZLE_BASE_TUBES" default:"3"`
	PuzzleBaseLiquids        int     `envconfig:"PUZZLE_BASE_LIQUIDS" default:"2"`
	PuzzleMaxTubes           int     `envconfig:"PUZZLE_MAX_TUBES" default:"14"`

	// --- Anti-cheat ---
	AntiCheatSpeedEnabled     bool          `envconfig:"ANTICHEAT_SPEED_ENABLED" default:"true"`
	AntiCheatMinActionGap     time.Duration `envconfig:"ANTICHEAT_MIN_ACTION_INTERVAL" default:"40ms"`
	AntiCheatMinCompletion    time.Duration `envconfig:"ANTICHEAT_MIN_COMPLETION_TIME" default:"3s"`
	AntiCheatPatternEnabled   bool          `envconfig:"ANTICHEAT_PATTERN_ENABLED" default:"true"`
	AntiCheatMaxRepeats       int           `envconfig:"ANTICHEAT_MAX_REPEATS" default:"25"`
	AntiCheatMovementEnabled  bool          `envconfig:"ANTICHEAT_MOVEMENT_ENABLED" default:"true"`
	AntiCheatMinClicks        int           `envconfig:"ANTICHEAT_MIN_CLICKS" default:"10"`
	AntiCheatMinMouseDistance float64       `envconfig:"ANTICHEAT_MIN_MOUSE_DISTANCE" default:"5"`

	// --- Rate Limiting ---
	// Сообщений в секунду на игрока и запас для всплесков.
	RateLimitRPS   float64 `envconfig:"RATE_LIMIT_RPS" default:"20"`
	RateLimitBurst int     `envconfig:"RATE_LIMIT_BURST" default:"40"`

	// --- Jobs ---
	ReconcileSchedule    string        `envconfig:"RECONCILE_SCHEDULE" default:"@every 1m"`
	AbandonGrace         time.Duration `envconfig:"ABANDON_GRACE" default:"10m"`
	SessionPurgeSchedule string        `envconfig:"SESSION_PURGE_SCHEDULE" default:"0 * * * *"`
	SessionStaleAfter    time.Duration `envconfig:"SESSION_STALE_AFTER" default:"24h"`

	// --- Telegram (уведомления о банах, необязательно) ---
	TelegramBotToken    string `envconfig:"TELEGRAM_BOT_TOKEN" default:""`
	TelegramAdminChatID int64  `envconfig:"TELEGRAM_ADMIN_CHAT_ID" default:"0"`

	// --- Levels ---
	// YAML с конфигурацией уровней, загружается при старте (upsert). Пусто — не загружаем.
	LevelsSeedFile string `envconfig:"LEVELS_SEED_FILE" default:""`

	// --- Feature Flags ---
	FeatureChatEnabled bool `envconfig:"FEATURE_CHAT_ENABLED" default:"true"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// Validate проверяет согласованность значений, которые envconfig проверить не может.
func (c *Config) Validate() error {
	if c.ServerMaxInflight <= 0 {
		return fmt.Errorf("SERVER_MAX_INFLIGHT должен быть > 0")
	}
	if c.WSSendBuffer <= 0 {
		return fmt.Errorf("WS_SEND_BUFFER должен быть > 0")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if c.DifficultyMin <= 0 || c.DifficultyMin > c.DifficultyMax {
		return fmt.Errorf("некорректные DIFFICULTY_MIN/DIFFICULTY_MAX")
	}
	if c.DifficultyAlpha < 0 || c.DifficultyAlpha > 1 {
		return fmt.Errorf("DIFFICULTY_ALPHA должен быть в [0, 1]")
	}
	if c.DifficultyDecayRate <= 0 || c.DifficultyDecayRate > 1 {
		return fmt.Errorf("DIFFICULTY_DECAY_RATE должен быть в (0, 1]")
	}
	if c.PuzzleBaseColors <= 0 || c.PuzzleBaseColors > c.PuzzleMaxColors {
		return fmt.Errorf("некорректные PUZZLE_BASE_COLORS/PUZZLE_MAX_COLORS")
	}
	if c.PuzzleBaseCapacity <= 0 || c.PuzzleBaseCapacity > c.PuzzleMaxCapacity {
		return fmt.Errorf("некорректные PUZZLE_BASE_CAPACITY/PUZZLE_MAX_CAPACITY")
	}
	if c.PuzzleMinBuffer < 0 || c.PuzzleMinBuffer > c.PuzzleMaxBuffer {
		return fmt.Errorf("некорректные PUZZLE_MIN_BUFFER/PUZZLE_MAX_BUFFER")
	}
	if c.PuzzleBaseTubes <= 0 || c.PuzzleMaxTubes < 2 || c.PuzzleBaseLiquids <= 0 {
		return fmt.Errorf("некорректные PUZZLE_BASE_TUBES/PUZZLE_BASE_LIQUIDS/PUZZLE_MAX_TUBES")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS и RATE_LIMIT_BURST должны быть > 0")
	}
	if c.TelegramBotToken != "" && c.TelegramAdminChatID == 0 {
		return fmt.Errorf("TELEGRAM_ADMIN_CHAT_ID обязателен, если задан TELEGRAM_BOT_TOKEN")
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
