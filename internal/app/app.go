// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, репозитории, сервисы, обработчики,
// фильтры и собирает всё в один объект Server.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/puzzle-arena/internal/common"
	"serotonyl.ru/puzzle-arena/internal/config"
	"serotonyl.ru/puzzle-arena/internal/db/postgres"
	"serotonyl.ru/puzzle-arena/internal/features/connections"
	"serotonyl.ru/puzzle-arena/internal/features/difficulty"
	"serotonyl.ru/puzzle-arena/internal/features/economy"
	"serotonyl.ru/puzzle-arena/internal/features/gameplay"
	"serotonyl.ru/puzzle-arena/internal/features/levels"
	"serotonyl.ru/puzzle-arena/internal/features/players"
	"serotonyl.ru/puzzle-arena/internal/features/puzzle"
	"serotonyl.ru/puzzle-arena/internal/features/validator"
	"serotonyl.ru/puzzle-arena/internal/jobs"
	"serotonyl.ru/puzzle-arena/internal/metrics"
	"serotonyl.ru/puzzle-arena/internal/notify"
	"serotonyl.ru/puzzle-arena/internal/server"
	"serotonyl.ru/puzzle-arena/internal/server/filters"
	"serotonyl.ru/puzzle-arena/internal/vault"
)

// App содержит все компоненты приложения.
type App struct {
	Server    *server.Server
	Scheduler *jobs.Scheduler
	DB        *pgxpool.Pool
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	cipher, err := vault.NewCipher(cfg.VaultSecret, cfg.VaultSalt)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка инициализации шифрования балансов: %w", err)
	}

	loc := common.LoadLocation(cfg.AppTimezone)

	// === 2. Репозитории ===
	playerRepo := players.NewRepository(pool)
	levelRepo := levels.NewRepository(pool)
	economyRepo := economy.NewRepository(pool, cipher)
	historyRepo := difficulty.NewRepository(pool)
	connRepo := connections.NewRepository(pool)
	gameRepo := gameplay.NewRepository(pool, cipher)

	if cfg.LevelsSeedFile != "" {
		n, err := levels.LoadSeed(ctx, cfg.LevelsSeedFile, levelRepo)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("ошибка загрузки уровней: %w", err)
		}
		log.WithField("count", n).Info("Уровни загружены из файла")
	}

	// === 3. Сервисы ===
	notifier, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramAdminChatID, loc)
	if err != nil {
		pool.Close()
		return nil, err
	}

	gameMetrics := metrics.Game()
	playerService := players.NewService(playerRepo)
	economyService := economy.NewService(economyRepo)
	tracker := connections.NewTracker(connRepo, cfg.SessionStaleAfter)

	gameService := gameplay.NewService(gameplay.Deps{
		Store:        gameRepo,
		Levels:       levelRepo,
		Players:      playerService,
		Estimator:    difficulty.NewEstimator(historyRepo, difficultyConfig(cfg)),
		Generator:    puzzle.NewGenerator(puzzleConfig(cfg)),
		Detector:     validator.FromConfig(antiCheatConfig(cfg)),
		Notifier:     notifier,
		Tracker:      tracker,
		Metrics:      gameMetrics,
		AbandonGrace: cfg.AbandonGrace,
	})

	// === 4. Обработчики и сервер ===
	hub := server.NewHub()
	handler := gameplay.NewHandler(gameService, economyService, hub, cfg.FeatureChatEnabled)

	srv := server.New(server.Deps{
		Config:   cfg,
		Hub:      hub,
		Handler:  handler,
		Auth:     filters.NewAuthenticator(cfg.JWTSecret, connRepo, playerService),
		Sessions: gameService,
		Tracker:  tracker,
		DB:       pool,
		Games:    gameService.Registry,
		Metrics:  gameMetrics,
	})

	// === 5. Планировщик задач ===
	scheduler := jobs.NewScheduler(gameService, tracker, jobs.Schedules{
		Reconcile: cfg.ReconcileSchedule,
		Purge:     cfg.SessionPurgeSchedule,
	}, loc)

	return &App{
		Server:    srv,
		Scheduler: scheduler,
		DB:        pool,
	}, nil
}

func difficultyConfig(cfg *config.Config) difficulty.Config {
	return difficulty.Config{
		MinDifficulty:      cfg.DifficultyMin,
		MaxDifficulty:      cfg.DifficultyMax,
		BaselineDifficulty: cfg.DifficultyBaseline,
		Alpha:              cfg.DifficultyAlpha,
		DecayLambda:        cfg.DifficultyLambda,
		DecayRate:          cfg.DifficultyDecayRate,
		Lookback:           cfg.DifficultyLookback,
		WeightAccuracy:     cfg.DifficultyWeightAccuracy,
		WeightSpeed:        cfg.DifficultyWeightSpeed,
		WeightEfficiency:   cfg.DifficultyWeightEffic,
	}
}

func puzzleConfig(cfg *config.Config) puzzle.Config {
	return puzzle.Config{
		BaseColors:         cfg.PuzzleBaseColors,
		MaxColors:          cfg.PuzzleMaxColors,
		BaseCapacity:       cfg.PuzzleBaseCapacity,
		CapacityMultiplier: cfg.PuzzleCapacityMultiplier,
		MaxCapacity:        cfg.PuzzleMaxCapacity,
		MinBuffer:          cfg.PuzzleMinBuffer,
		MaxBuffer:          cfg.PuzzleMaxBuffer,
		BaseTubes:          cfg.PuzzleBaseTubes,
		BaseLiquids:        cfg.PuzzleBaseLiquids,
		MaxTubes:           cfg.PuzzleMaxTubes,
	}
}

func antiCheatConfig(cfg *config.Config) validator.Config {
	return validator.Config{
		SpeedEnabled:      cfg.AntiCheatSpeedEnabled,
		MinActionInterval: cfg.AntiCheatMinActionGap,
		MinCompletionTime: cfg.AntiCheatMinCompletion,
		PatternEnabled:    cfg.AntiCheatPatternEnabled,
		MaxRepeats:        cfg.AntiCheatMaxRepeats,
		MovementEnabled:   cfg.AntiCheatMovementEnabled,
		MinClicks:         cfg.AntiCheatMinClicks,
		MinMouseDistance:  cfg.AntiCheatMinMouseDistance,
	}
}

// runMigrations выполняет все SQL-миграции.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if err := postgres.PrepareMigrations(ctx, pool); err != nil {
		return err
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration001Players},
		{2, migration002Levels},
		{3, migration003Attempts},
		{4, migration004Ledger},
		{5, migration005Bans},
		{6, migration006Sessions},
	}

	for _, m := range migrations {
		if err := postgres.ExecMigrationSQL(ctx, pool, m.version, m.sql); err != nil {
			return fmt.Errorf("миграция %d: %w", m.version, err)
		}
		log.Debugf("Миграция %d проверена", m.version)
	}

	return nil
}

// SQL-миграции встроены в код для упрощения деплоя.
// Балансы в players хранятся зашифрованными (vault), поэтому TEXT.

var migration001Players = `
CREATE TABLE IF NOT EXISTS players (
    id BIGINT PRIMARY KEY,
    username VARCHAR(255) NOT NULL DEFAULT '',
    token_balance TEXT NOT NULL DEFAULT '',
    gems TEXT NOT NULL DEFAULT '',
    is_banned BOOLEAN NOT NULL DEFAULT FALSE,
    ban_reason TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

var migration002Levels = `
CREATE TABLE IF NOT EXISTS game_level_configuration (
    id BIGINT PRIMARY KEY,
    game_configuration_id BIGINT NOT NULL DEFAULT 1,
    level_number INTEGER NOT NULL,
    level_name VARCHAR(255) NOT NULL DEFAULT '',
    level_type VARCHAR(50) NOT NULL DEFAULT 'normal',
    puzzle_type VARCHAR(50) NOT NULL DEFAULT 'color_match',
    entry_cost NUMERIC(20,2) NOT NULL DEFAULT 0,
    entry_gems_blue INTEGER NOT NULL DEFAULT 0,
    entry_gems_green INTEGER NOT NULL DEFAULT 0,
    entry_gems_red INTEGER NOT NULL DEFAULT 0,
    reward_coins NUMERIC(20,2) NOT NULL DEFAULT 0,
    reward_gems_blue INTEGER NOT NULL DEFAULT 0,
    reward_gems_green INTEGER NOT NULL DEFAULT 0,
    reward_gems_red INTEGER NOT NULL DEFAULT 0,
    time_limit INTEGER NOT NULL DEFAULT 300,
    max_attempts INTEGER NOT NULL DEFAULT 0,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

var migration003Attempts = `
CREATE TABLE IF NOT EXISTS game_attempt (
    id BIGSERIAL PRIMARY KEY,
    player_id BIGINT NOT NULL REFERENCES players(id),
    game_level_id BIGINT NOT NULL REFERENCES game_level_configuration(id),
    level_number INTEGER NOT NULL,
    game_type VARCHAR(20) NOT NULL,
    level_type VARCHAR(50) NOT NULL,
    status VARCHAR(20) NOT NULL,
    difficulty DOUBLE PRECISION NOT NULL,
    board JSONB NOT NULL,
    target_state JSONB NOT NULL,
    parameters JSONB NOT NULL,
    score DOUBLE PRECISION NOT NULL DEFAULT 0,
    completion_percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
    tokens_earned NUMERIC(20,2) NOT NULL DEFAULT 0,
    gems_earned JSONB NOT NULL DEFAULT '{}',
    entry_cost NUMERIC(20,2) NOT NULL DEFAULT 0,
    gems_spent JSONB NOT NULL DEFAULT '{}',
    reward_coins NUMERIC(20,2) NOT NULL DEFAULT 0,
    reward_gems JSONB NOT NULL DEFAULT '{}',
    time_limit INTEGER NOT NULL,
    moves_count INTEGER NOT NULL DEFAULT 0,
    max_moves INTEGER NOT NULL DEFAULT 0,
    duration DOUBLE PRECISION NOT NULL DEFAULT 0,
    start_time TIMESTAMPTZ NOT NULL,
    end_time TIMESTAMPTZ,
    ip_address VARCHAR(64),
    device_fingerprint VARCHAR(255),
    connection_id VARCHAR(64),
    replay_data JSONB,
    cheat_reason TEXT,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS game_attempt_one_active ON game_attempt(player_id) WHERE status = 'ACTIVE';
CREATE INDEX IF NOT EXISTS idx_game_attempt_player_level ON game_attempt(player_id, game_level_id, start_time DESC);
CREATE INDEX IF NOT EXISTS idx_game_attempt_active_start ON game_attempt(start_time) WHERE status = 'ACTIVE';

CREATE TABLE IF NOT EXISTS game_action (
    id BIGSERIAL PRIMARY KEY,
    game_attempt_id BIGINT NOT NULL REFERENCES game_attempt(id),
    player_id BIGINT NOT NULL REFERENCES players(id),
    action_type VARCHAR(20) NOT NULL,
    action_data JSONB,
    session_id VARCHAR(64),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_game_action_attempt ON game_action(game_attempt_id, created_at);
`

var migration004Ledger = `
CREATE TABLE IF NOT EXISTS player_transaction (
    id BIGSERIAL PRIMARY KEY,
    player_id BIGINT NOT NULL REFERENCES players(id),
    game_attempt_id BIGINT REFERENCES game_attempt(id),
    direction VARCHAR(10) NOT NULL,
    transaction_type VARCHAR(50) NOT NULL,
    tokens NUMERIC(20,2) NOT NULL,
    gems_blue INTEGER NOT NULL DEFAULT 0,
    gems_green INTEGER NOT NULL DEFAULT 0,
    gems_red INTEGER NOT NULL DEFAULT 0,
    balance_after TEXT NOT NULL,
    gems_after TEXT NOT NULL,
    description TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_player_transaction_player ON player_transaction(player_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_player_transaction_attempt ON player_transaction(game_attempt_id);
`

var migration005Bans = `
CREATE TABLE IF NOT EXISTS player_banned_details (
    id BIGSERIAL PRIMARY KEY,
    player_id BIGINT NOT NULL REFERENCES players(id),
    game_attempt_id BIGINT REFERENCES game_attempt(id),
    reason TEXT NOT NULL,
    banned_by_ip VARCHAR(64) NOT NULL DEFAULT '',
    banned_by_device_fingerprint VARCHAR(255) NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_player_banned_details_player ON player_banned_details(player_id, created_at DESC);
`

var migration006Sessions = `
CREATE TABLE IF NOT EXISTS player_sessions (
    id BIGSERIAL PRIMARY KEY,
    player_id BIGINT NOT NULL REFERENCES players(id),
    token_hash CHAR(64) NOT NULL,
    device_fingerprint VARCHAR(255) NOT NULL DEFAULT '',
    ip_address VARCHAR(64) NOT NULL DEFAULT '',
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    expires_at TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_player_sessions_token ON player_sessions(token_hash);

CREATE TABLE IF NOT EXISTS connection_sessions (
    id VARCHAR(64) PRIMARY KEY,
    player_id BIGINT NOT NULL REFERENCES players(id),
    ip_address VARCHAR(64) NOT NULL DEFAULT '',
    device_fingerprint VARCHAR(255) NOT NULL DEFAULT '',
    status VARCHAR(20) NOT NULL,
    game_attempt_id BIGINT REFERENCES game_attempt(id),
    connected_at TIMESTAMPTZ NOT NULL,
    last_seen TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_connection_sessions_last_seen ON connection_sessions(last_seen);
`
