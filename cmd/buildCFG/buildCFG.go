package buildCFG

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"

	"github.com/Luhive/luhive-mvp-sub000/internal/mailer"
)

type ServerConfig struct {
	Port string
	// VerificationTimeoutMinutes is how long an anonymous registration may
	// stay unconfirmed before the worker removes it.
	VerificationTimeoutMinutes int
}

type RabbitConfig struct {
	Url      string
	Exchange string
	Queue    string
}

func BuildServerConfig(cfg *config.Config, log *zerolog.Logger) ServerConfig {
	port := cfg.GetString("server.port")
	if port == "" {
		port = "8080"
		log.Warn().Msg("server.port not set, defaulting to 8080")
	}

	timeout := cfg.GetInt("registration.verification_timeout_minutes")
	if timeout <= 0 {
		timeout = 30
		log.Warn().Msg("registration.verification_timeout_minutes not set, defaulting to 30")
	}

	return ServerConfig{
		Port:                       port,
		VerificationTimeoutMinutes: timeout,
	}
}

func BuildDBConfig(cfg *config.Config, log *zerolog.Logger) (string, []string, *dbpg.Options, error) {
	masterDSN := cfg.GetString("database.master_dsn")
	if masterDSN == "" {
		return "", nil, nil, fmt.Errorf("database.master_dsn is required")
	}
	slaveDSNs := cfg.GetStringSlice("database.slave_dsns")

	opts := &dbpg.Options{
		MaxOpenConns:    cfg.GetInt("database.max_open_conns"),
		MaxIdleConns:    cfg.GetInt("database.max_idle_conns"),
		ConnMaxLifetime: time.Duration(cfg.GetInt("database.conn_max_lifetime_seconds")) * time.Second,
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 10
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 5
	}
	if opts.ConnMaxLifetime <= 0 {
		opts.ConnMaxLifetime = time.Hour
	}

	log.Info().Int("slaves", len(slaveDSNs)).Msg("database configuration loaded")
	return masterDSN, slaveDSNs, opts, nil
}

func BuildRabbitConfig(cfg *config.Config, log *zerolog.Logger) (RabbitConfig, error) {
	rc := RabbitConfig{
		Url:      cfg.GetString("rabbit.url"),
		Exchange: cfg.GetString("rabbit.exchange"),
		Queue:    cfg.GetString("rabbit.queue"),
	}
	if rc.Url == "" {
		return RabbitConfig{}, fmt.Errorf("rabbit.url is required")
	}
	if rc.Exchange == "" {
		rc.Exchange = "registration.delayed"
		log.Warn().Msg("rabbit.exchange not set, defaulting to registration.delayed")
	}
	if rc.Queue == "" {
		rc.Queue = "registration.verification_expiry"
		log.Warn().Msg("rabbit.queue not set, defaulting to registration.verification_expiry")
	}
	return rc, nil
}

func BuildMailConfig(cfg *config.Config, log *zerolog.Logger) (mailer.Config, error) {
	mc := mailer.Config{
		Host:     cfg.GetString("smtp.host"),
		Port:     cfg.GetInt("smtp.port"),
		From:     cfg.GetString("smtp.from"),
		Password: cfg.GetString("smtp.password"),
		BaseURL:  cfg.GetString("server.base_url"),
	}
	if mc.Host == "" || mc.From == "" {
		return mailer.Config{}, fmt.Errorf("smtp.host and smtp.from are required")
	}
	if mc.Port == 0 {
		mc.Port = 587
	}
	if mc.BaseURL == "" {
		mc.BaseURL = "http://localhost:8080"
		log.Warn().Msg("server.base_url not set, verification links default to localhost")
	}
	return mc, nil
}
