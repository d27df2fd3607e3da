package config

import "time"

type Config struct {
	Web  Web
	DB   DB
	Cors Cors
	Auth Auth
	Rate Rate
}

type Web struct {
	Address         string        `conf:"default:0.0.0.0:8000"`
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:10s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
}

type DB struct {
	User         string `conf:"default:postgres"`
	Password     string `conf:"default:postgres,mask"`
	Host         string `conf:"default:localhost:5432"`
	Name         string `conf:"default:webshop"`
	MaxIdleConns int    `conf:"default:2"`
	MaxOpenConns int    `conf:"default:10"`
	DisableTLS   bool   `conf:"default:true"`
}

type Cors struct {
	Origin string
}

type Auth struct {
	TokenTimeout time.Duration `conf:"default:24h"`
}

type Rate struct {
	// Requests per second granted to each client, with Burst headroom.
	// Idle clients are forgotten after Expiry minutes.
	RPS    float64 `conf:"default:20"`
	Burst  int     `conf:"default:40"`
	Expiry int     `conf:"default:10"`
}
