package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/zulandar/switchboard/internal/config"
	"github.com/zulandar/switchboard/internal/db"
	"github.com/zulandar/switchboard/internal/metrics"
	"github.com/zulandar/switchboard/internal/ticket"
	"gorm.io/gorm"
)

// connectFromConfig loads config and connects to the configured database.
func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return cfg, gormDB, nil
}

// app bundles what every lifecycle command needs.
type app struct {
	cfg      *config.Config
	db       *gorm.DB
	log      *logrus.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	tickets  *ticket.Service
}

func newApp(configPath string) (*app, error) {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return nil, err
	}

	log := cfg.NewLogger()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	svc, err := ticket.New(ticket.Opts{
		DB:      gormDB,
		Logger:  log,
		Metrics: m,
	})
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, db: gormDB, log: log, registry: reg, metrics: m, tickets: svc}, nil
}
