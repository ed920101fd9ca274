package db

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"receiving/pkg/config"
)

func TestRuntimeConnString_PrefersDatabaseURL(t *testing.T) {
	cfg := config.Config{
		DatabaseURL: "postgres://pooler/receiving?pgbouncer=true",
		DB:          config.DBConfig{Host: "db", Port: "5432", Name: "x", User: "u", Password: "p"},
	}
	assert.Equal(t, cfg.DatabaseURL, runtimeConnString(cfg))
}

func TestMigrationConnString_FallsBackToRuntime(t *testing.T) {
	cfg := config.Config{
		DB: config.DBConfig{Host: "db", Port: "5433", Name: "receiving", User: "u", Password: "p"},
	}
	assert.Equal(t, "postgres://u:p@db:5433/receiving?sslmode=disable", migrationConnString(cfg))

	cfg.DirectURL = "postgres://direct/receiving"
	assert.Equal(t, "postgres://direct/receiving", migrationConnString(cfg))
}
