package db

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/NancyGarg/transcribe-ai/config"
)

func TestOpenSQLiteCreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "recordings.sqlite")
	conn, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer conn.Close()

	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM recordings`).Scan(&n); err != nil {
		t.Fatalf("query recordings: %v", err)
	}
	if n != 0 {
		t.Errorf("count = %d, want 0", n)
	}
}

func TestMySQLDSN(t *testing.T) {
	cfg := config.Defaults()
	cfg.DBUser = "app"
	cfg.DBPassword = "p@ss"
	cfg.DBHost = "db.local"
	cfg.DBPort = "3307"
	cfg.DBName = "transcribeai"

	dsn := MySQLDSN(cfg)
	for _, want := range []string{"app:p@ss@tcp(db.local:3307)/transcribeai", "parseTime=true", "charset=utf8mb4"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("dsn %q missing %q", dsn, want)
		}
	}
}

func TestCheckRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	if err := CheckRedis(context.Background(), client); err != nil {
		t.Fatalf("CheckRedis: %v", err)
	}
	if mr.Exists("transcribeai:healthcheck") {
		t.Error("healthcheck key left behind")
	}
}

func TestConnectRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Defaults()
	cfg.RedisHost = mr.Host()
	cfg.RedisPort = mr.Port()

	client, err := ConnectRedis(cfg)
	if err != nil {
		t.Fatalf("ConnectRedis: %v", err)
	}
	client.Close()
}
