package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_ValoresPorDefecto(t *testing.T) {
	cfg, err := FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, int64(20), cfg.Ledger.LowStockThreshold)
	assert.Equal(t, 2*time.Second, cfg.Ledger.LockTimeout)
	assert.Equal(t, "postgres", cfg.Ledger.StoreDriver)
	assert.Equal(t, "local", cfg.Ledger.LockDriver)
	assert.Equal(t, 30*24*time.Hour, cfg.Restock.Interval)
	assert.True(t, cfg.Restock.AutomatedOnly)
	assert.False(t, cfg.Kafka.Enabled())
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.Equal(t, "./docs/swagger.json", cfg.HTTP.DocsPath)
	assert.False(t, cfg.DB.ForceIPv4)
	assert.Equal(t, int32(25), cfg.DB.MaxConns)
}

func TestFromViper_LeeVariables(t *testing.T) {
	v := viper.New()
	v.Set("LEDGER_LOW_STOCK_THRESHOLD", "5")
	v.Set("LEDGER_LOCK_TIMEOUT", "750ms")
	v.Set("LEDGER_STORE_DRIVER", "Memory")
	v.Set("LEDGER_LOCK_DRIVER", "redis")
	v.Set("RESTOCK_AUTOMATED_ONLY", "false")
	v.Set("RESTOCK_INTERVAL", "1h")
	v.Set("KAFKA_BROKERS", "k1:9092, k2:9092,")
	v.Set("KAFKA_ORDER_TOPIC", "orders")

	cfg, err := FromViper(v)
	require.NoError(t, err)

	assert.Equal(t, int64(5), cfg.Ledger.LowStockThreshold)
	assert.Equal(t, 750*time.Millisecond, cfg.Ledger.LockTimeout)
	assert.Equal(t, "memory", cfg.Ledger.StoreDriver)
	assert.Equal(t, "redis", cfg.Ledger.LockDriver)
	assert.False(t, cfg.Restock.AutomatedOnly)
	assert.Equal(t, time.Hour, cfg.Restock.Interval)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled())
}

func TestFromViper_DriverInvalido(t *testing.T) {
	v := viper.New()
	v.Set("LEDGER_STORE_DRIVER", "mongo")

	_, err := FromViper(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LEDGER_STORE_DRIVER")
}

func TestDBConfig_ConnectionString(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "u", Password: "p@ss", DBName: "ledger", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p%40ss@db:5432/ledger?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgres://x"
	assert.Equal(t, "postgres://x", c.ConnectionString())
}

func TestFromViper_PoolDeConexiones(t *testing.T) {
	v := viper.New()
	v.Set("DB_MAX_CONNS", "8")
	v.Set("DB_MIN_CONNS", "1")
	v.Set("DB_MAX_CONN_IDLE_TIME", "5m")
	v.Set("DB_FORCE_IPV4", "true")

	cfg, err := FromViper(v)
	require.NoError(t, err)

	assert.Equal(t, int32(8), cfg.DB.MaxConns)
	assert.Equal(t, int32(1), cfg.DB.MinConns)
	assert.Equal(t, time.Hour, cfg.DB.MaxConnLifetime)
	assert.Equal(t, 5*time.Minute, cfg.DB.MaxConnIdleTime)
	assert.True(t, cfg.DB.ForceIPv4)
}

func TestFromViper_PoolInvalido(t *testing.T) {
	v := viper.New()
	v.Set("DB_MAX_CONNS", "2")
	v.Set("DB_MIN_CONNS", "4")

	_, err := FromViper(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_MAX_CONNS")
}
