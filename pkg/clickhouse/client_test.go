package clickhouse

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildDSN(t *testing.T) {
	t.Run("native protocol with timeouts", func(t *testing.T) {
		dsn := buildDSN(ClientConfig{
			Host: "ch", Port: 9000, Database: "finsignal", User: "default",
			DialTimeout: 5 * time.Second, ReadTimeout: 30 * time.Second,
		})
		assert.Equal(t, "clickhouse://default:@ch:9000/finsignal?dial_timeout=5s&read_timeout=30s", dsn)
	})

	t.Run("http with async insert", func(t *testing.T) {
		dsn := buildDSN(ClientConfig{
			Host: "ch", Port: 8123, Database: "db", User: "u", Password: "p",
			UseHTTP: true, AsyncInsert: true, WaitForAsync: true, MaxExecTime: time.Minute,
		})
		assert.True(t, strings.HasPrefix(dsn, "clickhouse+http://u:p@ch:8123/db?"))
		assert.Contains(t, dsn, "max_execution_time=60")
		assert.Contains(t, dsn, "&async_insert=1&wait_for_async_insert=1")
	})
}

func TestSchema(t *testing.T) {
	stmts := Schema("finsignal")
	assert.Len(t, stmts, 3)
	assert.Contains(t, stmts[1], "finsignal.bars")
	assert.Contains(t, stmts[2], "finsignal.indicator_records")
}

func TestNewClientRequiresHost(t *testing.T) {
	_, err := NewClient(WithPort(9000))
	assert.Error(t, err)
}
