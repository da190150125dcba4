package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/clickhouse"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/redwatch/redwatch/internal/history"
)

// setupClickHouseContainer starts a ClickHouse container for testing.
func setupClickHouseContainer(ctx context.Context, t *testing.T) (testcontainers.Container, string) {
	t.Helper()

	clickHouseContainer, err := clickhouse.Run(ctx,
		"clickhouse/clickhouse-server:24.3.2.23",
		clickhouse.WithUsername("default"),
		clickhouse.WithPassword(""),
		clickhouse.WithDatabase("default"),
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/ping").
				WithPort("8123/tcp").
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start ClickHouse container: %v", err)
	}

	host, err := clickHouseContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := clickHouseContainer.MappedPort(ctx, "9000")
	if err != nil {
		t.Fatalf("Failed to get mapped port: %v", err)
	}
	return clickHouseContainer, host + ":" + port.Port()
}

func TestClickHouseSink_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	container, dsn := setupClickHouseContainer(ctx, t)
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			t.Errorf("Failed to terminate ClickHouse container: %v", err)
		}
	}()

	sink, err := New(dsn, "supervisor_history")
	if err != nil {
		t.Fatalf("Failed to create ClickHouse sink: %v", err)
	}
	defer func() { _ = sink.Close() }()

	// The sink appends only; create the table up front.
	err = sink.conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS supervisor_history (
		event String,
		occurred_at DateTime64(3),
		task String,
		pid Int32,
		detail String
	) ENGINE = MergeTree() ORDER BY occurred_at`)
	if err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}

	e := history.Event{
		Type:       history.EventScraperRestart,
		OccurredAt: time.Now().UTC(),
		Task:       "scraper",
		PID:        4242,
		Detail:     "exit status 137",
	}
	if err := sink.Send(ctx, e); err != nil {
		t.Fatalf("Failed to send event: %v", err)
	}

	var count uint64
	row := sink.conn.QueryRow(ctx, "SELECT COUNT(*) FROM supervisor_history WHERE task = 'scraper'")
	if err := row.Scan(&count); err != nil {
		t.Fatalf("Failed to scan count: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 event in history, got %d", count)
	}
}
