package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/redwatch/redwatch/internal/history"
)

// Sink sends lifecycle events to ClickHouse using the official Go client.
type Sink struct {
	conn  driver.Conn
	table string
}

// New connects to a ClickHouse server at addr (host:port, native protocol)
// and writes events into table.
func New(addr, table string) (*Sink, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: "default",
			Username: "default",
			Password: "",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}
	if err := conn.Ping(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}
	return &Sink{conn: conn, table: table}, nil
}

func (s *Sink) Send(ctx context.Context, e history.Event) error {
	query := fmt.Sprintf(`INSERT INTO %s (event, occurred_at, task, pid, detail) VALUES (?, ?, ?, ?, ?)`, s.table)
	err := s.conn.Exec(ctx, query,
		string(e.Type),
		e.OccurredAt,
		e.Task,
		int32(e.PID),
		e.Detail,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event into ClickHouse: %w", err)
	}
	return nil
}

func (s *Sink) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
