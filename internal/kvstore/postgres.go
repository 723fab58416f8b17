package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Postgres backend на таблице kv_records. Схема создаётся миграциями.
// Квота считается по суммарному размеру ключей и значений.
type Postgres struct {
	db    *sql.DB
	quota int64
}

// NewPostgres подключается к PostgreSQL.
func NewPostgres(connectionString string, quota int64) (*Postgres, error) {
	const op = "kvstore.NewPostgres"
	db, err := sql.Open("pgx", connectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Postgres{db: db, quota: quota}, nil
}

// DB возвращает соединение, например для запуска миграций.
func (p *Postgres) DB() *sql.DB {
	return p.db
}

// Close закрывает соединение с базой.
func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) Get(ctx context.Context, key string) ([]byte, bool, error) {
	const op = "kvstore.Postgres.Get"
	var value []byte
	err := p.db.QueryRowContext(ctx, `SELECT value FROM kv_records WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return value, true, nil
}

func (p *Postgres) Set(ctx context.Context, key string, value []byte) error {
	const op = "kvstore.Postgres.Set"
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	if p.quota > 0 {
		var used int64
		err = tx.QueryRowContext(ctx, `
			SELECT COALESCE(SUM(octet_length(key) + octet_length(value)), 0)
			FROM kv_records WHERE key <> $1`, key).Scan(&used)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if used+int64(len(key)+len(value)) > p.quota {
			return fmt.Errorf("%s: %q needs %d bytes: %w", op, key, len(value), ErrQuotaExceeded)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO kv_records (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, key string) error {
	const op = "kvstore.Postgres.Delete"
	if _, err := p.db.ExecContext(ctx, `DELETE FROM kv_records WHERE key = $1`, key); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (p *Postgres) Keys(ctx context.Context) ([]string, error) {
	const op = "kvstore.Postgres.Keys"
	rows, err := p.db.QueryContext(ctx, `SELECT key FROM kv_records ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return keys, nil
}
