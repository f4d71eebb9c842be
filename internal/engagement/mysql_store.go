package engagement

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	xerrors "GYST-Loop/internal/errors"
)

// MySQLStore 使用 MySQL 保存互动事件。
type MySQLStore struct {
	db *sql.DB
}

// MySQLConfig 描述 MySQL 连接与连接池参数，未设置的池参数使用默认值。
type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// NewMySQLStore 连接 MySQL 并执行内置的迁移。
func NewMySQLStore(ctx context.Context, cfg MySQLConfig) (*MySQLStore, error) {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store := NewMySQLStoreWithDB(db)
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "执行迁移失败")
	}
	return store, nil
}

func openDatabase(ctx context.Context, cfg MySQLConfig) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "MySQL DSN 不能为空")
	}

	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "连接 MySQL 失败")
	}
	applyPool(db, cfg)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "无法连接到 MySQL")
	}
	return db, nil
}

func applyPool(db *sql.DB, cfg MySQLConfig) {
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(20)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	} else {
		db.SetMaxIdleConns(10)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

// NewMySQLStoreWithDB 复用已有连接，不执行迁移。
func NewMySQLStoreWithDB(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

// Save 写入事件，主键冲突时忽略。
func (s *MySQLStore) Save(ctx context.Context, e Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	const stmt = `INSERT IGNORE INTO engagement_events
        (id, kind, session_id, section, agent_id, status, detail, occurred_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, stmt,
		e.ID,
		string(e.Kind),
		e.SessionID,
		e.Section,
		e.AgentID,
		e.Status,
		e.Detail,
		e.OccurredAt.UTC().UnixMilli(),
	)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "写入事件失败")
	}
	return nil
}

// List 按发生时间倒序查询事件。
func (s *MySQLStore) List(ctx context.Context, opts ListOptions) ([]Event, error) {
	opts.applyDefaults()
	query, args := buildListQuery(opts)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询事件失败")
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e    Event
			kind string
			ms   int64
		)
		if err := rows.Scan(&e.ID, &kind, &e.SessionID, &e.Section, &e.AgentID, &e.Status, &e.Detail, &ms); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析事件失败")
		}
		e.Kind = Kind(kind)
		e.OccurredAt = time.UnixMilli(ms).UTC()
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "遍历事件失败")
	}
	return events, nil
}

func buildListQuery(opts ListOptions) (string, []any) {
	var (
		builder strings.Builder
		where   []string
		args    []any
	)
	builder.WriteString(`SELECT id, kind, session_id, section, agent_id, status, detail, occurred_at FROM engagement_events`)
	if len(opts.Kinds) > 0 {
		placeholders := make([]string, len(opts.Kinds))
		for i, k := range opts.Kinds {
			placeholders[i] = "?"
			args = append(args, string(k))
		}
		where = append(where, fmt.Sprintf("kind IN (%s)", strings.Join(placeholders, ", ")))
	}
	if opts.SessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, opts.SessionID)
	}
	if len(where) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(where, " AND "))
	}
	builder.WriteString(" ORDER BY occurred_at DESC LIMIT ?")
	args = append(args, opts.Limit)
	return builder.String(), args
}

// Close 关闭数据库连接。
func (s *MySQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
