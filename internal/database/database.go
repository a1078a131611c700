// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package database 关系存储连接与 schema 迁移；API 与 Worker 共享同一个 pgxpool
package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	apperrors "translate-platform/pkg/errors"
)

//go:embed sql/0*.sql
var migrations embed.FS

// Connect 创建连接池并应用迁移；dsn 为 Postgres 连接串
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("解析 DB_URL 失败: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("应用 schema 迁移失败: %w", err)
	}
	return pool, nil
}

// Migrate 通过 goose 应用内嵌迁移（经 pgx stdlib 适配）
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	return migrateDB(ctx, db)
}

func migrateDB(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, "sql")
}

// IsTransient 可重试的暂态 DB 错误（死锁、序列化失败、锁超时）
func IsTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03":
			return true
		}
	}
	return false
}

// WrapError 存储层错误归类：暂态错误标记为 db_transient 供调用方重试，
// 其余归 internal。err 为 nil 时返回 nil。
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if IsTransient(err) {
		return apperrors.WithKind(apperrors.KindDBTransient, err, msg)
	}
	return apperrors.WithKind(apperrors.KindInternal, err, msg)
}
