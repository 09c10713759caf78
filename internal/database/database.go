// Package database 管理 Postgres 连接和购物助手自有表的迁移
package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ashwinyue/freshcart/internal/config"
	"github.com/ashwinyue/freshcart/internal/model"
)

const pingTimeout = 5 * time.Second

// DB 数据库封装
type DB struct {
	*gorm.DB
	migrateCommerce bool
}

// New 打开连接池并确认数据库可达，不做迁移
func New(ctx context.Context, cfg *config.DatabaseConfig, debug bool) (*DB, error) {
	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}

	gdb, err := gorm.Open(postgres.Open(cfg.GetDSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	db := &DB{DB: gdb, migrateCommerce: cfg.MigrateCommerce}
	if err := db.Ping(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Migrate 迁移会话和消息表
// 商品和购物车表默认视为已存在，只校验；migrateCommerce 打开时一并建表
func (db *DB) Migrate(ctx context.Context) error {
	migrate, require := migrationPlan(db.migrateCommerce)

	tx := db.WithContext(ctx)
	if err := tx.AutoMigrate(migrate...); err != nil {
		return fmt.Errorf("failed to auto migrate: %w", err)
	}

	var missing []string
	for _, m := range require {
		if !tx.Migrator().HasTable(m) {
			missing = append(missing, tableName(m))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("commerce tables not found: %v (enable database.migrateCommerce for local setups)", missing)
	}

	log.Printf("[Database] migrated %d tables, verified %d commerce tables", len(migrate), len(require))
	return nil
}

// Ping 检查数据库连接
func (db *DB) Ping(ctx context.Context) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

// Close 关闭数据库连接
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// migrationPlan 返回需要迁移的表和只需校验存在的表
func migrationPlan(migrateCommerce bool) (migrate, require []interface{}) {
	migrate = append(migrate, model.AgentModels...)
	if migrateCommerce {
		return append(migrate, model.CommerceModels...), nil
	}
	return migrate, model.CommerceModels
}

type tabler interface {
	TableName() string
}

func tableName(m interface{}) string {
	if t, ok := m.(tabler); ok {
		return t.TableName()
	}
	return fmt.Sprintf("%T", m)
}
