package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rl1809/shop/internal/config"
	"github.com/rl1809/shop/internal/platform/logger"
	"github.com/rl1809/shop/internal/port"
)

// Store owns the database handle and hands out repositories, either bound
// to the pool or to one transaction through Do.
type Store struct {
	db    *gorm.DB
	stmts *statementLogger
	log   *logger.Logger
}

func Open(cfg config.DatabaseConfig, log *logger.Logger) (*Store, error) {
	stmts := newStatementLogger(log.With("component", "gorm"), cfg.SlowThreshold)

	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger:                                   stmts,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("pool: %w", err)
	}
	if cfg.Driver == "sqlite" {
		// one writer at a time; also keeps a shared in-memory database alive
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return &Store{db: db, stmts: stmts, log: log}, nil
}

func dialectorFor(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "mysql":
		conn, err := sql.Open("mysql", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		return gormmysql.New(gormmysql.Config{Conn: conn}), nil
	case "postgres":
		return postgres.Open(cfg.DSN), nil
	case "sqlite":
		return sqlite.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(allRecords()...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	s.log.Info("schema migrated")
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Statements is the number of statements sent since the store was opened.
func (s *Store) Statements() int64 {
	return s.stmts.count()
}

// Do runs fn in a single transaction. It commits when fn returns nil.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, repos port.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, repositories{db: tx})
	})
}

// Repositories returns repositories outside any transaction, for reads.
func (s *Store) Repositories() port.Repositories {
	return repositories{db: s.db}
}

func (s *Store) Queries(batchSize int) *OrderQueryRepository {
	return NewOrderQueryRepository(s.db, batchSize)
}

type repositories struct {
	db *gorm.DB
}

func (r repositories) Members() port.MemberRepository { return NewMemberRepository(r.db) }

func (r repositories) Items() port.ItemRepository { return NewItemRepository(r.db) }

func (r repositories) Orders() port.OrderRepository { return NewOrderRepository(r.db) }

func (r repositories) Categories() port.CategoryRepository { return NewCategoryRepository(r.db) }
