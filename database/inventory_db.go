package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/supplierimport"
)

// dbtx общая часть sql.DB и sql.Tx, достаточная хранилищам
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DBConfig конфигурация подключения к БД
type DBConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	BusyTimeout     time.Duration
}

// InventoryDB подключение к базе склада: компоненты, категории, сопоставления, движения, задачи
type InventoryDB struct {
	conn *sql.DB
}

// NewInventoryDB открывает базу склада и применяет схему
func NewInventoryDB(dbPath string) (*InventoryDB, error) {
	config := DBConfig{}

	// Для in-memory SQLite требуется ровно одно соединение,
	// иначе каждое новое соединение получит пустую БД без таблиц.
	if isInMemoryDB(dbPath) {
		config.MaxOpenConns = 1
		config.MaxIdleConns = 1
	}

	return NewInventoryDBWithConfig(dbPath, config)
}

// isInMemoryDB определяет, что путь относится к in-memory SQLite
func isInMemoryDB(dbPath string) bool {
	if dbPath == ":memory:" {
		return true
	}
	return strings.HasPrefix(dbPath, "file:") && strings.Contains(dbPath, "mode=memory")
}

// NewInventoryDBWithConfig открывает базу склада с настройками пула
func NewInventoryDBWithConfig(dbPath string, config DBConfig) (*InventoryDB, error) {
	busy := config.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	// параметры DSN применяются к каждому соединению пула, а не только к первому.
	// _txlock=immediate берет блокировку записи в BEGIN, и транзакции ждут друг друга
	// через busy_timeout вместо SQLITE_BUSY при повышении блокировки.
	dsn := fmt.Sprintf("%s%s_busy_timeout=%d&_foreign_keys=on&_txlock=immediate", dbPath, sep, busy.Milliseconds())

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open inventory database: %w", err)
	}

	if config.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(config.MaxOpenConns)
	} else {
		// SQLite плохо справляется с большим количеством одновременных соединений
		conn.SetMaxOpenConns(10)
	}
	if config.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(config.MaxIdleConns)
	} else {
		conn.SetMaxIdleConns(3)
	}
	if config.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(config.ConnMaxLifetime)
	} else {
		conn.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping inventory database: %w", err)
	}

	// Включаем поддержку FOREIGN KEY constraints в SQLite
	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// WAL позволяет читателям прогресса не блокироваться на записи воркеров
	if !isInMemoryDB(dbPath) {
		if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
			slog.Warn("[InventoryDB] Failed to enable WAL mode", "error", err)
		}
	}

	if err := runMigrations(conn, inventoryMigrations); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize inventory schema: %w", err)
	}

	return &InventoryDB{conn: conn}, nil
}

// Close закрывает подключение
func (db *InventoryDB) Close() error {
	return db.conn.Close()
}

// Ping проверяет подключение к базе данных
func (db *InventoryDB) Ping() error {
	return db.conn.Ping()
}

// GetDB возвращает указатель на sql.DB для прямого доступа
func (db *InventoryDB) GetDB() *sql.DB {
	return db.conn
}

// Components возвращает хранилище компонентов
func (db *InventoryDB) Components() *ComponentStore {
	return &ComponentStore{db: db.conn}
}

// Categories возвращает хранилище категорий
func (db *InventoryDB) Categories() *CategoryStore {
	return &CategoryStore{db: db.conn}
}

// Mappings возвращает хранилище сопоставлений колонок
func (db *InventoryDB) Mappings() *MappingStore {
	return &MappingStore{db: db.conn}
}

// Movements возвращает журнал складских движений
func (db *InventoryDB) Movements() *MovementStore {
	return &MovementStore{db: db.conn}
}

// WithinTx выполняет fn в транзакции. Хранилища, переданные в fn, пишут в эту транзакцию.
// Ошибка fn или паника откатывают все изменения.
func (db *InventoryDB) WithinTx(ctx context.Context, fn func(components supplierimport.ComponentRepository, movements supplierimport.MovementRepository) error) (err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin inventory transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&ComponentStore{db: tx}, &MovementStore{db: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit inventory transaction: %w", err)
	}
	return nil
}

// Jobs возвращает очередь задач
func (db *InventoryDB) Jobs() *JobStore {
	return &JobStore{db: db.conn, now: time.Now}
}
