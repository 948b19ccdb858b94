package pg

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"library-catalog/internal/models"
	"library-catalog/internal/storage"
	"library-catalog/migrations"
)

// uniqueViolation is the SQLSTATE raised when borrow_one_open_loan rejects a second open loan
const uniqueViolation = "23505"

type PostgresDB struct {
	db     *gorm.DB
	sqlDB  *sql.DB
	logger *zap.Logger

	// migrate applies the schema; it is retried until it succeeds once
	migrate     func(ctx context.Context) error
	schemaMu    sync.Mutex
	schemaReady atomic.Bool
}

// NewPostgresDB creates a PostgreSQL-backed store. The connection is
// established lazily; call Ping to check that the database is reachable.
func NewPostgresDB(dsn string, logger *zap.Logger) (*PostgresDB, error) {
	gormLog := gormlogger.New(zap.NewStdLog(logger), gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                 gormLog,
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	p := &PostgresDB{db: db, sqlDB: sqlDB, logger: logger}
	p.migrate = p.applyMigrations
	return p, nil
}

// Initialize applies the embedded schema migrations. Until it succeeds,
// every other operation attempts it again first.
func (p *PostgresDB) Initialize(ctx context.Context) error {
	return p.ensureSchema(ctx)
}

func (p *PostgresDB) ensureSchema(ctx context.Context) error {
	if p.schemaReady.Load() {
		return nil
	}

	p.schemaMu.Lock()
	defer p.schemaMu.Unlock()

	if p.schemaReady.Load() {
		return nil
	}
	if err := p.migrate(ctx); err != nil {
		return err
	}
	p.schemaReady.Store(true)
	p.logger.Info("Database schema is up to date")
	return nil
}

func (p *PostgresDB) applyMigrations(ctx context.Context) error {
	if err := p.sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrConnectivity, err)
	}

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(zap.NewStdLog(p.logger))
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	if err := goose.UpContext(ctx, p.sqlDB, "."); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", classify(err))
	}
	return nil
}

// Ping checks that the database is reachable
func (p *PostgresDB) Ping(ctx context.Context) error {
	if err := p.sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrConnectivity, err)
	}
	return nil
}

// CreateBook inserts an available book and returns its generated identifier
func (p *PostgresDB) CreateBook(ctx context.Context, title, author string) (int64, error) {
	if err := p.ensureSchema(ctx); err != nil {
		return 0, err
	}

	book := models.Book{Title: title, Author: author, Available: true}
	if err := p.db.WithContext(ctx).Create(&book).Error; err != nil {
		return 0, fmt.Errorf("failed to create book: %w", classify(err))
	}
	return book.ID, nil
}

// ListBooks returns all books ordered by identifier
func (p *PostgresDB) ListBooks(ctx context.Context) ([]models.Book, error) {
	if err := p.ensureSchema(ctx); err != nil {
		return nil, err
	}

	books := make([]models.Book, 0)
	if err := p.db.WithContext(ctx).Order("book_id").Find(&books).Error; err != nil {
		return nil, fmt.Errorf("failed to list books: %w", classify(err))
	}
	return books, nil
}

// GetBook returns a single book
func (p *PostgresDB) GetBook(ctx context.Context, id int64) (models.Book, error) {
	if err := p.ensureSchema(ctx); err != nil {
		return models.Book{}, err
	}

	var book models.Book
	if err := p.db.WithContext(ctx).First(&book, id).Error; err != nil {
		return models.Book{}, fmt.Errorf("failed to get book %d: %w", id, classify(err))
	}
	return book, nil
}

// SearchBooks returns books whose title or author contains term, ignoring case
func (p *PostgresDB) SearchBooks(ctx context.Context, term string) ([]models.Book, error) {
	if err := p.ensureSchema(ctx); err != nil {
		return nil, err
	}

	pattern := "%" + escapeLike(term) + "%"

	books := make([]models.Book, 0)
	err := p.db.WithContext(ctx).
		Where("title ILIKE ? OR author ILIKE ?", pattern, pattern).
		Order("book_id").
		Find(&books).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search books: %w", classify(err))
	}
	return books, nil
}

// ListLoans returns the loans of a book, newest first
func (p *PostgresDB) ListLoans(ctx context.Context, bookID int64) ([]models.Loan, error) {
	if _, err := p.GetBook(ctx, bookID); err != nil {
		return nil, err
	}

	loans := make([]models.Loan, 0)
	err := p.db.WithContext(ctx).
		Where("book_id = ?", bookID).
		Order("borrow_id DESC").
		Find(&loans).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", classify(err))
	}
	return loans, nil
}

type bookStatRow struct {
	models.Book `gorm:"embedded"`
	BorrowCount int `gorm:"column:borrow_count"`
}

// GetMostBorrowed returns up to limit books ordered by loan count
func (p *PostgresDB) GetMostBorrowed(ctx context.Context, limit int) ([]models.BookStat, error) {
	if err := p.ensureSchema(ctx); err != nil {
		return nil, err
	}

	var rows []bookStatRow
	err := p.db.WithContext(ctx).
		Table("books").
		Select("books.book_id, books.title, books.author, books.available, COUNT(borrow.borrow_id) AS borrow_count").
		Joins("JOIN borrow ON borrow.book_id = books.book_id").
		Group("books.book_id").
		Order("borrow_count DESC, books.book_id").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get most borrowed books: %w", classify(err))
	}

	stats := make([]models.BookStat, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, models.BookStat{Book: row.Book, BorrowCount: row.BorrowCount})
	}
	return stats, nil
}

// InTx runs fn in a read-committed transaction
func (p *PostgresDB) InTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	if err := p.ensureSchema(ctx); err != nil {
		return err
	}

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&pgTx{db: tx})
	}, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return classify(err)
	}
	return nil
}

// Close closes the connection pool
func (p *PostgresDB) Close() error {
	if p.sqlDB != nil {
		return p.sqlDB.Close()
	}
	return nil
}

type pgTx struct {
	db *gorm.DB
}

// LockBook reads the book row with SELECT ... FOR UPDATE
func (t *pgTx) LockBook(ctx context.Context, id int64) (models.Book, error) {
	var book models.Book
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&book, id).Error
	if err != nil {
		return models.Book{}, fmt.Errorf("failed to lock book %d: %w", id, classify(err))
	}
	return book, nil
}

func (t *pgTx) SetAvailable(ctx context.Context, id int64, available bool) error {
	result := t.db.WithContext(ctx).
		Model(&models.Book{}).
		Where("book_id = ?", id).
		Update("available", available)
	if result.Error != nil {
		return fmt.Errorf("failed to update book %d: %w", id, classify(result.Error))
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("book %d: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (t *pgTx) OpenLoan(ctx context.Context, bookID int64, borrowDate time.Time) (models.Loan, error) {
	loan := models.Loan{BookID: bookID, BorrowDate: borrowDate}
	if err := t.db.WithContext(ctx).Create(&loan).Error; err != nil {
		return models.Loan{}, fmt.Errorf("failed to open loan for book %d: %w", bookID, classify(err))
	}
	return loan, nil
}

func (t *pgTx) CloseLoan(ctx context.Context, bookID int64, returnDate time.Time) (models.Loan, error) {
	var loan models.Loan
	err := t.db.WithContext(ctx).
		Where("book_id = ? AND return_date IS NULL", bookID).
		First(&loan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Loan{}, fmt.Errorf("book %d: %w", bookID, storage.ErrNoOpenLoan)
	}
	if err != nil {
		return models.Loan{}, fmt.Errorf("failed to find open loan for book %d: %w", bookID, classify(err))
	}

	err = t.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("borrow_id = ?", loan.ID).
		Update("return_date", returnDate).Error
	if err != nil {
		return models.Loan{}, fmt.Errorf("failed to close loan %d: %w", loan.ID, classify(err))
	}

	loan.ReturnDate = &returnDate
	return loan, nil
}

// classify maps driver errors onto the storage sentinels
func classify(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrConnectivity) ||
		errors.Is(err, storage.ErrOpenLoanExists) || errors.Is(err, storage.ErrNoOpenLoan) {
		return err
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %v", storage.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %v", storage.ErrOpenLoanExists, err)
	}

	var connErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connErr) || errors.As(err, &netErr) || errors.Is(err, driver.ErrBadConn) {
		return fmt.Errorf("%w: %v", storage.ErrConnectivity, err)
	}

	return err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes LIKE metacharacters in s match literally
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
