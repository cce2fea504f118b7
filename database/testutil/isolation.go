package testutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"

	"gorm.io/gorm"
)

// isolationSavepoint is the savepoint application transactions commit into.
const isolationSavepoint = "test_isolation"

// Session is a *gorm.DB bound to one connection inside an outer transaction
// that is always rolled back.
//
// Application code sees an ordinary database. Begin, Transaction and GORM's
// implicit write transactions all work, but their commit only releases the
// savepoint and opens a fresh one (a restart). Their rollback rolls back to the
// savepoint. Transactions nested inside an application transaction use GORM's
// own savepoints and never restart. Nothing reaches the outer transaction's
// commit, so Close discards every effect of the test.
type Session struct {
	db   *gorm.DB
	conn *sql.Conn
	tx   *sql.Tx

	mu        sync.Mutex
	restarts  int
	onRestart []func()
	closed    bool
}

// IsolateOption configures Isolate.
type IsolateOption func(*Session)

// OnRestart registers fn to run after every restart. GORM keeps no identity
// map, so there is no cached object state to expire; callers that cache
// loaded rows can drop them here.
func OnRestart(fn func()) IsolateOption {
	return func(s *Session) { s.onRestart = append(s.onRestart, fn) }
}

// Isolate takes a dedicated connection from db's pool, begins the outer
// transaction and opens the first savepoint.
func Isolate(ctx context.Context, db *gorm.DB, opts ...IsolateOption) (*Session, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("isolate: %w", err)
	}

	// The outer transaction lives until Close, not until ctx is canceled.
	txCtx := context.WithoutCancel(ctx)
	conn, err := sqlDB.Conn(txCtx)
	if err != nil {
		return nil, fmt.Errorf("isolate: acquire connection: %w", err)
	}
	tx, err := conn.BeginTx(txCtx, nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("isolate: begin: %w", err)
	}
	if _, err := tx.ExecContext(txCtx, "SAVEPOINT "+isolationSavepoint); err != nil {
		tx.Rollback()
		conn.Close()
		return nil, fmt.Errorf("isolate: savepoint: %w", err)
	}

	s := &Session{conn: conn, tx: tx}
	for _, opt := range opts {
		opt(s)
	}

	session := db.Session(&gorm.Session{NewDB: true, Context: ctx})
	session.Statement.ConnPool = &isolatedPool{session: s, sqlDB: sqlDB}
	s.db = session
	return s, nil
}

// MustIsolate isolates db for the duration of t and rolls everything back
// when t ends.
func MustIsolate(t testing.TB, db *gorm.DB, opts ...IsolateOption) *Session {
	t.Helper()
	s, err := Isolate(context.Background(), db, opts...)
	if err != nil {
		t.Fatalf("isolate database: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("close isolated session: %v", err)
		}
	})
	return s
}

// DB returns the isolated *gorm.DB. Hand it to code under test in place of
// the pool.
func (s *Session) DB() *gorm.DB { return s.db }

// Restarts reports how many application commits the savepoint has absorbed.
func (s *Session) Restarts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restarts
}

// Close rolls back the outer transaction and returns the connection to the
// pool. Safe to call multiple times.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		errs = append(errs, fmt.Errorf("rollback: %w", err))
	}
	if err := s.conn.Close(); err != nil {
		errs = append(errs, fmt.Errorf("release connection: %w", err))
	}
	return errors.Join(errs...)
}

func (s *Session) exec(ctx context.Context, statements ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return sql.ErrTxDone
	}
	for _, stmt := range statements {
		if _, err := s.tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// restart ends the current savepoint and opens the next one.
func (s *Session) restart(ctx context.Context) error {
	if err := s.exec(ctx, "RELEASE SAVEPOINT "+isolationSavepoint, "SAVEPOINT "+isolationSavepoint); err != nil {
		return fmt.Errorf("isolated commit: %w", err)
	}

	s.mu.Lock()
	s.restarts++
	hooks := append([]func(){}, s.onRestart...)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	return nil
}

func (s *Session) rollback(ctx context.Context) error {
	if err := s.exec(ctx, "ROLLBACK TO SAVEPOINT "+isolationSavepoint); err != nil {
		return fmt.Errorf("isolated rollback: %w", err)
	}
	return nil
}

// isolatedPool is the gorm.ConnPool of an isolated session. It begins
// transactions but cannot commit them, so GORM treats it as a pool and the
// transactions it hands out as top-level ones.
type isolatedPool struct {
	session *Session
	sqlDB   *sql.DB
}

var (
	_ gorm.ConnPool         = (*isolatedPool)(nil)
	_ gorm.ConnPoolBeginner = (*isolatedPool)(nil)
	_ gorm.GetDBConnector   = (*isolatedPool)(nil)
)

func (p *isolatedPool) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	return p.session.tx.PrepareContext(ctx, query)
}

func (p *isolatedPool) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return p.session.tx.ExecContext(ctx, query, args...)
}

func (p *isolatedPool) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return p.session.tx.QueryContext(ctx, query, args...)
}

func (p *isolatedPool) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return p.session.tx.QueryRowContext(ctx, query, args...)
}

// BeginTx starts an application transaction on top of the savepoint.
func (p *isolatedPool) BeginTx(ctx context.Context, _ *sql.TxOptions) (gorm.ConnPool, error) {
	p.session.mu.Lock()
	closed := p.session.closed
	p.session.mu.Unlock()
	if closed {
		return nil, sql.ErrTxDone
	}
	return &savepointTx{pool: p, ctx: context.WithoutCancel(ctx)}, nil
}

// GetDBConn exposes the underlying pool so db.DB() keeps working for health
// checks and migrations run through the session.
func (p *isolatedPool) GetDBConn() (*sql.DB, error) {
	return p.sqlDB, nil
}

// savepointTx is an application transaction inside an isolated session.
// Commit restarts the savepoint, Rollback returns to it. Without a BeginTx
// of its own, GORM nests further transactions with plain savepoints.
type savepointTx struct {
	pool *isolatedPool
	ctx  context.Context
	done bool
}

var (
	_ gorm.ConnPool    = (*savepointTx)(nil)
	_ gorm.TxCommitter = (*savepointTx)(nil)
)

func (t *savepointTx) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	return t.pool.PrepareContext(ctx, query)
}

func (t *savepointTx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return t.pool.ExecContext(ctx, query, args...)
}

func (t *savepointTx) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return t.pool.QueryContext(ctx, query, args...)
}

func (t *savepointTx) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return t.pool.QueryRowContext(ctx, query, args...)
}

func (t *savepointTx) GetDBConn() (*sql.DB, error) {
	return t.pool.sqlDB, nil
}

func (t *savepointTx) Commit() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	return t.pool.session.restart(t.ctx)
}

func (t *savepointTx) Rollback() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	return t.pool.session.rollback(t.ctx)
}
