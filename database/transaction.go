package database

import (
	"context"
	"fmt"

	"github.com/satishbabariya/bear/internal/debug"
)

// InTransaction reports whether a transaction is open.
func (c *Connection) InTransaction() bool {
	return c.tx != nil
}

// TransactionLevel returns the nesting depth: 0 outside a transaction, 1
// for the outer transaction and one more per savepoint.
func (c *Connection) TransactionLevel() int {
	if c.tx == nil {
		return 0
	}
	return c.txLevel + 1
}

func savepointName(level int) string {
	return fmt.Sprintf("sp_%d", level)
}

// Begin opens a transaction, or a savepoint when one is already open.
func (c *Connection) Begin(ctx context.Context) error {
	if c.tx != nil {
		level := c.txLevel + 1
		if _, err := c.tx.ExecContext(ctx, c.driver.SavePointSQL(savepointName(level))); err != nil {
			return fmt.Errorf("%w: create savepoint: %w", ErrTransaction, err)
		}
		c.txLevel = level
		c.logTx("SAVEPOINT " + savepointName(level))
		return nil
	}

	db, err := c.ensureConnected(ctx)
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrTransaction, err)
	}
	c.tx = tx
	c.txLevel = 0
	c.logTx("BEGIN")
	return nil
}

// Commit commits the innermost transaction level.
func (c *Connection) Commit(ctx context.Context) error {
	if c.tx == nil {
		return fmt.Errorf("%w: no transaction is open", ErrTransaction)
	}
	if c.txLevel > 0 {
		name := savepointName(c.txLevel)
		if _, err := c.tx.ExecContext(ctx, c.driver.ReleaseSavePointSQL(name)); err != nil {
			return fmt.Errorf("%w: release savepoint: %w", ErrTransaction, err)
		}
		c.txLevel--
		c.logTx("RELEASE SAVEPOINT " + name)
		return nil
	}

	tx := c.tx
	c.tx = nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrTransaction, err)
	}
	c.logTx("COMMIT")
	return nil
}

// Rollback rolls back the innermost transaction level.
func (c *Connection) Rollback(ctx context.Context) error {
	if c.tx == nil {
		return fmt.Errorf("%w: no transaction is open", ErrTransaction)
	}
	if c.txLevel > 0 {
		name := savepointName(c.txLevel)
		c.txLevel--
		if _, err := c.tx.ExecContext(ctx, c.driver.RollbackSavePointSQL(name)); err != nil {
			return fmt.Errorf("%w: rollback savepoint: %w", ErrTransaction, err)
		}
		c.logTx("ROLLBACK TO SAVEPOINT " + name)
		return nil
	}

	tx := c.tx
	c.tx = nil
	if err := tx.Rollback(); err != nil {
		return fmt.Errorf("%w: rollback: %w", ErrTransaction, err)
	}
	c.logTx("ROLLBACK")
	return nil
}

func (c *Connection) logTx(sql string) {
	if c.logQueries {
		debug.Debug("query", "sql", sql)
	}
}

// Transactional runs fn inside a transaction level. The level is
// committed when fn returns nil and rolled back when it returns an error
// or panics; the panic is re-raised after the rollback.
func (c *Connection) Transactional(ctx context.Context, fn func(ctx context.Context, conn *Connection) error) error {
	if err := c.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = c.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(ctx, c); err != nil {
		if rbErr := c.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("transaction error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}
	return c.Commit(ctx)
}
