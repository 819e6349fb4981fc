package testutil

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/veritas-edu/campus-sdk/pkg/composables"
)

// Context returns a background context carrying a no-op transaction, so
// service operations wrapped in composables.InTx run against in-memory
// repositories without a database pool.
func Context() context.Context {
	return composables.WithTx(context.Background(), nopTx{})
}

var errNoDatabase = errors.New("testutil: no database behind stub transaction")

type nopTx struct{}

func (nopTx) Begin(ctx context.Context) (pgx.Tx, error) { return nopTx{}, nil }
func (nopTx) Commit(ctx context.Context) error          { return nil }
func (nopTx) Rollback(ctx context.Context) error        { return nil }

func (nopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, errNoDatabase
}

func (nopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (nopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }

func (nopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, errNoDatabase
}

func (nopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errNoDatabase
}

func (nopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errNoDatabase
}

func (nopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return errRow{} }

func (nopTx) Conn() *pgx.Conn { return nil }

type errRow struct{}

func (errRow) Scan(dest ...any) error { return errNoDatabase }
