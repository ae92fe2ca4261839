package stream

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"ingestor/internal/auth"
	"ingestor/internal/batch"
)

func sqlTestCred(t *testing.T) auth.SQLCredential {
	t.Helper()
	ctx := context.Background()

	c, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("postgres"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(ctx) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return auth.SQLCredential{Username: "postgres", Password: "postgres", Host: fmt.Sprintf("%s:%s", host, port.Port())}
}

func sampleBatch(t *testing.T) (*batch.Batch, map[string]batch.Kind) {
	t.Helper()
	b := batch.New()
	require.NoError(t, b.AddColumn("id", batch.Int, []batch.Value{batch.IntValue(1), batch.IntValue(2)}))
	require.NoError(t, b.AddColumn("price", batch.Float, []batch.Value{batch.FloatValue(1.5), batch.NullValue(batch.Float)}))
	require.NoError(t, b.AddColumn("name", batch.String, []batch.Value{batch.StringValue("a"), batch.StringValue("b")}))
	return b, b.DTypes()
}

func TestNewSqlRejectsUnknownDialectAndIfExists(t *testing.T) {
	cred := auth.SQLCredential{Username: "u", Password: "p", Host: "h:5432"}

	_, err := NewSql("mysql", "db", "tbl", cred, "append")
	assert.Error(t, err)

	_, err = NewSql("postgresql", "db", "tbl", cred, "bogus")
	assert.Error(t, err)
}

func TestSqlUploadCreatesDatabaseTableAndRows(t *testing.T) {
	cred := sqlTestCred(t)
	sink, err := NewSql("postgresql", "stream2sql_test", "widgets", cred, "append")
	require.NoError(t, err)
	defer sink.Invalidate()

	b, dtypes := sampleBatch(t)
	ctx := context.Background()
	require.NoError(t, sink.Upload(ctx, b, dtypes))

	dsn := fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable", cred.Username, cred.Password, cred.Host, sink.DBName)
	pool, err := pgxpool.Connect(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	var count int
	require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM widgets").Scan(&count))
	assert.Equal(t, 2, count)

	var price float64
	require.NoError(t, pool.QueryRow(ctx, "SELECT price FROM widgets WHERE id = 1").Scan(&price))
	assert.Equal(t, 1.5, price)

	var nullPrice *float64
	require.NoError(t, pool.QueryRow(ctx, "SELECT price FROM widgets WHERE id = 2").Scan(&nullPrice))
	assert.Nil(t, nullPrice)
}

func TestSqlUploadAppendsOnSecondCall(t *testing.T) {
	cred := sqlTestCred(t)
	sink, err := NewSql("postgresql", "stream2sql_test_append", "widgets", cred, "append")
	require.NoError(t, err)
	defer sink.Invalidate()

	ctx := context.Background()
	b, dtypes := sampleBatch(t)
	require.NoError(t, sink.Upload(ctx, b, dtypes))
	require.NoError(t, sink.Upload(ctx, b, dtypes))

	dsn := fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable", cred.Username, cred.Password, cred.Host, sink.DBName)
	pool, err := pgxpool.Connect(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	var count int
	require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM widgets").Scan(&count))
	assert.Equal(t, 4, count)
}

func TestSqlUploadReplaceDropsPriorRows(t *testing.T) {
	cred := sqlTestCred(t)
	sink, err := NewSql("postgresql", "stream2sql_test_replace", "widgets", cred, "replace")
	require.NoError(t, err)
	defer sink.Invalidate()

	ctx := context.Background()
	b, dtypes := sampleBatch(t)
	require.NoError(t, sink.Upload(ctx, b, dtypes))
	require.NoError(t, sink.Upload(ctx, b, dtypes))

	dsn := fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable", cred.Username, cred.Password, cred.Host, sink.DBName)
	pool, err := pgxpool.Connect(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	var count int
	require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM widgets").Scan(&count))
	assert.Equal(t, 2, count)
}

func TestSqlUploadFailErrorsIfTableExists(t *testing.T) {
	cred := sqlTestCred(t)
	b, dtypes := sampleBatch(t)
	ctx := context.Background()

	first, err := NewSql("postgresql", "stream2sql_test_fail", "widgets", cred, "append")
	require.NoError(t, err)
	require.NoError(t, first.Upload(ctx, b, dtypes))
	first.Invalidate()

	second, err := NewSql("postgresql", "stream2sql_test_fail", "widgets", cred, "fail")
	require.NoError(t, err)
	defer second.Invalidate()

	err = second.Upload(ctx, b, dtypes)
	assert.Error(t, err)
}
