package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmbeddedSchemas(t *testing.T) {
	pg, err := load(PostgresFS, "postgres")
	require.NoError(t, err)
	require.NotEmpty(t, pg)
	assert.Contains(t, pg[0].sql, "model_parameters")

	ch, err := load(ClickhouseFS, "clickhouse")
	require.NoError(t, err)
	require.NotEmpty(t, ch)
	assert.Contains(t, ch[0].sql, "event_hits")
}

func TestStatements(t *testing.T) {
	got := statements(`-- header
CREATE TABLE a (x Int32);

-- second
CREATE TABLE b (y Int32)
`)
	assert.Equal(t, []string{"CREATE TABLE a (x Int32)", "CREATE TABLE b (y Int32)"}, got)
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default@localhost:9000/hits")
	require.NoError(t, err)
	assert.Equal(t, "hits", db)

	_, err = databaseFromDSN("clickhouse://localhost:9000")
	assert.Error(t, err)
}
