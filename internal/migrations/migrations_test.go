package migrations

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSource expects both dialects to start with the migration creating the personas table.
func TestSource(t *testing.T) {
	for _, driverName := range []string{"postgres", "mysql"} {
		src, err := Source(driverName)
		require.NoError(t, err, driverName)

		first, err := src.First()
		require.NoError(t, err, driverName)
		assert.Equal(t, uint(1), first)

		up, identifier, err := src.ReadUp(first)
		require.NoError(t, err, driverName)
		assert.Equal(t, "create_personas", identifier)
		sql, err := io.ReadAll(up)
		require.NoError(t, err)
		up.Close()
		assert.Contains(t, string(sql), "CREATE TABLE IF NOT EXISTS personas")
		assert.Contains(t, string(sql), "uq_personas_email UNIQUE (email)")

		down, _, err := src.ReadDown(first)
		require.NoError(t, err, driverName)
		down.Close()

		_, err = src.Next(first)
		assert.Error(t, err, "only one migration expected for %s", driverName)
		require.NoError(t, src.Close())
	}
}

func TestSourceUnknownDriver(t *testing.T) {
	_, err := Source("memory")
	assert.Error(t, err)
}
