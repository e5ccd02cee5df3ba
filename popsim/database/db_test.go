package database

import (
	"net/url"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBunDSN_EscapesCredentials(t *testing.T) {
	t.Setenv("PG_SSLMODE", "")

	tests := []struct {
		name     string
		user     string
		password string
	}{
		{name: "plain", user: "popsim", password: "popsim"},
		{name: "reserved characters", user: "pop@sim", password: "p@ss:w/rd?#%"},
		{name: "empty password", user: "popsim", password: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DBConfig{Host: "db.internal", Port: 5433, User: tt.user, Password: tt.password, Database: "popsim"}

			u, err := url.Parse(bunDSN(cfg))
			require.NoError(t, err)
			assert.Equal(t, "postgres", u.Scheme)
			assert.Equal(t, "db.internal:5433", u.Host)
			assert.Equal(t, "/popsim", u.Path)
			assert.Equal(t, "disable", u.Query().Get("sslmode"))
			assert.Equal(t, tt.user, u.User.Username())
			password, _ := u.User.Password()
			assert.Equal(t, tt.password, password)
		})
	}
}

func TestBunDSN_SSLModeFromEnv(t *testing.T) {
	t.Setenv("PG_SSLMODE", "require")

	u, err := url.Parse(bunDSN(DBConfig{Host: "localhost", Port: 5432, User: "u", Password: "p", Database: "d"}))
	require.NoError(t, err)
	assert.Equal(t, "require", u.Query().Get("sslmode"))
}

func TestBuildConnString_ParsesWithSpecialPassword(t *testing.T) {
	cfg := DBConfig{Host: "localhost", Port: 5432, User: "popsim", Password: "a@b/c:d", Database: "popsim"}

	poolConfig, err := pgxpool.ParseConfig(buildConnString(cfg))
	require.NoError(t, err)
	assert.Equal(t, "a@b/c:d", poolConfig.ConnConfig.Password)
	assert.Equal(t, "popsim", poolConfig.ConnConfig.User)
	assert.Equal(t, "localhost", poolConfig.ConnConfig.Host)
	assert.Equal(t, uint16(5432), poolConfig.ConnConfig.Port)
}
