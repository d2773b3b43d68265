package database

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/schoolsnap-attendance-api/pkg/config"
)

func TestDSNEscapesCredentials(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "gateway", Password: "p@ss word", Name: "audit", SSLMode: "disable"})

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "db:5432", u.Host)
	assert.Equal(t, "/audit", u.Path)
	pw, _ := u.User.Password()
	assert.Equal(t, "p@ss word", pw)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
	assert.Equal(t, applicationName, u.Query().Get("application_name"))
}
