package auth_test

import (
	"testing"

	auth "github.com/goliatone/go-auth-server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedAssets(t *testing.T) {
	migrations, err := auth.GetMigrationsFS().ReadDir("data/sql/migrations")
	require.NoError(t, err)
	assert.NotEmpty(t, migrations)

	templates, err := auth.GetEmailTemplatesFS().ReadDir("views/emails")
	require.NoError(t, err)

	names := make([]string, 0, len(templates))
	for _, entry := range templates {
		names = append(names, entry.Name())
	}
	assert.Contains(t, names, "reset_password.html")
	assert.Contains(t, names, "verify_email.html")
}
