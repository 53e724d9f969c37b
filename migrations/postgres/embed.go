// Package migrations embeds SQL migration files.
package migrations

import "embed"

// AuthzFS contains the authorization schema migrations.
//
//go:embed authz/*.sql
var AuthzFS embed.FS

// AuthzDir is the directory within AuthzFS where migrations live.
const AuthzDir = "authz"
