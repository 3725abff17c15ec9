// Package migrations embeds the SQL migration files that define the session
// cache schema. They are compiled into the binary so the client can create
// its database file anywhere without shipping loose SQL alongside it.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
