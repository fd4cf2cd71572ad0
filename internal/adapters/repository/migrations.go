package repository

import "embed"

// Migrations holds the SQL schema migrations, read by golang-migrate's iofs source.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory of Migrations holding the files.
const MigrationsDir = "migrations"
