package appfs

import "embed"

// FS holds the database migrations and email templates shipped with the binaries.
//
//go:embed migrations/*.sql templates/email/*
var FS embed.FS

const (
	MigrationsDir     = "migrations"
	EmailTemplatesDir = "templates/email"
)
