// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package data embeds the SQL schema so the binary migrates without
// shipping the migrations directory alongside it.
package data

import "embed"

// Migrations holds migrations/*.sql in golang-migrate naming.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory of [Migrations] holding the files.
const MigrationsDir = "migrations"
