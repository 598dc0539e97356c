package data

import (
	_ "embed"
)

// SeedBooks is the starter catalog loaded by the seed command.
//
//go:embed seed/books.json
var SeedBooks []byte
