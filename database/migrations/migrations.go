// Package migrations holds the SQL ledger migrations. Each file registers
// itself from init(); the CLI imports this package for the side effect.
package migrations
