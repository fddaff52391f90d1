package models

import "time"

// ModuleVersion is one row of the schema-version ledger: the timestamp of
// the last migration applied for a logical module. One row exists per
// module; the row is upserted once per successful migration batch.
type ModuleVersion struct {
	// Module is the logical module name (e.g. "base", "auth", "cache").
	Module string `json:"module"`

	// Version is the timestamp encoded in the filename of the most
	// recently applied migration for the module.
	Version time.Time `json:"version"`
}

// TableName returns the name of the database table
// associated with the ModuleVersion model.
func (m ModuleVersion) TableName() string {
	return "module_version"
}
