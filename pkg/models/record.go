// Package models contains shared data models used across the partscan codebase.
package models

// MasterRecord is one row of the master parts table: a unique part number
// plus its spec and stock attributes. Rows are loaded once per job and are
// immutable for the lifetime of that job.
type MasterRecord struct {
	PartNo string `json:"part_no"`
	Spec   string `json:"spec"`
	Stock  string `json:"stock"`
}
