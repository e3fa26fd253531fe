// Package schema models the dialect-agnostic description of a relational
// database and caches introspected snapshots.
package schema

import "strings"

// Dialect identifies the relational database product variant. It drives
// catalog-query syntax upstream and date-bucketing syntax downstream.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
	DialectMariaDB  Dialect = "mariadb"
	DialectSQLite   Dialect = "sqlite"
)

// Supported reports whether d is one of the known dialects.
func (d Dialect) Supported() bool {
	switch d {
	case DialectPostgres, DialectMySQL, DialectMariaDB, DialectSQLite:
		return true
	}
	return false
}

// Description is the root schema snapshot. Tables is rebuilt atomically on
// refresh and never partially overwritten mid-read.
type Description struct {
	DatabaseName string  `json:"databaseName"`
	Dialect      Dialect `json:"dialect"`
	Tables       []Table `json:"tables"`
}

// Table describes one base table. Name is unique within a snapshot.
// Description is the catalog comment or an inferred heuristic, never empty.
type Table struct {
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Columns       []Column       `json:"columns"`
	Relationships []Relationship `json:"relationships"`
}

// Column describes one column with its normalized type.
type Column struct {
	Name           string `json:"name"`
	NormalizedType string `json:"normalizedType"`
	Nullable       bool   `json:"nullable"`
	Description    string `json:"description"`
}

// Relationship is a directed many-to-one foreign-key reference from Column
// on the owning table to ForeignTable.ForeignColumn.
type Relationship struct {
	Column        string `json:"column"`
	ForeignTable  string `json:"foreignTable"`
	ForeignColumn string `json:"foreignColumn"`
}

// HasTable reports whether the snapshot contains a table with the given
// name, compared case-insensitively.
func (d *Description) HasTable(name string) bool {
	return d.FindTable(name) != nil
}

// FindTable returns the table with the given name (case-insensitive), or
// nil when absent.
func (d *Description) FindTable(name string) *Table {
	for i := range d.Tables {
		if strings.EqualFold(d.Tables[i].Name, name) {
			return &d.Tables[i]
		}
	}
	return nil
}
