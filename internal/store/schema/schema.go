// Package schema holds the gorm models backing the postgres store.
package schema

// Models lists every model managed by the store migration
func Models() []any {
	return []any{
		&Workflow{},
		&User{},
		&PortfolioAlert{},
		&Template{},
		&Holding{},
	}
}
