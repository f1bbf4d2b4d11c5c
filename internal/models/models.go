// Package models holds the gorm records of the invoicing domain.
package models

// Ownable is implemented by records that belong to a single user.
type Ownable interface {
	GetUserID() uint
}

// All lists every model in dependency order, for AutoMigrate.
func All() []any {
	return []any{
		&Permission{},
		&Profile{},
		&User{},
		&Company{},
		&Customer{},
		&Product{},
		&PaymentMethod{},
		&CAI{},
		&Invoice{},
		&InvoiceItem{},
	}
}
