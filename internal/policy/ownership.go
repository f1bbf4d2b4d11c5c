package policy

import (
	"context"

	"github.com/diewo77/go-facturas/gate"
)

// Ownable is implemented by every tenant-scoped model.
type Ownable interface {
	GetUserID() uint
}

// OwnershipPolicy allows access to resources owned by the user.
type OwnershipPolicy struct{}

func NewOwnershipPolicy() *OwnershipPolicy {
	return &OwnershipPolicy{}
}

// Can reports whether userID owns resource. Resources that are not Ownable
// are denied.
func (p *OwnershipPolicy) Can(_ context.Context, userID uint, _ gate.Action, resource any) bool {
	ownable, ok := resource.(Ownable)
	if !ok {
		return false
	}
	return ownable.GetUserID() == userID
}
