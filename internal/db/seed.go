package db

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/go-facturas/gate"
	"github.com/diewo77/go-facturas/internal/models"
)

// Resource types guarded by the gate.
const (
	ResourceCompany       = "company"
	ResourceCustomer      = "customer"
	ResourceProduct       = "product"
	ResourcePaymentMethod = "payment_method"
	ResourceCAI           = "cai"
	ResourceInvoice       = "invoice"
	ResourceAssistant     = "assistant"
	ResourceProfile       = "profile"
	ResourceUser          = "user"
)

type permissionSeed struct {
	resource string
	actions  []gate.Action
	label    string
}

// permissionSeeds lists every resource:action pair the application checks.
// Each resource also gets a "resource:*" wildcard row.
var permissionSeeds = []permissionSeed{
	{ResourceCompany, []gate.Action{gate.ActionView, gate.ActionUpdate}, "company settings"},
	{ResourceCustomer, gate.CRUD(), "customers"},
	{ResourceProduct, gate.CRUD(), "products"},
	{ResourcePaymentMethod, gate.CRUD(), "payment methods"},
	{ResourceCAI, gate.CRUD(), "CAI authorizations"},
	{ResourceInvoice, append(gate.CRUD(), gate.ActionIssue, gate.ActionPay, gate.ActionVoid, gate.ActionRender, gate.ActionExport), "invoices"},
	{ResourceAssistant, []gate.Action{gate.ActionAsk}, "assistant"},
	{ResourceProfile, gate.CRUD(), "profiles"},
	{ResourceUser, []gate.Action{gate.ActionList, gate.ActionView, gate.ActionUpdate}, "users"},
}

type profileSeed struct {
	name        string
	description string
	permissions []gate.Permission
}

func readOnly(resources ...string) []gate.Permission {
	var out []gate.Permission
	for _, r := range resources {
		out = append(out, gate.NewPermission(r, gate.ActionList), gate.NewPermission(r, gate.ActionView))
	}
	return out
}

func all(resources ...string) []gate.Permission {
	out := make([]gate.Permission, 0, len(resources))
	for _, r := range resources {
		out = append(out, gate.NewPermission(r, gate.WildcardAll))
	}
	return out
}

var profileSeeds = []profileSeed{
	{
		name:        models.ProfileAdmin,
		description: "Full system administrator with all permissions",
		permissions: []gate.Permission{gate.PermissionSuperAdmin},
	},
	{
		name:        models.ProfileOwner,
		description: "Business owner: manages its own company data",
		permissions: all(ResourceCompany, ResourceCustomer, ResourceProduct, ResourcePaymentMethod,
			ResourceCAI, ResourceInvoice, ResourceAssistant),
	},
	{
		name:        models.ProfileAccountant,
		description: "Manage invoices and customers, view catalog and CAI",
		permissions: append(append(all(ResourceInvoice, ResourceCustomer, ResourceAssistant),
			readOnly(ResourceProduct, ResourcePaymentMethod, ResourceCAI)...),
			gate.NewPermission(ResourceCompany, gate.ActionView)),
	},
	{
		name:        models.ProfileCashier,
		description: "Create and issue invoices, register payments",
		permissions: append(readOnly(ResourceProduct, ResourcePaymentMethod, ResourceCAI, ResourceCustomer),
			gate.NewPermission(ResourceCustomer, gate.ActionCreate),
			gate.NewPermission(ResourceInvoice, gate.ActionList),
			gate.NewPermission(ResourceInvoice, gate.ActionView),
			gate.NewPermission(ResourceInvoice, gate.ActionCreate),
			gate.NewPermission(ResourceInvoice, gate.ActionUpdate),
			gate.NewPermission(ResourceInvoice, gate.ActionIssue),
			gate.NewPermission(ResourceInvoice, gate.ActionPay),
			gate.NewPermission(ResourceInvoice, gate.ActionRender),
			gate.NewPermission(ResourceCompany, gate.ActionView),
		),
	},
	{
		name:        models.ProfileViewer,
		description: "Read-only access to all business data",
		permissions: append(readOnly(ResourceCustomer, ResourceProduct, ResourcePaymentMethod, ResourceCAI, ResourceInvoice),
			gate.NewPermission(ResourceCompany, gate.ActionView)),
	},
}

// Seed creates the permissions and system profiles. It is idempotent.
func Seed(ctx context.Context, gdb *gorm.DB) error {
	return gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := SeedPermissions(tx); err != nil {
			return err
		}
		return SeedProfiles(tx)
	})
}

// SeedPermissions creates every permission row, skipping existing ones.
func SeedPermissions(gdb *gorm.DB) error {
	rows := []models.Permission{{ResourceType: gate.WildcardAll, Action: gate.WildcardAll, Description: "Full system access"}}
	for _, s := range permissionSeeds {
		rows = append(rows, models.Permission{ResourceType: s.resource, Action: gate.WildcardAll, Description: "All " + s.label + " actions"})
		for _, a := range s.actions {
			rows = append(rows, models.Permission{
				ResourceType: s.resource,
				Action:       string(a),
				Description:  fmt.Sprintf("%s %s", a, s.label),
			})
		}
	}
	for _, p := range rows {
		perm := p
		if err := gdb.Where("resource_type = ? AND action = ?", p.ResourceType, p.Action).
			FirstOrCreate(&perm).Error; err != nil {
			return fmt.Errorf("seed permission %s: %w", p.Code(), err)
		}
	}
	return nil
}

// SeedProfiles creates the system profiles and resets their permissions to
// the built-in sets. Permissions must exist.
func SeedProfiles(gdb *gorm.DB) error {
	for _, s := range profileSeeds {
		profile := models.Profile{Name: s.name, Description: s.description, IsSystem: true}
		if err := gdb.Where("name = ?", s.name).FirstOrCreate(&profile).Error; err != nil {
			return fmt.Errorf("seed profile %s: %w", s.name, err)
		}

		perms := make([]models.Permission, 0, len(s.permissions))
		for _, code := range s.permissions {
			resource, action := code.Parse()
			var perm models.Permission
			if err := gdb.Where("resource_type = ? AND action = ?", resource, string(action)).First(&perm).Error; err != nil {
				return fmt.Errorf("profile %s: permission %s: %w", s.name, code, err)
			}
			perms = append(perms, perm)
		}
		if err := gdb.Model(&profile).Association("Permissions").Replace(perms); err != nil {
			return fmt.Errorf("profile %s permissions: %w", s.name, err)
		}
	}
	zap.L().Info("seeded profiles", zap.Int("count", len(profileSeeds)))
	return nil
}

// ErrUserNotFound is returned by PromoteAdmin for an unknown email.
var ErrUserNotFound = errors.New("user not found")

// PromoteAdmin assigns the admin profile to the user with email.
func PromoteAdmin(ctx context.Context, gdb *gorm.DB, email string) error {
	return AssignProfile(ctx, gdb, email, models.ProfileAdmin)
}

// AssignProfile sets the named profile on the user with email.
func AssignProfile(ctx context.Context, gdb *gorm.DB, email, profileName string) error {
	gdb = gdb.WithContext(ctx)
	var user models.User
	if err := gdb.Where("email = ?", models.NormalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrUserNotFound, email)
		}
		return err
	}
	var profile models.Profile
	if err := gdb.Where("name = ?", profileName).First(&profile).Error; err != nil {
		return fmt.Errorf("profile %s: %w", profileName, err)
	}
	return gdb.Model(&user).Update("profile_id", profile.ID).Error
}
