package gate_test

import (
	"testing"

	"github.com/diewo77/go-facturas/gate"
)

func TestPermission_NewPermission(t *testing.T) {
	perm := gate.NewPermission("invoice", gate.ActionIssue)
	if perm != "invoice:issue" {
		t.Errorf("expected 'invoice:issue', got '%s'", perm)
	}
}

func TestPermission_Parse(t *testing.T) {
	tests := []struct {
		perm    gate.Permission
		res     string
		act     gate.Action
		isValid bool
	}{
		{"customer:view", "customer", gate.ActionView, true},
		{"cai:*", "cai", "*", true},
		{"invalid", "", "", false},
		{":view", "", "", false},
		{"invoice:", "", "", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.perm), func(t *testing.T) {
			res, act := tt.perm.Parse()
			if res != tt.res || act != tt.act {
				t.Errorf("Parse() = (%q, %q), want (%q, %q)", res, act, tt.res, tt.act)
			}
			if tt.perm.Valid() != tt.isValid {
				t.Errorf("Valid() = %v, want %v", tt.perm.Valid(), tt.isValid)
			}
		})
	}
}

func TestPermission_Matches(t *testing.T) {
	tests := []struct {
		name      string
		held      gate.Permission
		requested gate.Permission
		want      bool
	}{
		{"exact", "product:create", "product:create", true},
		{"different action", "product:create", "product:delete", false},
		{"different resource", "product:create", "invoice:create", false},
		{"superadmin", gate.PermissionSuperAdmin, "invoice:void", true},
		{"resource wildcard", "invoice:*", "invoice:render", true},
		{"resource wildcard other resource", "invoice:*", "cai:create", false},
		{"malformed held", "invoice", "invoice:view", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.held.Matches(tt.requested); got != tt.want {
				t.Errorf("%s.Matches(%s) = %v, want %v", tt.held, tt.requested, got, tt.want)
			}
		})
	}
}
