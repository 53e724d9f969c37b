package repository

import (
	"strings"
	"testing"
)

func roleSet(edges map[string][]string) map[string]Role {
	out := make(map[string]Role, len(edges))
	for name, parents := range edges {
		out[name] = Role{Name: name, Inherits: parents}
	}
	return out
}

func TestValidateRoleGraph_Acyclic(t *testing.T) {
	cases := []map[string][]string{
		{},
		{"a": nil},
		{"a": {"b"}, "b": nil},
		{"a": {"b", "c"}, "b": {"c"}, "c": nil},        // diamante
		{"a": {"ghost"}},                               // padre inexistente no es ciclo
		{"a": {"b"}, "b": {"c"}, "c": {"d"}, "d": nil}, // cadena
	}
	for i, edges := range cases {
		if err := ValidateRoleGraph(roleSet(edges)); err != nil {
			t.Fatalf("case %d: expected acyclic, got %v", i, err)
		}
	}
}

func TestValidateRoleGraph_Cycles(t *testing.T) {
	cases := []map[string][]string{
		{"a": {"a"}},
		{"a": {"b"}, "b": {"a"}},
		{"a": {"b"}, "b": {"c"}, "c": {"a"}},
		{"x": nil, "a": {"b"}, "b": {"a"}}, // ciclo parcial
	}
	for i, edges := range cases {
		err := ValidateRoleGraph(roleSet(edges))
		if err == nil {
			t.Fatalf("case %d: expected cycle error", i)
		}
		if !IsCyclicRole(err) {
			t.Fatalf("case %d: expected ErrCyclicRole, got %v", i, err)
		}
		if !strings.Contains(err.Error(), "->") {
			t.Fatalf("case %d: error should name the cycle: %v", i, err)
		}
	}
}

func TestClosure(t *testing.T) {
	roles := roleSet(map[string][]string{
		"premium_user": {"premium"},
		"premium":      {"free"},
		"free":         nil,
		"other":        nil,
	})
	got := Closure(roles, "premium_user")
	want := []string{"premium_user", "premium", "free"}
	if len(got) != len(want) {
		t.Fatalf("closure = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("closure = %v, want %v", got, want)
		}
	}

	if c := Closure(roles, "missing"); len(c) != 0 {
		t.Fatalf("closure of unknown role should be empty, got %v", c)
	}
}

func TestPermissionMatches(t *testing.T) {
	cases := []struct {
		perm    Permission
		r, a, s string
		want    bool
	}{
		{Permission{Resource: "tool", Action: "execute", Scope: "premium"}, "tool", "execute", "premium", true},
		{Permission{Resource: "tool", Action: "execute", Scope: "premium"}, "tool", "execute", "enterprise", false},
		{Permission{Resource: "tool", Action: "execute", Scope: Wildcard}, "tool", "execute", "premium", true},
		{Permission{Resource: "tool", Action: "execute", Scope: Wildcard}, "tool", "execute", "enterprise", true},
		{Permission{Resource: Wildcard, Action: Wildcard, Scope: Wildcard}, "mcp", "admin", "x", true},
		{Permission{Resource: "mcp", Action: "read", Scope: Wildcard}, "tool", "read", "basic", false},
	}
	for i, c := range cases {
		if got := c.perm.Matches(c.r, c.a, c.s); got != c.want {
			t.Fatalf("case %d: %s vs (%s,%s,%s) = %v, want %v", i, c.perm, c.r, c.a, c.s, got, c.want)
		}
	}
}
