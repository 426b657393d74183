package tier

import (
	"reflect"
	"testing"
)

func testResolver() *Resolver {
	return NewResolver([]Band{
		{MinLevel: 1, MaxLevel: 9, RoleID: "novice"},
		{MinLevel: 10, MaxLevel: 19, RoleID: "apprentice"},
		{MinLevel: 20, MaxLevel: 49, RoleID: "expert"},
		{MinLevel: 50, MaxLevel: 999, RoleID: "legend"},
	})
}

func TestRoleForLevel(t *testing.T) {
	r := testResolver()

	cases := []struct {
		level int
		want  string
	}{
		{1, "novice"},
		{9, "novice"},
		{10, "apprentice"},
		{19, "apprentice"},
		{20, "expert"},
		{50, "legend"},
		{999, "legend"},
		{0, ""},
		{1000, ""},
	}

	for _, tc := range cases {
		if got := r.RoleForLevel(tc.level); got != tc.want {
			t.Errorf("RoleForLevel(%d) = %q, want %q", tc.level, got, tc.want)
		}
	}
}

func TestReconcile(t *testing.T) {
	r := testResolver()

	t.Run("TierChange", func(t *testing.T) {
		toAdd, toRemove := r.Reconcile([]string{"novice"}, 10)
		if !reflect.DeepEqual(toAdd, []string{"apprentice"}) {
			t.Errorf("toAdd = %v, want [apprentice]", toAdd)
		}
		if !reflect.DeepEqual(toRemove, []string{"novice"}) {
			t.Errorf("toRemove = %v, want [novice]", toRemove)
		}
	})

	t.Run("AlreadyHeld", func(t *testing.T) {
		toAdd, toRemove := r.Reconcile([]string{"apprentice"}, 12)
		if len(toAdd) != 0 {
			t.Errorf("toAdd = %v, want empty", toAdd)
		}
		if len(toRemove) != 0 {
			t.Errorf("toRemove = %v, want empty", toRemove)
		}
	})

	t.Run("IgnoresNonTierRoles", func(t *testing.T) {
		toAdd, toRemove := r.Reconcile([]string{"moderator", "novice"}, 25)
		if !reflect.DeepEqual(toAdd, []string{"expert"}) {
			t.Errorf("toAdd = %v, want [expert]", toAdd)
		}
		if !reflect.DeepEqual(toRemove, []string{"novice"}) {
			t.Errorf("toRemove = %v, want [novice]", toRemove)
		}
	})

	t.Run("StripsStaleTiersWhenNoBandMatches", func(t *testing.T) {
		toAdd, toRemove := r.Reconcile([]string{"legend"}, 1000)
		if len(toAdd) != 0 {
			t.Errorf("toAdd = %v, want empty", toAdd)
		}
		if !reflect.DeepEqual(toRemove, []string{"legend"}) {
			t.Errorf("toRemove = %v, want [legend]", toRemove)
		}
	})

	t.Run("RemovesMultipleStaleTiers", func(t *testing.T) {
		toAdd, toRemove := r.Reconcile([]string{"novice", "apprentice"}, 55)
		if !reflect.DeepEqual(toAdd, []string{"legend"}) {
			t.Errorf("toAdd = %v, want [legend]", toAdd)
		}
		if !reflect.DeepEqual(toRemove, []string{"novice", "apprentice"}) {
			t.Errorf("toRemove = %v, want [novice apprentice]", toRemove)
		}
	})
}
