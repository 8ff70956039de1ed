package roles

import (
	"context"
	"testing"
)

func TestNewStaticRegistryDefaults(t *testing.T) {
	got, err := NewStaticRegistry().List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []Role{
		{ID: "anonymous", Label: "Anonymous"},
		{ID: "authenticated", Label: "Authenticated"},
		{ID: "administrator", Label: "Administrator"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d roles, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("role %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestNewStaticRegistryParsesLabels(t *testing.T) {
	reg := NewStaticRegistry("editor:Content editor", " Site_Builder ", "", "editor")
	got, _ := reg.List(context.Background())
	if len(got) != 2 {
		t.Fatalf("expected 2 roles, got %+v", got)
	}
	if got[0].Label != "Content editor" {
		t.Fatalf("explicit label lost: %+v", got[0])
	}
	if got[1].ID != "site_builder" || got[1].Label != "Site Builder" {
		t.Fatalf("unexpected derived role: %+v", got[1])
	}
}

func TestKnownFiltersAndSorts(t *testing.T) {
	roles := []Role{{ID: "editor"}, {ID: "admin"}}
	got := Known(roles, []string{"editor", "ghost", "admin", "editor"})
	if len(got) != 2 || got[0] != "admin" || got[1] != "editor" {
		t.Fatalf("Known = %v", got)
	}
}

func TestListReturnsCopy(t *testing.T) {
	reg := NewStaticRegistry("a")
	first, _ := reg.List(context.Background())
	first[0].Label = "mutated"
	second, _ := reg.List(context.Background())
	if second[0].Label == "mutated" {
		t.Fatal("List leaked internal slice")
	}
}
