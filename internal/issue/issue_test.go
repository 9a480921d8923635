// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

func TestId_Unique(t *testing.T) {
	t.Parallel()

	ids := []Id{
		ConfigLoadFailedId,
		ServerStartFailedId,
		UpstreamUnreachableId,
		InvalidCredentialsId,
		DiagramDirUnwritableId,
	}

	seen := make(map[Id]bool)
	for _, id := range ids {
		if seen[id] {
			t.Errorf("duplicate ID: %d", id)
		}
		seen[id] = true
		if Get(id) == nil {
			t.Errorf("Get(%d) returned nil", id)
		}
	}

	if ConfigLoadFailedId != 1 {
		t.Errorf("ConfigLoadFailedId = %d, want 1", ConfigLoadFailedId)
	}
}

func TestValues_Ordered(t *testing.T) {
	t.Parallel()

	all := Values()
	if len(all) != len(issues) {
		t.Fatalf("len(Values()) = %d, want %d", len(all), len(issues))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Id() >= all[i].Id() {
			t.Errorf("Values() not ordered at %d: %d >= %d", i, all[i-1].Id(), all[i].Id())
		}
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()

	got, ok := Lookup("upstream-unreachable")
	if !ok {
		t.Fatal("Lookup(upstream-unreachable) not found")
	}
	if got.Id() != UpstreamUnreachableId {
		t.Errorf("Id() = %d, want %d", got.Id(), UpstreamUnreachableId)
	}

	if _, ok := Lookup("no-such-issue"); ok {
		t.Error("Lookup(no-such-issue) should fail")
	}
}

func TestIssue_DocLinksIsClone(t *testing.T) {
	t.Parallel()

	i := Get(InvalidCredentialsId)
	links := i.DocLinks()
	if len(links) == 0 {
		t.Fatal("expected doc links")
	}
	links[0] = "mutated"
	if i.DocLinks()[0] == "mutated" {
		t.Error("DocLinks() returned the internal slice")
	}
}

func TestIssue_Render(t *testing.T) {
	t.Parallel()

	for _, i := range Values() {
		out, err := i.Render("notty")
		if err != nil {
			t.Errorf("Render(%s) error = %v", i.Title(), err)
			continue
		}
		if strings.TrimSpace(out) == "" {
			t.Errorf("Render(%s) returned empty output", i.Title())
		}
	}
}

func TestIssue_RenderIncludesLinks(t *testing.T) {
	t.Parallel()

	out, err := Get(UpstreamUnreachableId).Render("notty")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(out, "jdoodle") {
		t.Errorf("rendered issue should mention its doc link, got:\n%s", out)
	}
}
