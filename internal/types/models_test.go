// internal/types/models_test.go
package types

import "testing"

func TestSelfIdentityMatches(t *testing.T) {
	self := SelfIdentity{ID: 42, Name: "scanner_bot"}

	if !self.Matches(42, "whoever") {
		t.Error("expected match by id")
	}
	if !self.Matches(7, "scanner_bot") {
		t.Error("expected match by name")
	}
	if self.Matches(7, "someone") {
		t.Error("unexpected match")
	}

	// A zero id must never match author id 0 (unknown author).
	anon := SelfIdentity{Name: "scanner_bot"}
	if anon.Matches(0, "someone") {
		t.Error("zero id matched unknown author")
	}
}

func TestIsSelf(t *testing.T) {
	ids := []SelfIdentity{
		{ID: 1},
		{Name: "reserved"},
	}
	if !IsSelf(ids, 1, "") {
		t.Error("expected match against first identity")
	}
	if !IsSelf(ids, 99, "reserved") {
		t.Error("expected match against second identity")
	}
	if IsSelf(ids, 99, "other") {
		t.Error("unexpected match")
	}
	if IsSelf(nil, 1, "reserved") {
		t.Error("empty identity list matched")
	}
}
