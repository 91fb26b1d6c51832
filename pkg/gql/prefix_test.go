package gql

import "testing"

func TestPrefixUnsetPassesNameThrough(t *testing.T) {
	var p Prefix
	if got := p.Name("cursor"); got != "cursor" {
		t.Errorf("Name() = %q, want %q", got, "cursor")
	}
}

func TestPrefixSingleApply(t *testing.T) {
	p := Prefix{}.Apply("a")
	if got := p.Name("cursor"); got != "a_cursor" {
		t.Errorf("Name() = %q, want %q", got, "a_cursor")
	}
}

// TestPrefixCompositionIsLeftNestedAndAssociative mirrors spec scenario 6:
// a selection prefixed once with "a" and then again with "b" must produce
// $b_a_issue_id, i.e. WithVariablePrefix(P2)(WithVariablePrefix(P1)(S))
// textually composes as "P2_P1".
func TestPrefixCompositionIsLeftNestedAndAssociative(t *testing.T) {
	p := Prefix{}.Apply("a").Apply("b")
	if got := p.Name("issue_id"); got != "b_a_issue_id" {
		t.Errorf("Name() = %q, want %q", got, "b_a_issue_id")
	}

	// Three levels deep stays associative in the same left-nested order.
	p3 := Prefix{}.Apply("a").Apply("b").Apply("c")
	if got := p3.Name("cursor"); got != "c_b_a_cursor" {
		t.Errorf("Name() = %q, want %q", got, "c_b_a_cursor")
	}
}
