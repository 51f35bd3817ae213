package realtime

import (
	"encoding/json"
	"testing"
)

func TestCleanPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/runs/", "runs"},
		{"runs", "runs"},
		{"runs/", "runs"},
		{"//users//alice/", "users/alice"},
		{"/", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CleanPath(tt.in); got != tt.want {
			t.Errorf("CleanPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSnapshotExists(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"", false},
		{"null", false},
		{"  null \n", false},
		{"{}", true},
		{`{"a":1}`, true},
		{"0", true},
	}
	for _, tt := range tests {
		s := NewSnapshot("/runs/", json.RawMessage(tt.raw))
		if got := s.Exists(); got != tt.want {
			t.Errorf("Exists(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
	if got := string(NewSnapshot("runs", nil).Val()); got != "null" {
		t.Errorf("Val() of absent snapshot = %q, want null", got)
	}
}

func TestLookup(t *testing.T) {
	tree := json.RawMessage(`{"runs":{"a":{"userID":"u"}},"flat":5}`)

	if got := lookup(tree, []string{"runs", "a"}); string(got) != `{"userID":"u"}` {
		t.Errorf("lookup runs/a = %s", got)
	}
	if got := lookup(tree, []string{"missing"}); got != nil {
		t.Errorf("lookup missing = %s, want nil", got)
	}
	if got := lookup(tree, []string{"flat", "deeper"}); got != nil {
		t.Errorf("lookup through scalar = %s, want nil", got)
	}
	if got := lookup(nil, []string{"runs"}); got != nil {
		t.Errorf("lookup in empty tree = %s, want nil", got)
	}
}

func TestSetChild(t *testing.T) {
	t.Run("creates intermediate objects", func(t *testing.T) {
		got, err := setChild(nil, []string{"runs"}, "k1", json.RawMessage(`{"d":1}`))
		if err != nil {
			t.Fatal(err)
		}
		if v := lookup(got, []string{"runs", "k1"}); string(v) != `{"d":1}` {
			t.Errorf("runs/k1 = %s", v)
		}
	})

	t.Run("keeps siblings", func(t *testing.T) {
		tree := json.RawMessage(`{"runs":{"k0":true},"other":1}`)
		got, err := setChild(tree, []string{"runs"}, "k1", json.RawMessage(`false`))
		if err != nil {
			t.Fatal(err)
		}
		if v := lookup(got, []string{"runs", "k0"}); string(v) != "true" {
			t.Errorf("sibling k0 = %s, want true", v)
		}
		if v := lookup(got, []string{"other"}); string(v) != "1" {
			t.Errorf("other = %s, want 1", v)
		}
	})

	t.Run("replaces scalar parent", func(t *testing.T) {
		got, err := setChild(json.RawMessage(`{"runs":7}`), []string{"runs"}, "k", json.RawMessage(`1`))
		if err != nil {
			t.Fatal(err)
		}
		if v := lookup(got, []string{"runs", "k"}); string(v) != "1" {
			t.Errorf("runs/k = %s, want 1", v)
		}
	})
}

func TestSubscriptionPublishLatestWins(t *testing.T) {
	sub := newSubscription("runs", nil)
	sub.publish(NewSnapshot("runs", json.RawMessage(`1`)))
	sub.publish(NewSnapshot("runs", json.RawMessage(`2`)))

	got := <-sub.Updates()
	if string(got.Val()) != "2" {
		t.Errorf("pending snapshot = %s, want the newest (2)", got.Val())
	}

	select {
	case extra := <-sub.Updates():
		t.Errorf("unexpected extra snapshot %s", extra.Val())
	default:
	}
}

func TestSubscriptionClose(t *testing.T) {
	cancelled := 0
	sub := newSubscription("runs", func() { cancelled++ })
	sub.Close()
	sub.Close()
	if cancelled != 1 {
		t.Errorf("cancel called %d times, want 1", cancelled)
	}

	// After Close, publish and fail are no-ops.
	sub.publish(NewSnapshot("runs", json.RawMessage(`1`)))
	sub.fail(ErrClosed)
	select {
	case <-sub.Updates():
		t.Error("publish after Close delivered a snapshot")
	default:
	}
	select {
	case <-sub.Errors():
		t.Error("fail after Close delivered an error")
	default:
	}
}
