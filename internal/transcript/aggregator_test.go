package transcript

import (
	"testing"

	"github.com/irisvox/irisvox/pkg/memlog"
)

func TestFlushConcatenatesFragments(t *testing.T) {
	t.Parallel()

	a := New()
	a.Append(memlog.RoleUser, "Hello ")
	a.Append(memlog.RoleUser, "world")
	a.Append(memlog.RoleAssistant, "Hi ")
	a.Append(memlog.RoleAssistant, "there!")

	entries := a.Flush()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Role != memlog.RoleUser || entries[0].Text != "Hello world" {
		t.Errorf("user entry = %q (%s)", entries[0].Text, entries[0].Role)
	}
	if entries[1].Role != memlog.RoleAssistant || entries[1].Text != "Hi there!" {
		t.Errorf("assistant entry = %q (%s)", entries[1].Text, entries[1].Role)
	}
}

func TestFlushUserEntryComesFirst(t *testing.T) {
	t.Parallel()

	a := New()
	// Assistant fragments arrive before the user's, order must not matter.
	a.Append(memlog.RoleAssistant, "answer")
	a.Append(memlog.RoleUser, "question")

	entries := a.Flush()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Role != memlog.RoleUser {
		t.Errorf("first entry role = %s, want user", entries[0].Role)
	}
}

func TestFlushSkipsEmptyBuffers(t *testing.T) {
	t.Parallel()

	a := New()
	if entries := a.Flush(); len(entries) != 0 {
		t.Errorf("empty flush produced %d entries", len(entries))
	}

	a.Append(memlog.RoleAssistant, "only me")
	entries := a.Flush()
	if len(entries) != 1 || entries[0].Role != memlog.RoleAssistant {
		t.Fatalf("got %+v, want single assistant entry", entries)
	}

	a.Append(memlog.RoleUser, "   ")
	if entries := a.Flush(); len(entries) != 0 {
		t.Errorf("whitespace-only flush produced %d entries", len(entries))
	}
}

func TestFlushResetsBuffers(t *testing.T) {
	t.Parallel()

	a := New()
	a.Append(memlog.RoleUser, "first turn")
	a.Flush()

	a.Append(memlog.RoleUser, "second turn")
	entries := a.Flush()
	if len(entries) != 1 || entries[0].Text != "second turn" {
		t.Fatalf("got %+v, want only the second turn", entries)
	}
}

func TestAppendInvalidRoleDropped(t *testing.T) {
	t.Parallel()

	a := New()
	a.Append(memlog.Role("system"), "ignored")
	if entries := a.Flush(); len(entries) != 0 {
		t.Errorf("invalid role produced %d entries", len(entries))
	}
}
