package transcript

import (
	"strings"
	"testing"
)

func uuids(entries []Entry) string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.UUID
	}
	return strings.Join(ids, ",")
}

func TestGroup_FullPolicy_SplitsOnUserAfterAssistant(t *testing.T) {
	entries := ParseString(jsonl(
		userLine("u1", "", "first"),
		assistantLine("a1", "", "reply"),
		userLine("u2", "", "second"),
	))

	turns := Group(entries, FullPolicy)
	if len(turns) != 2 {
		t.Fatalf("len(turns) = %d, want 2", len(turns))
	}
	if got := uuids(turns[0].Entries); got != "u1,a1" {
		t.Errorf("turn 0 = %s, want u1,a1", got)
	}
	if got := uuids(turns[1].Entries); got != "u2" {
		t.Errorf("turn 1 = %s, want u2", got)
	}
}

func TestGroup_FullPolicy_ConsecutiveUsersShareTurn(t *testing.T) {
	entries := ParseString(jsonl(
		userLine("u1", "", "a"),
		userLine("u2", "", "b"),
		assistantLine("a1", "", "c"),
		assistantLine("a2", "", "d"),
		userLine("u3", "", "e"),
	))

	turns := Group(entries, FullPolicy)
	if len(turns) != 2 {
		t.Fatalf("len(turns) = %d, want 2", len(turns))
	}
	if got := uuids(turns[0].User); got != "u1,u2" {
		t.Errorf("turn 0 users = %s", got)
	}
	if got := uuids(turns[0].Assistant); got != "a1,a2" {
		t.Errorf("turn 0 assistants = %s", got)
	}
}

func TestGroup_FullPolicy_KeepsToolOnlyEntries(t *testing.T) {
	entries := ParseString(jsonl(
		userLine("u1", "", "run it"),
		`{"type":"assistant","uuid":"a1","message":{"role":"assistant","content":[{"type":"tool_use","id":"t1","name":"Bash","input":{}}]}}`,
		`{"type":"user","uuid":"u2","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"t1","content":"ok"}]}}`,
	))

	turns := Group(entries, FullPolicy)
	var all []Entry
	for _, turn := range turns {
		all = append(all, turn.Entries...)
	}
	if got := uuids(all); got != "u1,a1,u2" {
		t.Errorf("entries = %s, want u1,a1,u2", got)
	}
}

func TestGroup_SignalPolicy_LatestAssistantWins(t *testing.T) {
	entries := ParseString(jsonl(
		userLine("u1", "", "question"),
		assistantLine("a1", "", "thinking out loud"),
		assistantLine("a2", "", "final answer"),
		userLine("u2", "", "next"),
	))

	turns := Group(entries, SignalPolicy)
	if len(turns) != 2 {
		t.Fatalf("len(turns) = %d, want 2", len(turns))
	}
	if got := uuids(turns[0].Entries); got != "u1,a2" {
		t.Errorf("turn 0 = %s, want u1,a2", got)
	}
	if len(turns[0].Assistant) != 1 {
		t.Errorf("turn 0 has %d assistants, want 1", len(turns[0].Assistant))
	}
}

func TestGroup_SignalPolicy_SkipsMetaAndTextless(t *testing.T) {
	entries := ParseString(jsonl(
		`{"type":"user","uuid":"m1","isMeta":true,"message":{"role":"user","content":"caveat"}}`,
		userLine("u1", "", "real question"),
		`{"type":"assistant","uuid":"a1","message":{"role":"assistant","content":[{"type":"tool_use","id":"t1","name":"Bash","input":{}}]}}`,
		`{"type":"user","uuid":"r1","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"t1","content":"ok"}]}}`,
		userLine("u2", "", "<system-reminder>only a reminder</system-reminder>"),
		assistantLine("a2", "", "answer"),
	))

	turns := Group(entries, SignalPolicy)
	if len(turns) != 1 {
		t.Fatalf("len(turns) = %d, want 1", len(turns))
	}
	if got := uuids(turns[0].Entries); got != "u1,a2" {
		t.Errorf("turn = %s, want u1,a2", got)
	}
}

func TestGroup_Empty(t *testing.T) {
	if turns := Group(nil, FullPolicy); len(turns) != 0 {
		t.Errorf("Group(nil) = %d turns, want 0", len(turns))
	}
}

func TestGroup_AssistantFirst(t *testing.T) {
	entries := ParseString(jsonl(
		assistantLine("a0", "", "resumed"),
		userLine("u1", "", "hi"),
	))
	turns := Group(entries, FullPolicy)
	if len(turns) != 2 {
		t.Fatalf("len(turns) = %d, want 2", len(turns))
	}
	if got := uuids(turns[0].Entries); got != "a0" {
		t.Errorf("turn 0 = %s, want a0", got)
	}
}
