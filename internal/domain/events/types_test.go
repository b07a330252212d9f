package events

import (
	"encoding/json"
	"testing"
)

func TestPointAcceptsStringNumberAndNull(t *testing.T) {
	cases := []struct {
		in   string
		want *string
	}{
		{`{"point":"5"}`, strPtr("5")},
		{`{"point":8}`, strPtr("8")},
		{`{"point":0.5}`, strPtr("0.5")},
		{`{"point":"?"}`, strPtr("?")},
		{`{"point":""}`, strPtr("")},
		{`{"point":null}`, nil},
		{`{}`, nil},
	}

	for _, tc := range cases {
		var ev VoteEvent
		if err := json.Unmarshal([]byte(tc.in), &ev); err != nil {
			t.Fatalf("unmarshal %s: %v", tc.in, err)
		}

		got := ev.Point.Value
		switch {
		case tc.want == nil && got != nil:
			t.Errorf("%s: got %q, want nil", tc.in, *got)
		case tc.want != nil && (got == nil || *got != *tc.want):
			t.Errorf("%s: got %v, want %q", tc.in, got, *tc.want)
		}
	}
}

func TestPointRejectsOtherTypes(t *testing.T) {
	for _, in := range []string{`{"point":true}`, `{"point":[1]}`, `{"point":{"a":1}}`} {
		var ev VoteEvent
		if err := json.Unmarshal([]byte(in), &ev); err == nil {
			t.Errorf("unmarshal %s: expected error", in)
		}
	}
}

func TestForceRemoveEventForms(t *testing.T) {
	for in, want := range map[string]string{
		`"bob"`:              "bob",
		`{"nickname":"bob"}`: "bob",
		`{"target":"carol"}`: "carol",
	} {
		var ev ForceRemoveEvent
		if err := json.Unmarshal([]byte(in), &ev); err != nil {
			t.Fatalf("unmarshal %s: %v", in, err)
		}
		if ev.Target != want {
			t.Errorf("unmarshal %s: target = %q, want %q", in, ev.Target, want)
		}
	}

	var ev ForceRemoveEvent
	if err := json.Unmarshal([]byte(`42`), &ev); err == nil {
		t.Error("numeric target must be rejected")
	}
}

func TestEncode(t *testing.T) {
	raw, err := Encode(TypeUserJoined, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != `{"type":"userJoined","data":"alice"}` {
		t.Errorf("Encode() = %s", raw)
	}

	raw, err = Encode(TypeSessionEnded, nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != `{"type":"sessionEnded"}` {
		t.Errorf("Encode(nil) = %s", raw)
	}
}

func TestIsInbound(t *testing.T) {
	if !IsInbound(TypeJoin) || !IsInbound(TypePing) {
		t.Error("client events must be inbound")
	}
	if IsInbound(TypeParticipantsUpdate) || IsInbound("dropTables") {
		t.Error("server and unknown events must not be inbound")
	}
}

func strPtr(s string) *string {
	return &s
}
