package entity

import (
	"reflect"
	"testing"
)

func TestParseArguments(t *testing.T) {
	tests := []struct {
		text string
		want Arguments
	}{
		{"hello there", Arguments{}},
		{"--help", Arguments{Help: true}},
		{"<@U1> --help", Arguments{Help: true}},
		{"--raw translate this", Arguments{Raw: true}},
		{"check this --dev --raw", Arguments{Dev: true, Raw: true}},
		{"no--help here", Arguments{}},
		{"", Arguments{}},
	}
	for _, tt := range tests {
		if got := ParseArguments(tt.text); got != tt.want {
			t.Errorf("ParseArguments(%q) = %+v, want %+v", tt.text, got, tt.want)
		}
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"<@U0123ABCD> hello", "hello"},
		{"hello <@U0123ABCD> there", "hello there"},
		{"--raw keep the rest", "keep the rest"},
		{"<@U1> --dev ship it", "ship it"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := CleanText(tt.text); got != tt.want {
			t.Errorf("CleanText(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestMentionedUserIDs(t *testing.T) {
	got := MentionedUserIDs("<@U1> please ask <@U2PQR> and <@U1>")
	want := []string{"U1", "U2PQR", "U1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MentionedUserIDs() = %v, want %v", got, want)
	}

	if got := MentionedUserIDs("no mentions"); got != nil {
		t.Errorf("expected nil for no mentions, got %v", got)
	}
}

func TestLeadingMention(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"<@U3> take a look", "U3"},
		{"  <@U3> take a look", "U3"},
		{"hey <@U3>", ""},
		{"plain text", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := LeadingMention(tt.text); got != tt.want {
			t.Errorf("LeadingMention(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestThreadHead_Mentions(t *testing.T) {
	head := &ThreadHead{TS: "100", MentionedUserIDs: []string{"U1", "U2"}}
	if !head.Mentions("U1") {
		t.Error("expected head to mention U1")
	}
	if head.Mentions("U9") {
		t.Error("did not expect head to mention U9")
	}

	var nilHead *ThreadHead
	if nilHead.Mentions("U1") {
		t.Error("nil head mentions nobody")
	}
}

func TestUserProfile_Name(t *testing.T) {
	tests := []struct {
		profile *UserProfile
		want    string
	}{
		{&UserProfile{ID: "U1", DisplayName: "sam", RealName: "Sam Doe"}, "sam"},
		{&UserProfile{ID: "U1", RealName: "Sam Doe"}, "Sam Doe"},
		{&UserProfile{ID: "U1"}, "U1"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := tt.profile.Name(); got != tt.want {
			t.Errorf("Name() = %q, want %q", got, tt.want)
		}
	}
}
