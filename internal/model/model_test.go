package model

import (
	"strings"
	"testing"
)

func TestPRRecordStatus(t *testing.T) {
	tests := []struct {
		name   string
		record PRRecord
		want   PRStatus
	}{
		{name: "open", record: PRRecord{State: "open"}, want: StatusOpen},
		{name: "open draft", record: PRRecord{State: "open", Draft: true}, want: StatusDraft},
		{name: "closed", record: PRRecord{State: "closed"}, want: StatusClosed},
		{name: "merged", record: PRRecord{State: "closed", Merged: true}, want: StatusMerged},
		{name: "merged wins over draft", record: PRRecord{State: "open", Draft: true, Merged: true}, want: StatusMerged},
		{name: "draft flag ignored when closed", record: PRRecord{State: "closed", Draft: true}, want: StatusClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.record.Status(); got != tt.want {
				t.Errorf("Status() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCommitSubject(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{name: "single line", message: "Fix login", want: "Fix login"},
		{name: "multi line", message: "Fix login\n\nLonger description", want: "Fix login"},
		{name: "empty", message: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Commit{Message: tt.message}
			if got := c.Subject(); got != tt.want {
				t.Errorf("Subject() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCommitUnit(t *testing.T) {
	unit := CommitUnit{
		Repo:            "web",
		Commit:          Commit{Hash: "abc123", Message: "Fix login\n\ndetails", AuthorEmail: "dev@example.com"},
		SecondaryBranch: "release",
	}

	if got := unit.SourceUnitID(); got != "web#abc123" {
		t.Errorf("SourceUnitID() = %v, want web#abc123", got)
	}
	if got := unit.IssueTitle(); got != "[SYNC NEEDED] Fix login" {
		t.Errorf("IssueTitle() = %v", got)
	}

	body := unit.IssueBody()
	if !BodyContainsSourceUnit(body, "web#abc123") {
		t.Errorf("IssueBody() missing source-unit marker:\n%s", body)
	}
	if !strings.Contains(body, "release") {
		t.Errorf("IssueBody() missing secondary branch:\n%s", body)
	}
	if !strings.Contains(body, "dev@example.com") {
		t.Errorf("IssueBody() missing author:\n%s", body)
	}
}

func TestPRUnit(t *testing.T) {
	unit := PRUnit{Repo: "web", Number: 42, Title: "Add caching", Author: "octocat", State: "open", URL: "https://example.com/42"}

	if got := unit.SourceUnitID(); got != "web#42" {
		t.Errorf("SourceUnitID() = %v, want web#42", got)
	}
	if got := unit.IssueTitle(); got != "[PR #42] Add caching" {
		t.Errorf("IssueTitle() = %v", got)
	}
	if body := unit.IssueBody(); !BodyContainsSourceUnit(body, "web#42") {
		t.Errorf("IssueBody() missing source-unit marker:\n%s", body)
	}
}

func TestBodyContainsSourceUnit(t *testing.T) {
	body := "context\n\n" + SourceUnitMarker("web#abc") + "\n"

	if !BodyContainsSourceUnit(body, "web#abc") {
		t.Error("BodyContainsSourceUnit() = false for marked body")
	}
	if BodyContainsSourceUnit(body, "web#other") {
		t.Error("BodyContainsSourceUnit() = true for a different unit")
	}
	if BodyContainsSourceUnit("mentions web#abc casually", "web#abc") {
		t.Error("BodyContainsSourceUnit() = true without the marker line")
	}
}

func TestKnownEventKind(t *testing.T) {
	for _, k := range []EventKind{EventPullRequest, EventReview, EventPush, EventScheduledUpdate} {
		if !KnownEventKind(k) {
			t.Errorf("KnownEventKind(%v) = false", k)
		}
	}
	if KnownEventKind("issue_comment") {
		t.Error("KnownEventKind(issue_comment) = true")
	}
	if KnownEventKind("") {
		t.Error("KnownEventKind(\"\") = true")
	}
}

func TestPRKeyString(t *testing.T) {
	key := PRKey{Repository: "web", Number: 7}
	if got := key.String(); got != "web#7" {
		t.Errorf("String() = %v, want web#7", got)
	}
}
