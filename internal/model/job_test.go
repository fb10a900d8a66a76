package model

import "testing"

func TestDecodeJobsJoinsSkillSequences(t *testing.T) {
	rows := []map[string]any{
		{
			"Title":     "Backend Engineer",
			"Company":   "Acme",
			"skills":    []any{"Go", " SQL ", ""},
			"Posted On": "2 days ago",
		},
		{
			"title":  "Data Engineer",
			"skills": "Python, Spark",
		},
	}

	jobs, err := DecodeJobs(rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}

	if jobs[0].Skills != "Go, SQL" {
		t.Fatalf("unexpected joined skills: %q", jobs[0].Skills)
	}

	if jobs[0].Title != "Backend Engineer" || jobs[0].PostedOn != "2 days ago" {
		t.Fatalf("unexpected first job: %+v", jobs[0])
	}

	if jobs[1].Skills != "Python, Spark" {
		t.Fatalf("unexpected second job skills: %q", jobs[1].Skills)
	}
}

func TestProfileCloneIsDeep(t *testing.T) {
	original := &Profile{
		UserID:     "u1",
		Skills:     map[string][]string{"languages": {"Go"}},
		Experience: []Entry{{Title: "Engineer"}},
	}

	clone := original.Clone()
	clone.Skills["languages"][0] = "Rust"
	clone.Experience[0].Title = "Manager"

	if original.Skills["languages"][0] != "Go" {
		t.Fatalf("clone shares skills with original")
	}
	if original.Experience[0].Title != "Engineer" {
		t.Fatalf("clone shares experience with original")
	}
}

func TestFlatSkillsOrderIsStable(t *testing.T) {
	p := &Profile{Skills: map[string][]string{
		"tools":     {"Docker"},
		"languages": {"Go", "Python"},
	}}

	got := p.FlatSkills()
	want := []string{"Go", "Python", "Docker"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
