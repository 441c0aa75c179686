package types

import (
	"testing"
)

func TestTallyConsistent(t *testing.T) {
	tests := []struct {
		name string
		poll Poll
		want bool
	}{
		{
			name: "empty poll",
			poll: Poll{},
			want: true,
		},
		{
			name: "matching tally",
			poll: Poll{
				Options:    []PollOption{{ID: "o1", Votes: 2}, {ID: "o2", Votes: 3}},
				TotalVotes: 5,
			},
			want: true,
		},
		{
			name: "total too high",
			poll: Poll{
				Options:    []PollOption{{ID: "o1", Votes: 2}},
				TotalVotes: 3,
			},
			want: false,
		},
		{
			name: "total too low",
			poll: Poll{
				Options:    []PollOption{{ID: "o1", Votes: 2}, {ID: "o2", Votes: 2}},
				TotalVotes: 3,
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.poll.TallyConsistent(); got != tt.want {
				t.Errorf("TallyConsistent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOption(t *testing.T) {
	poll := Poll{Options: []PollOption{{ID: "o1", Text: "Yes"}, {ID: "o2", Text: "No"}}}

	opt, ok := poll.Option("o2")
	if !ok || opt.Text != "No" {
		t.Errorf("Option(o2) = %+v, %v", opt, ok)
	}

	if _, ok := poll.Option("o9"); ok {
		t.Error("expected lookup of unknown option to fail")
	}
}

func TestCloneIsDeep(t *testing.T) {
	original := &Poll{
		ID:         "p1",
		Options:    []PollOption{{ID: "o1", Votes: 1}},
		TotalVotes: 1,
	}

	clone := original.Clone()
	clone.Options[0].Votes = 99
	clone.TotalVotes = 99

	if original.Options[0].Votes != 1 || original.TotalVotes != 1 {
		t.Error("mutating a clone must not affect the original")
	}
}
