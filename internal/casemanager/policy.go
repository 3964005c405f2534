package casemanager

import "time"

// Policy holds the tunable court rules. Defaults mirror the production
// community settings; tests shrink the windows.
type Policy struct {
	// JuryFloor is the minimum seated jurors before a case leaves jury
	// selection. Dropping below it demotes the case back to stage 1.
	JuryFloor int

	// MinInvites and MaxInvites bound the random invitation count sent per
	// tick while the pool is short.
	MinInvites int
	MaxInvites int

	// VoteWindow is how long a motion stays up for vote before it closes on
	// whatever votes exist.
	VoteWindow time.Duration

	// ActivityWindow and MinMessages gate juror eligibility.
	ActivityWindow time.Duration
	MinMessages    int

	// DisqualifyingRoles excludes holders from jury duty (e.g. moderators).
	DisqualifyingRoles []string

	// NewsChannel receives public case announcements.
	NewsChannel string
}

func DefaultPolicy() Policy {
	return Policy{
		JuryFloor:      5,
		MinInvites:     2,
		MaxInvites:     3,
		VoteWindow:     24 * time.Hour,
		ActivityWindow: 14 * 24 * time.Hour,
		MinMessages:    100,
		NewsChannel:    "news-wire",
	}
}
