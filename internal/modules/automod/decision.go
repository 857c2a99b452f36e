package automod

import "time"

type Rule string

const (
	RuleSpam      Rule = "spam"
	RuleDuplicate Rule = "duplicate"
	RuleMentions  Rule = "mentions"
	RuleLinks     Rule = "links"
	RuleBadWords  Rule = "bad_words"
	RuleRaid      Rule = "raid"
)

type MessageEvent struct {
	Timestamp    time.Time
	GuildID      string
	UserID       string
	Content      string
	MentionCount int
}

type JoinEvent struct {
	Timestamp time.Time
	GuildID   string
	UserID    string
}

// Decision is the detector's only output. The zero value means no action.
type Decision struct {
	Kind     ActionKind
	Rule     Rule
	GuildID  string
	UserID   string
	Reason   string
	Duration time.Duration
}

func (d Decision) IsAction() bool {
	return d.Kind != ActionNone
}

func newDecision(rule Rule, kind ActionKind, guildID, userID, reason string, durationSeconds int) Decision {
	return Decision{
		Kind:     kind,
		Rule:     rule,
		GuildID:  guildID,
		UserID:   userID,
		Reason:   reason,
		Duration: seconds(durationSeconds),
	}
}
