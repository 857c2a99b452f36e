package automod

import (
	"fmt"
	"strings"
	"time"

	"sentinel-automod/internal/utils"
)

// Detector turns message and join events into moderation decisions. It never
// acts on a decision; the caller hands it to an executor.
type Detector struct {
	state *State
}

func NewDetector(state *State) *Detector {
	if state == nil {
		state = NewState()
	}
	return &Detector{state: state}
}

func (d *Detector) State() *State {
	return d.state
}

// EvaluateMessage runs the message checks in order and returns the first
// decision. Bots and immune members must be filtered out by the caller.
// The rate and duplicate windows record the message even when their checks
// are disabled.
func (d *Detector) EvaluateMessage(event MessageEvent, cfg GuildConfig) Decision {
	user := d.state.lockUser(event.GuildID, event.UserID)
	defer user.mu.Unlock()

	if decision := checkRate(user, event, cfg.Spam); decision.IsAction() {
		return decision
	}
	if decision := checkDuplicates(user, event, cfg.Duplicates); decision.IsAction() {
		return decision
	}
	if decision := checkMentions(event, cfg.Mentions); decision.IsAction() {
		return decision
	}
	if decision := checkLinks(event, cfg.Links); decision.IsAction() {
		return decision
	}
	return checkBadWords(event, cfg.BadWords)
}

// EvaluateJoin tracks joins per guild. Once the window holds join_threshold
// entries every further join triggers, targeting only the member who just
// joined. The join window is never cleared on trigger.
func (d *Detector) EvaluateJoin(event JoinEvent, cfg GuildConfig) Decision {
	guild := d.state.lockGuild(event.GuildID)
	defer guild.mu.Unlock()

	guild.joins.SetWidth(cfg.Raid.Window())
	count := guild.joins.Add(event.UserID, event.Timestamp)
	if !cfg.Raid.Enabled || count < cfg.Raid.JoinThreshold {
		return Decision{}
	}
	reason := fmt.Sprintf("Raid protection: %d joins in %ds", count, cfg.Raid.WindowSeconds)
	return newDecision(RuleRaid, cfg.Raid.Action, event.GuildID, event.UserID, reason, 0)
}

// Sweep forgets users and guilds whose windows have fully expired.
func (d *Detector) Sweep(now time.Time) int {
	return d.state.Sweep(now)
}

func checkRate(user *userState, event MessageEvent, cfg SpamConfig) Decision {
	user.rate.SetWidth(cfg.Window())
	count := user.rate.Add(struct{}{}, event.Timestamp)
	if !cfg.Enabled || count <= cfg.MaxMessages {
		return Decision{}
	}
	user.rate.Clear()
	reason := fmt.Sprintf("Spam: %d messages in %ds", count, cfg.WindowSeconds)
	return newDecision(RuleSpam, cfg.Action, event.GuildID, event.UserID, reason, cfg.Duration)
}

func checkDuplicates(user *userState, event MessageEvent, cfg DuplicateConfig) Decision {
	user.dupes.SetWidth(cfg.Window())
	user.dupes.Add(event.Content, event.Timestamp)
	if !cfg.Enabled {
		return Decision{}
	}
	count := user.dupes.CountFunc(func(content string) bool { return content == event.Content })
	if count <= cfg.MaxDuplicates {
		return Decision{}
	}
	user.dupes.Clear()
	reason := fmt.Sprintf("Duplicate spam: %d identical messages", count)
	return newDecision(RuleDuplicate, cfg.Action, event.GuildID, event.UserID, reason, cfg.Duration)
}

func checkMentions(event MessageEvent, cfg MentionConfig) Decision {
	if !cfg.Enabled || event.MentionCount <= cfg.MaxMentions {
		return Decision{}
	}
	reason := fmt.Sprintf("Mass mentions: %d mentions", event.MentionCount)
	return newDecision(RuleMentions, cfg.Action, event.GuildID, event.UserID, reason, cfg.Duration)
}

func checkLinks(event MessageEvent, cfg LinkConfig) Decision {
	if !cfg.Enabled {
		return Decision{}
	}
	offending, ok := blockedLink(utils.ExtractLinks(event.Content), cfg)
	if !ok {
		return Decision{}
	}
	reason := "Blocked link: " + offending.URL
	return newDecision(RuleLinks, cfg.Action, event.GuildID, event.UserID, reason, cfg.Duration)
}

// blockedLink returns the first link the filter rejects. In whitelist mode a
// single link outside the allowed domains blocks the whole message.
func blockedLink(links []utils.Link, cfg LinkConfig) (utils.Link, bool) {
	for _, link := range links {
		switch cfg.Mode {
		case LinkModeWhitelist:
			if _, allowed := utils.HostContains(link.Host, cfg.Whitelist); !allowed {
				return link, true
			}
		default:
			if _, blocked := utils.HostContains(link.Host, cfg.Blacklist); blocked {
				return link, true
			}
		}
	}
	return utils.Link{}, false
}

func checkBadWords(event MessageEvent, cfg BadWordsConfig) Decision {
	if !cfg.Enabled {
		return Decision{}
	}
	content := strings.ToLower(event.Content)
	for _, word := range cfg.Words {
		if word == "" {
			continue
		}
		if strings.Contains(content, strings.ToLower(word)) {
			return newDecision(RuleBadWords, cfg.Action, event.GuildID, event.UserID, "Inappropriate language", cfg.Duration)
		}
	}
	return Decision{}
}
