package analytics

import (
	"context"
	"sort"
	"strings"
	"time"

	"sentinel-automod/internal/storage"
)

const actionEventPrefix = "automod_"

type Service struct {
	store *storage.Store
}

func New(store *storage.Store) *Service {
	return &Service{store: store}
}

type UserCount struct {
	UserID string
	Count  int
}

// Report summarizes the automod audit trail of one guild.
type Report struct {
	Total    int
	Failures int
	ByLevel  map[string]int
	ByAction map[string]int
	ByRule   map[string]int
	TopUsers []UserCount
	Since    time.Time
}

func (s *Service) Report(ctx context.Context, guildID string, since time.Time, topN int) (Report, error) {
	logs, err := s.store.ListAuditLogs(ctx, guildID, since)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		ByLevel:  make(map[string]int),
		ByAction: make(map[string]int),
		ByRule:   make(map[string]int),
		Since:    since,
	}
	perUser := make(map[string]int)
	for _, log := range logs {
		report.Total++
		report.ByLevel[log.Level]++
		if log.Event == "action_failed" {
			report.Failures++
			continue
		}
		action, ok := strings.CutPrefix(log.Event, actionEventPrefix)
		if !ok {
			continue
		}
		report.ByAction[action]++
		if rule := detailValue(log.Details, "rule"); rule != "" {
			report.ByRule[rule]++
		}
		if log.UserID != "" {
			perUser[log.UserID]++
		}
	}
	report.TopUsers = topUsers(perUser, topN)
	return report, nil
}

func topUsers(counts map[string]int, n int) []UserCount {
	if n <= 0 || len(counts) == 0 {
		return nil
	}
	out := make([]UserCount, 0, len(counts))
	for userID, count := range counts {
		out = append(out, UserCount{UserID: userID, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].UserID < out[j].UserID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// detailValue reads key=value out of a space separated details string.
// Only keys written before the free-text reason are reliable.
func detailValue(details, key string) string {
	prefix := key + "="
	for _, field := range strings.Fields(details) {
		if value, ok := strings.CutPrefix(field, prefix); ok {
			return value
		}
		if strings.HasPrefix(field, "reason=") {
			break
		}
	}
	return ""
}
