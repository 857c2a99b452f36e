package automod

import (
	"sync"
	"time"

	"sentinel-automod/internal/utils"
)

type userState struct {
	mu      sync.Mutex
	removed bool
	rate    *utils.Window[struct{}]
	dupes   *utils.Window[string]
}

type guildState struct {
	mu      sync.Mutex
	removed bool
	joins   *utils.Window[string]
}

// State owns every sliding window the detector uses. User windows are keyed
// by guild and user so each guild's configuration applies to its own history.
type State struct {
	mu     sync.Mutex
	users  map[string]*userState
	guilds map[string]*guildState
}

type Stats struct {
	Users  int
	Guilds int
}

func NewState() *State {
	return &State{
		users:  make(map[string]*userState),
		guilds: make(map[string]*guildState),
	}
}

// lockUser returns the user's state with its mutex held.
func (s *State) lockUser(guildID, userID string) *userState {
	key := guildID + ":" + userID
	for {
		s.mu.Lock()
		user := s.users[key]
		if user == nil {
			user = &userState{
				rate:  utils.NewWindow[struct{}](time.Second),
				dupes: utils.NewWindow[string](time.Second),
			}
			s.users[key] = user
		}
		s.mu.Unlock()

		user.mu.Lock()
		if !user.removed {
			return user
		}
		user.mu.Unlock()
	}
}

// lockGuild returns the guild's join state with its mutex held.
func (s *State) lockGuild(guildID string) *guildState {
	for {
		s.mu.Lock()
		guild := s.guilds[guildID]
		if guild == nil {
			guild = &guildState{joins: utils.NewWindow[string](time.Second)}
			s.guilds[guildID] = guild
		}
		s.mu.Unlock()

		guild.mu.Lock()
		if !guild.removed {
			return guild
		}
		guild.mu.Unlock()
	}
}

// Sweep prunes every window at now and forgets keys left empty. It returns
// how many keys were removed.
func (s *State) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, user := range s.users {
		user.mu.Lock()
		if user.rate.Prune(now) == 0 && user.dupes.Prune(now) == 0 {
			user.removed = true
			delete(s.users, key)
			removed++
		}
		user.mu.Unlock()
	}
	for key, guild := range s.guilds {
		guild.mu.Lock()
		if guild.joins.Prune(now) == 0 {
			guild.removed = true
			delete(s.guilds, key)
			removed++
		}
		guild.mu.Unlock()
	}
	return removed
}

func (s *State) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Users: len(s.users), Guilds: len(s.guilds)}
}
