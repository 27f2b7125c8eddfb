// Package engine implements the gamification core: leveling, streak and XP
// settlement policies, the session orchestrator, and the leaderboard ranker.
package engine

// AvatarLevel is a named rank unlocked by an XP threshold.
type AvatarLevel struct {
	Level int    `json:"level"`
	Name  string `json:"name"`
	MinXP int64  `json:"minXP"`
	Emoji string `json:"emoji"`
}

// AvatarLevels is the ordered tier table. Selection picks the highest tier
// whose MinXP does not exceed the user's XP.
var AvatarLevels = []AvatarLevel{
	{Level: 1, Name: "Lazy", MinXP: 0, Emoji: "🦥"},
	{Level: 2, Name: "Focused", MinXP: 100, Emoji: "🎯"},
	{Level: 3, Name: "Disciplined", MinXP: 500, Emoji: "⚡"},
	{Level: 4, Name: "Productivity God", MinXP: 1500, Emoji: "👑"},
}

// LevelFor returns the avatar level for the given XP total.
func LevelFor(xp int64) AvatarLevel {
	for i := len(AvatarLevels) - 1; i >= 0; i-- {
		if xp >= AvatarLevels[i].MinXP {
			return AvatarLevels[i]
		}
	}
	return AvatarLevels[0]
}

// NextLevel returns the tier above the current one, or false when the user
// is already at the maximum tier.
func NextLevel(xp int64) (AvatarLevel, bool) {
	current := LevelFor(xp)
	for i, lvl := range AvatarLevels {
		if lvl.Level == current.Level {
			if i+1 >= len(AvatarLevels) {
				return AvatarLevel{}, false
			}
			return AvatarLevels[i+1], true
		}
	}
	return AvatarLevel{}, false
}
