// Package events holds the compiled-in table of SourceMod event names
// consumed by completion inside a HookEvent("...") first-argument string
// literal (spec.md §8 scenario 5, SPEC_FULL.md §6). This is data, not a
// collaborator interface — there is no event-name VFS or network lookup to
// abstract.
package events

// Names is every event name completion offers inside HookEvent("|"). The
// list covers the commonly-hooked events across SourceMod's stock game
// mods; it is not exhaustive of every possible custom game event.
var Names = []string{
	"player_death",
	"player_spawn",
	"player_hurt",
	"player_connect",
	"player_disconnect",
	"player_team",
	"player_say",
	"player_changename",
	"round_start",
	"round_end",
	"round_freeze_end",
	"weapon_fire",
	"weapon_reload",
	"bomb_planted",
	"bomb_defused",
	"bomb_exploded",
	"hostage_rescued",
	"game_round_start",
	"game_round_end",
	"team_info",
}

// setOf is built once and reused by every Contains lookup.
var setOf = func() map[string]bool {
	m := make(map[string]bool, len(Names))
	for _, n := range Names {
		m[n] = true
	}
	return m
}()

// Contains reports whether name is a known event.
func Contains(name string) bool {
	return setOf[name]
}
