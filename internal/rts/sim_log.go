package rts

import (
	"fmt"
	"strings"
)

// SimLogEntry is one recorded event during a simulation.
type SimLogEntry struct {
	Tick     int
	Actor    int     // player slot, or -1 for global events
	Category string  // economy, research, production, command, combat, game
	Key      string  // specific event name within the category
	Value    string  // human-readable detail
	NumVal   float64 // optional numeric value for threshold checks
}

// String formats the entry as a fixed-width log line.
//
//	[T=042] p0 economy   lowPower   1
func (e SimLogEntry) String() string {
	actor := "--"
	if e.Actor >= 0 {
		actor = fmt.Sprintf("p%d", e.Actor)
	}
	return fmt.Sprintf("[T=%04d] %-3s %-10s %-20s %s",
		e.Tick, actor, e.Category, e.Key, e.Value)
}

// SimLog collects structured events during a simulation. It is
// unbounded and machine-readable; headless tests assert against it
// instead of scraping snapshots.
type SimLog struct {
	entries []SimLogEntry
	verbose bool
}

// NewSimLog creates a SimLog. If verbose is true, per-tick movement
// entries are also recorded.
func NewSimLog(verbose bool) *SimLog {
	return &SimLog{verbose: verbose}
}

// Event records an entry with a numeric value.
func (sl *SimLog) Event(tick, actor int, category, key string, numVal float64) {
	sl.entries = append(sl.entries, SimLogEntry{
		Tick:     tick,
		Actor:    actor,
		Category: category,
		Key:      key,
		NumVal:   numVal,
	})
}

// EventStr records an entry with a detail string.
func (sl *SimLog) EventStr(tick, actor int, category, key, value string) {
	sl.entries = append(sl.entries, SimLogEntry{
		Tick:     tick,
		Actor:    actor,
		Category: category,
		Key:      key,
		Value:    value,
	})
}

// EventVerbose records an entry only when verbose mode is on.
func (sl *SimLog) EventVerbose(tick, actor int, category, key, value string, numVal float64) {
	if !sl.verbose {
		return
	}
	sl.entries = append(sl.entries, SimLogEntry{
		Tick:     tick,
		Actor:    actor,
		Category: category,
		Key:      key,
		Value:    value,
		NumVal:   numVal,
	})
}

// Entries returns all recorded entries.
func (sl *SimLog) Entries() []SimLogEntry {
	return sl.entries
}

// Filter returns entries matching the given category and/or key.
// Pass empty string to match any value for that field.
func (sl *SimLog) Filter(category, key string) []SimLogEntry {
	var out []SimLogEntry
	for _, e := range sl.entries {
		if category != "" && e.Category != category {
			continue
		}
		if key != "" && e.Key != key {
			continue
		}
		out = append(out, e)
	}
	return out
}

// FilterActor returns entries for a specific player slot.
func (sl *SimLog) FilterActor(actor int) []SimLogEntry {
	var out []SimLogEntry
	for _, e := range sl.entries {
		if e.Actor == actor {
			out = append(out, e)
		}
	}
	return out
}

// CountCategory returns how many entries match the given category and key.
func (sl *SimLog) CountCategory(category, key string) int {
	return len(sl.Filter(category, key))
}

// LastOf returns the most recent entry matching category+key, or false if none.
func (sl *SimLog) LastOf(category, key string) (SimLogEntry, bool) {
	entries := sl.Filter(category, key)
	if len(entries) == 0 {
		return SimLogEntry{}, false
	}
	return entries[len(entries)-1], true
}

// HasEntry returns true if at least one entry matches category, key,
// and value substring.
func (sl *SimLog) HasEntry(category, key, valueSubstr string) bool {
	for _, e := range sl.entries {
		if category != "" && e.Category != category {
			continue
		}
		if key != "" && e.Key != key {
			continue
		}
		if valueSubstr != "" && !strings.Contains(e.Value, valueSubstr) {
			continue
		}
		return true
	}
	return false
}

// Format returns the full log as a single string for t.Log output.
func (sl *SimLog) Format() string {
	var sb strings.Builder
	for _, e := range sl.entries {
		sb.WriteString(e.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
