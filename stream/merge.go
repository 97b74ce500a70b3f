// stream/merge.go
package stream

import (
	"encoding/json"
	"sort"

	"github.com/wfunc/courtstream/aggregator"
	"github.com/wfunc/courtstream/logger"
	"github.com/wfunc/courtstream/models"
)

// Merge folds successful per-source results into the snapshot. Each
// source owns the portion of state it carries: a failed or undecodable
// source leaves that portion exactly as it was. Sources are applied in
// name order so the outcome does not depend on map iteration.
func Merge(snap *models.SessionSnapshot, results map[string]aggregator.Result) (applied int) {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		res := results[name]
		if !res.OK() {
			logger.Log.Debugf("Skipping source %s this tick: %v", name, res.Err)
			continue
		}

		var update models.FeedUpdate
		if err := json.Unmarshal(res.Data, &update); err != nil {
			logger.Log.Warnf("Undecodable payload from source %s: %v", name, err)
			continue
		}

		if update.GameState != nil {
			snap.GameState = *update.GameState
		}
		if update.PlayerPositions != nil {
			snap.PlayerPositions = update.PlayerPositions
		}
		applied++
	}

	snap.SortPlayers()
	return applied
}
