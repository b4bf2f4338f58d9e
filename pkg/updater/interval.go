// Package updater implements the Updater (§4.7): for each git working tree
// on the omnipath, periodically fetches and advances its tracked ref, then
// reruns `omni up` there to pick up any dependencies the refreshed tree
// declares.
package updater

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultInterval is used when path_repo_updates.interval is unset (§4.7:
// "default 12h").
const DefaultInterval = 12 * time.Hour

// NextRun computes the next time a repo's update gate should open, given
// the last run and the configured interval. interval is either a plain Go
// duration string ("12h") or a 5-field cron expression; a duration string
// is a degenerate "every interval" cron, handled by simple addition without
// invoking the cron parser.
func NextRun(lastRun time.Time, interval string) (time.Time, error) {
	if interval == "" {
		return lastRun.Add(DefaultInterval), nil
	}
	if d, err := time.ParseDuration(interval); err == nil {
		return lastRun.Add(d), nil
	}
	schedule, err := cron.ParseStandard(interval)
	if err != nil {
		return time.Time{}, fmt.Errorf("updater: invalid path_repo_updates.interval %q: %w", interval, err)
	}
	return schedule.Next(lastRun), nil
}

// IsDue reports whether now has passed the next scheduled run computed
// from lastRun and interval. A zero lastRun (never run before) is always
// due.
func IsDue(lastRun time.Time, interval string, now time.Time) (bool, error) {
	if lastRun.IsZero() {
		return true, nil
	}
	next, err := NextRun(lastRun, interval)
	if err != nil {
		return false, err
	}
	return !now.Before(next), nil
}
