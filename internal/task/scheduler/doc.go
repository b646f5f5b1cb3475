// Package scheduler triggers named background jobs on cron specs or fixed
// intervals (robfig/cron). Overlapping runs of the same job are skipped.
package scheduler
