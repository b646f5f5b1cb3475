package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "relaybot/pkg/logx"
)

// Config controls the scheduler service.
type Config struct {
	Timezone string // IANA TZ, e.g. "Europe/Berlin"; empty = local
}

// Job is a scheduled unit of work. ctx is cancelled on timeout or Stop.
type Job func(ctx context.Context) error

type scheduleDef struct {
	name    string
	spec    string // cron spec or @every
	timeout time.Duration
	job     Job
	entryID cron.EntryID
}

type Service struct {
	mu sync.Mutex

	log logx.Logger
	cfg Config
	loc *time.Location

	parser cron.Parser
	c      *cron.Cron
	defs   []scheduleDef

	// base is cancelled by Stop so in-flight jobs see shutdown.
	base   context.Context
	cancel context.CancelFunc
}

type ScheduleInfo struct {
	Name    string
	Spec    string
	Timeout time.Duration
	Next    time.Time
	Prev    time.Time
}
