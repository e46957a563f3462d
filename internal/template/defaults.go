package template

import "time"

const (
	defaultRefreshInterval = 30 * time.Second
	defaultFetchTimeout    = 10 * time.Second
	defaultRefreshRate     = 4
	initialRetryInterval   = 500 * time.Millisecond

	triggerStartup = "startup"
	triggerTimer   = "timer"
	triggerSignal  = "signal"
)
