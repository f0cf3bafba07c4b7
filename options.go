package iceburn

import "time"

// config holds the Flash tunables.
type config struct {
	// pollInterval is the pause between status polls in BusyWait. Zero polls
	// back to back.
	pollInterval time.Duration
	// pollLimit bounds the number of status polls in BusyWait. Zero waits
	// indefinitely.
	pollLimit int
}

func defaultConfig() config {
	return config{}
}

// Option configures a Flash.
type Option func(*config)

// WithPollInterval sleeps d between busy polls.
func WithPollInterval(d time.Duration) Option {
	return func(c *config) {
		c.pollInterval = d
	}
}

// WithPollLimit makes BusyWait give up with ErrBusyTimeout after n polls.
//
// Example bounding a chip erase to roughly ten seconds:
//
//	f := iceburn.NewFlash(port,
//	    iceburn.WithPollInterval(10*time.Millisecond),
//	    iceburn.WithPollLimit(1000),
//	)
func WithPollLimit(n int) Option {
	return func(c *config) {
		c.pollLimit = n
	}
}
