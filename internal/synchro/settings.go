package synchro

import (
	"time"

	"github.com/goodnatureofminers/ledgerpod-backend/internal/store"
)

const (
	defaultVersionField       = "time"
	defaultIssuerField        = "issuer"
	defaultScrollBatchSize    = 500
	defaultScrollTTL          = time.Minute
	defaultScrollTTLIncrement = time.Minute
	defaultScrollMaxRetries   = 5
	defaultMaxFuture          = time.Hour

	defaultInterval      = time.Hour
	defaultStartupDelay  = 10 * time.Second
	defaultMaxJitter     = time.Minute
	defaultTimeOffset    = time.Hour
	defaultPeerWorkers   = 4
	defaultLiveFlushSize = 100
	defaultLiveFlush     = 5 * time.Second
	defaultLiveRPS       = 10

	outcomeInsert           = "insert"
	outcomeUpdate           = "update"
	outcomeInvalidSignature = "invalid_signature"
	outcomeInvalidTime      = "invalid_time"
	outcomeMalformed        = "malformed"
)

// ActionConfig describes how one collection is replicated.
type ActionConfig struct {
	Collection store.Collection
	// API is the peer API serving the collection.
	API string
	// VersionField holds the document time in epoch seconds. Newer wins.
	VersionField string
	IssuerField  string

	EnableUpdate              bool
	EnableSignatureValidation bool
	EnableTimeValidation      bool
	AllowOldDocuments         bool
	// MaxFuture is how far ahead of the local clock a document time may be.
	MaxFuture time.Duration
	// MaxAge rejects older documents when set, unless AllowOldDocuments.
	MaxAge time.Duration

	ScrollBatchSize    int
	ScrollTTL          time.Duration
	ScrollTTLIncrement time.Duration
	ScrollMaxRetries   int
}

func (c ActionConfig) withDefaults() ActionConfig {
	if c.VersionField == "" {
		c.VersionField = defaultVersionField
	}
	if c.IssuerField == "" {
		c.IssuerField = defaultIssuerField
	}
	if c.MaxFuture <= 0 {
		c.MaxFuture = defaultMaxFuture
	}
	if c.ScrollBatchSize <= 0 {
		c.ScrollBatchSize = defaultScrollBatchSize
	}
	if c.ScrollTTL <= 0 {
		c.ScrollTTL = defaultScrollTTL
	}
	if c.ScrollTTLIncrement <= 0 {
		c.ScrollTTLIncrement = defaultScrollTTLIncrement
	}
	if c.ScrollMaxRetries <= 0 {
		c.ScrollMaxRetries = defaultScrollMaxRetries
	}
	return c
}

// Config tunes the scheduler.
type Config struct {
	Currencies   []string
	Interval     time.Duration
	StartupDelay time.Duration
	MaxJitter    time.Duration
	// TimeOffset is subtracted from the last execution time to absorb clock skew between peers.
	TimeOffset time.Duration
	// FullResyncAtStartup ignores bookmarks during the first run of the process.
	FullResyncAtStartup bool
	LiveSync            bool
	PeerWorkers         int

	LiveFlushSize     int
	LiveFlushInterval time.Duration
	LiveRPS           int
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = defaultInterval
	}
	if c.StartupDelay < 0 {
		c.StartupDelay = defaultStartupDelay
	}
	if c.MaxJitter < 0 {
		c.MaxJitter = defaultMaxJitter
	}
	if c.TimeOffset < 0 {
		c.TimeOffset = defaultTimeOffset
	}
	if c.PeerWorkers <= 0 {
		c.PeerWorkers = defaultPeerWorkers
	}
	if c.LiveFlushSize <= 0 {
		c.LiveFlushSize = defaultLiveFlushSize
	}
	if c.LiveFlushInterval <= 0 {
		c.LiveFlushInterval = defaultLiveFlush
	}
	if c.LiveRPS <= 0 {
		c.LiveRPS = defaultLiveRPS
	}
	return c
}

// DefaultConfig returns the production scheduler settings.
func DefaultConfig() Config {
	return Config{
		Interval:          defaultInterval,
		StartupDelay:      defaultStartupDelay,
		MaxJitter:         defaultMaxJitter,
		TimeOffset:        defaultTimeOffset,
		PeerWorkers:       defaultPeerWorkers,
		LiveFlushSize:     defaultLiveFlushSize,
		LiveFlushInterval: defaultLiveFlush,
		LiveRPS:           defaultLiveRPS,
	}
}
