package node

import "time"

// Tunables governing fork resolution, orphan healing, peer reconnects
// and catch-up timing.
const (
	forkTriggerThreshold    = 5
	orphanTriggerThreshold  = 5
	lengthPhaseTimeout      = 10 * time.Second
	reconnectBackoff        = 5 * time.Second
	genesisWaitAttempts     = 10
	genesisWaitInterval     = 500 * time.Millisecond
	defaultRequestTimeout   = 15 * time.Second
	rewardUnlockDelayBlocks = 10
)
