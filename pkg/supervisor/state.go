package supervisor

// State represents the lifecycle state of the supervised daemon
type State string

const (
	StateIdle       State = "idle"       // Run not called yet
	StateLaunching  State = "launching"  // Spawning the child
	StateRunning    State = "running"    // Consuming child output
	StateRestarting State = "restarting" // Child gone, cooling down before respawn
	StateTerminated State = "terminated" // Run returned
)

// Stats counts what the supervisor has done since Run was called
type Stats struct {
	Spawns   int // Children started
	Restarts int // Children killed on ConnectionLimitReached
	Reaped   int // Same-named processes killed on PortInUse
	Lines    int // Lines consumed from the merged channel
}
