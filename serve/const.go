package serve

import "time"

// MaxWait bounds how long the readiness loop can go between reap
// passes: child reaping must make progress even when no new
// connections arrive.
const MaxWait = 100 * time.Millisecond
