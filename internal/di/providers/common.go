package providers

import "time"

// shutdownTimeout bounds graceful shutdown of the HTTP server so a hung
// narration download cannot stall process exit.
const shutdownTimeout = 30 * time.Second
