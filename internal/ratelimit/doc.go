// Package ratelimit provides the counted-permit gates that protect
// rate-limited external dependencies. The process constructs one shared
// gate for all platform API calls at startup and hands it to every
// orchestrator invocation; the speech pipeline carries its own smaller
// gate because the speech provider enforces an unrelated limit.
package ratelimit
