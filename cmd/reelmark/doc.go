// Command reelmark enriches bookmarked videos with captions and
// chapters. It offers one-shot enrichment, a polling worker, record
// inspection, and configuration utilities.
package main
