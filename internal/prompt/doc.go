// Package prompt renders the update notification for sitever-check on a
// terminal. Terminal implements monitor.Prompt and monitor.CountdownDisplay.
package prompt
