// Command sightline drives guided inspection and maintenance sessions
// from the terminal: running capture sessions, resuming and sweeping
// saved progress, inspecting workflows and history, and building report
// documents for the external renderer.
package main
