// Package scheduler hosts the periodic jobs: the tick that auto-starts due
// sessions and the reaper that purges terminal sessions past their audio
// retention window. Both are also exposed over HTTP so the privileged cron
// wrapper on the NAS can drive them with a shared secret.
package scheduler
