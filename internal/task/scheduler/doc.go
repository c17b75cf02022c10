// Package scheduler fires named jobs on daily, interval and raw cron
// triggers. Every job runs on its own cron goroutine, so a slow run of one
// job never delays another; a job that is still running skips its next
// activation instead of piling up.
package scheduler
