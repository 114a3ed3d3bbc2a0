// Package schedule runs named periodic jobs on github.com/robfig/cron/v3.
//
// Jobs receive a context canceled by Stop, run with panic recovery, and never
// overlap with themselves.
package schedule
