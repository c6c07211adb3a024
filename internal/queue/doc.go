// Package queue hosts the named queues clients submit jobs to. The Manager
// materializes the configured queue directory; each Queue gates submissions
// on its paused flag and pending capacity and records lifecycle transitions
// through the job store.
package queue
