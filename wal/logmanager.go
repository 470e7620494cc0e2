// Package wal defines the log manager collaborator the buffer pool talks
// to. The buffer pool holds a reference to a LogManager so a future
// write-ahead log can be wired in without changing the pool's constructor
// signature, but nothing in this core calls Append today.
package wal

import "github.com/csc-systems/pagestore/common"

// LogManager is the minimal surface the buffer pool is aware of. A real
// implementation would additionally expose an Iterator for recovery, but
// recovery is out of scope for this core.
type LogManager interface {
	// Append records that a page was modified, returning the LSN assigned
	// to the record.
	Append(pageID common.PageID) (common.LSN, error)
	// FlushedUntil returns the highest LSN known to be durable.
	FlushedUntil() common.LSN
	// Close releases any resources held by the log manager.
	Close() error
}

// NoopLogManager satisfies LogManager without persisting anything. It is
// the default collaborator so buffer.Pool always has a non-nil LogManager
// to hold.
type NoopLogManager struct{}

// Append implements LogManager by discarding the record and returning a
// monotonically meaningless zero LSN.
func (NoopLogManager) Append(common.PageID) (common.LSN, error) { return 0, nil }

// FlushedUntil implements LogManager by reporting everything is flushed.
func (NoopLogManager) FlushedUntil() common.LSN { return 1<<63 - 1 }

// Close implements LogManager.
func (NoopLogManager) Close() error { return nil }
