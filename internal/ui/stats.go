package ui

import "sync/atomic"

// Stats accumulates run totals for the download summary.
type Stats struct {
	TotalPages    atomic.Int64
	TotalBytes    atomic.Int64
	TotalChapters atomic.Int64
}
