package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

func formatSize(size int64) string {
	if size < 0 {
		size = 0
	}
	return humanize.IBytes(uint64(size))
}

func formatCount(count int) string {
	return humanize.Comma(int64(count))
}

func formatTimestamp(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return value.Local().Format("2006-01-02 15:04:05")
}

func formatDurationMs(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).String()
}

func formatPercent(value float64) string {
	return fmt.Sprintf("%.1f%%", value)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func joinMethods(methods []string) string {
	if len(methods) == 0 {
		return "-"
	}
	return strings.Join(methods, "+")
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
