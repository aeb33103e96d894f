//go:build linux

package logger

import (
	"strconv"

	"golang.org/x/sys/unix"
)

func getThreadId() (threadId string) {
	tid := unix.Gettid()
	threadId = strconv.Itoa(tid)
	return threadId
}
