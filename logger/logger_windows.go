//go:build windows

package logger

import (
	"strconv"

	"golang.org/x/sys/windows"
)

func getThreadId() (threadId string) {
	tid := windows.GetCurrentThreadId()
	threadId = strconv.FormatUint(uint64(tid), 10)
	return threadId
}
