//go:build !linux && !windows && !(darwin && cgo)

package logger

func getThreadId() (threadId string) {
	return "???"
}
