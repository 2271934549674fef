package xproc

import "sync"

// ResetProcessName 重置进程名称缓存（仅用于测试）。
func ResetProcessName() {
	processNameOnce = sync.Once{}
	processNameValue = ""
}
