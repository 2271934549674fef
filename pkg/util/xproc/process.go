package xproc

import (
	"os"
	"path/filepath"
	"sync"
)

// osExecutable 测试注入点
var osExecutable = os.Executable

var (
	processNameOnce  sync.Once
	processNameValue string
)

// ProcessID 返回当前进程 ID。节点推导以 "host/pid" 作为输入，
// 同一主机上的多个进程因此落在不同节点。
func ProcessID() int {
	return os.Getpid()
}

// baseName 提取路径的基础文件名，"."、".." 与根路径返回空字符串。
func baseName(path string) string {
	name := filepath.Base(path)
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return ""
	}
	return name
}

func resolveProcessName() string {
	if exe, err := osExecutable(); err == nil && exe != "" {
		if name := baseName(exe); name != "" {
			return name
		}
	}
	if len(os.Args) == 0 || os.Args[0] == "" {
		return ""
	}
	return baseName(os.Args[0])
}

// ProcessName 返回当前进程名称（不含路径），首次调用后缓存。
//
// 优先使用 os.Executable，失败时回退到 os.Args[0]；都不可用时返回空字符串。
//
// 设计决策: 返回 string 而非 (string, error)，调用方只把它用作日志字段与诊断输出。
func ProcessName() string {
	processNameOnce.Do(func() {
		processNameValue = resolveProcessName()
	})
	return processNameValue
}
