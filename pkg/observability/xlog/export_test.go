package xlog

// SetNewBuilderForTest 替换默认 Logger 的构建器并清空已构建的默认 Logger，
// 返回的函数恢复原状。
func SetNewBuilderForTest(fn func() *Builder) func() {
	defaultMu.Lock()
	old := newBuilder
	newBuilder = fn
	defaultLogger = nil
	defaultMu.Unlock()
	return func() {
		defaultMu.Lock()
		newBuilder = old
		defaultLogger = nil
		defaultMu.Unlock()
	}
}

// DefaultBuilderForTest 生产环境的默认构建器。
var DefaultBuilderForTest = defaultBuilder
