package xassign

import "errors"

var (
	// ErrNilGenerator 表示未提供 ID 生成器。
	ErrNilGenerator = errors.New("xassign: nil id generator")

	// ErrNilDocument 表示待赋值的文档为 nil。
	ErrNilDocument = errors.New("xassign: nil document")

	// ErrUnsupportedType 表示文档类型无法赋值（非指针结构体、键类型不是 string 的 map 等）。
	ErrUnsupportedType = errors.New("xassign: unsupported document type")

	// ErrNoKeyField 表示结构体中找不到主键字段，或主键字段不是 string。
	ErrNoKeyField = errors.New("xassign: no string key field")

	// ErrNilCollection 表示未提供 MongoDB 集合。
	ErrNilCollection = errors.New("xassign: nil collection")
)
