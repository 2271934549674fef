// Package xassign 在持久化写入前为记录分配混合 ID。
//
// 核心是 Assigner：只在主键为空时赋值，从不覆盖调用方给出的主键。
// 在它之上提供两个适配器：
//
//   - GormPlugin：注册在 gorm:create 之前的回调，支持单条、批量与 map 创建
//   - MongoInserter：包装 InsertOne/InsertMany，支持结构体、bson.M 与 bson.D
//
// # 主键字段
//
// 结构体按以下优先级查找主键字段（必须是 string 类型）：
//
//  1. 带 xhid 标签的字段，例如 `xhid:"pk,prefix=ord"`
//  2. bson 标签名为 "_id" 的字段
//  3. gorm 标签含 primaryKey 的字段
//  4. 名为 "ID" 的字段（WithField 修改）
//
// # 前缀
//
// 模型实现 Prefixer 时使用其返回值，否则依次取 xhid 标签的 prefix 与 WithPrefix。
//
//	type Order struct {
//	    ID     string `gorm:"type:varchar(33);primaryKey"`
//	    Amount int
//	}
//
//	func (Order) IDPrefix() string { return "ord" }
//
// 主键列宽度可用 Registry.MaxIDLength 计算，内置 profile 加 8 字符前缀为 33。
package xassign
