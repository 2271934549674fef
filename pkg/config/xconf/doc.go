// Package xconf 提供配置加载和解析功能，基于 koanf 实现。
//
// # 设计理念
//
// xconf 定位为最小化配置加载器，负责文件/字节数据的加载、反序列化、
// 环境变量覆盖和重载。取值校验由配置的使用方负责。
//
//   - 工厂函数：New, NewFromBytes, NewFromEnv
//   - Client() 暴露底层 koanf 实例
//   - 增值功能：并发安全的 Reload、类型安全的 Unmarshal
//
// # 支持的格式
//
//   - YAML（默认，推荐）：.yaml, .yml
//   - JSON：.json
//
// # 环境变量覆盖
//
// WithEnvOverlay 在每次加载（包括 Reload）之后经 koanf env provider 合并前缀匹配的环境变量，
// 环境变量优先于文件。变量名去掉前缀后转小写即为键名，
// 不符合这一规则的变量用 WithEnvAlias 指定键名。
//
// # 混合 ID 配置
//
// 生成器配置位于 hybrid_id 路径下，LoadHybridID 读取并补全默认值：
//
//	cfg, err := xconf.New("xhid.yaml", xconf.WithHybridIDEnv())
//	if err != nil {
//	    return err
//	}
//	hc, err := xconf.LoadHybridID(cfg)
//	if err != nil {
//	    return err
//	}
//	gen, err := xhid.New(hc)
//
// DefaultHybridIDYAML 是带注释的默认配置文件。
//
// # 并发安全
//
// 所有方法都是并发安全的。Reload 解析成功后才替换 koanf 实例，失败时保留旧配置。
// Client() 返回的指针在 Reload() 后仍然有效，但指向旧配置，
// 每次需要时调用 Client()，不要长期缓存返回的指针。
//
// # Unmarshal
//
// Unmarshal 使用 mapstructure 进行反序列化，默认允许弱类型转换
// （例如环境变量中的字符串 "true" 可自动转为 bool）。
package xconf
