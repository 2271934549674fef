package xassign

import (
	"context"
	"reflect"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// gormCallbackName 注册到 gorm create 链上的回调名。
const gormCallbackName = "xassign:assign_id"

// GormPlugin 在 gorm 创建记录前为 string 主键填充 ID。
//
//	gen, _ := xhid.New(xhid.Config{Node: "A1"})
//	plugin, _ := xassign.NewGormPlugin(gen)
//	_ = db.Use(plugin)
//	db.Create(&Order{Amount: 3}) // Order.ID = "ord_..."
//
// 整型主键（自增）的模型被跳过。批量创建与 map 创建同样支持；
// map 创建时模型实现的 Prefixer 决定前缀。
type GormPlugin struct {
	assigner *Assigner
}

// 编译时接口检查
var _ gorm.Plugin = (*GormPlugin)(nil)

// NewGormPlugin 创建 gorm 插件。
func NewGormPlugin(gen IDGenerator, opts ...Option) (*GormPlugin, error) {
	a, err := New(gen, opts...)
	if err != nil {
		return nil, err
	}
	return &GormPlugin{assigner: a}, nil
}

// Name 实现 gorm.Plugin。
func (p *GormPlugin) Name() string {
	return componentName
}

// Initialize 实现 gorm.Plugin，在 gorm:create 之前注册回调。
func (p *GormPlugin) Initialize(db *gorm.DB) error {
	return db.Callback().Create().Before("gorm:create").Register(gormCallbackName, p.beforeCreate)
}

func (p *GormPlugin) beforeCreate(db *gorm.DB) {
	if db.Error != nil || db.Statement == nil || db.Statement.Schema == nil {
		return
	}
	stmt := db.Statement
	ctx := stmt.Context
	if ctx == nil {
		ctx = context.Background()
	}

	rv := stmt.ReflectValue
	if !rv.IsValid() {
		return
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if err := p.assignValue(ctx, stmt, rv.Index(i)); err != nil {
				_ = db.AddError(err)
				return
			}
		}
	default:
		if err := p.assignValue(ctx, stmt, rv); err != nil {
			_ = db.AddError(err)
		}
	}
}

func (p *GormPlugin) assignValue(ctx context.Context, stmt *gorm.Statement, v reflect.Value) error {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Struct:
		// 没有 string 主键的模型不归插件管
		if !v.CanAddr() || p.assigner.lookup(v.Type()).err != nil {
			return nil
		}
		doc := v.Addr().Interface()
		_, err := p.assigner.traced(ctx, doc, func() (string, bool, error) {
			return p.assigner.assignStruct(v)
		})
		return err
	case reflect.Map:
		field := primaryStringField(stmt.Schema)
		if field == nil || v.IsNil() {
			return nil
		}
		prefix := p.assigner.opts.prefix
		if pf, ok := stmt.Model.(Prefixer); ok {
			prefix = pf.IDPrefix()
		}
		_, err := p.assigner.traced(ctx, v.Interface(), func() (string, bool, error) {
			return p.assigner.assignMap(v, field.DBName, prefix)
		})
		return err
	}
	return nil
}

// primaryStringField 返回 schema 的 string 主键字段，没有时返回 nil。
func primaryStringField(s *schema.Schema) *schema.Field {
	f := s.PrioritizedPrimaryField
	if f == nil || f.FieldType.Kind() != reflect.String {
		return nil
	}
	return f
}
