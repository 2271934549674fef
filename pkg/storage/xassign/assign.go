package xassign

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/omeyang/xhid/pkg/observability/xlog"
	"github.com/omeyang/xhid/pkg/observability/xmetrics"
)

const (
	componentName = "xassign"
	opAssign      = "assign"

	// tagName 结构体标签名，例如 `xhid:"pk,prefix=ord"`。
	tagName = "xhid"
)

// IDGenerator 生成带前缀的 ID。*xhid.Generator 实现此接口。
type IDGenerator interface {
	Generate(prefix string) (string, error)
}

// Prefixer 由需要专属前缀的模型实现，例如订单返回 "ord"。
// 返回值优先于字段标签和 WithPrefix。
type Prefixer interface {
	IDPrefix() string
}

// Assigner 在写入前为文档填充主键。
//
// 只在主键为空时赋值，从不覆盖调用方显式给出的主键。支持的文档：
//
//   - 结构体指针：主键字段依次取 xhid 标签、bson:"_id"、gorm primaryKey、
//     名为 "ID"（WithField）的字段，必须是 string 类型
//   - map[string]T（含 bson.M）及其指针：键为 "_id"（WithMapKey）
//   - *bson.D：缺少主键时插入到首位
//
// 结构体的字段解析结果按类型缓存，Assigner 并发安全。
type Assigner struct {
	gen      IDGenerator
	opts     *assignOptions
	logger   xlog.Logger
	observer xmetrics.Observer
	types    sync.Map // reflect.Type → *typeInfo
}

// New 创建 Assigner。
func New(gen IDGenerator, opts ...Option) (*Assigner, error) {
	if gen == nil {
		return nil, ErrNilGenerator
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.logger == nil {
		o.logger = xlog.Default()
	}
	return &Assigner{
		gen:      gen,
		opts:     o,
		logger:   o.logger.With(xlog.Component(componentName)),
		observer: o.observer,
	}, nil
}

// Assign 为文档填充主键，返回最终的主键值（已有的或新生成的）。
//
// 已有主键的文档原样返回其主键；非 string 的已有主键（如 ObjectID）以 fmt 形式返回。
func (a *Assigner) Assign(ctx context.Context, doc any) (string, error) {
	return a.traced(ctx, doc, func() (string, bool, error) {
		return a.assign(doc)
	})
}

// traced 包装一次赋值的日志与观测。
func (a *Assigner) traced(ctx context.Context, doc any, fn func() (string, bool, error)) (id string, err error) {
	ctx, span := xmetrics.Start(ctx, a.observer, xmetrics.SpanOptions{
		Component: componentName,
		Operation: opAssign,
		Attrs:     []xmetrics.Attr{xmetrics.Target(doc)},
	})
	var assigned bool
	defer func() {
		span.End(xmetrics.Result{Err: err, Attrs: []xmetrics.Attr{xmetrics.Assigned(assigned)}})
	}()

	id, assigned, err = fn()
	if err != nil {
		a.logger.Warn(ctx, "assign id failed", slog.String("target", fmt.Sprintf("%T", doc)), xlog.Err(err))
		return "", err
	}
	if assigned {
		a.logger.Debug(ctx, "id assigned", slog.String("id", id))
	}
	return id, nil
}

func (a *Assigner) assign(doc any) (string, bool, error) {
	if doc == nil {
		return "", false, ErrNilDocument
	}
	if d, ok := doc.(*bson.D); ok {
		if d == nil {
			return "", false, ErrNilDocument
		}
		return a.assignD(d, a.opts.prefix)
	}

	rv := reflect.ValueOf(doc)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return "", false, ErrNilDocument
		}
		elem := rv.Elem()
		switch elem.Kind() {
		case reflect.Struct:
			return a.assignStruct(elem)
		case reflect.Map:
			if elem.IsNil() {
				return "", false, ErrNilDocument
			}
			return a.assignMap(elem, a.opts.mapKey, a.opts.prefix)
		}
	case reflect.Map:
		if rv.IsNil() {
			return "", false, ErrNilDocument
		}
		return a.assignMap(rv, a.opts.mapKey, a.opts.prefix)
	}
	return "", false, fmt.Errorf("%w: %T", ErrUnsupportedType, doc)
}

// =============================================================================
// 结构体
// =============================================================================

// typeInfo 结构体类型的主键字段解析结果。
type typeInfo struct {
	index  []int
	prefix string
	err    error
}

func (a *Assigner) lookup(t reflect.Type) *typeInfo {
	if v, ok := a.types.Load(t); ok {
		return v.(*typeInfo)
	}
	v, _ := a.types.LoadOrStore(t, inspectType(t, a.opts.field))
	return v.(*typeInfo)
}

// inspectType 按优先级查找主键字段：xhid 标签 > bson:"_id" > gorm primaryKey > 字段名。
func inspectType(t reflect.Type, fallback string) *typeInfo {
	var tagged, bsonID, gormPK, named *reflect.StructField
	var prefix string
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		if isKey, p := parseTag(f.Tag.Get(tagName)); isKey && tagged == nil {
			tagged, prefix = &f, p
		}
		if bsonID == nil && bsonName(f.Tag.Get("bson")) == "_id" {
			bsonID = &f
		}
		if gormPK == nil && gormPrimaryKey(f.Tag.Get("gorm")) {
			gormPK = &f
		}
		if named == nil && f.Name == fallback {
			named = &f
		}
	}

	var field *reflect.StructField
	for _, c := range []*reflect.StructField{tagged, bsonID, gormPK, named} {
		if c != nil {
			field = c
			break
		}
	}
	if field == nil {
		return &typeInfo{err: fmt.Errorf("%w: %s", ErrNoKeyField, t)}
	}
	if field.Type.Kind() != reflect.String {
		return &typeInfo{err: fmt.Errorf("%w: %s.%s is %s", ErrNoKeyField, t, field.Name, field.Type)}
	}
	return &typeInfo{index: field.Index, prefix: prefix}
}

// parseTag 解析 xhid 标签。非空且不是 "-" 的标签即标记主键，可选 prefix=xxx。
func parseTag(tag string) (isKey bool, prefix string) {
	if tag == "" || tag == "-" {
		return false, ""
	}
	for _, part := range strings.Split(tag, ",") {
		if p, ok := strings.CutPrefix(strings.TrimSpace(part), "prefix="); ok {
			prefix = p
		}
	}
	return true, prefix
}

func bsonName(tag string) string {
	name, _, _ := strings.Cut(tag, ",")
	return name
}

func gormPrimaryKey(tag string) bool {
	for _, setting := range strings.Split(tag, ";") {
		switch strings.ToLower(strings.TrimSpace(setting)) {
		case "primarykey", "primary_key":
			return true
		}
	}
	return false
}

// assignStruct 为可寻址的结构体赋值。
func (a *Assigner) assignStruct(v reflect.Value) (string, bool, error) {
	info := a.lookup(v.Type())
	if info.err != nil {
		return "", false, info.err
	}
	f, err := v.FieldByIndexErr(info.index)
	if err != nil {
		return "", false, fmt.Errorf("%w: %w", ErrNoKeyField, err)
	}
	if cur := f.String(); cur != "" {
		return cur, false, nil
	}
	if !f.CanSet() {
		return "", false, fmt.Errorf("%w: %s field is not settable", ErrNoKeyField, v.Type())
	}

	id, err := a.gen.Generate(a.structPrefix(v, info))
	if err != nil {
		return "", false, err
	}
	f.SetString(id)
	return id, true, nil
}

func (a *Assigner) structPrefix(v reflect.Value, info *typeInfo) string {
	if v.CanAddr() {
		if p, ok := v.Addr().Interface().(Prefixer); ok {
			return p.IDPrefix()
		}
	}
	if info.prefix != "" {
		return info.prefix
	}
	return a.opts.prefix
}

// =============================================================================
// map 与 bson.D
// =============================================================================

func (a *Assigner) assignMap(m reflect.Value, keyName, prefix string) (string, bool, error) {
	mt := m.Type()
	if mt.Key().Kind() != reflect.String {
		return "", false, fmt.Errorf("%w: %s", ErrUnsupportedType, mt)
	}
	key := reflect.ValueOf(keyName).Convert(mt.Key())
	if cur := m.MapIndex(key); cur.IsValid() {
		if s, ok := existing(cur.Interface()); ok {
			return s, false, nil
		}
	}

	strType := reflect.TypeFor[string]()
	if !strType.AssignableTo(mt.Elem()) && !strType.ConvertibleTo(mt.Elem()) {
		return "", false, fmt.Errorf("%w: %s", ErrUnsupportedType, mt)
	}
	id, err := a.gen.Generate(prefix)
	if err != nil {
		return "", false, err
	}
	val := reflect.ValueOf(id)
	if !strType.AssignableTo(mt.Elem()) {
		val = val.Convert(mt.Elem())
	}
	m.SetMapIndex(key, val)
	return id, true, nil
}

func (a *Assigner) assignD(d *bson.D, prefix string) (string, bool, error) {
	key := a.opts.mapKey
	idx := -1
	for i, e := range *d {
		if e.Key != key {
			continue
		}
		if s, ok := existing(e.Value); ok {
			return s, false, nil
		}
		idx = i
		break
	}

	id, err := a.gen.Generate(prefix)
	if err != nil {
		return "", false, err
	}
	if idx >= 0 {
		(*d)[idx].Value = id
	} else {
		*d = append(bson.D{{Key: key, Value: id}}, *d...)
	}
	return id, true, nil
}

// existing 判断已有的主键值是否有效：nil 与空字符串视为缺失。
func existing(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, x != ""
	default:
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.String {
			return rv.String(), rv.String() != ""
		}
		return fmt.Sprint(x), true
	}
}
