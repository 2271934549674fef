package xassign

import (
	"context"
	"fmt"
	"reflect"
	"slices"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// =============================================================================
// 内部接口定义 - 用于依赖注入和测试
// =============================================================================

// collectionOperations 定义 MongoInserter 需要的集合操作。
// *mongo.Collection 通过 collectionAdapter 实现此接口。
type collectionOperations interface {
	InsertOne(ctx context.Context, document any, opts ...options.Lister[options.InsertOneOptions]) (*mongo.InsertOneResult, error)
	InsertMany(ctx context.Context, documents []any, opts ...options.Lister[options.InsertManyOptions]) (*mongo.InsertManyResult, error)
}

var _ collectionOperations = (*collectionAdapter)(nil)

// collectionAdapter 将 *mongo.Collection 适配为 collectionOperations 接口。
type collectionAdapter struct {
	coll *mongo.Collection
}

func (c *collectionAdapter) InsertOne(ctx context.Context, document any, opts ...options.Lister[options.InsertOneOptions]) (*mongo.InsertOneResult, error) {
	return c.coll.InsertOne(ctx, document, opts...)
}

func (c *collectionAdapter) InsertMany(ctx context.Context, documents []any, opts ...options.Lister[options.InsertManyOptions]) (*mongo.InsertManyResult, error) {
	return c.coll.InsertMany(ctx, documents, opts...)
}

// =============================================================================
// MongoInserter
// =============================================================================

// MongoInserter 包装集合的插入操作，写入前为缺少 _id 的文档填充 ID。
//
// 结构体指针、bson.M 与 *bson.D 原地修改，调用方插入后即可读到 ID；
// 结构体值与 bson.D 值会被复制后再赋值，ID 只能从返回结果中获得。
type MongoInserter struct {
	assigner *Assigner
	coll     collectionOperations
}

// NewMongoInserter 创建 MongoInserter。
func NewMongoInserter(coll *mongo.Collection, gen IDGenerator, opts ...Option) (*MongoInserter, error) {
	if coll == nil {
		return nil, ErrNilCollection
	}
	return newMongoInserter(&collectionAdapter{coll: coll}, gen, opts...)
}

func newMongoInserter(coll collectionOperations, gen IDGenerator, opts ...Option) (*MongoInserter, error) {
	a, err := New(gen, opts...)
	if err != nil {
		return nil, err
	}
	return &MongoInserter{assigner: a, coll: coll}, nil
}

// Prepare 为文档赋值并返回实际要写入的文档与其 _id。
func (m *MongoInserter) Prepare(ctx context.Context, doc any) (any, string, error) {
	if d, ok := doc.(bson.D); ok {
		cp := slices.Clone(d)
		id, err := m.assigner.Assign(ctx, &cp)
		return cp, id, err
	}
	if rv := reflect.ValueOf(doc); rv.Kind() == reflect.Struct {
		ptr := reflect.New(rv.Type())
		ptr.Elem().Set(rv)
		id, err := m.assigner.Assign(ctx, ptr.Interface())
		return ptr.Interface(), id, err
	}
	id, err := m.assigner.Assign(ctx, doc)
	return doc, id, err
}

// InsertOne 赋值后插入单个文档。
func (m *MongoInserter) InsertOne(ctx context.Context, doc any, opts ...options.Lister[options.InsertOneOptions]) (*mongo.InsertOneResult, error) {
	prepared, _, err := m.Prepare(ctx, doc)
	if err != nil {
		return nil, err
	}
	return m.coll.InsertOne(ctx, prepared, opts...)
}

// InsertMany 赋值后批量插入。任一文档赋值失败时不写入任何文档。
func (m *MongoInserter) InsertMany(ctx context.Context, docs []any, opts ...options.Lister[options.InsertManyOptions]) (*mongo.InsertManyResult, error) {
	prepared := make([]any, len(docs))
	for i, doc := range docs {
		p, _, err := m.Prepare(ctx, doc)
		if err != nil {
			return nil, fmt.Errorf("xassign: document %d: %w", i, err)
		}
		prepared[i] = p
	}
	return m.coll.InsertMany(ctx, prepared, opts...)
}
