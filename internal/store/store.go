// Package store 路径寻址、可订阅的共享树形存储
package store

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	ErrInvalidPath   = errors.New("invalid store path")
	ErrCrossDocument = errors.New("update spans multiple documents")
	ErrClosed        = errors.New("store connection closed")
	ErrConflict      = errors.New("store write conflict")
)

// Unsubscribe 取消订阅，可重复调用
type Unsubscribe func()

// Store 共享存储客户端
type Store interface {
	// Get 一致性单路径读取
	Get(ctx context.Context, path string) (Snapshot, error)
	// Subscribe 先投递当前值，之后按顺序投递每次变更
	Subscribe(ctx context.Context, path string, fn func(Snapshot)) (Unsubscribe, error)
	Set(ctx context.Context, path string, value any) error
	// Update 以 path 为根，原子地写入多个相对子路径，nil 值表示删除
	Update(ctx context.Context, path string, values map[string]any) error
	Remove(ctx context.Context, path string) error
	// OnDisconnect 在连接断开时由存储侧执行的延迟动作
	OnDisconnect(ctx context.Context, path string, action DisconnectAction) error
}

// Conn 一个客户端到存储的连接
type Conn interface {
	Store
	ID() string
	// Close 关闭连接并执行已登记的断开动作
	Close(ctx context.Context) error
}

// Connector 建立存储连接
type Connector interface {
	Connect(ctx context.Context) (Conn, error)
}

// DisconnectOp 断开动作类型
type DisconnectOp string

const (
	OpRemove DisconnectOp = "remove"
	OpSet    DisconnectOp = "set"
)

// DisconnectAction 断开连接时执行的动作
type DisconnectAction struct {
	Op    DisconnectOp `json:"op"`
	Value any          `json:"value,omitempty"`
}

// RemoveOnDisconnect 断开时删除路径
func RemoveOnDisconnect() DisconnectAction {
	return DisconnectAction{Op: OpRemove}
}

// SetOnDisconnect 断开时写入值
func SetOnDisconnect(value any) DisconnectAction {
	return DisconnectAction{Op: OpSet, Value: value}
}

// Snapshot 某一路径在某一时刻的值
type Snapshot struct {
	Path  string
	Value any
}

// Exists 路径上是否有值
func (s Snapshot) Exists() bool {
	return !isEmpty(s.Value)
}

// Decode 将快照解码到 v
func (s Snapshot) Decode(v any) error {
	data, err := json.Marshal(s.Value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
