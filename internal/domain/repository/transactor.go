// Package repository 定义数据访问层接口
package repository

import "context"

// TxKey 事务句柄在 context 中的键，仓储实现据此复用同一事务
type TxKey struct{}

// Transactor 事务管理接口
type Transactor interface {
	// WithTransaction 在事务中执行 fn，fn 返回错误时整体回滚；
	// ctx 已处于事务中时直接复用，不开启嵌套事务
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// InTransaction ctx 是否已携带事务句柄
func InTransaction(ctx context.Context) bool {
	return ctx.Value(TxKey{}) != nil
}
