package auth

import "context"

type operatorKey struct{}

// WithOperator 将通过认证的调用方存入上下文。
func WithOperator(ctx context.Context, op *Operator) context.Context {
	if op == nil {
		return ctx
	}
	return context.WithValue(ctx, operatorKey{}, op)
}

// OperatorFromContext 从上下文中取出调用方，不存在时返回 nil。
func OperatorFromContext(ctx context.Context) *Operator {
	if ctx == nil {
		return nil
	}
	op, _ := ctx.Value(operatorKey{}).(*Operator)
	return op
}
