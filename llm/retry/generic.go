package retry

import "context"

// DoWithResultTyped 泛型版 DoWithResult；只在成功时写入结果
//
//	c, err := retry.DoWithResultTyped(r, ctx, func() (*llm.Completion, error) {
//	    return p.Complete(ctx, req)
//	})
func DoWithResultTyped[T any](r Retryer, ctx context.Context, fn func() (T, error)) (T, error) {
	var out T
	err := r.Do(ctx, func() error {
		v, err := fn()
		if err == nil {
			out = v
		}
		return err
	})
	return out, err
}
