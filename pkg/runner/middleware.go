package runner

import (
	"context"
	"strings"
)

// CodeInterceptor is a middleware that can block a /run request.
// It returns true if execution should proceed.
type CodeInterceptor func(ctx context.Context, code string) (bool, error)

// MultiInterceptor chains multiple interceptors. The first denial wins.
func MultiInterceptor(interceptors ...CodeInterceptor) CodeInterceptor {
	return func(ctx context.Context, code string) (bool, error) {
		for _, interceptor := range interceptors {
			allowed, err := interceptor(ctx, code)
			if err != nil {
				return false, err
			}
			if !allowed {
				return false, nil
			}
		}
		return true, nil
	}
}

// ConfirmationMiddleware shows the code through the handler and asks before running it.
func ConfirmationMiddleware(handler IOHandler) CodeInterceptor {
	return func(ctx context.Context, code string) (bool, error) {
		if err := handler.SystemOutput(ctx, "Run this code? [y/N]\n"+code); err != nil {
			return false, err
		}

		input, err := handler.Input(ctx)
		if err != nil {
			return false, err
		}

		input = strings.TrimSpace(strings.ToLower(input))
		return input == "y" || input == "yes", nil
	}
}

// MaxCodeSize denies code longer than limit bytes.
func MaxCodeSize(limit int) CodeInterceptor {
	return func(ctx context.Context, code string) (bool, error) {
		return len(code) <= limit, nil
	}
}

// AutoApproveMiddleware allows everything.
func AutoApproveMiddleware() CodeInterceptor {
	return func(ctx context.Context, code string) (bool, error) {
		return true, nil
	}
}
