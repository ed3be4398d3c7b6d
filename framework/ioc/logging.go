package ioc

import (
	"time"

	"go.uber.org/zap"
)

// LoggingMiddleware logs every resolution with its duration.
func LoggingMiddleware(logger *zap.Logger) Middleware {
	return func(next Next) Next {
		return func(args NextArgs) (any, error) {
			start := time.Now()
			v, err := next(args)
			fields := []zap.Field{
				zap.String("service", IdentifierName(args.ServiceIdentifier)),
				zap.Bool("multi", args.IsMultiInject),
				zap.Duration("took", time.Since(start)),
			}
			if args.Key != "" {
				fields = append(fields, zap.Any(args.Key, args.Value))
			}
			if err != nil {
				logger.Warn("resolve failed", append(fields, zap.Error(err))...)
				return v, err
			}
			if _, pending := v.(*Future); pending {
				fields = append(fields, zap.Bool("pending", true))
			}
			logger.Debug("resolved", fields...)
			return v, nil
		}
	}
}
