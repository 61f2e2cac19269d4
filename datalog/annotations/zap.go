package annotations

import (
	"sort"

	"go.uber.org/zap"
)

// ZapHandler forwards events to a zap logger as debug entries.
// Error events are logged at error level.
func ZapHandler(logger *zap.Logger) Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(event Event) {
		fields := make([]zap.Field, 0, len(event.Data)+1)
		fields = append(fields, zap.Duration("latency", event.Latency))

		keys := make([]string, 0, len(event.Data))
		for k := range event.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fields = append(fields, zap.Any(k, event.Data[k]))
		}

		if event.Name == ErrorCompile {
			logger.Error(event.Name, fields...)
			return
		}
		logger.Debug(event.Name, fields...)
	}
}

// Tee fans an event out to several handlers; nil handlers are skipped.
func Tee(handlers ...Handler) Handler {
	var active []Handler
	for _, h := range handlers {
		if h != nil {
			active = append(active, h)
		}
	}
	switch len(active) {
	case 0:
		return nil
	case 1:
		return active[0]
	}
	return func(event Event) {
		for _, h := range active {
			h(event)
		}
	}
}
