package script

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/risor-io/risor/object"

	"github.com/jward/tsfeatures/internal/features"
)

// makeEmitFn creates the emit(key, value) builtin. Values are converted to
// Go with Interface(): lists become []any and maps map[string]any.
func makeEmitFn(col *collector) *object.Builtin {
	return object.NewBuiltin("emit", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("emit", 2, len(args))
		}
		key, err := toString(args[0])
		if err != nil {
			return object.Errorf("emit: key: %v", err)
		}
		col.emit(key, args[1].Interface())
		return object.Nil
	})
}

// makeHasFeatureFn creates has_feature(file, name), reporting whether a
// file map from the files global lists the feature.
func makeHasFeatureFn() *object.Builtin {
	return object.NewBuiltin("has_feature", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("has_feature", 2, len(args))
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("has_feature: %v", err)
		}
		name, err := toString(args[1])
		if err != nil {
			return object.Errorf("has_feature: %v", err)
		}
		list, ok := m["features"].(*object.List)
		if !ok {
			return object.False
		}
		for _, item := range list.Value() {
			if s, ok := item.(*object.String); ok && s.Value() == name {
				return object.True
			}
		}
		return object.False
	})
}

// makeIntroducedInFn creates introduced_in(name), returning the TypeScript
// release that introduced a feature, or nil if it is not catalogued.
func makeIntroducedInFn() *object.Builtin {
	return object.NewBuiltin("introduced_in", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("introduced_in", 1, len(args))
		}
		name, err := toString(args[0])
		if err != nil {
			return object.Errorf("introduced_in: %v", err)
		}
		rel, ok := features.IntroducedIn(name)
		if !ok {
			return object.Nil
		}
		return object.NewMap(map[string]object.Object{
			"version": object.NewString(rel.Version),
			"date":    object.NewString(rel.Date.Format("2006-01-02")),
		})
	})
}

func extractMap(obj object.Object) (map[string]object.Object, error) {
	m, ok := obj.(*object.Map)
	if !ok {
		return nil, fmt.Errorf("expected map, got %s", obj.Type())
	}
	return m.Value(), nil
}

// logObject provides log.Info/Warn/Error methods for Risor scripts.
type logObject struct {
	logger *slog.Logger
}

func (l *logObject) Info(msg string) {
	l.logger.Info(msg)
}

func (l *logObject) Warn(msg string) {
	l.logger.Warn(msg)
}

func (l *logObject) Error(msg string) {
	l.logger.Error(msg)
}
