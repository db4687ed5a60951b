package http

import "go.uber.org/zap"

func containsField(list []FieldError, field string) bool {
	for _, e := range list {
		if e.Field == field {
			return true
		}
	}
	return false
}

func zapNop() *zap.Logger { return zap.NewNop() }
