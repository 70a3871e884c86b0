// Copyright 2024 Adxquery. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package logging provides a small structured-logging helper shared by the
// snapshot decoder and the query engine: leveled Errorf/Warnf/Debugf over
// a pluggable backend, backed by zap.
package logging

import (
	"go.uber.org/zap"
)

// Helper wraps a *zap.SugaredLogger and tolerates a nil receiver so callers
// never have to special-case "no logger configured".
type Helper struct {
	log *zap.SugaredLogger
}

// NewHelper wraps the given logger. A nil logger produces a Helper whose
// methods are no-ops.
func NewHelper(log *zap.SugaredLogger) *Helper {
	return &Helper{log: log}
}

// NewNop returns a Helper that discards everything, used as the default
// when a caller does not configure a logger.
func NewNop() *Helper {
	return &Helper{log: zap.NewNop().Sugar()}
}

// NewDevelopment returns a Helper backed by zap's human-readable console
// encoder, suitable for the CLI's default verbose output.
func NewDevelopment() *Helper {
	l, err := zap.NewDevelopment()
	if err != nil {
		return NewNop()
	}
	return &Helper{log: l.Sugar()}
}

func (h *Helper) Errorf(template string, args ...any) {
	if h == nil || h.log == nil {
		return
	}
	h.log.Errorf(template, args...)
}

func (h *Helper) Warnf(template string, args ...any) {
	if h == nil || h.log == nil {
		return
	}
	h.log.Warnf(template, args...)
}

func (h *Helper) Debugf(template string, args ...any) {
	if h == nil || h.log == nil {
		return
	}
	h.log.Debugf(template, args...)
}

func (h *Helper) Infof(template string, args ...any) {
	if h == nil || h.log == nil {
		return
	}
	h.log.Infof(template, args...)
}
