package gpiocdev

// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

import (
	"github.com/sirupsen/logrus"
)

// logger carries the package diagnostics. The package only logs at debug
// level, so the default logger stays silent unless an application lowers
// the level or installs its own.
var logger logrus.FieldLogger = newDefaultLogger()

func newDefaultLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	return l.WithField("prefix", "gpiocdev")
}

// SetLogger routes the package diagnostics into the given logger, typically
// an application logrus entry. A nil logger restores the default.
func SetLogger(l logrus.FieldLogger) {
	if l == nil {
		l = newDefaultLogger()
	}
	logger = l
}
