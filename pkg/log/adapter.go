// Package log adapts the logrus logger to the logging interfaces of third-party libraries.
package log

import "github.com/sirupsen/logrus"

// BadgerLogger implements badger.Logger on top of a logrus entry.
// Badger's informational chatter (table flushes, compactions) is demoted to debug
// so an in-memory visited set does not flood crawl logs.
type BadgerLogger struct {
	entry *logrus.Entry
}

// NewBadgerLogger creates an adapter tagged with component=badgerdb
func NewBadgerLogger(entry *logrus.Entry) *BadgerLogger {
	return &BadgerLogger{entry: entry.WithField("component", "badgerdb")}
}

// Errorf logs an error message
func (l *BadgerLogger) Errorf(f string, v ...interface{}) { l.entry.Errorf(f, v...) }

// Warningf logs a warning message
func (l *BadgerLogger) Warningf(f string, v ...interface{}) { l.entry.Warnf(f, v...) }

// Infof logs badger info messages at debug level
func (l *BadgerLogger) Infof(f string, v ...interface{}) { l.entry.Debugf(f, v...) }

// Debugf logs a debug message
func (l *BadgerLogger) Debugf(f string, v ...interface{}) { l.entry.Debugf(f, v...) }
