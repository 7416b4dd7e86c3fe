// Package logger is a thin zerolog wrapper. Fields are carried on the
// context (WithField, WithItemID) so lower layers can log without threading
// a logger through every call.
package logger
