package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// asynqLogger routes asynq's internal logging through zerolog.
type asynqLogger struct{}

func (asynqLogger) Debug(args ...interface{}) { emit(zerolog.DebugLevel, args) }
func (asynqLogger) Info(args ...interface{})  { emit(zerolog.InfoLevel, args) }
func (asynqLogger) Warn(args ...interface{})  { emit(zerolog.WarnLevel, args) }
func (asynqLogger) Error(args ...interface{}) { emit(zerolog.ErrorLevel, args) }

func (asynqLogger) Fatal(args ...interface{}) {
	emit(zerolog.FatalLevel, args)
	os.Exit(1)
}

func emit(lvl zerolog.Level, args []interface{}) {
	log.WithLevel(lvl).Str("src", "asynq").Msg(fmt.Sprint(args...))
}
