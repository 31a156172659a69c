package jobs

import "resume-export/internal/shared/telemetry"

// zapAsynqLogger routes asynq's internal logging through telemetry.
type zapAsynqLogger struct{}

func (zapAsynqLogger) Debug(args ...interface{}) { telemetry.L().Sugar().Debug(args...) }
func (zapAsynqLogger) Info(args ...interface{})  { telemetry.L().Sugar().Info(args...) }
func (zapAsynqLogger) Warn(args ...interface{})  { telemetry.L().Sugar().Warn(args...) }
func (zapAsynqLogger) Error(args ...interface{}) { telemetry.L().Sugar().Error(args...) }
func (zapAsynqLogger) Fatal(args ...interface{}) { telemetry.L().Sugar().Fatal(args...) }
