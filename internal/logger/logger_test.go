package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		env       string
		level     string
		wantLevel zapcore.Level
		wantErr   bool
	}{
		{env: "prod", wantLevel: zapcore.InfoLevel},
		{env: "local", wantLevel: zapcore.DebugLevel},
		{env: "test", wantLevel: zapcore.WarnLevel},
		{env: "dev", level: "error", wantLevel: zapcore.ErrorLevel},
		{env: "staging", wantErr: true},
		{env: "prod", level: "loud", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.env+"/"+tc.level, func(t *testing.T) {
			l, err := NewLogger(tc.env, tc.level)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !l.Core().Enabled(tc.wantLevel) {
				t.Errorf("level %s not enabled", tc.wantLevel)
			}
			if tc.wantLevel > zapcore.DebugLevel && l.Core().Enabled(tc.wantLevel-1) {
				t.Errorf("level below %s should be disabled", tc.wantLevel)
			}
		})
	}
}

func TestContextLogger(t *testing.T) {
	ctx := context.Background()
	fallback := zap.NewExample()

	if FromContext(ctx) == nil {
		t.Fatal("FromContext must never return nil")
	}
	if FromContextOr(ctx, fallback) != fallback {
		t.Error("expected fallback without a request logger")
	}

	reqLogger := zap.NewNop().With(zap.String("request_id", "r1"))
	ctx = ContextWithLogger(ctx, reqLogger)
	if FromContext(ctx) != reqLogger || FromContextOr(ctx, fallback) != reqLogger {
		t.Error("expected the request logger")
	}
}
