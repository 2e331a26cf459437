package log

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

type ctxKey string

const (
	ConnIDKey    ctxKey = "ConnID"
	ChannelIDKey ctxKey = "ChanID"
	BindingIDKey ctxKey = "BindingID"
)

var (
	mu     sync.RWMutex
	logger = newDefaultLogger()
)

func newDefaultLogger() *zap.SugaredLogger {
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

// SetLogger replaces the logger every Println/Printf call goes to.
// Tests usually pass zap.NewNop().
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l.Sugar()
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func ctxToString(ctx context.Context) string {
	var tags []string
	if connID := ctx.Value(ConnIDKey); connID != nil {
		tags = append(tags, fmt.Sprintf("conn=%v", connID))
	}
	if stmtID := ctx.Value(ChannelIDKey); stmtID != nil {
		tags = append(tags, fmt.Sprintf("stmt=%v", stmtID))
	}
	if bindingID := ctx.Value(BindingIDKey); bindingID != nil {
		tags = append(tags, fmt.Sprintf("binding=%v", bindingID))
	}
	return fmt.Sprintf("[%s]", strings.Join(tags, ","))
}

func Println(l Loggable, args ...interface{}) {
	msg := strings.TrimSuffix(fmt.Sprintln(args...), "\n")
	current().Infof("%s %s", ctxToString(l.Ctx()), msg)
}

func Printf(l Loggable, format string, args ...interface{}) {
	current().Infof("%s %s", ctxToString(l.Ctx()), fmt.Sprintf(format, args...))
}

// Errorf logs at error level; used where a failure is swallowed
// instead of being returned.
func Errorf(l Loggable, format string, args ...interface{}) {
	current().Errorf("%s %s", ctxToString(l.Ctx()), fmt.Sprintf(format, args...))
}

type Loggable interface {
	Ctx() context.Context
}
