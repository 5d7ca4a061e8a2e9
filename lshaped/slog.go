package lshaped

import (
	"fmt"
	"log/slog"
)

// SlogLogger adapts an *slog.Logger to the Logger interface, so callers get
// leveled structured logging by default without the library forcing slog on
// callers who supply their own Logger.
type SlogLogger struct {
	L *slog.Logger
}

func (s SlogLogger) Print(v ...interface{}) {
	s.L.Info(fmt.Sprint(v...))
}

var _ Logger = SlogLogger{}
