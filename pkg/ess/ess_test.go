package ess

import (
	"log/slog"

	"github.com/senecgrab/senecgrab/pkg/log"
)

func init() {
	log.SetDefaultLogLevel(slog.LevelError)
}
