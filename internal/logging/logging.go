package logging

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/perkpass/perkpass/internal/config"
)

// Setup configures logrus from the log config. When a file is configured the
// output rotates via lumberjack and mirrors to stdout.
func Setup(cfg config.LogConfig) {
	level, errParse := log.ParseLevel(cfg.Level)
	if errParse != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	if cfg.File == "" {
		log.SetOutput(os.Stdout)
		return
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
	if rotator.MaxSize <= 0 {
		rotator.MaxSize = 50
	}
	log.SetOutput(io.MultiWriter(os.Stdout, rotator))
}
