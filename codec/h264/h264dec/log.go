/*
DESCRIPTION
  log.go provides the package-level debug logger used throughout h264dec,
  writing to a rotated log file via lumberjack so that long-running decode
  sessions do not grow an unbounded log on disk.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package h264dec

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// logger is used throughout this package for debug and informational
// messages produced while parsing a bitstream. By default it writes only to
// a rotated on-disk log (see SetLogOutput to send it to another writer
// instead, e.g. os.Stdout, during development).
var logger = log.New(&lumberjack.Logger{
	Filename:   "h264dec.log",
	MaxSize:    10, // megabytes
	MaxBackups: 3,
	MaxAge:     7, // days
}, "h264dec: ", log.Ldate|log.Ltime|log.Lshortfile)

// SetLogOutput redirects package logging to w, discarding the default
// rotated log file. Passing nil discards all package logging.
func SetLogOutput(w io.Writer) {
	if w == nil {
		logger.SetOutput(io.Discard)
		return
	}
	logger.SetOutput(w)
}

func init() {
	if os.Getenv("H264DEC_LOG_STDERR") != "" {
		logger.SetOutput(os.Stderr)
	}
}
