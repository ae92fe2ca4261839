package supervisor

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// collectorLogger opens (creating if needed) dir/<name>.log and
// returns a *logrus.Logger that writes to both it and stdout — the
// per-collector LOGS/<collector>.log file spec §6 lists as a
// filesystem contract. Grounded on original_source's log.py, which
// attaches a logging.FileHandler(f"LOGS/{filename}.log") to the
// per-process logger in addition to whatever else is already
// registered (here, stdout). The returned io.Closer must be closed
// when the collector's Runtime stops.
func collectorLogger(dir, name string) (*logrus.Logger, io.Closer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("supervisor: create log dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, name+".log")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("supervisor: open log file %s: %w", path, err)
	}

	log := logrus.New()
	log.SetOutput(io.MultiWriter(os.Stdout, f))
	log.SetFormatter(logrus.StandardLogger().Formatter)
	log.SetLevel(logrus.StandardLogger().GetLevel())
	return log, f, nil
}
