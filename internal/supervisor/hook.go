package supervisor

import "github.com/sirupsen/logrus"

// hubHook is a logrus.Hook that mirrors every log entry into a LogHub,
// giving debug mode's central listener the same records each
// collector's Runtime already writes to stdout (spec §4.7: "a shared
// log queue is injected so per-collector log records surface on a
// central listener").
type hubHook struct {
	hub *LogHub
}

func (h *hubHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *hubHook) Fire(entry *logrus.Entry) error {
	line, err := entry.String()
	if err != nil {
		return err
	}
	h.hub.Broadcast([]byte(line))
	return nil
}
