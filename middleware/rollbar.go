package middleware

import (
	"errors"

	"github.com/rollbar/rollbar-go"
	"github.com/sirupsen/logrus"
)

// RollbarHook forwards error, fatal and panic entries to Rollbar.
type RollbarHook struct{}

// NewRollbarHook configures the rollbar client. Returns nil when token is empty.
func NewRollbarHook(token, env, version string) *RollbarHook {
	if token == "" {
		return nil
	}
	rollbar.SetToken(token)
	rollbar.SetEnvironment(env)
	rollbar.SetCodeVersion(version)
	rollbar.SetServerRoot("tutorlink_go")
	return &RollbarHook{}
}

func (h *RollbarHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel}
}

func (h *RollbarHook) Fire(entry *logrus.Entry) error {
	extras := make(map[string]interface{}, len(entry.Data))
	var err error
	for k, v := range entry.Data {
		if e, ok := v.(error); ok && k == logrus.ErrorKey {
			err = e
			continue
		}
		extras[k] = v
	}
	if err == nil {
		err = errors.New(entry.Message)
	} else {
		extras["message"] = entry.Message
	}

	level := rollbar.ERR
	if entry.Level <= logrus.FatalLevel {
		level = rollbar.CRIT
	}
	rollbar.ErrorWithExtras(level, err, extras)
	if entry.Level <= logrus.FatalLevel {
		rollbar.Wait()
	}
	return nil
}
