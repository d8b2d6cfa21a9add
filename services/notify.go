package services

import (
	"tutorlink_go/services/email"
	"tutorlink_go/services/notifications"

	"github.com/sirupsen/logrus"
)

// notify queues an in-app notification and only logs failures.
func notify(userIDs []uint, title, message, typ string, data interface{}, channels ...string) {
	if len(userIDs) == 0 {
		return
	}
	n := notifications.WithData(title, message, typ, data, channels...)
	if err := notifications.NewService().EnqueueOrCreate(userIDs, n); err != nil {
		logrus.WithError(err).WithField("title", title).Warn("notification not delivered")
	}
}

// mailer is swapped in tests.
var mailer = func() *email.Service { return email.Default() }
