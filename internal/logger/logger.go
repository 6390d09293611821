package logger

import (
	"github.com/sirupsen/logrus"
)

// InitLogger configures the package-level logrus logger used by every
// process (manager, disk, user). level is parsed with logrus.ParseLevel;
// an empty level selects info, and an invalid level returns the parse error.
func InitLogger(level string) error {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if level == "" {
		logrus.SetLevel(logrus.InfoLevel)
		return nil
	}

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logrus.SetLevel(parsed)
	return nil
}
