package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

var Log *logrus.Logger

// Init настраивает общий логгер. В production пишем JSON для сборщика
// логов, локально текст.
func Init(level, env string) {
	Log = logrus.New()
	Log.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	if env == "development" || env == "test" {
		Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		return
	}
	Log.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyMsg: "message",
		},
	})
}

// Get возвращает инициализированный логгер или стандартный logrus, если Init
// ещё не вызывался (например, в тестах).
func Get() *logrus.Logger {
	if Log == nil {
		return logrus.StandardLogger()
	}
	return Log
}

// ForListing - запись лога с привязкой к лоту.
func ForListing(listingID any) *logrus.Entry {
	return Get().WithField("listing_id", listingID)
}
