package sentry

import (
	"os"
	"time"

	"github.com/imagecompressor/tools/util"

	"github.com/getsentry/sentry-go"
)

// Init Sentry client
func Init() {
	sentryDsn := os.Getenv("SENTRY_DSN")
	if sentryDsn != "" {
		util.Check(sentry.Init(sentry.ClientOptions{
			Dsn: sentryDsn,
		}))
	}
}

// NotifyError reports a handled error, such as a failed release phase.
func NotifyError(err error, tags map[string]string) {
	if sentry.CurrentHub().Client() == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		sentry.CaptureException(err)
	})
	sentry.Flush(time.Second * 5)
}

// PanicHandler registers panic handler to record the error in Sentry
func PanicHandler() {
	err := recover()

	if err != nil {
		sentry.CurrentHub().Recover(err)
		sentry.Flush(time.Second * 5)
		panic(err)
	}
}
