package goroutine

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/wastemarket-backend/internal/logger"
)

// Group запускает фоновые задачи сервиса с перехватом panic
// и позволяет дождаться их завершения при остановке.
type Group struct {
	wg sync.WaitGroup
}

// Go запускает задачу. name попадает в лог, если задача упала.
func (g *Group) Go(ctx context.Context, name string, fn func(context.Context)) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer recoverPanic(name)
		fn(ctx)
	}()
}

// Wait блокируется, пока не завершатся все задачи группы.
func (g *Group) Wait() {
	g.wg.Wait()
}

// SafeGo запускает горутину с обработкой panic
func SafeGo(name string, fn func()) {
	go func() {
		defer recoverPanic(name)
		fn()
	}()
}

func recoverPanic(name string) {
	if r := recover(); r != nil {
		logger.Get().WithFields(logrus.Fields{
			"task":  name,
			"panic": r,
			"stack": string(debug.Stack()),
		}).Error("goroutine: panic в фоновой задаче")
	}
}
