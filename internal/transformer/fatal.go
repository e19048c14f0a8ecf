package transformer

import "sync"

// fatalChannel — одноразовый канал неустранимых ошибок.
// Fire фиксирует первую ошибку и закрывает Done; остальные игнорируются.
// Подписчика уведомляет deliver: движок вызывает его, когда уже перешёл в Stopped.
type fatalChannel struct {
	once    sync.Once
	deliver sync.Once
	done    chan struct{}
	err     error
	notify  func(error)
}

func newFatalChannel(notify func(error)) *fatalChannel {
	return &fatalChannel{done: make(chan struct{}), notify: notify}
}

// Fire возвращает true только для первой ошибки.
func (f *fatalChannel) Fire(err error) bool {
	fired := false
	f.once.Do(func() {
		f.err = err
		fired = true
		close(f.done)
	})
	return fired
}

// Deliver — ровно одно уведомление подписчика, если ошибка была.
func (f *fatalChannel) Deliver() {
	err := f.Err()
	if err == nil || f.notify == nil {
		return
	}
	f.deliver.Do(func() { f.notify(err) })
}

func (f *fatalChannel) Done() <-chan struct{} { return f.done }

func (f *fatalChannel) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}
