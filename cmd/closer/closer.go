package closer

import (
	"sync"

	"go.uber.org/zap"
)

// Closer is Closer inferface
type Closer interface {
	Close() error
}

// CloserFunc adapts a function to Closer
type CloserFunc func() error

func (f CloserFunc) Close() error {
	return f()
}

// Manager closes registered closers in reverse order of registration
type Manager struct {
	sync.Mutex
	isClosed bool
	names    []string
	closers  []Closer
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// NewManager returns a Manager
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	cm := &Manager{
		logger: logger,
	}
	cm.wg.Add(1)
	return cm
}

// IsClosed returns it is closed or not
func (cm *Manager) IsClosed() bool {
	cm.Lock()
	defer cm.Unlock()
	return cm.isClosed
}

// Add adds a closer with a name
func (cm *Manager) Add(Name string, c Closer) {
	cm.Lock()
	defer cm.Unlock()
	cm.names = append(cm.names, Name)
	cm.closers = append(cm.closers, c)
}

// CloseAll closers all closers and returns the first error
func (cm *Manager) CloseAll() error {
	cm.Lock()
	defer cm.Unlock()
	if cm.isClosed {
		return nil
	}
	cm.isClosed = true
	var first error
	for i := len(cm.closers) - 1; i >= 0; i-- {
		err := cm.closers[i].Close()
		cm.logger.Info("close", zap.String("name", cm.names[i]), zap.Error(err))
		if err != nil && first == nil {
			first = err
		}
	}
	cm.wg.Done()
	return first
}

// Wait waits close all
func (cm *Manager) Wait() {
	cm.wg.Wait()
}
