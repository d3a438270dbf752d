package apiserver

import (
	"context"
	"sync"

	"github.com/labstack/echo"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// APIServer provides json rpc over http and websocket for pool views
type APIServer struct {
	sync.Mutex
	e      *echo.Echo
	subMap map[string]*JRPCSub
	logger *zap.Logger

	reqCh chan *ReqData
	done  chan struct{}
	once  sync.Once
}

// NewAPIServer returns a APIServer. When gatherer is not nil its metrics
// are served at /metrics.
func NewAPIServer(logger *zap.Logger, gatherer prometheus.Gatherer) *APIServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	s := &APIServer{
		e:      e,
		subMap: map[string]*JRPCSub{},
		logger: logger.Named("apiserver"),
		reqCh:  make(chan *ReqData),
		done:   make(chan struct{}),
	}
	s.routes(gatherer)
	for i := 0; i < workerCount; i++ {
		go s.worker()
	}
	return s
}

// Name returns the name of the service
func (s *APIServer) Name() string {
	return "stableswap.apiserver"
}

// Run starts web service of the apiserver and blocks until it stops
func (s *APIServer) Run(BindAddress string) error {
	s.logger.Info("listen", zap.String("addr", BindAddress))
	return s.e.Start(BindAddress)
}

// Shutdown stops the listener and the request workers
func (s *APIServer) Shutdown(ctx context.Context) error {
	s.once.Do(func() {
		close(s.done)
	})
	return s.e.Shutdown(ctx)
}
