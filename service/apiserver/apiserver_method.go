package apiserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const workerCount = 8

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type ReqData struct {
	req   *jRPCRequest
	resCh chan *JRPCResponse
}

func (s *APIServer) routes(gatherer prometheus.Gatherer) {
	s.e.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig))
	s.e.POST("/api/endpoints/http", func(c echo.Context) error {
		defer c.Request().Body.Close()
		dec := json.NewDecoder(c.Request().Body)
		dec.UseNumber()

		var req jRPCRequest
		if err := dec.Decode(&req); err != nil {
			return c.JSON(http.StatusBadRequest, &JRPCResponse{
				JSONRPC: "2.0",
				Error:   ErrInvalidRequest.Error(),
			})
		}
		res, err := s.dispatch(&req)
		if err != nil {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		if res == nil {
			return c.NoContent(http.StatusOK)
		}
		return c.JSON(http.StatusOK, res)
	})
	s.e.GET("/api/endpoints/websocket", func(c echo.Context) error {
		conn, err := upgrader.Upgrade(c.Response().Writer, c.Request(), nil)
		if err != nil {
			return err
		}
		defer conn.Close()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return nil
				}
				return err
			}
			dec := json.NewDecoder(bytes.NewReader(data))
			dec.UseNumber()

			var req jRPCRequest
			if err := dec.Decode(&req); err != nil {
				return err
			}
			res, err := s.dispatch(&req)
			if err != nil {
				return err
			}
			if res != nil {
				if err := conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
					return err
				}
				if err := conn.WriteJSON(res); err != nil {
					return err
				}
			}
		}
	})
	if gatherer != nil {
		s.e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
}

// dispatch hands req to a worker and waits for its response
func (s *APIServer) dispatch(req *jRPCRequest) (*JRPCResponse, error) {
	r := &ReqData{
		req:   req,
		resCh: make(chan *JRPCResponse, 1),
	}
	select {
	case <-s.done:
		return nil, ErrClosed
	default:
	}
	select {
	case s.reqCh <- r:
	case <-s.done:
		return nil, ErrClosed
	}
	return <-r.resCh, nil
}

func (s *APIServer) worker() {
	for {
		select {
		case r := <-s.reqCh:
			r.resCh <- s.handleJRPC(r.req)
		case <-s.done:
			return
		}
	}
}

// JRPC provides the json rpc feature as a SubName.FunctionName methods
func (s *APIServer) JRPC(SubName string) (*JRPCSub, error) {
	s.Lock()
	defer s.Unlock()

	if _, has := s.subMap[SubName]; has {
		return nil, ErrExistSubName
	}
	js := NewJRPCSub()
	s.subMap[SubName] = js
	return js, nil
}

func (s *APIServer) handleJRPC(req *jRPCRequest) *JRPCResponse {
	ls := strings.SplitN(req.Method, ".", 2)
	if len(ls) != 2 {
		return s.errorResponse(req, ErrInvalidMethod)
	}

	s.Lock()
	sub, has := s.subMap[ls[0]]
	s.Unlock()
	if !has {
		return s.errorResponse(req, ErrInvalidMethod)
	}

	sub.Lock()
	fn, has := sub.funcMap[ls[1]]
	sub.Unlock()
	if !has {
		return s.errorResponse(req, ErrInvalidMethod)
	}

	ret, err := fn(req.ID, NewArgument(req.Params))
	if req.ID == nil {
		return nil
	}
	if err != nil {
		s.logger.Debug("call failed", zap.String("method", req.Method), zap.Error(err))
		return s.errorResponse(req, err)
	}
	return &JRPCResponse{
		JSONRPC: req.JSONRPC,
		ID:      req.ID,
		Result:  ret,
	}
}

// errorResponse is nil for notifications
func (s *APIServer) errorResponse(req *jRPCRequest, err error) *JRPCResponse {
	if req.ID == nil {
		return nil
	}
	res := &JRPCResponse{
		JSONRPC: req.JSONRPC,
		ID:      req.ID,
	}
	if ce, is := err.(codedError); is {
		res.Error = &JRPCError{
			Code:    ce.ErrorCode(),
			Message: ce.Error(),
			Data:    ce.ErrorData(),
		}
	} else {
		res.Error = err.Error()
	}
	return res
}
