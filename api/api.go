package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/asticode/go-astiglove"
	"github.com/asticode/go-astiglove/recorder"
	"github.com/asticode/go-astilog"
	astihttp "github.com/asticode/go-astitools/http"
	"github.com/asticode/go-astiws"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
)

// Server patterns
const (
	patternAPI = "/api"
)

// Websocket events
const (
	websocketEventNamePing = "ping"
)

// Defaults
const (
	defaultMaxMessageSize = 4096
	maxResults            = 50
)

// Options represents API options
type Options struct {
	ListenAddr     string        `toml:"listen_addr"`
	MaxMessageSize int           `toml:"max_message_size"`
	Password       string        `toml:"password"`
	Timeout        time.Duration `toml:"timeout"`
	Username       string        `toml:"username"`
}

// Recorder is the part of the recorder the API needs
type Recorder interface {
	Inject(line string) bool
	Status() recorder.Status
}

// Server exposes the recorder state and forwards events to websocket clients
type Server struct {
	canDelete bool
	h         http.Handler
	lastSeq   *Sequence
	m         *sync.Mutex // Locks lastSeq and results
	mode      string
	o         Options
	r         Recorder
	results   []astiglove.Outcome
	ws        *astiws.Manager
}

// Sequence is the last resampled sequence
type Sequence struct {
	AttemptID string            `json:"attempt_id"`
	Frames    []astiglove.Frame `json:"frames"`
}

// Status is the body of the status route
type Status struct {
	CanDelete bool            `json:"can_delete"`
	Mode      string          `json:"mode"`
	Recorder  recorder.Status `json:"recorder"`
}

// New creates a new server. Deletions can only be requested when canDelete
// is true.
func New(o Options, mode string, r Recorder, canDelete bool) (s *Server) {
	// Default options
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = defaultMaxMessageSize
	}

	// Create server
	s = &Server{
		canDelete: canDelete,
		m:         &sync.Mutex{},
		mode:      mode,
		o:         o,
		r:         r,
		ws:        astiws.NewManager(astiws.ManagerConfiguration{MaxMessageSize: o.MaxMessageSize}),
	}

	// Init router
	rt := httprouter.New()

	// Websockets
	rt.GET("/websocket", s.handleWebsocketGET)

	// API
	rt.GET(patternAPI+"/ok", s.handleOKGET)
	rt.GET(patternAPI+"/status", s.handleStatusGET)
	rt.GET(patternAPI+"/results", s.handleResultsGET)
	rt.DELETE(patternAPI+"/artifacts/latest", s.handleArtifactsLatestDELETE)
	rt.GET(patternAPI+"/gestures/last/chart", s.handleGesturesLastChartGET)

	// Chain middlewares
	var h http.Handler = rt
	if len(o.Username) > 0 && len(o.Password) > 0 {
		h = astihttp.ChainMiddlewares(h, astihttp.MiddlewareBasicAuth(o.Username, o.Password))
	}
	if o.Timeout > 0 {
		h = astihttp.ChainMiddlewaresWithPrefix(h, []string{patternAPI + "/"}, astihttp.MiddlewareTimeout(o.Timeout))
	}
	h = astihttp.ChainMiddlewaresWithPrefix(h, []string{patternAPI + "/"}, astihttp.MiddlewareContentType("application/json"))
	s.h = h
	return
}

// Handler returns the server handler
func (s *Server) Handler() http.Handler { return s.h }

// Close implements the io.Closer interface
func (s *Server) Close() (err error) {
	astilog.Debug("api: closing ws")
	if err = s.ws.Close(); err != nil {
		err = errors.Wrap(err, "api: closing ws failed")
		return
	}
	return
}

// HandleEvent implements the astiglove.Listener signature
func (s *Server) HandleEvent(e astiglove.Event) error {
	// Store
	switch e.Name {
	case astiglove.EventNameAttemptEnded:
		if e.Outcome == nil {
			return nil
		}
		s.m.Lock()
		s.results = append(s.results, *e.Outcome)
		if len(s.results) > maxResults {
			s.results = s.results[len(s.results)-maxResults:]
		}
		s.m.Unlock()
	case astiglove.EventNameSequenceResampled:
		seq := &Sequence{Frames: e.Sequence}
		if e.Attempt != nil {
			seq.AttemptID = e.Attempt.ID
		}
		s.m.Lock()
		s.lastSeq = seq
		s.m.Unlock()
		return nil
	}

	// Broadcast
	s.ws.Clients(func(k interface{}, c *astiws.Client) error {
		if err := c.Write(e.Name, e); err != nil {
			astilog.Error(errors.Wrapf(err, "api: writing %s event to ws client %s failed", e.Name, k))
		}
		return nil
	})
	return nil
}

func clientName(c *astiws.Client) string {
	return fmt.Sprintf("%p", c)
}

func (s *Server) handleWebsocketGET(rw http.ResponseWriter, r *http.Request, p httprouter.Params) {
	if err := s.ws.ServeHTTP(rw, r, s.adaptWebsocketClient); err != nil {
		if v, ok := errors.Cause(err).(*websocket.CloseError); !ok || (v.Code != websocket.CloseNoStatusReceived && v.Code != websocket.CloseNormalClosure) {
			astilog.Error(errors.Wrap(err, "api: handling websocket failed"))
		}
		return
	}
}

func (s *Server) adaptWebsocketClient(c *astiws.Client) error {
	// Set listeners
	name := clientName(c)
	c.SetListener(astiws.EventNameDisconnect, func(_ *astiws.Client, _ string, _ json.RawMessage) error {
		s.ws.UnregisterClient(name)
		astilog.Debugf("api: ws client %s has disconnected", name)
		return nil
	})
	c.SetListener(websocketEventNamePing, s.handleWebsocketPing)

	// Register client
	s.ws.RegisterClient(name, c)
	astilog.Debugf("api: ws client %s has connected", name)
	return nil
}

func (s *Server) handleWebsocketPing(c *astiws.Client, _ string, _ json.RawMessage) error {
	if err := c.ExtendConnection(); err != nil {
		astilog.Error(errors.Wrap(err, "api: extending connection failed"))
	}
	return nil
}

func (s *Server) handleOKGET(rw http.ResponseWriter, r *http.Request, p httprouter.Params) {}

func (s *Server) handleStatusGET(rw http.ResponseWriter, r *http.Request, p httprouter.Params) {
	astiglove.WriteHTTPData(rw, Status{
		CanDelete: s.canDelete,
		Mode:      s.mode,
		Recorder:  s.r.Status(),
	})
}

func (s *Server) handleResultsGET(rw http.ResponseWriter, r *http.Request, p httprouter.Params) {
	// Copy results
	s.m.Lock()
	rs := append([]astiglove.Outcome{}, s.results...)
	s.m.Unlock()

	// Write
	astiglove.WriteHTTPData(rw, rs)
}

func (s *Server) handleArtifactsLatestDELETE(rw http.ResponseWriter, r *http.Request, p httprouter.Params) {
	// Deletions are not allowed
	if !s.canDelete {
		astiglove.WriteHTTPError(rw, http.StatusMethodNotAllowed, errors.Errorf("api: deletions are not allowed in %s mode", s.mode))
		return
	}

	// Inject
	if !s.r.Inject(astiglove.SignalDelete.Token()) {
		astiglove.WriteHTTPError(rw, http.StatusServiceUnavailable, errors.New("api: recorder is busy"))
		return
	}
	rw.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleGesturesLastChartGET(rw http.ResponseWriter, r *http.Request, p httprouter.Params) {
	// Get last sequence
	s.m.Lock()
	seq := s.lastSeq
	s.m.Unlock()

	// No sequence
	if seq == nil {
		astiglove.WriteHTTPError(rw, http.StatusNotFound, errors.New("api: no sequence yet"))
		return
	}

	// Write
	astiglove.WriteHTTPData(rw, newChart(*seq))
}
