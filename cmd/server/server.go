package main

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/nickyhof/CommitView"
	"github.com/nickyhof/CommitView/attrs"
	"github.com/nickyhof/CommitView/config"
	"github.com/nickyhof/CommitView/core"
	"github.com/nickyhof/CommitView/ps"
	"github.com/nickyhof/CommitView/viewer"
)

var (
	requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "commitview",
		Subsystem: "server",
		Name:      "requests_total",
		Help:      "Requests by operation and outcome.",
	}, []string{"op", "status"})

	connections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "commitview",
		Subsystem: "server",
		Name:      "connections",
		Help:      "Open client connections.",
	})
)

// Server is a TCP server that gives every connection a viewer mirroring
// one shared primary viewer.
type Server struct {
	listener   net.Listener
	instance   *CommitView.Instance
	identity   core.Identity
	auth       *authenticator
	logger     *zap.Logger
	tlsEnabled bool

	// primary owns the loaded dataset; loadMu serializes loads into it.
	primary *viewer.Viewer
	loadMu  sync.Mutex

	metrics         *http.Server
	metricsListener net.Listener

	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewServer creates a server that records layouts under identity.
func NewServer(instance *CommitView.Instance, identity core.Identity) *Server {
	logger := instance.Logger.Named("server")
	primary := instance.NewViewer(viewer.WithOutput(io.Discard), viewer.WithID("primary"))
	primary.SetAttribute(attrs.View, "json")
	return &Server{
		instance: instance,
		identity: identity,
		logger:   logger,
		primary:  primary,
		conns:    map[net.Conn]struct{}{},
		done:     make(chan struct{}),
	}
}

// NewServerWithAuth creates a server that requires a JWT handshake when
// cfg is enabled. Authenticated connections save layouts under the identity
// carried by their token.
func NewServerWithAuth(instance *CommitView.Instance, cfg config.AuthConfig) *Server {
	s := NewServer(instance, instance.Identity)
	if cfg.Enabled {
		s.auth = newAuthenticator(cfg)
	}
	return s
}

// Primary returns the viewer that owns the loaded dataset.
func (s *Server) Primary() *viewer.Viewer {
	return s.primary
}

// Start begins listening for connections on the specified address.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.serve(listener)
	return nil
}

// StartTLS begins listening for TLS connections using the given certificate
// and key files.
func (s *Server) StartTLS(addr, certFile, keyFile string) error {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return fmt.Errorf("failed to load TLS certificate: %w", err)
	}
	listener, err := tls.Listen("tcp", addr, &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	})
	if err != nil {
		return fmt.Errorf("failed to start TLS server: %w", err)
	}
	s.tlsEnabled = true
	s.serve(listener)
	return nil
}

func (s *Server) serve(listener net.Listener) {
	s.listener = listener
	s.logger.Info("viewer server listening",
		zap.String("addr", listener.Addr().String()),
		zap.Bool("tls", s.tlsEnabled))
	go s.acceptLoop()
}

// StartMetrics serves the Prometheus registry over HTTP at /metrics.
func (s *Server) StartMetrics(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	s.metrics = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	s.metricsListener = listener
	go func() {
		if err := s.metrics.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	s.logger.Info("metrics listening", zap.String("addr", listener.Addr().String()))
	return nil
}

// TLSEnabled reports whether the server accepts TLS connections.
func (s *Server) TLSEnabled() bool {
	return s.tlsEnabled
}

// Stop closes the listener and every open connection, waits for their
// handlers and releases the primary viewer.
func (s *Server) Stop() error {
	var errs error
	s.stopOnce.Do(func() {
		close(s.done)
		if s.listener != nil {
			errs = multierr.Append(errs, s.listener.Close())
		}

		s.mu.Lock()
		for conn := range s.conns {
			conn.Close()
		}
		s.mu.Unlock()
		s.wg.Wait()

		if s.metrics != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			errs = multierr.Append(errs, s.metrics.Shutdown(ctx))
			cancel()
		}
		errs = multierr.Append(errs, s.primary.Delete())
	})
	return errs
}

// Addr returns the server's listening address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// MetricsAddr returns the metrics listener address, or "" when metrics are
// not served.
func (s *Server) MetricsAddr() string {
	if s.metricsListener == nil {
		return ""
	}
	return s.metricsListener.Addr().String()
}

// LoadData reads path and loads it into the primary viewer and, through it,
// into every connected viewer. A non-empty index names the primary key
// column of the new table.
func (s *Server) LoadData(ctx context.Context, path, index string) (LoadResponse, error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	start := time.Now()
	data, err := s.instance.LoadData(ctx, path)
	if err != nil {
		return LoadResponse{}, err
	}
	if index != "" {
		s.primary.SetAttribute(attrs.Index, index)
	}
	if err := s.primary.Load(ctx, data); err != nil {
		return LoadResponse{}, err
	}
	s.logger.Info("dataset loaded",
		zap.String("path", path),
		zap.Int("rows", data.Len()),
		zap.Int("slaves", len(s.primary.Slaves())))
	return LoadResponse{
		Rows:    data.Len(),
		Columns: data.Columns,
		TimeMs:  float64(time.Since(start).Microseconds()) / 1000,
	}, nil
}

func (s *Server) authRequired() bool {
	return s.auth != nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				s.logger.Warn("accept error", zap.Error(err))
				continue
			}
		}

		s.mu.Lock()
		select {
		case <-s.done:
			s.mu.Unlock()
			conn.Close()
			return
		default:
		}
		s.conns[conn] = struct{}{}
		s.wg.Add(1)
		s.mu.Unlock()
		go s.handleConnection(conn)
	}
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	conn.Close()
}

// syncWriter serializes responses and plugin output on one connection.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.w.Write(p)
}

// session is the state of one client connection.
type session struct {
	server *Server
	id     string
	out    *syncWriter
	grant  *grant
	viewer *viewer.Viewer
	logger *zap.Logger
}

// attach creates the connection's viewer and makes it a slave of the
// primary, which renders the current dataset straight away.
func (sess *session) attach(ctx context.Context) error {
	v := sess.server.instance.NewViewer(
		viewer.WithOutput(sess.out),
		viewer.WithID(sess.id),
	)
	v.SetAttribute(attrs.View, "json")
	sess.viewer = v
	return v.Copy(ctx, sess.server.primary)
}

func (sess *session) close() error {
	if sess.viewer == nil {
		return nil
	}
	return sess.viewer.Delete()
}

func (sess *session) identity() core.Identity {
	if sess.grant != nil {
		return sess.grant.identity
	}
	return sess.server.identity
}

func (sess *session) send(resp Response) error {
	data, err := EncodeResponse(resp)
	if err != nil {
		return err
	}
	_, err = sess.out.Write(data)
	return err
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer s.untrack(conn)

	connections.Inc()
	defer connections.Dec()

	sess := &session{
		server: s,
		id:     uuid.NewString(),
		out:    &syncWriter{w: conn},
	}
	sess.logger = s.logger.With(zap.String("conn", sess.id), zap.Stringer("remote", conn.RemoteAddr()))
	ctx, cancel := context.WithCancel(core.WithLogger(context.Background(), sess.logger, sess.id))
	defer cancel()
	defer func() {
		if err := sess.close(); err != nil {
			sess.logger.Warn("releasing viewer", zap.Error(err))
		}
	}()

	sess.logger.Info("client connected")
	if !s.authRequired() {
		if err := sess.attach(ctx); err != nil {
			sess.logger.Warn("attaching viewer", zap.Error(err))
		}
	}

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				select {
				case <-s.done:
				default:
					sess.logger.Warn("read error", zap.Error(err))
				}
			}
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "quit") || strings.EqualFold(line, "exit") {
			sess.logger.Info("client disconnected")
			return
		}

		if isAuthCommand(line) {
			resp := s.handleAuth(line, sess)
			if err := sess.send(resp); err != nil {
				sess.logger.Warn("write error", zap.Error(err))
				return
			}
			if resp.Success && sess.viewer == nil {
				if err := sess.attach(ctx); err != nil {
					sess.logger.Warn("attaching viewer", zap.Error(err))
				}
			}
			continue
		}

		var resp Response
		if s.authRequired() && !sess.grant.valid(time.Now()) {
			resp = errResponse("", errAuthRequired)
		} else {
			resp = sess.execute(ctx, line)
		}
		status := "ok"
		if !resp.Success {
			status = "error"
		}
		requests.WithLabelValues(resp.Type, status).Inc()

		if err := sess.send(resp); err != nil {
			sess.logger.Warn("write error", zap.Error(err))
			return
		}
	}
}

// execute runs one request against the connection's viewer. View output
// produced by the request is written before the response.
func (sess *session) execute(ctx context.Context, line string) Response {
	req, err := DecodeRequest([]byte(line))
	if err != nil {
		return errResponse("error", err)
	}
	v := sess.viewer
	if v == nil {
		return errResponse(req.Op, errors.New("no viewer attached"))
	}
	layouts := sess.server.instance.Layouts

	switch req.Op {
	case OpSet:
		if req.Name == "" {
			return errResponse(req.Op, errors.New("set needs an attribute name"))
		}
		v.SetAttribute(req.Name, req.Value)
		return okResponse(req.Op, nil)

	case OpRemove:
		v.RemoveAttribute(req.Name)
		return okResponse(req.Op, nil)

	case OpFilter:
		return result(req.Op, nil, v.SetFilter(req.Value))

	case OpToggle:
		return result(req.Op, nil, v.ToggleColumn(req.Column, req.Shift))

	case OpPivot:
		return result(req.Op, nil, v.DropColumn(target(req), req.Column))

	case OpUnpivot:
		return result(req.Op, nil, v.RemoveAt(target(req), req.Index))

	case OpAggregate:
		return result(req.Op, nil, v.SetAggregate(req.Column, req.Value))

	case OpRender:
		return result(req.Op, nil, v.Render(ctx))

	case OpSave:
		return okResponse(req.Op, v.Save())

	case OpRestore:
		v.Restore(req.Attributes)
		return result(req.Op, nil, v.Render(ctx))

	case OpLayoutSave:
		txn, err := layouts.SaveLayout(req.Name, v.Save(), sess.identity())
		if err != nil {
			return errResponse(req.Op, err)
		}
		sess.logger.Info("layout saved", zap.String("layout", req.Name), zap.String("txn", txn.Id))
		return okResponse(req.Op, transactionResponse(txn))

	case OpLayoutLoad:
		return result(req.Op, nil, sess.server.instance.RestoreLayout(ctx, v, req.Name, req.Rev))

	case OpLayouts:
		names, err := layouts.ListLayouts()
		return result(req.Op, names, err)

	case OpHistory:
		txns, err := layouts.LayoutHistory(req.Name)
		if err != nil {
			return errResponse(req.Op, err)
		}
		history := make([]TransactionResponse, len(txns))
		for i, txn := range txns {
			history[i] = transactionResponse(txn)
		}
		return okResponse(req.Op, history)

	case OpLoad:
		if req.Path == "" {
			return errResponse(req.Op, errors.New("load needs a path"))
		}
		loaded, err := sess.server.LoadData(ctx, req.Path, req.IndexColumn)
		return result(req.Op, loaded, err)

	default:
		return errResponse(req.Op, fmt.Errorf("unknown op %q", req.Op))
	}
}

func result(op string, value any, err error) Response {
	if err != nil {
		return errResponse(op, err)
	}
	return okResponse(op, value)
}

func target(req Request) string {
	if req.Target == "" {
		return attrs.RowPivots
	}
	return req.Target
}

func transactionResponse(txn ps.Transaction) TransactionResponse {
	return TransactionResponse{
		Id:      txn.Id,
		Author:  txn.Author,
		Message: txn.Message,
		When:    txn.When,
	}
}
