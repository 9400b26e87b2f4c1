// Package transport exposes the admin HTTP routes and gRPC services of a node.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	gwruntime "github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/goodnatureofminers/ledgerpod-backend/internal/model"
	"github.com/goodnatureofminers/ledgerpod-backend/internal/synchro"
	"github.com/goodnatureofminers/ledgerpod-backend/internal/synchro/blockchain"
)

// HealthService is the name the synchronization service reports its health under.
const HealthService = "ledgerpod.synchro"

const maxBodyBytes = 1 << 20

var errSyncRunning = errors.New("synchronization already running")

// AdminHandler serves the operator routes on a grpc-gateway mux.
type AdminHandler struct {
	ctx       context.Context
	service   SynchroService
	peers     PeerDirectory
	health    HealthChecker
	marshaler gwruntime.Marshaler
	logger    *zap.Logger

	wg      sync.WaitGroup
	running atomic.Bool
}

// NewAdminHandler returns a handler whose background runs stop with ctx.
func NewAdminHandler(ctx context.Context, service SynchroService, peers PeerDirectory, health HealthChecker, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		ctx:       ctx,
		service:   service,
		peers:     peers,
		health:    health,
		marshaler: &gwruntime.JSONBuiltin{},
		logger:    logger.Named("admin_handler"),
	}
}

// Register mounts the admin routes on mux.
func (h *AdminHandler) Register(mux *gwruntime.ServeMux) error {
	routes := []struct {
		method  string
		pattern string
		handle  gwruntime.HandlerFunc
	}{
		{http.MethodGet, "/healthz", h.healthz},
		{http.MethodGet, "/v1/live", h.livePeers},
		{http.MethodPost, "/v1/sync", h.syncAll},
		{http.MethodGet, "/v1/{currency}/progress", h.progress},
		{http.MethodGet, "/v1/{currency}/peers", h.listPeers},
		{http.MethodPost, "/v1/{currency}/blocks/sync", h.syncBlocks},
		{http.MethodPost, "/v1/{currency}/peers/sync", h.syncPeer},
	}
	for _, r := range routes {
		if err := mux.HandlePath(r.method, r.pattern, r.handle); err != nil {
			return fmt.Errorf("register %s %s: %w", r.method, r.pattern, err)
		}
	}
	return nil
}

// Wait blocks until background synchronizations started by the handler return.
func (h *AdminHandler) Wait() {
	h.wg.Wait()
}

type syncRequest struct {
	// Endpoint uses the peering format, e.g. "BMAS g1.example.org 443".
	Endpoint string  `json:"endpoint"`
	From     *uint64 `json:"from,omitempty"`
	To       *uint64 `json:"to,omitempty"`
}

type reportResponse struct {
	Currency     string           `json:"currency"`
	Peer         string           `json:"peer"`
	Status       model.SyncStatus `json:"status"`
	First        uint64           `json:"first"`
	Last         uint64           `json:"last"`
	ForkResolved bool             `json:"forkResolved"`
	ForkAncestor uint64           `json:"forkAncestor"`
	Rewound      bool             `json:"rewound"`
	Missing      string           `json:"missing,omitempty"`
	Error        string           `json:"error,omitempty"`
}

type resultResponse struct {
	Peer        string                       `json:"peer"`
	Total       model.ResultTotal            `json:"total"`
	Collections map[string]model.ResultTotal `json:"collections"`
	Error       string                       `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *AdminHandler) healthz(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	resp, err := h.health.Check(r.Context(), &grpc_health_v1.HealthCheckRequest{Service: HealthService})
	if err != nil {
		h.write(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}
	status := resp.GetStatus()
	code := http.StatusOK
	if status != grpc_health_v1.HealthCheckResponse_SERVING {
		code = http.StatusServiceUnavailable
	}
	h.write(w, code, map[string]string{"status": status.String()})
}

func (h *AdminHandler) livePeers(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
	h.write(w, http.StatusOK, map[string][]string{"peers": h.service.LivePeers()})
}

func (h *AdminHandler) progress(w http.ResponseWriter, _ *http.Request, params map[string]string) {
	h.write(w, http.StatusOK, h.service.Progress(params["currency"]))
}

func (h *AdminHandler) listPeers(w http.ResponseWriter, r *http.Request, params map[string]string) {
	peers, err := h.peers.Peers(r.Context(), params["currency"], r.URL.Query().Get("api"))
	if err != nil {
		h.write(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if peers == nil {
		peers = []model.Peer{}
	}
	h.write(w, http.StatusOK, peers)
}

// syncAll starts a full pass in the background. One pass runs at a time.
func (h *AdminHandler) syncAll(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
	if !h.running.CompareAndSwap(false, true) {
		h.write(w, http.StatusConflict, errorResponse{Error: errSyncRunning.Error()})
		return
	}
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer h.running.Store(false)
		if err := h.service.SynchronizeAll(h.ctx); err != nil {
			h.logger.Warn("requested synchronization finished with errors", zap.Error(err))
		}
	}()
	h.write(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (h *AdminHandler) syncBlocks(w http.ResponseWriter, r *http.Request, params map[string]string) {
	req, p, ok := h.decodeSync(w, r, params["currency"], model.BasicMerkledAPI)
	if !ok {
		return
	}

	var (
		report blockchain.Report
		err    error
	)
	switch {
	case req.From != nil && req.To != nil:
		report, err = h.service.SyncBlockRange(r.Context(), p, *req.From, *req.To)
	case req.From != nil || req.To != nil:
		h.write(w, http.StatusBadRequest, errorResponse{Error: "from and to must be set together"})
		return
	default:
		report, err = h.service.SyncBlocks(r.Context(), p)
	}

	resp := reportResponse{
		Currency:     report.Currency,
		Peer:         report.Peer,
		Status:       report.Status,
		First:        report.First,
		Last:         report.Last,
		ForkResolved: report.Fork.Resolved,
		ForkAncestor: report.Fork.Ancestor,
		Rewound:      report.Fork.Rewound,
	}
	if report.Missing != nil && !report.Missing.IsEmpty() {
		resp.Missing = report.Missing.String()
	}
	code := http.StatusOK
	if err != nil {
		resp.Error = err.Error()
		code = statusOf(err)
	}
	h.write(w, code, resp)
}

func (h *AdminHandler) syncPeer(w http.ResponseWriter, r *http.Request, params map[string]string) {
	_, p, ok := h.decodeSync(w, r, params["currency"], "")
	if !ok {
		return
	}
	result, err := h.service.SynchronizePeer(r.Context(), p)
	resp := resultResponse{Peer: p.String(), Collections: map[string]model.ResultTotal{}}
	if result != nil {
		resp.Total = result.Totals()
		for _, key := range result.Collections() {
			resp.Collections[key] = result.Collection(key)
		}
	}
	code := http.StatusOK
	if err != nil {
		resp.Error = err.Error()
		code = statusOf(err)
	}
	h.write(w, code, resp)
}

// decodeSync reads a sync request and resolves its peer. wantAPI restricts the endpoint API when set.
func (h *AdminHandler) decodeSync(w http.ResponseWriter, r *http.Request, currency, wantAPI string) (syncRequest, model.Peer, bool) {
	var req syncRequest
	if err := h.marshaler.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.write(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("decode request: %v", err)})
		return req, model.Peer{}, false
	}
	p, err := model.ParseEndpoint(currency, "", req.Endpoint)
	if err != nil {
		h.write(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return req, model.Peer{}, false
	}
	if wantAPI != "" && p.API != wantAPI {
		h.write(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("endpoint api %s, want %s", p.API, wantAPI)})
		return req, model.Peer{}, false
	}
	return req, p, true
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, synchro.ErrBlocksDisabled):
		return http.StatusNotImplemented
	case errors.Is(err, synchro.ErrIncompatiblePeer):
		return http.StatusConflict
	case errors.Is(err, blockchain.ErrForkUnresolved), errors.Is(err, blockchain.ErrBlocksMissing):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *AdminHandler) write(w http.ResponseWriter, code int, v any) {
	body, err := h.marshaler.Marshal(v)
	if err != nil {
		h.logger.Error("encode response", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", h.marshaler.ContentType(v))
	w.WriteHeader(code)
	_, _ = w.Write(body)
}
