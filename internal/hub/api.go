package hub

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/lebduska/blendmate/internal/assist"
	"github.com/lebduska/blendmate/internal/bridge"
	"github.com/lebduska/blendmate/internal/fileinfo"
)

// httpParts carries the server plumbing so hub.go stays about fan-out.
type httpParts struct {
	upgrader websocket.Upgrader
	srv      *http.Server

	lnMu sync.Mutex
	ln   net.Listener
}

func (h *Hub) initHTTP() {
	h.upgrader = websocket.Upgrader{CheckOrigin: checkOrigin}
	mux := http.NewServeMux()
	h.SetupRoutes(mux)
	h.srv = &http.Server{Handler: mux}
}

func (h *Hub) closeHTTP() error {
	return h.srv.Close()
}

func (h *Hub) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", h.handleWS)
	mux.HandleFunc("/api/send", localOnly(h.handleSend))
	mux.HandleFunc("/api/status", localOnly(h.handleStatus))
	mux.HandleFunc("/api/file-info", localOnly(h.handleFileInfo))
	mux.HandleFunc("/api/assist", localOnly(h.handleAssist))
}

// ListenAndServe binds the UI address and serves websocket and API
// traffic until Close.
func (h *Hub) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", addr, err)
	}

	h.lnMu.Lock()
	h.ln = ln
	h.lnMu.Unlock()

	log.Printf("[hub] listening on http://%s", ln.Addr())
	if err := h.srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the bound UI address, or nil before a successful bind.
func (h *Hub) Addr() net.Addr {
	h.lnMu.Lock()
	defer h.lnMu.Unlock()
	if h.ln == nil {
		return nil
	}
	return h.ln.Addr()
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[hub] ws upgrade error: %v", err)
		return
	}

	c, err := h.addClient(conn)
	if err != nil {
		conn.Close()
		return
	}
	log.Printf("[hub] ui client connected: %s", r.RemoteAddr)

	// UI clients never send application data; drain the read side so
	// control frames are processed and disconnects are noticed.
	go func() {
		defer func() {
			h.removeClient(c)
			log.Printf("[hub] ui client disconnected: %s", r.RemoteAddr)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

type sendRequest struct {
	Text string `json:"text"`
}

// extractPayload accepts either a {"text": ...} wrapper or a bare
// envelope posted directly, telling them apart by the type field.
func extractPayload(body []byte) (string, error) {
	var req sendRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return "", errors.New("invalid request body")
	}
	if req.Text != "" {
		return req.Text, nil
	}

	var peek struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(body, &peek); err == nil && peek.Type != "" {
		return string(body), nil
	}
	return "", errors.New("text must not be empty")
}

func (h *Hub) handleSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	payload, err := extractPayload(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sender := h.currentSender()
	if sender == nil {
		http.Error(w, "relay not ready", http.StatusServiceUnavailable)
		return
	}

	if err := sender.Send(payload); err != nil {
		if errors.Is(err, bridge.ErrNoConnection) {
			http.Error(w, "no addon connected", http.StatusConflict)
			return
		}
		http.Error(w, fmt.Sprintf("send failed: %v", err), http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statusResponse struct {
	Bridge  string `json:"bridge"`
	Clients int    `json:"clients"`
}

func (h *Hub) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := bridge.StatusDisconnected
	if sender := h.currentSender(); sender != nil && sender.Connected() {
		status = bridge.StatusConnected
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(statusResponse{
		Bridge:  status,
		Clients: h.ClientCount(),
	})
}

func (h *Hub) handleFileInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := r.URL.Query().Get("path")
	if path == "" {
		http.Error(w, "path query parameter required", http.StatusBadRequest)
		return
	}

	info, err := fileinfo.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			http.Error(w, "file not found", http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("stat failed: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
}

type assistRequest struct {
	Prompt string `json:"prompt"`
}

func (h *Hub) handleAssist(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.runner == nil {
		http.Error(w, "assist not configured", http.StatusServiceUnavailable)
		return
	}

	var req assistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	res, err := h.runner.Run(r.Context(), req.Prompt)
	if err != nil {
		switch {
		case errors.Is(err, assist.ErrEmptyPrompt):
			http.Error(w, "prompt must not be empty", http.StatusBadRequest)
		case errors.Is(err, assist.ErrNotInstalled):
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		case errors.Is(err, assist.ErrTimeout):
			http.Error(w, "assist timed out", http.StatusGatewayTimeout)
		default:
			http.Error(w, fmt.Sprintf("assist failed: %v", err), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

// checkOrigin admits native clients (no Origin header) and loopback
// pages; the hub is a local-only surface. The Host header is held to
// the same rule, so a DNS name rebound to 127.0.0.1 cannot carry a
// browser past an Origin-only check.
func checkOrigin(r *http.Request) bool {
	if !loopbackHost(r.Host) {
		return false
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	return loopbackHost(parsed.Host)
}

// localOnly applies the upgrader's origin policy to a REST handler.
// Browsers reach loopback ports from foreign pages without a preflight,
// so the API routes need the same gate as /ws.
func localOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !checkOrigin(r) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

// loopbackHost reports whether a Host header or Origin host names this
// machine, with or without a port.
func loopbackHost(hostport string) bool {
	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}
	if ip := net.ParseIP(strings.Trim(host, "[]")); ip != nil {
		return ip.IsLoopback()
	}
	return strings.EqualFold(host, "localhost")
}
