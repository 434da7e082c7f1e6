package preview

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/avkit/framesink/internal/logger"
	"github.com/avkit/framesink/sink"
)

// Server streams the presented canvas as Motion JPEG over HTTP and exposes
// a small control API plus a websocket stats feed.
type Server struct {
	router   *mux.Router
	producer *sink.Producer
	upgrader websocket.Upgrader

	clientsMu sync.RWMutex
	clients   map[chan []byte]struct{}

	mu         sync.RWMutex
	frameCount uint64
	startTime  time.Time
	lastUpdate time.Time
}

// Stats is the snapshot served over /api/status and the websocket feed.
type Stats struct {
	Frames      uint64  `json:"frames"`
	FPS         float64 `json:"fps"`
	Clients     int     `json:"clients"`
	ForceAspect bool    `json:"force_aspect"`
	DarN        int     `json:"dar_n"`
	DarD        int     `json:"dar_d"`
	LastUpdate  string  `json:"last_update"`
}

// NewServer creates a preview server controlling the given producer.
func NewServer(producer *sink.Producer) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		producer: producer,
		clients:  make(map[chan []byte]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // local preview only
			},
		},
		startTime: time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/aspect", s.handleGetAspect).Methods("GET")
	api.HandleFunc("/aspect", s.handleSetAspect).Methods("POST")
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebsocket)
	s.router.HandleFunc("/stream", s.handleStream)
	s.router.HandleFunc("/", s.handleIndex)
}

// Start starts the HTTP server
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	logger.WithComponent("preview").Info().Str("addr", addr).Msg("Preview server listening")
	return http.ListenAndServe(addr, s.router)
}

// Publish encodes the canvas as JPEG and broadcasts it to all connected
// stream clients. Slow clients skip frames rather than block the render
// loop.
func (s *Server) Publish(frame *image.RGBA) {
	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, frame, &jpeg.Options{Quality: 90}); err != nil {
		logger.WithComponent("preview").Error().Err(err).Msg("Failed to encode JPEG")
		return
	}
	jpegData := buf.Bytes()

	s.mu.Lock()
	s.frameCount++
	s.lastUpdate = time.Now()
	s.mu.Unlock()

	s.clientsMu.RLock()
	for ch := range s.clients {
		select {
		case ch <- jpegData:
		default:
		}
	}
	s.clientsMu.RUnlock()
}

func (s *Server) stats() Stats {
	s.mu.RLock()
	frames := s.frameCount
	start := s.startTime
	last := s.lastUpdate
	s.mu.RUnlock()

	s.clientsMu.RLock()
	clients := len(s.clients)
	s.clientsMu.RUnlock()

	var fps float64
	if elapsed := time.Since(start).Seconds(); elapsed > 0 {
		fps = float64(frames) / elapsed
	}
	lastStr := "never"
	if !last.IsZero() {
		lastStr = time.Since(last).Round(time.Millisecond).String() + " ago"
	}

	darN, darD := s.producer.DisplayAspectRatio()
	return Stats{
		Frames:      frames,
		FPS:         fps,
		Clients:     clients,
		ForceAspect: s.producer.ForceAspectRatio(),
		DarN:        darN,
		DarD:        darD,
		LastUpdate:  lastStr,
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.stats())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleGetAspect(w http.ResponseWriter, r *http.Request) {
	darN, darD := s.producer.DisplayAspectRatio()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"force_aspect": s.producer.ForceAspectRatio(),
		"dar_n":        darN,
		"dar_d":        darD,
	})
}

func (s *Server) handleSetAspect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ForceAspect *bool `json:"force_aspect"`
		DarN        *int  `json:"dar_n"`
		DarD        *int  `json:"dar_d"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}
	if req.ForceAspect != nil {
		s.producer.SetForceAspectRatio(*req.ForceAspect)
	}
	if req.DarN != nil && req.DarD != nil {
		s.producer.SetDisplayAspectRatio(*req.DarN, *req.DarD)
	}
	s.handleGetAspect(w, r)
}

// handleStream serves the multipart MJPEG stream.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Connection", "close")

	frameChan := make(chan []byte, 2)

	s.clientsMu.Lock()
	s.clients[frameChan] = struct{}{}
	count := len(s.clients)
	s.clientsMu.Unlock()
	logger.WithComponent("preview").Info().Int("clients", count).Msg("Stream client connected")

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, frameChan)
		count := len(s.clients)
		s.clientsMu.Unlock()
		logger.WithComponent("preview").Info().Int("clients", count).Msg("Stream client disconnected")
	}()

	for jpegData := range frameChan {
		if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpegData)); err != nil {
			return
		}
		if _, err := w.Write(jpegData); err != nil {
			return
		}
		if _, err := fmt.Fprintf(w, "\r\n"); err != nil {
			return
		}
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}

// handleWebsocket pushes a stats snapshot once a second until the client
// goes away.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithComponent("preview").Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		if err := conn.WriteJSON(s.stats()); err != nil {
			return
		}
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	html := `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>framesink</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            background: #000;
            display: flex;
            justify-content: center;
            align-items: center;
            min-height: 100vh;
        }
        img {
            width: 100vw;
            height: 100vh;
            object-fit: contain;
            display: block;
            background: #000;
        }
        .stats {
            position: fixed;
            bottom: 16px;
            left: 16px;
            padding: 8px 14px;
            background: rgba(40, 40, 40, 0.9);
            color: #ccc;
            border-radius: 20px;
            font-family: monospace;
            font-size: 13px;
        }
    </style>
</head>
<body>
    <img src="/stream" alt="framesink preview">
    <div class="stats" id="stats">connecting…</div>
    <script>
        const el = document.getElementById('stats');
        const ws = new WebSocket('ws://' + location.host + '/ws');
        ws.onmessage = (ev) => {
            const s = JSON.parse(ev.data);
            el.textContent = s.fps.toFixed(1) + ' fps · ' + s.frames + ' frames · aspect ' +
                (s.force_aspect ? 'locked' : 'free');
        };
        ws.onclose = () => { el.textContent = 'stats disconnected'; };
    </script>
</body>
</html>`
	w.Write([]byte(html))
}
