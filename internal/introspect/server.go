package introspect

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Server is an HTTP front end onto a Registry: a JSON listing at /trees,
// a live per-tree feed at /trees/{name}/ws, and a Prometheus scrape
// endpoint at /metrics.
type Server struct {
	r      *mux.Router
	reg    *Registry
	logger *log.Logger
}

// NewServer builds a Server watching reg. logger defaults to log.Default
// when nil.
func NewServer(reg *Registry, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{reg: reg, logger: logger}
	s.route()
	return s
}

func (s *Server) route() {
	s.r = mux.NewRouter()
	s.r.HandleFunc("/trees", s.handleList).Methods(http.MethodGet)
	s.r.HandleFunc("/trees/{name}/ws", s.handleWatch)
	s.r.Handle("/metrics", promhttp.Handler())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.r.ServeHTTP(w, r)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	names := s.reg.Names()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(names); err != nil {
		s.logger.Printf("introspect: encoding tree list: %v", err)
	}
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if _, ok := s.reg.Snapshot(name); !ok {
		http.Error(w, "no such tree", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	(&watcher{conn: conn, reg: s.reg, name: name, log: s.logger}).serve()
}
