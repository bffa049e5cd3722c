// Package firebasetest provides an in-memory Realtime Database REST fake.
package firebasetest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// Server stores top-level nodes in memory. Only single-segment keys are supported.
type Server struct {
	*httptest.Server

	mu    sync.Mutex
	nodes map[string]json.RawMessage
	// Auth, when set, is required as the ?auth= query parameter.
	Auth string
	// FailPuts makes every PUT answer with this status when non-zero.
	FailPuts int
	Requests []string
}

func NewServer() *Server {
	s := &Server{nodes: make(map[string]json.RawMessage)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Requests = append(s.Requests, r.Method+" "+r.URL.Path)

	if s.Auth != "" && r.URL.Query().Get("auth") != s.Auth {
		http.Error(w, `{"error":"Permission denied"}`, http.StatusUnauthorized)
		return
	}
	if !strings.HasSuffix(r.URL.Path, ".json") {
		http.Error(w, `{"error":"missing .json suffix"}`, http.StatusBadRequest)
		return
	}
	key := strings.Trim(strings.TrimSuffix(r.URL.Path, ".json"), "/")

	w.Header().Set("Content-Type", "application/json")
	switch r.Method {
	case http.MethodGet:
		if key == "" {
			s.writeRoot(w, r.URL.Query().Get("shallow") == "true")
			return
		}
		node, ok := s.nodes[key]
		if !ok {
			w.Write([]byte("null"))
			return
		}
		w.Write(node)
	case http.MethodPut:
		if s.FailPuts != 0 {
			http.Error(w, `{"error":"write rejected"}`, s.FailPuts)
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil || !json.Valid(body) {
			http.Error(w, `{"error":"Invalid data; couldn't parse JSON object"}`, http.StatusBadRequest)
			return
		}
		s.nodes[key] = body
		w.Write(body)
	case http.MethodDelete:
		delete(s.nodes, key)
		w.Write([]byte("null"))
	default:
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
	}
}

func (s *Server) writeRoot(w http.ResponseWriter, shallow bool) {
	if len(s.nodes) == 0 {
		w.Write([]byte("null"))
		return
	}
	out := make(map[string]interface{}, len(s.nodes))
	for k, v := range s.nodes {
		if shallow {
			out[k] = true
		} else {
			out[k] = v
		}
	}
	json.NewEncoder(w).Encode(out)
}

// Node returns the raw JSON stored under key.
func (s *Server) Node(key string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[key]
	return n, ok
}

// Seed stores v under key as if it had been PUT.
func (s *Server) Seed(key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	s.nodes[key] = data
	s.mu.Unlock()
}

func (s *Server) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nodes)
}
