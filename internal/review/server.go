// Package review serves the human-review gate over the batch files: a
// reviewer logs in, reads the pending batches, and records keep/replace
// decisions that the refresh workflow consumes. The server binds to
// localhost by default and is started on demand, not deployed.
package review

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"golang.org/x/crypto/bcrypt"

	"github.com/concours-prep/pipeline/internal/output"
)

const tokenTTL = 12 * time.Hour

type Server struct {
	db           *sql.DB
	batchDir     string
	jwtSecret    []byte
	passwordHash string
}

func NewServer(db *sql.DB, batchDir, jwtSecret, passwordHash string) *Server {
	return &Server{
		db:           db,
		batchDir:     batchDir,
		jwtSecret:    []byte(jwtSecret),
		passwordHash: passwordHash,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Decision is one reviewer verdict on one record.
type Decision struct {
	SourceTable string `json:"source_table"`
	SourceID    int64  `json:"source_id"`
	Decision    string `json:"decision"`
	Note        string `json:"note,omitempty"`
}

var validDecisions = map[string]bool{
	"keep":    true,
	"replace": true,
	"reject":  true,
}

// Router assembles the full handler, CORS included.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/auth/login", s.handleLogin).Methods("POST")

	protected := api.PathPrefix("").Subrouter()
	protected.Use(s.authMiddleware)
	protected.HandleFunc("/batches", s.handleListBatches).Methods("GET")
	protected.HandleFunc("/batches/{name}", s.handleGetBatch).Methods("GET")
	protected.HandleFunc("/decisions", s.handlePostDecision).Methods("POST")
	protected.HandleFunc("/decisions", s.handleListDecisions).Methods("GET")

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}

func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}
	if req.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Password is required"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(req.Password)); err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Invalid password"})
		return
	}

	token, err := s.generateToken()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to generate token"})
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

type batchInfo struct {
	Name    string `json:"name"`
	Records int    `json:"records"`
}

func (s *Server) handleListBatches(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(s.batchDir)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to read batch directory"})
		return
	}

	batches := []batchInfo{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") || name == "manifest.json" {
			continue
		}
		records, err := output.ReadBatch(filepath.Join(s.batchDir, name))
		if err != nil {
			continue
		}
		batches = append(batches, batchInfo{Name: name, Records: len(records)})
	}
	sort.Slice(batches, func(i, j int) bool { return batches[i].Name < batches[j].Name })
	writeJSON(w, http.StatusOK, batches)
}

func (s *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	// The name is a flat file in the batch dir; anything path-like is refused.
	if name != filepath.Base(name) || !strings.HasSuffix(name, ".json") {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid batch name"})
		return
	}

	records, err := output.ReadBatch(filepath.Join(s.batchDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "Batch not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to read batch"})
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handlePostDecision(w http.ResponseWriter, r *http.Request) {
	var d Decision
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}
	if err := validateDecision(d); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	_, err := s.db.ExecContext(r.Context(),
		`INSERT INTO review_decisions (source_table, source_id, decision, note, decided_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (source_table, source_id)
		 DO UPDATE SET decision = EXCLUDED.decision, note = EXCLUDED.note, decided_at = NOW()`,
		d.SourceTable, d.SourceID, d.Decision, d.Note)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to record decision"})
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleListDecisions(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.QueryContext(r.Context(),
		`SELECT source_table, source_id, decision, COALESCE(note, '')
		 FROM review_decisions ORDER BY decided_at DESC`)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to load decisions"})
		return
	}
	defer rows.Close()

	decisions := []Decision{}
	for rows.Next() {
		var d Decision
		if err := rows.Scan(&d.SourceTable, &d.SourceID, &d.Decision, &d.Note); err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to load decisions"})
			return
		}
		decisions = append(decisions, d)
	}
	writeJSON(w, http.StatusOK, decisions)
}

func validateDecision(d Decision) error {
	if d.SourceTable == "" || d.SourceID == 0 {
		return fmt.Errorf("source_table and source_id are required")
	}
	if !validDecisions[d.Decision] {
		return fmt.Errorf("decision must be one of keep, replace, reject")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
