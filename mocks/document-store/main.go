package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"
)

const (
	defaultPort       = "8090"
	defaultAPIKey     = "document-store-dev-key"
	defaultProjectID  = "689107c288885e90c039"
	defaultDatabaseID = "6864aed388d20c69a461"
	defaultLatencyMs  = "50"
)

type ErrorResponse struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	Type    string `json:"type"`
}

type DocumentList struct {
	Total     int              `json:"total"`
	Documents []map[string]any `json:"documents"`
}

type CollectionList struct {
	Total       int              `json:"total"`
	Collections []map[string]any `json:"collections"`
}

type createRequest struct {
	DocumentID string         `json:"documentId"`
	Data       map[string]any `json:"data"`
}

type updateRequest struct {
	Data map[string]any `json:"data"`
}

var (
	apiKey     = getEnv("API_KEY", defaultAPIKey)
	projectID  = getEnv("PROJECT_ID", defaultProjectID)
	databaseID = getEnv("DATABASE_ID", defaultDatabaseID)
	latencyMs  = getEnvInt("LATENCY_MS", defaultLatencyMs)
)

// store holds collections of documents keyed by document id.
type store struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
}

func main() {
	port := getEnv("PORT", defaultPort)
	s := newStore()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /v1/databases/{db}/collections", s.handleListCollections)
	mux.HandleFunc("GET /v1/databases/{db}/collections/{collection}/documents", s.handleQuery)
	mux.HandleFunc("POST /v1/databases/{db}/collections/{collection}/documents", s.handleCreate)
	mux.HandleFunc("PATCH /v1/databases/{db}/collections/{collection}/documents/{id}", s.handleUpdate)

	log.Printf("Mock document store starting on port %s", port)
	log.Printf("Project: %s, database: %s", projectID, databaseID)
	log.Printf("Simulated latency: %dms", latencyMs)

	if err := http.ListenAndServe(":"+port, withAuth(mux)); err != nil {
		log.Fatal(err)
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "document-store",
		"version": "1.0.0",
	})
}

// withAuth simulates latency and checks the project and key headers on
// every database route.
func withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		time.Sleep(time.Duration(latencyMs) * time.Millisecond)
		log.Printf("Incoming request: %s %s from %s", r.Method, r.URL.String(), r.RemoteAddr)

		if r.Header.Get("X-Appwrite-Project") != projectID {
			sendError(w, "Project with the requested ID could not be found.", http.StatusNotFound, "project_not_found")
			return
		}
		if r.Header.Get("X-Appwrite-Key") != apiKey {
			sendError(w, "The current user is not authorized to perform the requested action.", http.StatusUnauthorized, "user_unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// testCustomers are seeded into the customers collection. The phone numbers
// let kiosk end-to-end runs hit each decision branch.
var testCustomers = []map[string]any{
	{
		"$id":           "cust-approved",
		"phone_number":  "+254712345678",
		"pin":           "4455",
		"is_registered": true,
		"active":        true,
		"account_id":    "ACC-0001",
		"full_name":     "Amina Wanjiru",
		"credits":       1500,
	},
	{
		"$id":           "cust-local-format",
		"phone_number":  "0722000111",
		"pin":           "1234",
		"is_registered": true,
		"active":        true,
		"account_id":    "ACC-0002",
		"full_name":     "Brian Otieno",
		"credits":       200,
	},
	{
		"$id":           "cust-unregistered",
		"phone_number":  "+254733000222",
		"pin":           "1111",
		"is_registered": false,
		"active":        true,
		"account_id":    "ACC-0003",
		"full_name":     "Cynthia Achieng",
	},
	{
		"$id":           "cust-inactive",
		"phone_number":  "+254744000333",
		"pin":           "2222",
		"is_registered": true,
		"active":        false,
		"account_id":    "ACC-0004",
		"full_name":     "David Kiprotich",
		"credits":       0,
	},
	{
		"$id":           "cust-string-flags",
		"phone_number":  "+254755000444",
		"pin":           "3333",
		"is_registered": "true",
		"active":        "true",
		"account_id":    "ACC-0005",
		"full_name":     "Esther Mutua",
	},
}

func newStore() *store {
	s := &store{collections: map[string]map[string]map[string]any{
		"customers":    {},
		"devices":      {},
		"transactions": {},
	}}
	now := time.Now().UTC().Format(time.RFC3339)
	for _, c := range testCustomers {
		doc := copyDoc(c)
		doc["$createdAt"] = now
		doc["$updatedAt"] = now
		s.collections["customers"][doc["$id"].(string)] = doc
	}
	return s
}

func (s *store) handleListCollections(w http.ResponseWriter, r *http.Request) {
	if !checkDatabase(w, r) {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)

	out := CollectionList{Total: len(names), Collections: make([]map[string]any, 0, len(names))}
	for _, name := range names {
		out.Collections = append(out.Collections, map[string]any{"$id": name, "name": name})
	}
	writeJSON(w, http.StatusOK, out)
}

var equalQuery = regexp.MustCompile(`^equal\("([^"]+)",\s*"([^"]*)"\)$`)

func (s *store) handleQuery(w http.ResponseWriter, r *http.Request) {
	if !checkDatabase(w, r) {
		return
	}
	type cond struct{ field, value string }
	var conds []cond
	for _, q := range r.URL.Query()["queries[]"] {
		m := equalQuery.FindStringSubmatch(q)
		if m == nil {
			sendError(w, "Invalid query: "+q, http.StatusBadRequest, "general_query_invalid")
			return
		}
		conds = append(conds, cond{field: m[1], value: m[2]})
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	docs, ok := s.collections[r.PathValue("collection")]
	if !ok {
		sendError(w, "Collection with the requested ID could not be found.", http.StatusNotFound, "collection_not_found")
		return
	}

	out := DocumentList{Documents: []map[string]any{}}
	for _, doc := range sortedDocs(docs) {
		match := true
		for _, c := range conds {
			if fmt.Sprint(doc[c.field]) != c.value {
				match = false
				break
			}
		}
		if match {
			out.Documents = append(out.Documents, copyDoc(doc))
		}
	}
	out.Total = len(out.Documents)
	log.Printf("Query %s matched %d document(s)", r.PathValue("collection"), out.Total)
	writeJSON(w, http.StatusOK, out)
}

func (s *store) handleCreate(w http.ResponseWriter, r *http.Request) {
	if !checkDatabase(w, r) {
		return
	}
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest, "general_argument_invalid")
		return
	}
	if req.DocumentID == "" || req.DocumentID == "unique()" {
		req.DocumentID = newID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	docs, ok := s.collections[r.PathValue("collection")]
	if !ok {
		sendError(w, "Collection with the requested ID could not be found.", http.StatusNotFound, "collection_not_found")
		return
	}
	if _, exists := docs[req.DocumentID]; exists {
		sendError(w, "Document with the requested ID already exists.", http.StatusConflict, "document_already_exists")
		return
	}

	now := time.Now().UTC().Format(time.RFC3339)
	doc := copyDoc(req.Data)
	doc["$id"] = req.DocumentID
	doc["$collectionId"] = r.PathValue("collection")
	doc["$databaseId"] = r.PathValue("db")
	doc["$createdAt"] = now
	doc["$updatedAt"] = now
	docs[req.DocumentID] = doc

	log.Printf("Created %s/%s", r.PathValue("collection"), req.DocumentID)
	writeJSON(w, http.StatusCreated, copyDoc(doc))
}

func (s *store) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if !checkDatabase(w, r) {
		return
	}
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest, "general_argument_invalid")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	docs, ok := s.collections[r.PathValue("collection")]
	if !ok {
		sendError(w, "Collection with the requested ID could not be found.", http.StatusNotFound, "collection_not_found")
		return
	}
	doc, ok := docs[r.PathValue("id")]
	if !ok {
		sendError(w, "Document with the requested ID could not be found.", http.StatusNotFound, "document_not_found")
		return
	}
	for k, v := range req.Data {
		doc[k] = v
	}
	doc["$updatedAt"] = time.Now().UTC().Format(time.RFC3339)

	log.Printf("Updated %s/%s", r.PathValue("collection"), r.PathValue("id"))
	writeJSON(w, http.StatusOK, copyDoc(doc))
}

func checkDatabase(w http.ResponseWriter, r *http.Request) bool {
	if r.PathValue("db") != databaseID {
		sendError(w, "Database not found", http.StatusNotFound, "database_not_found")
		return false
	}
	return true
}

func sortedDocs(docs map[string]map[string]any) []map[string]any {
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, docs[id])
	}
	return out
}

func copyDoc(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func newID() string {
	b := make([]byte, 10)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func sendError(w http.ResponseWriter, message string, code int, typ string) {
	writeJSON(w, code, ErrorResponse{Message: message, Code: code, Type: typ})
	log.Printf("Error response: %d - %s", code, message)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key, defaultValue string) int {
	value := getEnv(key, defaultValue)
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %s", key, defaultValue)
		intValue, _ = strconv.Atoi(defaultValue)
	}
	return intValue
}
