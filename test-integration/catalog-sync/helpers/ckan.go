// Package helpers provides the fixtures of the integration suite.
package helpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
)

// FakeCKAN serves the subset of the CKAN action API used by catalog-sync, plus resource
// payloads under /files/
type FakeCKAN struct {
	server *httptest.Server

	mu           sync.Mutex
	packages     []map[string]any
	vocabularies map[string]string
	payloads     map[string]string
	lookups      map[string]int
}

// NewFakeCKAN starts a fake catalog
func NewFakeCKAN() *FakeCKAN {
	f := &FakeCKAN{
		vocabularies: make(map[string]string),
		payloads:     make(map[string]string),
		lookups:      make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/3/action/current_package_list_with_resources", f.packageList)
	mux.HandleFunc("/api/3/action/vocabulary_show", f.vocabularyShow)
	mux.HandleFunc("/files/", f.file)
	f.server = httptest.NewServer(mux)
	return f
}

// URL returns the base URL of the catalog
func (f *FakeCKAN) URL() string {
	return f.server.URL
}

// Close stops the server
func (f *FakeCKAN) Close() {
	f.server.Close()
}

// SetPackages replaces the whole catalog
func (f *FakeCKAN) SetPackages(packages ...map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.packages = packages
}

// SetVocabulary registers a vocabulary served by vocabulary_show
func (f *FakeCKAN) SetVocabulary(id, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vocabularies[id] = name
}

// VocabularyLookups returns how often a vocabulary was requested
func (f *FakeCKAN) VocabularyLookups(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookups[id]
}

// SetPayload serves body under /files/name and returns its URL
func (f *FakeCKAN) SetPayload(name, body string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads[name] = body
	return f.server.URL + "/files/" + name
}

func (f *FakeCKAN) packageList(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	page := []map[string]any{}
	if offset < len(f.packages) {
		end := len(f.packages)
		if limit > 0 && offset+limit < end {
			end = offset + limit
		}
		page = f.packages[offset:end]
	}
	writeResult(w, page)
}

func (f *FakeCKAN) vocabularyShow(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := r.URL.Query().Get("id")
	f.lookups[id]++

	name, ok := f.vocabularies[id]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   map[string]any{"message": "Not found"},
		})
		return
	}
	writeResult(w, map[string]any{"id": id, "name": name})
}

func (f *FakeCKAN) file(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	body, ok := f.payloads[strings.TrimPrefix(r.URL.Path, "/files/")]
	f.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	_, _ = w.Write([]byte(body))
}

func writeResult(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "result": result})
}
