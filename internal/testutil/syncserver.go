package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	DefaultPassword = "hunter2"
	DefaultToken    = "test-token"
	confirmPhrase   = "YES I AM REALLY DELETING EVERYTHING"
)

// StoredImage is an upload held by the fake service
type StoredImage struct {
	Filename string
	MIME     string
	Data     []byte
}

// SyncServer is an in-process session sync service
type SyncServer struct {
	*httptest.Server

	Password string
	Token    string
	// OmitToken makes /login answer 200 without a token
	OmitToken bool
	// HideIDs strips "id" from listed sessions
	HideIDs bool

	mu       sync.Mutex
	order    []string
	sessions map[string]map[string]any
	images   map[string]StoredImage
	uploads  []string
	requests []string
	failures map[string]int
}

// NewSyncServer starts a fake service that is closed with the test
func NewSyncServer(t *testing.T) *SyncServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &SyncServer{
		Password: DefaultPassword,
		Token:    DefaultToken,
		sessions: make(map[string]map[string]any),
		images:   make(map[string]StoredImage),
		failures: make(map[string]int),
	}

	r := gin.New()
	r.Use(s.record, s.inject)
	r.POST("/login", s.login)

	authed := r.Group("/", s.auth)
	authed.GET("/sessions", s.listSessions)
	authed.POST("/sessions", s.createSession)
	authed.PUT("/sessions/:id", s.updateSession)
	authed.DELETE("/sessions/*id", s.deleteSession)
	authed.POST("/images/", s.uploadImage)
	authed.GET("/img/:id", s.serveImage)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// FailNext makes the next request matching method and path answer status
func (s *SyncServer) FailNext(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = status
}

// Seed stores a session record directly and returns its id
func (s *SyncServer) Seed(record map[string]any) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.put(id, record)
	return id
}

// Uploads returns the URLs of every image uploaded so far
func (s *SyncServer) Uploads() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.uploads...)
}

// Image returns the upload served at url
func (s *SyncServer) Image(url string) (StoredImage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	im, ok := s.images[strings.TrimPrefix(url, s.URL+"/img/")]
	return im, ok
}

// Sessions returns the stored records in creation order
func (s *SyncServer) Sessions() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.sessions[id])
	}
	return out
}

// Requests returns "METHOD path" for every request received
func (s *SyncServer) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *SyncServer) put(id string, record map[string]any) {
	if _, ok := s.sessions[id]; !ok {
		s.order = append(s.order, id)
	}
	record["id"] = id
	s.sessions[id] = record
}

func (s *SyncServer) record(c *gin.Context) {
	s.mu.Lock()
	s.requests = append(s.requests, c.Request.Method+" "+c.Request.URL.Path)
	s.mu.Unlock()
	c.Next()
}

func (s *SyncServer) inject(c *gin.Context) {
	key := c.Request.Method + " " + c.Request.URL.Path

	s.mu.Lock()
	status, ok := s.failures[key]
	delete(s.failures, key)
	s.mu.Unlock()

	if ok {
		c.AbortWithStatusJSON(status, gin.H{"error": "injected failure"})
		return
	}
	c.Next()
}

func (s *SyncServer) auth(c *gin.Context) {
	if c.GetHeader("Authorization") != "bearer "+s.Token {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Next()
}

func (s *SyncServer) login(c *gin.Context) {
	var body struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Password != s.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "bad password"})
		return
	}
	if s.OmitToken {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": s.Token})
}

func (s *SyncServer) listSessions(c *gin.Context) {
	records := s.Sessions()
	if s.HideIDs {
		for i, rec := range records {
			stripped := make(map[string]any, len(rec))
			for k, v := range rec {
				if k != "id" {
					stripped[k] = v
				}
			}
			records[i] = stripped
		}
	}
	c.JSON(http.StatusOK, records)
}

func (s *SyncServer) createSession(c *gin.Context) {
	var record map[string]any
	if err := c.ShouldBindJSON(&record); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.put(id, record)
	s.mu.Unlock()

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (s *SyncServer) updateSession(c *gin.Context) {
	id := c.Param("id")
	var record map[string]any
	if err := c.ShouldBindJSON(&record); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such session"})
		return
	}
	s.put(id, record)
	c.Status(http.StatusNoContent)
}

func (s *SyncServer) deleteSession(c *gin.Context) {
	id := strings.TrimPrefix(c.Param("id"), "/")
	if id == "" {
		s.deleteAll(c)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such session"})
		return
	}
	delete(s.sessions, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	c.Status(http.StatusNoContent)
}

func (s *SyncServer) deleteAll(c *gin.Context) {
	var body struct {
		Confirm string `json:"confirm"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Confirm != confirmPhrase {
		c.JSON(http.StatusBadRequest, gin.H{"error": "confirmation required"})
		return
	}

	s.mu.Lock()
	s.sessions = make(map[string]map[string]any)
	s.order = nil
	s.mu.Unlock()
	c.Status(http.StatusNoContent)
}

func (s *SyncServer) uploadImage(c *gin.Context) {
	header, err := c.FormFile("img")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing img field"})
		return
	}
	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := uuid.NewString()
	url := s.URL + "/img/" + id

	s.mu.Lock()
	s.images[id] = StoredImage{
		Filename: header.Filename,
		MIME:     header.Header.Get("Content-Type"),
		Data:     data,
	}
	s.uploads = append(s.uploads, url)
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (s *SyncServer) serveImage(c *gin.Context) {
	s.mu.Lock()
	im, ok := s.images[c.Param("id")]
	s.mu.Unlock()
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	c.Data(http.StatusOK, im.MIME, im.Data)
}
