// Package server exposes the admin import and repair actions and the public
// author views over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/matsen/pubmanager/internal/importer"
	"github.com/matsen/pubmanager/internal/relation"
	"github.com/matsen/pubmanager/internal/repair"
)

// Importer runs DOI batches.
type Importer interface {
	ImportDOIs(ctx context.Context, input string) (*importer.BatchResult, error)
}

// Repairer runs the reconciliation tools.
type Repairer interface {
	BulkProcess(ctx context.Context) (*repair.BulkResult, error)
	CleanupOrphans() (*repair.CleanupResult, error)
	Stats() (*repair.Stats, error)
}

// AuthorRenderer renders a publication's author list.
type AuthorRenderer interface {
	RenderAuthorsHTML(pubID int64) (string, error)
}

// MemberPublications lists the publications linked to a team member.
type MemberPublications interface {
	PublicationsOf(memberID int64) ([]relation.Summary, error)
}

// Deps are the services behind the routes.
type Deps struct {
	Importer     Importer
	Repair       Repairer
	Authors      AuthorRenderer
	Publications MemberPublications
}

// Options configure authentication.
type Options struct {
	Secret       string // HMAC key for tokens and nonces
	PasswordHash string // bcrypt hash accepted by /admin/login; empty disables login
	TokenTTL     time.Duration
	NonceTTL     time.Duration
}

// Server is the HTTP front end.
type Server struct {
	deps         Deps
	signer       *Signer
	passwordHash string
	logger       *slog.Logger
	engine       *gin.Engine
}

// New builds the gin engine and routes. A nil logger uses slog.Default().
func New(deps Deps, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		deps:         deps,
		signer:       NewSigner(opts.Secret, opts.TokenTTL, opts.NonceTTL),
		passwordHash: opts.PasswordHash,
		logger:       logger,
		engine:       gin.New(),
	}
	s.engine.Use(gin.Recovery(), s.requestLogger(), s.authMiddleware())
	s.routes()
	return s
}

// Signer returns the token signer, for issuing tokens out of band.
func (s *Server) Signer() *Signer {
	return s.signer
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) routes() {
	r := s.engine
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public views
	r.GET("/publications/:id/authors", s.handlePublicationAuthors)
	r.GET("/team/:id/publications", s.handleTeamPublications)

	admin := r.Group("/admin")
	admin.POST("/login", s.handleLogin)

	protected := admin.Group("")
	protected.Use(requireCapability(CapManageOptions))
	{
		protected.GET("/nonce", s.handleNonce)
		protected.GET("/stats", s.handleStats)
		protected.POST("/import-doi", s.requireNonce(ActionImport), s.handleImportDOI)
		protected.POST("/bulk-process", s.requireNonce(ActionBulk), s.handleBulkProcess)
		protected.POST("/cleanup-orphans", s.requireNonce(ActionCleanup), s.handleCleanup)
	}
}

// succeed and fail write the {success, data} envelope.
func succeed(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "data": gin.H{"message": message}})
}

func (s *Server) handleLogin(c *gin.Context) {
	if s.passwordHash == "" {
		fail(c, http.StatusNotFound, "Login is not configured")
		return
	}
	if err := CheckPassword(c.PostForm("password"), s.passwordHash); err != nil {
		s.logger.Warn("failed admin login", "request_id", c.GetString(requestIDKey))
		fail(c, http.StatusUnauthorized, "Invalid password")
		return
	}
	token, err := s.signer.IssueToken("admin", CapManageOptions)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	succeed(c, gin.H{"token": token})
}

func (s *Server) handleNonce(c *gin.Context) {
	action := c.Query("action")
	switch action {
	case ActionImport, ActionBulk, ActionCleanup:
	default:
		fail(c, http.StatusBadRequest, "Unknown action")
		return
	}
	nonce, err := s.signer.IssueNonce(claimsFrom(c).Subject, action)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	succeed(c, gin.H{"nonce": nonce, "action": action})
}

// handleImportDOI mirrors the batch contract: success false with the batch
// as data when nothing was imported.
func (s *Server) handleImportDOI(c *gin.Context) {
	result, err := s.deps.Importer.ImportDOIs(c.Request.Context(), c.PostForm("doi_input"))
	if errors.Is(err, importer.ErrNoDOIs) {
		fail(c, http.StatusBadRequest, "Please enter at least one DOI")
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": result.Success, "data": result})
}

func (s *Server) handleBulkProcess(c *gin.Context) {
	result, err := s.deps.Repair.BulkProcess(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	succeed(c, result)
}

func (s *Server) handleCleanup(c *gin.Context) {
	result, err := s.deps.Repair.CleanupOrphans()
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	succeed(c, result)
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.deps.Repair.Stats()
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	succeed(c, stats)
}

func (s *Server) handlePublicationAuthors(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	html, err := s.deps.Authors.RenderAuthorsHTML(id)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

func (s *Server) handleTeamPublications(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	pubs, err := s.deps.Publications.PublicationsOf(id)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	if pubs == nil {
		pubs = []relation.Summary{}
	}
	succeed(c, pubs)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return id, true
}
