package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"agendash/internal/agenda"
	"agendash/internal/config"
	"agendash/internal/dashboard"
	"agendash/internal/ics"
	"agendash/internal/instrumentation"
	appLog "agendash/internal/log"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Server exposes the dashboard session over HTTP: a JSON API, an iCalendar
// export and a minimal HTML page.
type Server struct {
	cfg     *config.Config
	session *dashboard.Session
	metrics *instrumentation.Metrics
	prom    http.Handler
	engine  *gin.Engine
}

// NewServer constructs a new Server. provider may be nil.
func NewServer(cfg *config.Config, session *dashboard.Session, provider *instrumentation.Provider) *Server {
	s := &Server{
		cfg:     cfg,
		session: session,
		metrics: &instrumentation.Metrics{},
	}
	if provider != nil {
		s.metrics = provider.Metrics()
		s.prom = provider.Handler()
	}
	s.engine = s.newEngine()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.Use(otelgin.Middleware(instrumentation.ServiceName))
	r.Use(s.metrics.Middleware())
	r.SetHTMLTemplate(template.Must(template.ParseFS(templatesFS, "templates/*.html")))

	// /health is always exposed without authentication.
	r.GET("/health", s.handleHealth)

	g := r.Group("/")
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		g.Use(s.basicAuth())
	}

	g.GET("/", s.handleIndex)
	g.GET("/calendar.ics", s.handleCalendar)
	if s.prom != nil {
		g.GET("/metrics", gin.WrapH(s.prom))
	}

	api := g.Group("/api")
	api.GET("/agenda", s.handleAgenda)
	api.GET("/view", s.handleView)
	api.POST("/view/mode", s.handleSetMode)
	api.POST("/view/week/next", s.handleNextWeek)
	api.POST("/view/week/prev", s.handlePrevWeek)
	api.POST("/view/month", s.handleSelectMonth)
	api.GET("/tasks", s.handleListTasks)
	api.POST("/tasks", s.handleCreateTask)
	api.DELETE("/tasks/:id", s.handleDeleteTask)
	api.POST("/refresh", s.handleRefresh)

	return r
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty credentials are treated as disabled.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

func (s *Server) basicAuth() gin.HandlerFunc {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return func(c *gin.Context) {
		u, p, ok := c.Request.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			c.Header("WWW-Authenticate", `Basic realm="agendash", charset="UTF-8"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		appLog.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// StartServer serves handler on addr until ctx is cancelled, then shuts down
// gracefully.
func StartServer(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+addr)
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
		appLog.Info("shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// stateFromQuery builds a view state from ?mode=&week=&month= without
// touching the session's own state. Missing values fall back to base.
func stateFromQuery(c *gin.Context, base agenda.State) (agenda.State, error) {
	st := base

	if raw, ok := c.GetQuery("mode"); ok {
		m, err := agenda.ParseMode(raw)
		if err != nil {
			return st, err
		}
		if m == agenda.ModeWeekly && base.Mode != agenda.ModeWeekly {
			st.WeekOffset = 0
		}
		st.Mode = m
	}
	if raw := strings.TrimSpace(c.Query("week")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return st, errors.New("week must be an integer offset")
		}
		st.WeekOffset = n
	}
	if raw := strings.TrimSpace(c.Query("month")); raw != "" {
		m, err := agenda.ParseMonth(raw)
		if err != nil {
			return st, err
		}
		st.Month = m
		st.MonthLabel = m.String()
	}
	return st, nil
}

// handleAgenda computes buckets for the state given in the query string.
//
// GET /api/agenda?mode=weekly&week=1
// GET /api/agenda?mode=monthly&month=April
func (s *Server) handleAgenda(c *gin.Context) {
	now := s.session.Now()
	snap := s.session.Snapshot(c.Request.Context(), now)

	base := agenda.State{Mode: agenda.ModeDaily, Month: snap.State.Month, MonthLabel: snap.State.MonthLabel}
	st, err := stateFromQuery(c, base)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(c, http.StatusOK, agendaResponse{
		Loading: snap.Loading,
		State:   st,
		Agenda:  s.session.Compute(st, now),
	})
}

type agendaResponse struct {
	Loading bool          `json:"loading"`
	State   agenda.State  `json:"state"`
	Agenda  agenda.Result `json:"agenda"`
}

func (s *Server) handleView(c *gin.Context) {
	writeJSON(c, http.StatusOK, s.session.Snapshot(c.Request.Context(), s.session.Now()))
}

type modeRequest struct {
	Mode string `json:"mode"`
}

func (s *Server) handleSetMode(c *gin.Context) {
	var req modeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid JSON body")
		return
	}
	m, err := agenda.ParseMode(req.Mode)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.session.SetMode(m); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	s.handleView(c)
}

func (s *Server) handleNextWeek(c *gin.Context) {
	s.session.NextWeek()
	s.handleView(c)
}

func (s *Server) handlePrevWeek(c *gin.Context) {
	s.session.PrevWeek()
	s.handleView(c)
}

type monthRequest struct {
	Month string `json:"month"`
}

func (s *Server) handleSelectMonth(c *gin.Context) {
	var req monthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.session.SelectMonth(req.Month); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	s.handleView(c)
}

func (s *Server) handleListTasks(c *gin.Context) {
	writeJSON(c, http.StatusOK, s.session.Tasks())
}

type createTaskRequest struct {
	Title string `json:"title"`
	Time  string `json:"time"`
}

// handleCreateTask adds a personal task dated today. A blank title is not an
// error: the response reports created=false and nothing is written.
func (s *Server) handleCreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ev, created, err := s.session.CreateTask(c.Request.Context(), req.Title, req.Time)
	if err != nil {
		appLog.Error("create personal task failed", err)
		writeError(c, http.StatusInternalServerError, "failed to save task")
		return
	}
	if !created {
		writeJSON(c, http.StatusOK, gin.H{"created": false})
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"created": true, "task": ev})
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	deleted, err := s.session.DeleteTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		appLog.Error("delete personal task failed", err, "id", c.Param("id"))
		writeError(c, http.StatusInternalServerError, "failed to save tasks")
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"deleted": deleted})
}

func (s *Server) handleRefresh(c *gin.Context) {
	s.session.Refresh(c.Request.Context())
	s.handleView(c)
}

// handleCalendar exports the merged events as an iCalendar document.
func (s *Server) handleCalendar(c *gin.Context) {
	body := ics.Export(s.session.Events(), s.session.Now())
	c.Header("Content-Disposition", `inline; filename="agendash.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(body))
}

type pageData struct {
	Loading    bool
	Mode       string
	WeekOffset int
	PrevWeek   int
	NextWeek   int
	Month      string
	MonthTabs  []string
	Buckets    []agenda.Bucket
}

// handleIndex renders the HTML dashboard. Query parameters select the view
// the same way /api/agenda does; without them the session's view is shown.
func (s *Server) handleIndex(c *gin.Context) {
	now := s.session.Now()
	snap := s.session.Snapshot(c.Request.Context(), now)

	st, err := stateFromQuery(c, snap.State)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	res := snap.Agenda
	if st != snap.State {
		res = s.session.Compute(st, now)
	}

	c.HTML(http.StatusOK, "dashboard.html", pageData{
		Loading:    snap.Loading,
		Mode:       st.Mode.String(),
		WeekOffset: st.WeekOffset,
		PrevWeek:   st.WeekOffset - 1,
		NextWeek:   st.WeekOffset + 1,
		Month:      st.MonthLabel,
		MonthTabs:  snap.MonthTabs,
		Buckets:    res.Buckets,
	})
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	c.AbortWithStatusJSON(status, errResp{Error: msg})
}
