// Package backendtest provides an in-memory tiffin backend for tests. It
// serves the REST endpoints the client consumes with the same response
// shapes as the production service: "_id" identifiers, express-validator
// style {"errors": [...]} bodies and per-day {enabled, deliveries} schedules.
package backendtest

import (
	"net/http"
	"net/http/httptest"
	"net/mail"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/noahxzhu/tiffin-client/internal/model"
	"golang.org/x/crypto/bcrypt"
)

const userIDContextKey = "userID"

type account struct {
	id       string
	name     string
	email    string
	password []byte
}

type delivery struct {
	userID string
	record model.DeliveryRecord
}

// Server is a running fake backend. It is safe for concurrent use.
type Server struct {
	*httptest.Server

	secret []byte
	now    func() time.Time
	hits   atomic.Int64
	delay  atomic.Int64

	mu         sync.Mutex
	accounts   map[string]*account // by email
	schedules  map[string]*model.Schedule
	deliveries map[string]*delivery
	order      []string
}

// New starts a fake backend that is shut down when the test ends.
func New(tb testing.TB) *Server {
	tb.Helper()
	gin.SetMode(gin.TestMode)

	s := &Server{
		secret:     []byte(uuid.NewString()),
		now:        time.Now,
		accounts:   make(map[string]*account),
		schedules:  make(map[string]*model.Schedule),
		deliveries: make(map[string]*delivery),
	}
	s.Server = httptest.NewServer(s.router())
	tb.Cleanup(s.Close)
	return s
}

// SetDelay makes every handler wait d before responding.
func (s *Server) SetDelay(d time.Duration) {
	s.delay.Store(int64(d))
}

// Hits counts requests received so far.
func (s *Server) Hits() int {
	return int(s.hits.Load())
}

// AddUser registers an account directly and returns its id.
func (s *Server) AddUser(tb testing.TB, name, email, password string) string {
	tb.Helper()
	acct, err := s.createAccount(name, email, password)
	if err != nil {
		tb.Fatalf("backendtest: add user: %v", err)
	}
	return acct.id
}

// AddDelivery records a pending delivery for userID and returns its id.
func (s *Server) AddDelivery(userID, date, scheduledTime string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	s.deliveries[id] = &delivery{
		userID: userID,
		record: model.DeliveryRecord{
			ID:            id,
			UserName:      s.nameOf(userID),
			DeliveryDate:  date,
			ScheduledTime: scheduledTime,
			Quantity:      1,
			Status:        model.DeliveryPending,
		},
	}
	s.order = append(s.order, id)
	return id
}

// Schedule returns a copy of the stored schedule for userID.
func (s *Server) Schedule(userID string) (model.Schedule, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sched, ok := s.schedules[userID]
	if !ok {
		return model.Schedule{}, false
	}
	return *sched, true
}

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.countAndDelay())

	users := r.Group("/users")
	users.POST("/signup", s.handleSignup)
	users.POST("/login", s.handleLogin)

	tiffin := r.Group("/tiffin", s.requireToken())
	tiffin.GET("/schedule/:user_id", s.handleGetSchedule)
	tiffin.PUT("/schedule/:user_id", s.handleUpdateSchedule)
	tiffin.GET("/schedules/all", s.handleAllSchedules)
	tiffin.GET("/dashboard/stats", s.handleStats)
	tiffin.GET("/deliveries/:user_id", s.handleDeliveries)
	tiffin.PATCH("/delivery/:delivery_id/delivered", s.handleMarkDelivered)
	return r
}

func (s *Server) countAndDelay() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.hits.Add(1)
		if d := time.Duration(s.delay.Load()); d > 0 {
			select {
			case <-time.After(d):
			case <-c.Request.Context().Done():
				c.Abort()
				return
			}
		}
		c.Next()
	}
}

func (s *Server) requireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !found || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No token, authorization denied"})
			return
		}

		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims, func(*jwt.Token) (any, error) {
			return s.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token is not valid"})
			return
		}

		userID, _ := claims["userId"].(string)
		c.Set(userIDContextKey, userID)
		c.Next()
	}
}

type fieldError struct {
	Msg   string `json:"msg"`
	Path  string `json:"path"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

func (s *Server) handleSignup(c *gin.Context) {
	var req model.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var errs []fieldError
	if strings.TrimSpace(req.Name) == "" {
		errs = append(errs, fieldError{Msg: "Name is required", Path: "name", Type: "field", Value: req.Name})
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		errs = append(errs, fieldError{Msg: "Valid email is required", Path: "email", Type: "field", Value: req.Email})
	}
	if len(req.Password) < 8 {
		errs = append(errs, fieldError{Msg: "Password must be at least 8 characters", Path: "password", Type: "field"})
	}
	if len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"errors": errs})
		return
	}

	if _, err := s.createAccount(strings.TrimSpace(req.Name), req.Email, req.Password); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Signup successful"})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var errs []fieldError
	if _, err := mail.ParseAddress(req.Email); err != nil {
		errs = append(errs, fieldError{Msg: "Valid email is required", Path: "email", Type: "field", Value: req.Email})
	}
	if req.Password == "" {
		errs = append(errs, fieldError{Msg: "Password is required", Path: "password", Type: "field"})
	}
	if len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"errors": errs})
		return
	}

	s.mu.Lock()
	acct, ok := s.accounts[strings.ToLower(req.Email)]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if bcrypt.CompareHashAndPassword(acct.password, []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid password"})
		return
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": acct.id,
		"email":  acct.email,
		"exp":    s.now().Add(7 * 24 * time.Hour).Unix(),
	}).SignedString(s.secret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Logged in",
		"user":         gin.H{"_id": acct.id, "name": acct.name, "email": acct.email},
		"access_token": token,
	})
}

func (s *Server) handleGetSchedule(c *gin.Context) {
	userID := c.Param("user_id")

	s.mu.Lock()
	defer s.mu.Unlock()

	sched, err := s.scheduleFor(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, scheduleJSON(sched))
}

func (s *Server) handleUpdateSchedule(c *gin.Context) {
	userID := c.Param("user_id")

	var req model.ScheduleUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sched, err := s.scheduleFor(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	sched.WeeklySchedule = req.WeeklySchedule
	if req.HolidayMode != nil {
		sched.HolidayMode = *req.HolidayMode
	}
	c.JSON(http.StatusOK, gin.H{"message": "Schedule updated successfully", "schedule": scheduleJSON(sched)})
}

func (s *Server) handleAllSchedules(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.allSchedulesJSON())
}

func (s *Server) handleStats(c *gin.Context) {
	now := s.now()
	today := now.Format(model.DateLayout)
	weekAgo := now.AddDate(0, 0, -7).Format(model.DateLayout)

	s.mu.Lock()
	defer s.mu.Unlock()

	var todayScheduled, todayDelivered, weekTotal, weekDelivered int
	var recent []*delivery
	for _, id := range s.order {
		d := s.deliveries[id]
		if d.record.DeliveryDate == today {
			todayScheduled++
			if d.record.Delivered {
				todayDelivered++
			}
		}
		if d.record.DeliveryDate >= weekAgo {
			weekTotal++
			if d.record.Delivered {
				weekDelivered++
			}
			recent = append(recent, d)
		}
	}
	sortNewestFirst(recent)
	if len(recent) > 20 {
		recent = recent[:20]
	}

	stats := gin.H{
		"total_users":       len(s.accounts),
		"today_scheduled":   todayScheduled,
		"today_delivered":   todayDelivered,
		"week_total":        weekTotal,
		"week_delivered":    weekDelivered,
		"schedules":         s.allSchedulesJSON(),
		"recent_deliveries": deliveriesJSON(recent),
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleDeliveries(c *gin.Context) {
	userID := c.Param("user_id")
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a number"})
		return
	}
	from := s.now().AddDate(0, 0, -days).Format(model.DateLayout)

	s.mu.Lock()
	defer s.mu.Unlock()

	var list []*delivery
	for _, id := range s.order {
		d := s.deliveries[id]
		if d.userID == userID && d.record.DeliveryDate >= from {
			list = append(list, d)
		}
	}
	sortNewestFirst(list)
	c.JSON(http.StatusOK, deliveriesJSON(list))
}

func (s *Server) handleMarkDelivered(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.deliveries[c.Param("delivery_id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Delivery not found"})
		return
	}
	d.record.Delivered = true
	d.record.Status = model.DeliveryDelivered
	c.JSON(http.StatusOK, gin.H{"message": "Marked as delivered", "delivery": deliveryJSON(d)})
}

func (s *Server) createAccount(name, email, password string) (*account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(email)
	if _, exists := s.accounts[key]; exists {
		return nil, errEmailTaken
	}
	acct := &account{id: uuid.NewString(), name: name, email: email, password: hash}
	s.accounts[key] = acct
	return acct, nil
}

// scheduleFor returns the stored schedule, creating the backend default for
// a known user. Callers hold s.mu.
func (s *Server) scheduleFor(userID string) (*model.Schedule, error) {
	if sched, ok := s.schedules[userID]; ok {
		return sched, nil
	}
	name := s.nameOf(userID)
	if name == "" {
		return nil, errUserNotFound
	}
	sched := &model.Schedule{UserID: userID, UserName: name}
	sched.WeeklySchedule.Sunday = model.DaySchedule{Enabled: true, Time: "13:00"}
	s.schedules[userID] = sched
	return sched, nil
}

func (s *Server) nameOf(userID string) string {
	for _, acct := range s.accounts {
		if acct.id == userID {
			return acct.name
		}
	}
	return ""
}

func (s *Server) allSchedulesJSON() []gin.H {
	ids := make([]string, 0, len(s.schedules))
	for id := range s.schedules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]gin.H, 0, len(ids))
	for _, id := range ids {
		out = append(out, scheduleJSON(s.schedules[id]))
	}
	return out
}

func scheduleJSON(sched *model.Schedule) gin.H {
	week := gin.H{}
	for _, day := range model.Weekdays {
		ds := sched.WeeklySchedule.Day(day)
		deliveries := []gin.H{}
		if ds.Time != "" {
			deliveries = append(deliveries, gin.H{"time": ds.Time, "quantity": 1})
		}
		week[string(day)] = gin.H{"enabled": ds.Enabled, "deliveries": deliveries}
	}
	return gin.H{
		"user_id":         sched.UserID,
		"user_name":       sched.UserName,
		"weekly_schedule": week,
		"holiday_mode":    sched.HolidayMode,
	}
}

func deliveryJSON(d *delivery) gin.H {
	return gin.H{
		"_id":            d.record.ID,
		"user_id":        d.userID,
		"user_name":      d.record.UserName,
		"delivery_date":  d.record.DeliveryDate,
		"scheduled_time": d.record.ScheduledTime,
		"quantity":       d.record.Quantity,
		"delivered":      d.record.Delivered,
		"status":         d.record.Status,
	}
}

func deliveriesJSON(list []*delivery) []gin.H {
	out := make([]gin.H, 0, len(list))
	for _, d := range list {
		out = append(out, deliveryJSON(d))
	}
	return out
}

func sortNewestFirst(list []*delivery) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].record.DeliveryDate > list[j].record.DeliveryDate
	})
}
