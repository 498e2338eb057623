// Package rest exposes the dev server's HTTP API and websocket feeds. The
// route shapes mirror the production storefront API so the client package can
// be pointed at either.
package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/VolegzhaninaEM/stellar-burger-sub000/internal/errs"
	"github.com/VolegzhaninaEM/stellar-burger-sub000/internal/model"
	"github.com/VolegzhaninaEM/stellar-burger-sub000/internal/service"
)

const ctxUserID = "userID"

// Server wires the application services into gin handlers.
type Server struct {
	auth     service.AuthService
	orders   service.OrderService
	hub      *Hub
	log      *zap.Logger
	upgrader websocket.Upgrader
}

// New constructs a Server over the given services.
func New(auth service.AuthService, orders service.OrderService, hub *Hub, log *zap.Logger) *Server {
	return &Server{
		auth:   auth,
		orders: orders,
		hub:    hub,
		log:    log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Handler builds the full route table.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(s.logRequests(), gin.Recovery())

	api := r.Group("/api")
	api.POST("/auth/register", s.handleRegister)
	api.POST("/auth/login", s.handleLogin)
	api.POST("/auth/token", s.handleRefresh)
	api.POST("/auth/logout", s.handleLogout)
	api.GET("/ingredients", s.handleIngredients)
	api.GET("/orders/:number", s.handleOrderByNumber)

	authed := api.Group("", s.requireAuth)
	authed.GET("/auth/user", s.handleUser)
	authed.PATCH("/auth/user", s.handleUpdateUser)
	authed.POST("/orders", s.handleCreateOrder)

	r.GET("/orders/all", s.handlePublicFeed)
	r.GET("/orders", s.handleUserFeed)

	return r
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		)
	}
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": msg})
}

// requireAuth validates the bearer token and stores the subject in the
// request context.
func (s *Server) requireAuth(c *gin.Context) {
	raw := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if raw == "" {
		fail(c, http.StatusUnauthorized, "You should be authorised")
		return
	}
	uid, err := s.auth.ParseAccess(raw)
	if err != nil {
		fail(c, http.StatusForbidden, "jwt expired")
		return
	}
	c.Set(ctxUserID, uid)
	c.Next()
}

func currentUser(c *gin.Context) uuid.UUID {
	v, _ := c.Get(ctxUserID)
	uid, _ := v.(uuid.UUID)
	return uid
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// authPayload mirrors the production auth response. The access token carries
// a "Bearer " prefix on the wire.
func authPayload(pair model.TokenPair, user model.User) gin.H {
	return gin.H{
		"success":      true,
		"accessToken":  "Bearer " + pair.AccessToken,
		"refreshToken": pair.RefreshToken,
		"user":         user,
	}
}

func (s *Server) handleRegister(c *gin.Context) {
	var in credentials
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "malformed request body")
		return
	}
	pair, user, err := s.auth.Register(c.Request.Context(), in.Email, in.Password, in.Name)
	switch {
	case errors.Is(err, errs.ErrAlreadyExists):
		fail(c, http.StatusForbidden, "User already exists")
		return
	case err != nil:
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, authPayload(pair, user))
}

func (s *Server) handleLogin(c *gin.Context) {
	var in credentials
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "malformed request body")
		return
	}
	pair, user, err := s.auth.LoginWithIP(c.Request.Context(), in.Email, in.Password, c.ClientIP())
	switch {
	case errors.Is(err, errs.ErrRateLimited):
		fail(c, http.StatusTooManyRequests, "Too many login attempts, try again later")
		return
	case errors.Is(err, errs.ErrUnauthorized):
		fail(c, http.StatusUnauthorized, "email or password are incorrect")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}
	c.JSON(http.StatusOK, authPayload(pair, user))
}

type tokenBody struct {
	Token string `json:"token"`
}

func (s *Server) handleRefresh(c *gin.Context) {
	var in tokenBody
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "malformed request body")
		return
	}
	pair, err := s.auth.Refresh(c.Request.Context(), in.Token)
	if err != nil {
		fail(c, http.StatusForbidden, "Token is invalid")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"accessToken":  "Bearer " + pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

func (s *Server) handleLogout(c *gin.Context) {
	var in tokenBody
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := s.auth.Logout(c.Request.Context(), in.Token); err != nil {
		fail(c, http.StatusForbidden, "Token is invalid")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Successful logout"})
}

func (s *Server) handleUser(c *gin.Context) {
	user, err := s.auth.UserByID(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, http.StatusUnauthorized, "You should be authorised")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

func (s *Server) handleUpdateUser(c *gin.Context) {
	var patch model.UserPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		fail(c, http.StatusBadRequest, "malformed request body")
		return
	}
	user, err := s.auth.UpdateUser(c.Request.Context(), currentUser(c), patch)
	switch {
	case errors.Is(err, errs.ErrAlreadyExists):
		fail(c, http.StatusForbidden, "User with such email already exists")
		return
	case err != nil:
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

func (s *Server) handleIngredients(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": s.orders.Ingredients()})
}

type orderBody struct {
	Ingredients []string `json:"ingredients"`
}

func (s *Server) handleCreateOrder(c *gin.Context) {
	var in orderBody
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "malformed request body")
		return
	}
	o, err := s.orders.Create(c.Request.Context(), currentUser(c), in.Ingredients)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	s.PushFeeds(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"success": true, "name": o.Name, "order": o})
}

func (s *Server) handleOrderByNumber(c *gin.Context) {
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil {
		fail(c, http.StatusBadRequest, "order number must be numeric")
		return
	}
	o, err := s.orders.ByNumber(c.Request.Context(), number)
	if errors.Is(err, errs.ErrNotFound) {
		fail(c, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "orders": []model.Order{*o}})
}

func (s *Server) handlePublicFeed(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	snap, err := s.orders.PublicSnapshot(c.Request.Context())
	if err != nil {
		snap = &model.FeedSnapshot{}
	}
	s.hub.Serve(conn, uuid.Nil, snap)
}

func (s *Server) handleUserFeed(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	uid, err := s.auth.ParseAccess(c.Query("token"))
	if err != nil {
		// the feed protocol reports auth failures in-band
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteJSON(gin.H{"success": false, "message": "Invalid or missing token"})
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
		return
	}
	snap, err := s.orders.UserSnapshot(c.Request.Context(), uid)
	if err != nil {
		snap = &model.FeedSnapshot{}
	}
	s.hub.Serve(conn, uid, snap)
}

// PushFeeds recomputes and broadcasts the public snapshot plus a personal
// snapshot for every connected account.
func (s *Server) PushFeeds(ctx context.Context) {
	snap, err := s.orders.PublicSnapshot(ctx)
	if err != nil {
		s.log.Warn("public snapshot", zap.Error(err))
	} else {
		s.hub.BroadcastPublic(snap)
	}
	for _, uid := range s.hub.ConnectedUsers() {
		personal, err := s.orders.UserSnapshot(ctx, uid)
		if err != nil {
			s.log.Warn("user snapshot", zap.Error(err))
			continue
		}
		s.hub.BroadcastUser(uid, personal)
	}
}
