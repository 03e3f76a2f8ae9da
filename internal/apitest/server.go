// Package apitest runs an in-process Transit backend for tests. It speaks the
// same JSON contract as the real API: bearer JWT access tokens, opaque refresh
// tokens and role-restricted business endpoints.
package apitest

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/transitdesk/transitdesk/internal/session"
)

const (
	// BasePath is the API prefix every endpoint is mounted under
	BasePath = "/api/v1"

	// DefaultPassword is the password of every seeded account
	DefaultPassword = "secret123"

	bearerPrefix = "Bearer "
	sessionKey   = "session"
)

var (
	ErrMissingAuthHeader = errors.New("missing authorization header")
	ErrInvalidAuthFormat = errors.New("invalid authorization header format")
	ErrEmptyToken        = errors.New("empty token")
	ErrInvalidToken      = errors.New("invalid token")
	ErrStaleToken        = errors.New("token generation expired")
)

type account struct {
	profile      session.UserProfile
	passwordHash string
}

// claims are the access token claims. Generation lets tests expire every
// issued token at once.
type claims struct {
	UserID     int64        `json:"user_id"`
	Email      string       `json:"email"`
	Role       session.Role `json:"role"`
	Generation int64        `json:"gen"`
	jwt.RegisteredClaims
}

// Server is a stub Transit backend
type Server struct {
	*httptest.Server

	logger zerolog.Logger
	secret []byte

	mu            sync.Mutex
	generation    int64
	nextID        int64
	accounts      map[string]*account // by email
	refreshTokens map[string]int64    // token -> user id
	rotateRefresh bool
	rejectRefresh bool
	data          *dataset

	refreshCalls atomic.Int64
	businessHits atomic.Int64
}

// New starts a stub backend seeded with one account per role
// (admin@transit.test, driver@transit.test, passenger@transit.test)
// and shuts it down when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &Server{
		logger:        zerolog.Nop(),
		secret:        []byte("apitest-" + ulid.Make().String()),
		nextID:        100,
		accounts:      make(map[string]*account),
		refreshTokens: make(map[string]int64),
		data:          seedData(),
	}

	for _, seed := range []struct {
		id    int64
		name  string
		email string
		role  session.Role
	}{
		{1, "Ada Admin", "admin@transit.test", session.RoleAdmin},
		{2, "Dan Driver", "driver@transit.test", session.RoleDriver},
		{3, "Pat Passenger", "passenger@transit.test", session.RolePassenger},
	} {
		if err := s.addAccount(session.UserProfile{
			ID:    seed.id,
			Name:  seed.name,
			Email: seed.email,
			Role:  seed.role,
			Phone: "555-0100",
		}, DefaultPassword); err != nil {
			t.Fatalf("failed to seed account %s: %v", seed.email, err)
		}
	}

	s.Server = httptest.NewServer(s.router())
	t.Cleanup(s.Close)
	return s
}

// APIURL returns the base URL clients should be configured with
func (s *Server) APIURL() string {
	return s.URL + BasePath
}

// AddUser registers an extra account with the given role
func (s *Server) AddUser(email, password string, role session.Role) session.UserProfile {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.mu.Unlock()

	profile := session.UserProfile{ID: id, Name: email, Email: email, Role: role}
	if err := s.addAccount(profile, password); err != nil {
		panic(fmt.Sprintf("apitest: failed to add user: %v", err))
	}
	return profile
}

// ExpireAccessTokens invalidates every access token issued so far. Refresh
// tokens stay valid.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
}

// SetRotateRefresh makes /auth/refresh issue a new refresh token each time
func (s *Server) SetRotateRefresh(rotate bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rotateRefresh = rotate
}

// SetRejectRefresh makes /auth/refresh answer 401 for every token
func (s *Server) SetRejectRefresh(reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectRefresh = reject
}

// RefreshCalls returns how many times /auth/refresh was hit
func (s *Server) RefreshCalls() int64 {
	return s.refreshCalls.Load()
}

// BusinessHits returns how many authenticated requests reached a handler
func (s *Server) BusinessHits() int64 {
	return s.businessHits.Load()
}

// IssueTokens mints an access and refresh token pair for email without going
// through /auth/login
func (s *Server) IssueTokens(email string) (session.UserProfile, string, string, error) {
	s.mu.Lock()
	acct, ok := s.accounts[strings.ToLower(email)]
	s.mu.Unlock()
	if !ok {
		return session.UserProfile{}, "", "", fmt.Errorf("unknown account %q", email)
	}

	access, err := s.signAccessToken(acct.profile)
	if err != nil {
		return session.UserProfile{}, "", "", err
	}
	return acct.profile, access, s.newRefreshToken(acct.profile.ID), nil
}

func (s *Server) addAccount(profile session.UserProfile, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[strings.ToLower(profile.Email)] = &account{profile: profile, passwordHash: string(hash)}
	return nil
}

func (s *Server) findAccountByID(id int64) (*account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acct := range s.accounts {
		if acct.profile.ID == id {
			return acct, true
		}
	}
	return nil, false
}

func (s *Server) signAccessToken(profile session.UserProfile) (string, error) {
	s.mu.Lock()
	generation := s.generation
	s.mu.Unlock()

	now := time.Now()
	c := claims{
		UserID:     profile.ID,
		Email:      profile.Email,
		Role:       profile.Role,
		Generation: generation,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ulid.Make().String(),
			Subject:   profile.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(now.Add(15 * time.Minute)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString(s.secret)
}

func (s *Server) validateAccessToken(tokenString string) (*claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	s.mu.Lock()
	current := s.generation
	s.mu.Unlock()
	if c.Generation != current {
		return nil, ErrStaleToken
	}
	return c, nil
}

func (s *Server) newRefreshToken(userID int64) string {
	token := ulid.Make().String()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshTokens[token] = userID
	return token
}

func extractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingAuthHeader
	}

	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", ErrInvalidAuthFormat
	}

	token := strings.TrimPrefix(authHeader, bearerPrefix)
	if token == "" {
		return "", ErrEmptyToken
	}

	return token, nil
}

func respondWithError(c *gin.Context, log zerolog.Logger, statusCode int, err error, message string) {
	log.Warn().Err(err).Msg(message)
	c.JSON(statusCode, gin.H{"error": message})
	c.Abort()
}

// authMiddleware validates the bearer access token and stores its claims
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			respondWithError(c, s.logger, http.StatusUnauthorized, err, "Missing or malformed authorization header")
			return
		}

		tokenClaims, err := s.validateAccessToken(token)
		if err != nil {
			respondWithError(c, s.logger, http.StatusUnauthorized, err, "Invalid or expired token")
			return
		}

		c.Set(sessionKey, tokenClaims)
		s.businessHits.Add(1)
		c.Next()
	}
}

// requireRole rejects authenticated callers whose role is not listed
func (s *Server) requireRole(roles ...session.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenClaims, ok := claimsFrom(c)
		if !ok {
			respondWithError(c, s.logger, http.StatusUnauthorized, errors.New("no session"), "Unauthorized")
			return
		}

		for _, role := range roles {
			if tokenClaims.Role == role {
				c.Next()
				return
			}
		}
		respondWithError(c, s.logger, http.StatusForbidden, errors.New("role not allowed"), "Access denied")
	}
}

func claimsFrom(c *gin.Context) (*claims, bool) {
	value, exists := c.Get(sessionKey)
	if !exists {
		return nil, false
	}
	tokenClaims, ok := value.(*claims)
	return tokenClaims, ok
}

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group(BasePath)

	// Anonymous endpoints
	api.POST("/auth/login", s.login)
	api.POST("/auth/register", s.register)
	api.POST("/auth/refresh", s.refresh)

	authed := api.Group("")
	authed.Use(s.authMiddleware())
	{
		admin := s.requireRole(session.RoleAdmin)
		driver := s.requireRole(session.RoleDriver)
		passenger := s.requireRole(session.RolePassenger)

		authed.GET("/vehicles", admin, s.listVehicles)
		authed.POST("/vehicles", admin, s.createVehicle)
		authed.DELETE("/vehicles/:id", admin, s.deleteVehicle)
		authed.GET("/users/drivers", admin, s.listDrivers)
		authed.POST("/users/register-driver", admin, s.registerDriver)
		authed.GET("/routes", s.listRoutes)
		authed.GET("/schedule/:routeId", s.listSchedules)
		authed.GET("/trip", admin, s.listTrips)
		authed.POST("/trip", admin, s.createTrip)
		authed.GET("/trip/search", passenger, s.searchTrips)
		authed.GET("/trip/driver/:driverId", driver, s.driverTrips)
		authed.PUT("/trip/:id/start", driver, s.startTrip)
		authed.PUT("/trip/:id/end", driver, s.endTrip)
		authed.POST("/ticket/book", passenger, s.bookTicket)
		authed.GET("/ticket/history/:userId", passenger, s.ticketHistory)
	}

	return r
}
