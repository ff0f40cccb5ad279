// Package testutil holds helpers shared by package tests: an in-memory
// database, seeded users and JSON request helpers.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"codebuddy/internal/config"
	"codebuddy/internal/middleware"
	"codebuddy/internal/models"
)

const (
	Password  = "password123"
	JWTSecret = "test-secret"
)

// NewDB opens a migrated in-memory sqlite database private to the test.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Discard,
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is a fresh database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, config.Migrate(db))
	return db
}

func NewAuth() *middleware.Auth {
	return middleware.NewAuth(JWTSecret, time.Hour)
}

// CreateUser stores a user whose password is Password.
func CreateUser(t testing.TB, db *gorm.DB, email, role string) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	require.NoError(t, err)

	user := models.User{Name: "User " + email, Email: email, Password: string(hash), Role: role}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func Token(t testing.TB, auth *middleware.Auth, user models.User) string {
	t.Helper()
	token, err := auth.GenerateToken(user.ID, user.Role)
	require.NoError(t, err)
	return token
}

// CreateTopic stores a topic with count easy questions whose keywords are
// "stack" and "queue".
func CreateTopic(t testing.TB, db *gorm.DB, slug string, count int) (models.Topic, []models.Question) {
	t.Helper()
	topic := models.Topic{Name: slug, Slug: slug}
	require.NoError(t, db.Create(&topic).Error)

	questions := make([]models.Question, 0, count)
	for i := 0; i < count; i++ {
		q := models.Question{
			TopicID:    topic.ID,
			Title:      slug + " question",
			Prompt:     "Explain " + slug,
			Difficulty: models.DifficultyEasy,
			Solution:   "secret solution",
			Keywords:   "stack, queue",
		}
		require.NoError(t, db.Create(&q).Error)
		questions = append(questions, q)
	}
	return topic, questions
}

// Do sends a request with an optional JSON body and bearer token.
func Do(t testing.TB, h http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// Decode unmarshals the recorder body into a generic map.
func Decode(t testing.TB, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), "body: %s", rr.Body.String())
	return out
}
