package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"codebuddy/internal/middleware"
	"codebuddy/internal/models"
)

const (
	defaultInterviewQuestions = 3
	maxInterviewQuestions     = 10
	minAnswerWords            = 20
)

type VoiceInterviewController struct {
	db       *gorm.DB
	auth     *middleware.Auth
	hub      *InterviewHub
	upgrader websocket.Upgrader
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewVoiceInterviewController(db *gorm.DB, auth *middleware.Auth, hub *InterviewHub, allowedOrigin string, log logrus.FieldLogger, now func() time.Time) *VoiceInterviewController {
	if now == nil {
		now = time.Now
	}
	return &VoiceInterviewController{
		db:   db,
		auth: auth,
		hub:  hub,
		log:  log,
		now:  now,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origin == allowedOrigin
			},
		},
	}
}

// StartSession picks random questions from a topic for a new interview.
func (vc *VoiceInterviewController) StartSession(c *gin.Context) {
	var input struct {
		TopicID uint `json:"topic_id" binding:"required"`
		Count   int  `json:"count"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	count := input.Count
	if count <= 0 {
		count = defaultInterviewQuestions
	}
	if count > maxInterviewQuestions {
		count = maxInterviewQuestions
	}

	var questions []models.Question
	if err := vc.db.Where("topic_id = ?", input.TopicID).Order("RANDOM()").Limit(count).Find(&questions).Error; err != nil {
		_ = c.Error(fmt.Errorf("pick interview questions: %w", err))
		return
	}
	if len(questions) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no questions available for this topic"})
		return
	}

	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = strconv.FormatUint(uint64(q.ID), 10)
	}
	session := models.InterviewSession{
		UserID:      middleware.UserID(c),
		TopicID:     input.TopicID,
		Status:      models.InterviewActive,
		QuestionIDs: strings.Join(ids, ","),
		StartedAt:   vc.now(),
	}
	if err := vc.db.Create(&session).Error; err != nil {
		_ = c.Error(fmt.Errorf("create interview session: %w", err))
		return
	}

	session.Questions = publicQuestions(questions)
	c.JSON(http.StatusCreated, gin.H{"session": session})
}

func (vc *VoiceInterviewController) GetSession(c *gin.Context) {
	session, ok := vc.loadOwnedSession(c)
	if !ok {
		return
	}
	if err := vc.db.Where("session_id = ?", session.ID).Order("id").Find(&session.Responses).Error; err != nil {
		_ = c.Error(fmt.Errorf("load interview responses: %w", err))
		return
	}
	questions, err := vc.sessionQuestions(session)
	if err != nil {
		_ = c.Error(err)
		return
	}
	session.Questions = publicQuestions(questions)
	c.JSON(http.StatusOK, gin.H{"session": session})
}

// SubmitResponse scores a transcript against the question keywords and
// pushes the result to stream listeners.
func (vc *VoiceInterviewController) SubmitResponse(c *gin.Context) {
	session, ok := vc.loadOwnedSession(c)
	if !ok {
		return
	}
	if session.Status != models.InterviewActive {
		c.JSON(http.StatusConflict, gin.H{"error": "interview session already ended"})
		return
	}

	var input struct {
		QuestionID uint   `json:"question_id" binding:"required"`
		Transcript string `json:"transcript" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !containsID(session.QuestionIDs, input.QuestionID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is not part of this session"})
		return
	}

	var question models.Question
	if err := vc.db.First(&question, input.QuestionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Question not found"})
			return
		}
		_ = c.Error(fmt.Errorf("load question: %w", err))
		return
	}

	score, feedback := ScoreTranscript(question, input.Transcript)
	response := models.InterviewResponse{
		SessionID:  session.ID,
		QuestionID: question.ID,
		Transcript: input.Transcript,
		Score:      score,
		Feedback:   feedback,
	}
	if err := vc.db.Create(&response).Error; err != nil {
		_ = c.Error(fmt.Errorf("save interview response: %w", err))
		return
	}

	vc.hub.Publish(InterviewEvent{
		Type:      EventResponseScored,
		SessionID: session.ID,
		Response:  &response,
		Score:     score,
	})
	c.JSON(http.StatusCreated, gin.H{"response": response})
}

// EndSession closes the interview with the average response score.
func (vc *VoiceInterviewController) EndSession(c *gin.Context) {
	session, ok := vc.loadOwnedSession(c)
	if !ok {
		return
	}
	if session.Status != models.InterviewActive {
		c.JSON(http.StatusConflict, gin.H{"error": "interview session already ended"})
		return
	}

	var avg struct{ Score float64 }
	if err := vc.db.Model(&models.InterviewResponse{}).Select("COALESCE(AVG(score), 0) AS score").
		Where("session_id = ?", session.ID).Scan(&avg).Error; err != nil {
		_ = c.Error(fmt.Errorf("average interview score: %w", err))
		return
	}

	ended := vc.now()
	session.Status = models.InterviewCompleted
	session.EndedAt = &ended
	session.Score = int(avg.Score + 0.5)
	if err := vc.db.Save(&session).Error; err != nil {
		_ = c.Error(fmt.Errorf("end interview session: %w", err))
		return
	}

	vc.hub.Publish(InterviewEvent{Type: EventSessionEnded, SessionID: session.ID, Score: session.Score})
	c.JSON(http.StatusOK, gin.H{"session": session})
}

// Stream upgrades to a WebSocket that receives every event of the session.
// Browsers cannot set headers on WebSocket requests, so the token travels
// in the query string.
func (vc *VoiceInterviewController) Stream(c *gin.Context) {
	claims, err := vc.auth.ValidateToken(c.Query("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}
	c.Set(middleware.ContextUserID, claims.UserID)
	c.Set(middleware.ContextRole, claims.Role)

	session, ok := vc.loadOwnedSession(c)
	if !ok {
		return
	}

	conn, err := vc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		vc.log.WithError(err).Warn("Failed to upgrade interview stream")
		return
	}
	defer conn.Close()

	vc.hub.Register(session.ID, conn)
	defer vc.hub.Unregister(session.ID, conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				vc.log.WithError(err).WithField("session_id", session.ID).Debug("Interview stream read ended")
			}
			return
		}
	}
}

func (vc *VoiceInterviewController) loadOwnedSession(c *gin.Context) (models.InterviewSession, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return models.InterviewSession{}, false
	}
	var session models.InterviewSession
	if err := vc.db.First(&session, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Interview session not found"})
			return models.InterviewSession{}, false
		}
		_ = c.Error(fmt.Errorf("load interview session %d: %w", id, err))
		return models.InterviewSession{}, false
	}
	if session.UserID != middleware.UserID(c) && middleware.Role(c) != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
		return models.InterviewSession{}, false
	}
	return session, true
}

// sessionQuestions loads the session's questions in asking order.
func (vc *VoiceInterviewController) sessionQuestions(session models.InterviewSession) ([]models.Question, error) {
	ids := splitIDs(session.QuestionIDs)
	if len(ids) == 0 {
		return []models.Question{}, nil
	}
	var found []models.Question
	if err := vc.db.Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, fmt.Errorf("load session questions: %w", err)
	}
	byID := make(map[uint]models.Question, len(found))
	for _, q := range found {
		byID[q.ID] = q
	}
	ordered := make([]models.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			ordered = append(ordered, q)
		}
	}
	return ordered, nil
}

// ScoreTranscript rates an answer by the share of expected keywords it
// mentions. Questions without keywords are scored on answer length.
func ScoreTranscript(q models.Question, transcript string) (int, string) {
	text := strings.ToLower(transcript)
	words := len(strings.Fields(text))

	keywords := q.KeywordList()
	var (
		score    int
		feedback string
	)
	if len(keywords) == 0 {
		score = words * 100 / (minAnswerWords * 2)
		if score > 100 {
			score = 100
		}
		feedback = fmt.Sprintf("Answer length: %d words.", words)
	} else {
		var covered, missing []string
		for _, k := range keywords {
			if strings.Contains(text, k) {
				covered = append(covered, k)
			} else {
				missing = append(missing, k)
			}
		}
		score = len(covered) * 100 / len(keywords)
		switch {
		case len(missing) == 0:
			feedback = "Great answer, you covered every key concept."
		case len(covered) == 0:
			feedback = "Try to mention: " + strings.Join(missing, ", ") + "."
		default:
			feedback = "Covered: " + strings.Join(covered, ", ") + ". Missing: " + strings.Join(missing, ", ") + "."
		}
	}

	if words < minAnswerWords {
		feedback += " Try to elaborate more."
	}
	return score, feedback
}

func splitIDs(csv string) []uint {
	var ids []uint
	for _, part := range strings.Split(csv, ",") {
		id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err == nil && id > 0 {
			ids = append(ids, uint(id))
		}
	}
	return ids
}

func containsID(csv string, id uint) bool {
	for _, v := range splitIDs(csv) {
		if v == id {
			return true
		}
	}
	return false
}
