package controller

import (
	"context"

	"promogen/logic"
	"promogen/models"
)

// HistoryStore 网关直接透传的只读查询
type HistoryStore interface {
	ListGenerations(ctx context.Context, userID string) ([]models.GenerationRecord, error)
	ListImageReferences(ctx context.Context, userID string) ([]string, error)
	ListFeedback(ctx context.Context, userID string) ([]models.FeedbackRecord, error)
}

// Checker 就绪检查项
type Checker interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	gen      *logic.Generator
	session  *logic.FeedbackSession
	history  HistoryStore
	checkers map[string]Checker
}

func NewHandler(gen *logic.Generator, session *logic.FeedbackSession, history HistoryStore, checkers map[string]Checker) *Handler {
	return &Handler{gen: gen, session: session, history: history, checkers: checkers}
}
