package handler

import (
	"autoclipper/internal/service"
)

// DispatchFunc queues one pipeline run for a video. Backed by the Asynq
// queue when Redis is configured, by the in-memory runner otherwise.
type DispatchFunc func(videoId string) error

type Handler struct {
	Service  *service.Service
	Dispatch DispatchFunc
}

func NewHandler(svc *service.Service, dispatch DispatchFunc) *Handler {
	return &Handler{Service: svc, Dispatch: dispatch}
}
