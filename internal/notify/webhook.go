// Package notify delivers run-finished webhooks to the configured endpoint.
package notify

import (
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"autoclipper/log"
)

type Notifier struct {
	client     *resty.Client
	webhookUrl string
}

func NewNotifier(webhookUrl string) *Notifier {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(2 * time.Second)
	return &Notifier{client: client, webhookUrl: webhookUrl}
}

type runFinishedPayload struct {
	VideoId    string `json:"video_id"`
	Status     string `json:"status"`
	Generation int    `json:"generation"`
	ClipsReady int    `json:"clips_ready"`
	Error      string `json:"error,omitempty"`
}

// NotifyRunFinished fires once per terminal run state. Delivery is best
// effort, a dead webhook never affects the run outcome.
func (n *Notifier) NotifyRunFinished(videoId, status string, generation, clipsReady int, errMsg string) {
	if n == nil || n.webhookUrl == "" {
		return
	}

	resp, err := n.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(runFinishedPayload{
			VideoId:    videoId,
			Status:     status,
			Generation: generation,
			ClipsReady: clipsReady,
			Error:      errMsg,
		}).
		Post(n.webhookUrl)
	if err != nil {
		log.GetLogger().Warn("webhook delivery failed",
			zap.String("videoId", videoId), zap.Error(err))
		return
	}
	if resp.IsError() {
		log.GetLogger().Warn("webhook rejected",
			zap.String("videoId", videoId),
			zap.Int("statusCode", resp.StatusCode()))
	}
}
