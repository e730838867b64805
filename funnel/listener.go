package funnel

import (
	"context"

	"github.com/sirupsen/logrus"

	"funnelscope/api/models"
)

// ProgressionListener receives a notification each time a user completes a new stage.
type ProgressionListener interface {
	OnStageReached(ctx context.Context, p models.StageProgression)
}

// ListenerFunc adapts a plain function to ProgressionListener.
type ListenerFunc func(ctx context.Context, p models.StageProgression)

func (f ListenerFunc) OnStageReached(ctx context.Context, p models.StageProgression) {
	f(ctx, p)
}

// LogListener writes every stage progression to log.
func LogListener(log *logrus.Entry) ProgressionListener {
	return ListenerFunc(func(_ context.Context, p models.StageProgression) {
		log.WithFields(logrus.Fields{
			"userId":     p.UserProgress.UserID,
			"sessionId":  p.UserProgress.SessionID,
			"stage":      p.Stage.ID,
			"totalValue": p.UserProgress.TotalValue,
		}).Info("funnel stage reached")
	})
}
