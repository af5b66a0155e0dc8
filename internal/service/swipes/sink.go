package swipes

import (
	"context"
	"log/slog"

	"github.com/sparkmatch/engine/internal/db"
)

// EventSink receives engine events for achievement/notification side
// effects. Best-effort and fire-and-forget: a sink failure never fails
// the swipe it accompanies, and the engine never waits on it.
type EventSink interface {
	MatchCreated(ctx context.Context, match *db.Match)
	SwipeRecorded(ctx context.Context, swipe *db.Swipe)
}

// LogSink is the default sink: it just logs.
type LogSink struct {
	Logger *slog.Logger
}

func (l *LogSink) MatchCreated(_ context.Context, match *db.Match) {
	l.Logger.Info("match created",
		"match_id", match.ID, "user_low", match.UserLowID, "user_high", match.UserHighID)
}

func (l *LogSink) SwipeRecorded(_ context.Context, swipe *db.Swipe) {
	l.Logger.Debug("swipe recorded",
		"actor", swipe.ActorID, "target", swipe.TargetID, "direction", swipe.Direction)
}

func (s *Service) notifyMatch(ctx context.Context, match *db.Match) {
	if s.sink == nil {
		return
	}
	s.sink.MatchCreated(ctx, match)
}

func (s *Service) notifySwipe(ctx context.Context, swipe *db.Swipe) {
	if s.sink == nil {
		return
	}
	s.sink.SwipeRecorded(ctx, swipe)
}
