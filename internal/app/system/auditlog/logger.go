// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/sparktrack/sparktrack/internal/app/store/audit"
	"github.com/sparktrack/sparktrack/internal/app/system/auth"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Formation controls logging for draft, invitation and confirmation events.
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Formation string
	// Directory controls logging for roster imports. Same values as Formation.
	Directory string
}

// Logger provides convenience methods for logging formation events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// Actor identifies who triggered an event. It travels in the request
// context so the formation core does not need to know about HTTP.
type Actor struct {
	ID string
	IP string
}

type actorKey struct{}

// WithActor returns a context carrying the actor.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom returns the actor stored in ctx, if any.
func ActorFrom(ctx context.Context) Actor {
	a, _ := ctx.Value(actorKey{}).(Actor)
	return a
}

// Middleware stores the resolved caller and client IP in the request
// context. It must run after auth.LoadIdentity.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a := Actor{IP: clientIP(r)}
		if id, ok := auth.CurrentUser(r); ok {
			a.ID = id.ID
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), a)))
	})
}

// clientIP extracts the client IP from the request.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.ActorID != "" {
		fields = append(fields, zap.String("actor_id", event.ActorID))
	}
	if event.GroupID != "" {
		fields = append(fields, zap.String("group_id", event.GroupID))
	}
	if event.FinalGroupID != "" {
		fields = append(fields, zap.String("final_group_id", event.FinalGroupID))
	}
	if event.StudentID != "" {
		fields = append(fields, zap.String("student_id", event.StudentID))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
// Actor fields left empty are filled from the context.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryFormation:
		setting = l.config.Formation
	case audit.CategoryDirectory:
		setting = l.config.Directory
	}
	if setting == "" {
		setting = "all"
	}
	if setting == "off" {
		return
	}

	actor := ActorFrom(ctx)
	if event.ActorID == "" {
		event.ActorID = actor.ID
	}
	if event.IP == "" {
		event.IP = actor.IP
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}

	if (setting == "all" || setting == "db") && l.store != nil {
		// The trail must not be lost because the request was cancelled
		// right after its write committed.
		if err := l.store.Log(context.WithoutCancel(ctx), event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// --- Formation Events ---

// DraftCreated logs a new draft.
func (l *Logger) DraftCreated(ctx context.Context, groupID, leaderID, teamName string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryFormation,
		EventType: audit.EventDraftCreated,
		GroupID:   groupID,
		StudentID: leaderID,
		Success:   true,
		Details:   map[string]string{"team_name": teamName},
	})
}

// DraftCancelled logs a cancelled draft and how many invitations went with it.
func (l *Logger) DraftCancelled(ctx context.Context, groupID, leaderID string, removedInvitations int64) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryFormation,
		EventType: audit.EventDraftCancelled,
		GroupID:   groupID,
		StudentID: leaderID,
		Success:   true,
		Details:   map[string]string{"invitations_removed": strconv.FormatInt(removedInvitations, 10)},
	})
}

// InvitationsSent logs one event per invited candidate.
func (l *Logger) InvitationsSent(ctx context.Context, groupID string, candidates []string) {
	for _, c := range candidates {
		l.Log(ctx, audit.Event{
			Category:  audit.CategoryFormation,
			EventType: audit.EventInvitationsSent,
			GroupID:   groupID,
			StudentID: c,
			Success:   true,
			Details:   map[string]string{"batch_size": strconv.Itoa(len(candidates))},
		})
	}
}

// InvitationAccepted logs an accepted invitation.
func (l *Logger) InvitationAccepted(ctx context.Context, groupID, studentID, requestID string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryFormation,
		EventType: audit.EventInvitationAccepted,
		GroupID:   groupID,
		StudentID: studentID,
		Success:   true,
		Details:   map[string]string{"request_id": requestID},
	})
}

// InvitationRejected logs a rejected invitation. The row itself is deleted,
// so this event is the only record of the rejection.
func (l *Logger) InvitationRejected(ctx context.Context, groupID, studentID, requestID string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryFormation,
		EventType: audit.EventInvitationRejected,
		GroupID:   groupID,
		StudentID: studentID,
		Success:   true,
		Details:   map[string]string{"request_id": requestID},
	})
}

// GroupConfirmed logs a finalized group.
func (l *Logger) GroupConfirmed(ctx context.Context, groupID, finalGroupID, leaderID string, members int) {
	l.Log(ctx, audit.Event{
		Category:     audit.CategoryFormation,
		EventType:    audit.EventGroupConfirmed,
		GroupID:      groupID,
		FinalGroupID: finalGroupID,
		StudentID:    leaderID,
		Success:      true,
		Details:      map[string]string{"members_count": strconv.Itoa(members)},
	})
}

// ConfirmRefused logs a confirmation that failed a precondition.
func (l *Logger) ConfirmRefused(ctx context.Context, groupID, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryFormation,
		EventType:     audit.EventConfirmRefused,
		GroupID:       groupID,
		Success:       false,
		FailureReason: reason,
	})
}

// --- Directory Events ---

// RosterImported logs a roster upload.
func (l *Logger) RosterImported(ctx context.Context, inserted, updated, rejected int) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryDirectory,
		EventType: audit.EventRosterImported,
		Success:   true,
		Details: map[string]string{
			"inserted": strconv.Itoa(inserted),
			"updated":  strconv.Itoa(updated),
			"rejected": strconv.Itoa(rejected),
		},
	})
}
