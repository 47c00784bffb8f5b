package audit

import (
	"context"
	"log/slog"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/ports"
)

// SystemActor is recorded when no caller is attached to the context.
const SystemActor = "system"

type sourceKey struct{}

// Source identifies who triggered an audited operation.
type Source struct {
	Actor string
	IP    string
}

// WithSource attaches the caller identity to ctx. The HTTP layer sets it
// from the request.
func WithSource(ctx context.Context, src Source) context.Context {
	return context.WithValue(ctx, sourceKey{}, src)
}

// SourceFrom returns the caller attached to ctx, or the system actor.
func SourceFrom(ctx context.Context) Source {
	if src, ok := ctx.Value(sourceKey{}).(Source); ok && src.Actor != "" {
		return src
	}
	return Source{Actor: SystemActor}
}

type AuditService struct {
	repo   ports.AuditRepository
	logger *slog.Logger
}

func NewAuditService(repo ports.AuditRepository, logger *slog.Logger) *AuditService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditService{repo: repo, logger: logger.With("component", "audit")}
}

func (s *AuditService) Log(ctx context.Context, action domain.AuditAction, target, details string) error {
	src := SourceFrom(ctx)

	// Use Domain Factory to ensure business rules
	entry, err := domain.NewAuditLog(src.Actor, action, target, details, src.IP)
	if err != nil {
		return err
	}

	if err := s.repo.SaveAuditLog(ctx, *entry); err != nil {
		s.logger.Error("failed to save audit log", "action", action, "target", target, "error", err)
		return err
	}
	return nil
}

func (s *AuditService) GetLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	return s.repo.ListAuditLogs(ctx, limit)
}
