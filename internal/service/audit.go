package service

import (
	"context"

	"github.com/hostelhq/maintenance-api/internal/models"
)

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}
