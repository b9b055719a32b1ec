package sqlite

import (
	"context"

	"github.com/example/cadence/internal/ctxutil"
	"github.com/example/cadence/internal/ports/secondary"
)

// LogWriterAdapter implements secondary.LogWriter using AuditLogRepository.
// The actor comes from context; writes are best effort and never block a
// user-facing operation.
type LogWriterAdapter struct {
	auditRepo secondary.AuditLogRepository
}

// NewLogWriterAdapter creates a new LogWriterAdapter.
func NewLogWriterAdapter(auditRepo secondary.AuditLogRepository) *LogWriterAdapter {
	return &LogWriterAdapter{auditRepo: auditRepo}
}

// LogCreate logs a create operation for an entity.
func (w *LogWriterAdapter) LogCreate(ctx context.Context, entityType, entityID string) error {
	return w.writeLog(ctx, entityType, entityID, "create", "", "", "")
}

// LogUpdate logs an update operation for an entity field.
func (w *LogWriterAdapter) LogUpdate(ctx context.Context, entityType, entityID, fieldName, oldValue, newValue string) error {
	return w.writeLog(ctx, entityType, entityID, "update", fieldName, oldValue, newValue)
}

// LogDelete logs a delete operation for an entity.
func (w *LogWriterAdapter) LogDelete(ctx context.Context, entityType, entityID string) error {
	return w.writeLog(ctx, entityType, entityID, "delete", "", "", "")
}

func (w *LogWriterAdapter) writeLog(ctx context.Context, entityType, entityID, action, fieldName, oldValue, newValue string) error {
	id, err := w.auditRepo.GetNextID(ctx)
	if err != nil {
		return err
	}

	return w.auditRepo.Create(ctx, &secondary.AuditRecord{
		ID:         id,
		ActorID:    ctxutil.ActorFromContext(ctx),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		FieldName:  fieldName,
		OldValue:   oldValue,
		NewValue:   newValue,
	})
}

// Ensure LogWriterAdapter implements the interface.
var _ secondary.LogWriter = (*LogWriterAdapter)(nil)
