// Package audit registra eventos de seguridad (emisión de grants, logins,
// revocaciones) en el log estructurado, marcados para poder derivarlos a un
// sink externo sin tocar a los emisores.
package audit

import (
	"context"

	"github.com/dropDatabas3/mailveil/internal/observability/logger"
	"go.uber.org/zap"
)

// Log emite un evento de auditoría sobre el logger del contexto.
func Log(ctx context.Context, event string, fields ...zap.Field) {
	all := make([]zap.Field, 0, len(fields)+2)
	all = append(all, zap.Bool("audit", true), zap.String("event", event))
	all = append(all, fields...)
	logger.From(ctx).Info("audit", all...)
}
