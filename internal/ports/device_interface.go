package ports

import (
	"context"
	"saas-auth-server/internal/model"
)

type DeviceRegistry interface {
	// UpsertDevice returns a nil id when no device context is given; created is true for a new row.
	UpsertDevice(ctx context.Context, userID int64, device *model.DeviceContext) (id *int64, created bool, err error)
	FindByID(ctx context.Context, userID, deviceID int64) (*model.Device, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Device, error)
}

type PermissionGate interface {
	HasPermissions(ctx context.Context, userID int64, permissions []string) (bool, error)
	Grant(ctx context.Context, userID int64, name string, value *string) error
	Revoke(ctx context.Context, userID int64, name string) (bool, error)
	List(ctx context.Context, userID int64) ([]model.Permission, error)
}

type Notifier interface {
	NotifyNewDevice(ctx context.Context, event model.DeviceEvent) error
}
