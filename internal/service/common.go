package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"sitesupply/internal/apperror"
	"sitesupply/internal/authz"
	"sitesupply/internal/model"
	"sitesupply/internal/repository"
	"sitesupply/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Actor is the authenticated caller. It is passed explicitly into every
// operation that needs authorization.
type Actor struct {
	ID   uuid.UUID
	Role string
}

func (a Actor) Can(c authz.Capability) bool {
	return authz.Can(a.Role, c)
}

func (a Actor) require(c authz.Capability) error {
	if !a.Can(c) {
		return apperror.InvalidRole(a.Role)
	}
	return nil
}

// notFound maps gorm's missing-row error onto the domain NotFound error and
// wraps everything else as an internal failure.
func notFound(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(entity)
	}
	return fmt.Errorf("failed to load %s: %w", entity, err)
}

func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, apperror.Validation(map[string]string{field: "must be a valid id"})
	}
	return id, nil
}

// parseOptionalID returns nil for an empty string.
func parseOptionalID(field, raw string) (*uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	id, err := parseID(field, raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func writeAudit(ctx context.Context, repo repository.AuditRepository, actor Actor, action, entityID, entityName string, details interface{}) error {
	payload, _ := json.Marshal(details)
	uid := actor.ID
	entry := &model.AuditLog{
		UserID:     &uid,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(payload),
	}
	if err := repo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func normalizePage(page, limit int) (int, int) {
	p := pagination.Normalize(page, limit)
	return p.Page, p.Limit
}
