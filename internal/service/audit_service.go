package service

import (
	"context"
	"strings"

	"workorder-service/internal/model"
	"workorder-service/internal/policy"
	"workorder-service/internal/repository"
)

const defaultAuditLimit = 500

type AuditService struct {
	stores Stores
}

func NewAuditService(stores Stores) *AuditService {
	return &AuditService{stores: stores}
}

type AuditQuery struct {
	Model string
	User  string
	Limit int
}

// List returns audit entries newest first, filtered by model name or actor.
func (s *AuditService) List(ctx context.Context, principal model.Principal, query AuditQuery) ([]model.AuditLog, error) {
	if err := policy.Authorize(principal.Role, policy.OpViewAuditLog); err != nil {
		return nil, storeError(err, "audit log")
	}

	filter := repository.AuditLogFilter{Limit: query.Limit}
	if filter.Limit <= 0 {
		filter.Limit = defaultAuditLimit
	}
	if m := strings.TrimSpace(query.Model); m != "" {
		filter.Model = &m
	}
	if u := strings.TrimSpace(query.User); u != "" {
		filter.User = &u
	}

	logs, err := s.stores.AuditLogs.List(ctx, filter)
	if err != nil {
		return nil, storeError(err, "audit log")
	}
	return logs, nil
}
