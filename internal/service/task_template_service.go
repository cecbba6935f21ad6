package service

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"workorder-service/internal/model"
	"workorder-service/internal/policy"
	"workorder-service/internal/repository"
)

type TaskTemplateService struct {
	stores Stores
	audit  auditRecorder
	log    zerolog.Logger
}

func NewTaskTemplateService(stores Stores, log zerolog.Logger) *TaskTemplateService {
	return &TaskTemplateService{
		stores: stores,
		audit:  auditRecorder{sink: stores.Audit, log: log, now: time.Now},
		log:    log,
	}
}

type CreateTaskTemplateInput struct {
	ServiceType       string `json:"serviceType"`
	Description       string `json:"taskTemplateDescription"`
	SuggestedEvidence string `json:"taskTemplateSuggestedEvidence"`
}

func (s *TaskTemplateService) Create(ctx context.Context, principal model.Principal, input CreateTaskTemplateInput) (*model.TaskTemplate, error) {
	if err := policy.Authorize(principal.Role, policy.OpManageTemplates); err != nil {
		return nil, storeError(err, "task template")
	}
	tpl, err := s.create(ctx, input)
	if err != nil {
		return nil, err
	}
	s.audit.record(ctx, principalActor(principal), model.AuditActionCreate, model.AuditModelTaskTemplate, tpl.ID.String(), tpl)
	return tpl, nil
}

// create appends the template after the existing ones of its service type.
func (s *TaskTemplateService) create(ctx context.Context, input CreateTaskTemplateInput) (*model.TaskTemplate, error) {
	serviceType := model.ServiceType(strings.TrimSpace(input.ServiceType))
	if !serviceType.Valid() {
		return nil, validationError("invalid serviceType %q", input.ServiceType)
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, validationError("taskTemplateDescription is required")
	}

	tpl := &model.TaskTemplate{
		ServiceType:       serviceType,
		Description:       description,
		SuggestedEvidence: strings.TrimSpace(input.SuggestedEvidence),
	}
	err := s.stores.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.stores.Tx.AdvisoryLock(ctx, "template:"+string(serviceType)); err != nil {
			return err
		}
		maxOrdering, err := s.stores.Templates.MaxOrdering(ctx, serviceType)
		if err != nil {
			return err
		}
		tpl.Ordering = maxOrdering + 1
		return s.stores.Templates.Create(ctx, tpl)
	})
	if err != nil {
		return nil, storeError(err, "task template")
	}
	return tpl, nil
}

func (s *TaskTemplateService) Get(ctx context.Context, principal model.Principal, id string) (*model.TaskTemplate, error) {
	if err := policy.Authorize(principal.Role, policy.OpViewTemplates); err != nil {
		return nil, storeError(err, "task template")
	}
	tplID, err := parseID(id, "task template id")
	if err != nil {
		return nil, err
	}
	tpl, err := s.stores.Templates.GetByID(ctx, tplID)
	if err != nil {
		return nil, storeError(err, "task template")
	}
	return tpl, nil
}

// List returns all templates, or those of one service type when serviceType
// is not empty.
func (s *TaskTemplateService) List(ctx context.Context, principal model.Principal, serviceType string) ([]model.TaskTemplate, error) {
	if err := policy.Authorize(principal.Role, policy.OpViewTemplates); err != nil {
		return nil, storeError(err, "task template")
	}
	var filter repository.TaskTemplateFilter
	if serviceType = strings.TrimSpace(serviceType); serviceType != "" {
		st := model.ServiceType(serviceType)
		if !st.Valid() {
			return nil, validationError("invalid serviceType %q", serviceType)
		}
		filter.ServiceType = &st
	}
	templates, err := s.stores.Templates.List(ctx, filter)
	if err != nil {
		return nil, storeError(err, "task template")
	}
	return templates, nil
}

type UpdateTaskTemplateInput struct {
	Description       *string `json:"taskTemplateDescription"`
	SuggestedEvidence *string `json:"taskTemplateSuggestedEvidence"`
	ServiceType       *string `json:"serviceType"`
	Ordering          *int    `json:"taskTemplateOrdering"`
}

func (s *TaskTemplateService) Update(ctx context.Context, principal model.Principal, id string, input UpdateTaskTemplateInput) (*model.TaskTemplate, error) {
	if err := policy.Authorize(principal.Role, policy.OpManageTemplates); err != nil {
		return nil, storeError(err, "task template")
	}
	tplID, err := parseID(id, "task template id")
	if err != nil {
		return nil, err
	}

	current, err := s.stores.Templates.GetByID(ctx, tplID)
	if err != nil {
		return nil, storeError(err, "task template")
	}
	if input.ServiceType != nil && strings.TrimSpace(*input.ServiceType) != string(current.ServiceType) {
		return nil, validationError("serviceType cannot be changed")
	}
	if input.Ordering != nil && *input.Ordering != current.Ordering {
		return nil, validationError("taskTemplateOrdering cannot be changed")
	}

	next := *current
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if description == "" {
			return nil, validationError("taskTemplateDescription must not be empty")
		}
		next.Description = description
	}
	if input.SuggestedEvidence != nil {
		next.SuggestedEvidence = strings.TrimSpace(*input.SuggestedEvidence)
	}

	changes := changeSet{}
	changes.track("taskTemplateDescription", current.Description, next.Description)
	changes.track("taskTemplateSuggestedEvidence", current.SuggestedEvidence, next.SuggestedEvidence)
	if changes.empty() {
		return nil, newError(ErrNoChanges, "no changes detected")
	}

	if err := s.stores.Templates.Update(ctx, &next); err != nil {
		return nil, storeError(err, "task template")
	}
	s.audit.record(ctx, principalActor(principal), model.AuditActionUpdate, model.AuditModelTaskTemplate, next.ID.String(), changes)
	return &next, nil
}

func (s *TaskTemplateService) Delete(ctx context.Context, principal model.Principal, id string) error {
	if err := policy.Authorize(principal.Role, policy.OpManageTemplates); err != nil {
		return storeError(err, "task template")
	}
	tplID, err := parseID(id, "task template id")
	if err != nil {
		return err
	}
	current, err := s.stores.Templates.GetByID(ctx, tplID)
	if err != nil {
		return storeError(err, "task template")
	}
	if err := s.stores.Templates.Delete(ctx, tplID); err != nil {
		return storeError(err, "task template")
	}
	s.audit.record(ctx, principalActor(principal), model.AuditActionDelete, model.AuditModelTaskTemplate, tplID.String(), current)
	return nil
}

type TemplateItem struct {
	ID                string `json:"id"`
	Ordering          int    `json:"taskTemplateOrdering"`
	Description       string `json:"taskTemplateDescription"`
	SuggestedEvidence string `json:"taskTemplateSuggestedEvidence"`
}

type ServiceTypeTemplates struct {
	ServiceType model.ServiceType `json:"serviceType"`
	Tasks       []TemplateItem    `json:"task"`
}

// GroupedByServiceType lists the templates as one group per service type,
// each group in ordering sequence.
func (s *TaskTemplateService) GroupedByServiceType(ctx context.Context, principal model.Principal) ([]ServiceTypeTemplates, error) {
	templates, err := s.List(ctx, principal, "")
	if err != nil {
		return nil, err
	}

	groups := make(map[model.ServiceType][]TemplateItem)
	for _, tpl := range templates {
		groups[tpl.ServiceType] = append(groups[tpl.ServiceType], TemplateItem{
			ID:                tpl.ID.String(),
			Ordering:          tpl.Ordering,
			Description:       tpl.Description,
			SuggestedEvidence: tpl.SuggestedEvidence,
		})
	}

	out := make([]ServiceTypeTemplates, 0, len(groups))
	for st, items := range groups {
		sort.Slice(items, func(i, j int) bool { return items[i].Ordering < items[j].Ordering })
		out = append(out, ServiceTypeTemplates{ServiceType: st, Tasks: items})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ServiceType < out[j].ServiceType })
	return out, nil
}

func (s *TaskTemplateService) Search(ctx context.Context, principal model.Principal, term string) ([]model.TaskTemplate, error) {
	if err := policy.Authorize(principal.Role, policy.OpViewTemplates); err != nil {
		return nil, storeError(err, "task template")
	}
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, validationError("search term is required")
	}
	templates, err := s.stores.Templates.Search(ctx, term)
	if err != nil {
		return nil, storeError(err, "task template")
	}
	return templates, nil
}

type templateCatalog struct {
	Templates map[string][]struct {
		Description       string `yaml:"description"`
		SuggestedEvidence string `yaml:"suggestedEvidence"`
	} `yaml:"templates"`
}

// SeedFromFile loads a YAML catalog of templates into an empty table. It
// returns how many templates were created.
func (s *TaskTemplateService) SeedFromFile(ctx context.Context, path string) (int, error) {
	count, err := s.stores.Templates.Count(ctx)
	if err != nil {
		return 0, storeError(err, "task template")
	}
	if count > 0 {
		return 0, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read template catalog: %w", err)
	}
	var catalog templateCatalog
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return 0, fmt.Errorf("parse template catalog: %w", err)
	}

	serviceTypes := make([]string, 0, len(catalog.Templates))
	for st := range catalog.Templates {
		serviceTypes = append(serviceTypes, st)
	}
	sort.Strings(serviceTypes)

	created := 0
	for _, st := range serviceTypes {
		for _, entry := range catalog.Templates[st] {
			tpl, err := s.create(ctx, CreateTaskTemplateInput{
				ServiceType:       st,
				Description:       entry.Description,
				SuggestedEvidence: entry.SuggestedEvidence,
			})
			if err != nil {
				return created, fmt.Errorf("seed %s template %q: %w", st, entry.Description, err)
			}
			s.audit.record(ctx, systemActor, model.AuditActionCreate, model.AuditModelTaskTemplate, tpl.ID.String(), tpl)
			created++
		}
	}

	s.log.Info().Int("templates", created).Str("file", path).Msg("task templates seeded")
	return created, nil
}
