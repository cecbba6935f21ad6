package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"workorder-service/internal/model"
	"workorder-service/internal/policy"
	"workorder-service/internal/utils"
)

type ClientService struct {
	stores Stores
	audit  auditRecorder
	log    zerolog.Logger
}

func NewClientService(stores Stores, log zerolog.Logger) *ClientService {
	return &ClientService{
		stores: stores,
		audit:  auditRecorder{sink: stores.Audit, log: log, now: time.Now},
		log:    log,
	}
}

type ClientInput struct {
	Email         string          `json:"clientEmail" validate:"required,email,max=255"`
	CompanyName   string          `json:"clientCompanyName" validate:"required,min=3,max=100"`
	ContactPerson string          `json:"clientContactPerson" validate:"required,min=3,max=100"`
	Phone         string          `json:"clientPhone" validate:"max=20"`
	Address       string          `json:"clientAddress" validate:"max=255"`
	GeoLocation   *model.GeoPoint `json:"clientGeoLocation" validate:"required"`
}

func (in *ClientInput) normalize() {
	in.Email = utils.NormalizeEmail(in.Email)
	in.CompanyName = utils.NormalizeCompanyName(in.CompanyName)
	in.ContactPerson = strings.TrimSpace(in.ContactPerson)
	in.Phone = utils.NormalizePhone(in.Phone)
	in.Address = strings.TrimSpace(in.Address)
}

func (in *ClientInput) validate() error {
	if err := validateStruct(in); err != nil {
		return err
	}
	if err := in.GeoLocation.Validate(); err != nil {
		return validationError("clientGeoLocation: %s", err.Error())
	}
	return nil
}

func (s *ClientService) Create(ctx context.Context, principal model.Principal, input ClientInput) (*model.Client, error) {
	if err := policy.Authorize(principal.Role, policy.OpManageClients); err != nil {
		return nil, storeError(err, "client")
	}
	input.normalize()
	if err := input.validate(); err != nil {
		return nil, err
	}

	client := &model.Client{
		Email:         input.Email,
		CompanyName:   input.CompanyName,
		ContactPerson: input.ContactPerson,
		Phone:         input.Phone,
		Address:       input.Address,
		GeoLocation:   datatypes.NewJSONType(*input.GeoLocation),
	}
	if err := s.stores.Clients.Create(ctx, client); err != nil {
		return nil, storeError(err, "client")
	}

	s.audit.record(ctx, principalActor(principal), model.AuditActionCreate, model.AuditModelClient, client.ID.String(), client)
	return client, nil
}

func (s *ClientService) Get(ctx context.Context, principal model.Principal, id string) (*model.Client, error) {
	if err := policy.Authorize(principal.Role, policy.OpViewClients); err != nil {
		return nil, storeError(err, "client")
	}
	clientID, err := parseID(id, "client id")
	if err != nil {
		return nil, err
	}
	client, err := s.stores.Clients.GetByID(ctx, clientID)
	if err != nil {
		return nil, storeError(err, "client")
	}
	return client, nil
}

func (s *ClientService) GetByEmail(ctx context.Context, principal model.Principal, email string) (*model.Client, error) {
	if err := policy.Authorize(principal.Role, policy.OpViewClients); err != nil {
		return nil, storeError(err, "client")
	}
	email = utils.NormalizeEmail(email)
	if email == "" {
		return nil, validationError("clientEmail is required")
	}
	client, err := s.stores.Clients.GetByEmail(ctx, email)
	if err != nil {
		return nil, storeError(err, "client")
	}
	return client, nil
}

func (s *ClientService) List(ctx context.Context, principal model.Principal) ([]model.Client, error) {
	if err := policy.Authorize(principal.Role, policy.OpViewClients); err != nil {
		return nil, storeError(err, "client")
	}
	clients, err := s.stores.Clients.List(ctx)
	if err != nil {
		return nil, storeError(err, "client")
	}
	return clients, nil
}

func (s *ClientService) Search(ctx context.Context, principal model.Principal, term string) ([]model.Client, error) {
	if err := policy.Authorize(principal.Role, policy.OpViewClients); err != nil {
		return nil, storeError(err, "client")
	}
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, validationError("search term is required")
	}
	clients, err := s.stores.Clients.Search(ctx, term)
	if err != nil {
		return nil, storeError(err, "client")
	}
	return clients, nil
}

type UpdateClientInput struct {
	Email         *string         `json:"clientEmail"`
	CompanyName   *string         `json:"clientCompanyName"`
	ContactPerson *string         `json:"clientContactPerson"`
	Phone         *string         `json:"clientPhone"`
	Address       *string         `json:"clientAddress"`
	GeoLocation   *model.GeoPoint `json:"clientGeoLocation"`
}

// Update overlays the provided fields on the stored client and saves only
// when something differs.
func (s *ClientService) Update(ctx context.Context, principal model.Principal, id string, input UpdateClientInput) (*model.Client, error) {
	if err := policy.Authorize(principal.Role, policy.OpManageClients); err != nil {
		return nil, storeError(err, "client")
	}
	clientID, err := parseID(id, "client id")
	if err != nil {
		return nil, err
	}
	current, err := s.stores.Clients.GetByID(ctx, clientID)
	if err != nil {
		return nil, storeError(err, "client")
	}

	geo := current.GeoLocation.Data()
	merged := ClientInput{
		Email:         current.Email,
		CompanyName:   current.CompanyName,
		ContactPerson: current.ContactPerson,
		Phone:         current.Phone,
		Address:       current.Address,
		GeoLocation:   &geo,
	}
	if input.Email != nil {
		merged.Email = *input.Email
	}
	if input.CompanyName != nil {
		merged.CompanyName = *input.CompanyName
	}
	if input.ContactPerson != nil {
		merged.ContactPerson = *input.ContactPerson
	}
	if input.Phone != nil {
		merged.Phone = *input.Phone
	}
	if input.Address != nil {
		merged.Address = *input.Address
	}
	if input.GeoLocation != nil {
		merged.GeoLocation = input.GeoLocation
	}
	merged.normalize()
	if err := merged.validate(); err != nil {
		return nil, err
	}

	changes := changeSet{}
	changes.track("clientEmail", current.Email, merged.Email)
	changes.track("clientCompanyName", current.CompanyName, merged.CompanyName)
	changes.track("clientContactPerson", current.ContactPerson, merged.ContactPerson)
	changes.track("clientPhone", current.Phone, merged.Phone)
	changes.track("clientAddress", current.Address, merged.Address)
	if !geo.Equal(*merged.GeoLocation) {
		changes["clientGeoLocation"] = model.FieldChange{Old: geo, New: *merged.GeoLocation}
	}
	if changes.empty() {
		return nil, newError(ErrNoChanges, "no changes detected")
	}

	next := *current
	next.Email = merged.Email
	next.CompanyName = merged.CompanyName
	next.ContactPerson = merged.ContactPerson
	next.Phone = merged.Phone
	next.Address = merged.Address
	next.GeoLocation = datatypes.NewJSONType(*merged.GeoLocation)
	if err := s.stores.Clients.Update(ctx, &next); err != nil {
		return nil, storeError(err, "client")
	}

	s.audit.record(ctx, principalActor(principal), model.AuditActionUpdate, model.AuditModelClient, next.ID.String(), changes)
	return &next, nil
}

// Delete removes a client that no work order references.
func (s *ClientService) Delete(ctx context.Context, principal model.Principal, id string) error {
	if err := policy.Authorize(principal.Role, policy.OpManageClients); err != nil {
		return storeError(err, "client")
	}
	clientID, err := parseID(id, "client id")
	if err != nil {
		return err
	}
	current, err := s.stores.Clients.GetByID(ctx, clientID)
	if err != nil {
		return storeError(err, "client")
	}
	refs, err := s.stores.WorkOrders.CountByClient(ctx, clientID)
	if err != nil {
		return storeError(err, "client")
	}
	if refs > 0 {
		return newError(ErrReferentialIntegrity, "client is referenced by %d work orders", refs)
	}
	if err := s.stores.Clients.Delete(ctx, clientID); err != nil {
		return storeError(err, "client")
	}

	s.audit.record(ctx, principalActor(principal), model.AuditActionDelete, model.AuditModelClient, clientID.String(), current)
	return nil
}
