package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"workorder-service/internal/auth"
	"workorder-service/internal/model"
	"workorder-service/internal/policy"
	"workorder-service/internal/repository"
	"workorder-service/internal/repository/memory"
)

const (
	testSecret   = "test-secret"
	testPassword = "correct-horse"
)

// bcrypt is slow on purpose, so every fixture shares one hash.
var testPasswordHash = sync.OnceValues(func() (string, error) {
	return auth.HashPassword(testPassword)
})

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (n *recordingNotifier) Notify(ctx context.Context, notification Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, notification)
	return nil
}

func (n *recordingNotifier) last() (Notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return Notification{}, false
	}
	return n.sent[len(n.sent)-1], true
}

type fixture struct {
	t        *testing.T
	ctx      context.Context
	store    *memory.Store
	stores   Stores
	notifier *recordingNotifier
	now      time.Time

	workOrders *WorkOrderService
	tasks      *TaskService
	templates  *TaskTemplateService
	clients    *ClientService
	users      *UserService
	audits     *AuditService

	admin       model.Principal
	supervisor  model.Principal
	supervisor2 model.Principal
	technician  model.Principal
	technician2 model.Principal
	client      *model.Client
}

func memoryStores(store *memory.Store) Stores {
	audit := store.AuditLogs()
	return Stores{
		WorkOrders: store.WorkOrders(),
		Tasks:      store.Tasks(),
		Evidences:  store.Evidences(),
		Templates:  store.Templates(),
		Clients:    store.Clients(),
		Users:      store.Users(),
		AuditLogs:  audit,
		Audit:      audit,
		Tx:         store.Transactor(),
	}
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	boundary policy.Boundary
	notifier Notifier
	audit    AuditSink
}

func withBoundary(b policy.Boundary) fixtureOption {
	return func(c *fixtureConfig) { c.boundary = b }
}

func withNotifier(n Notifier) fixtureOption {
	return func(c *fixtureConfig) { c.notifier = n }
}

func withAuditSink(a AuditSink) fixtureOption {
	return func(c *fixtureConfig) { c.audit = a }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	f := &fixture{
		t:        t,
		ctx:      context.Background(),
		store:    memory.NewStore(),
		notifier: &recordingNotifier{},
		now:      time.Date(2025, 5, 5, 8, 0, 0, 0, time.UTC),
	}

	cfg := fixtureConfig{boundary: policy.BoundaryStrict, notifier: f.notifier}
	for _, opt := range opts {
		opt(&cfg)
	}

	f.stores = memoryStores(f.store)
	if cfg.audit != nil {
		f.stores.Audit = cfg.audit
	}

	clock := func() time.Time { return f.now }
	log := zerolog.Nop()

	f.workOrders = NewWorkOrderService(f.stores, cfg.notifier, WorkOrderSettings{
		SchedulingWindow: 7 * 24 * time.Hour,
		OverlapBoundary:  cfg.boundary,
		NumberRetries:    3,
	}, log).WithClock(clock)
	f.tasks = NewTaskService(f.stores, log).WithClock(clock)
	f.templates = NewTaskTemplateService(f.stores, log)
	f.clients = NewClientService(f.stores, log)
	f.users = NewUserService(f.stores,
		auth.NewIssuer(testSecret, 8*time.Hour, 24*time.Hour).WithClock(clock),
		auth.NewParser(testSecret).WithClock(clock),
		cfg.notifier,
		UserSettings{MaxFailedLogins: 3, BaseURL: "http://localhost:8080"},
		log,
	).WithClock(clock)
	f.audits = NewAuditService(f.stores)

	f.admin = f.addUser("Ada", "Admin", model.RoleAdministrator)
	f.supervisor = f.addUser("Sam", "Super", model.RoleSupervisor)
	f.supervisor2 = f.addUser("Sue", "Other", model.RoleSupervisor)
	f.technician = f.addUser("Tom", "Tech", model.RoleTechnician)
	f.technician2 = f.addUser("Tia", "Tech", model.RoleTechnician)
	f.client = f.addClient("ops@acme.test", "ACME POWER")

	for i, desc := range []string{"Check breaker panel", "Photograph meter", "Collect customer signature"} {
		tpl := &model.TaskTemplate{ServiceType: model.ServiceTypeInspection, Ordering: i + 1, Description: desc}
		if err := f.store.Templates().Create(f.ctx, tpl); err != nil {
			t.Fatalf("seed template: %v", err)
		}
	}
	return f
}

func (f *fixture) addUser(name, lastName string, role model.Role) model.Principal {
	f.t.Helper()
	hash, err := testPasswordHash()
	if err != nil {
		f.t.Fatalf("hash password: %v", err)
	}
	user := &model.User{
		Email:        strings.ToLower(name) + "@field.test",
		Name:         name,
		LastName:     lastName,
		FullName:     name + " " + lastName,
		PasswordHash: hash,
		IsActive:     true,
		Role:         role,
	}
	if err := f.store.Users().Create(f.ctx, user); err != nil {
		f.t.Fatalf("seed user: %v", err)
	}
	return user.Principal()
}

func (f *fixture) addClient(email, company string) *model.Client {
	f.t.Helper()
	client := &model.Client{
		Email:         email,
		CompanyName:   company,
		ContactPerson: "Carla Contact",
		Phone:         "5550100",
		Address:       "1 Main St",
		GeoLocation:   datatypes.NewJSONType(model.NewGeoPoint(-70.6, -33.4)),
	}
	if err := f.store.Clients().Create(f.ctx, client); err != nil {
		f.t.Fatalf("seed client: %v", err)
	}
	return client
}

func (f *fixture) at(hoursFromNow float64) *string {
	s := f.now.Add(model.DurationHours(hoursFromNow)).Format(time.RFC3339)
	return &s
}

func ptr[T any](v T) *T {
	return &v
}

// scheduledInput is a request for an Inspection order fully scheduled for tech.
func (f *fixture) scheduledInput(tech model.Principal, startHours, duration float64) CreateWorkOrderInput {
	return CreateWorkOrderInput{
		ClientID:             f.client.ID.String(),
		Description:          "Annual inspection",
		ServiceType:          string(model.ServiceTypeInspection),
		ScheduledDate:        f.at(startHours),
		EstimatedDuration:    ptr(duration),
		AssignedTechnicianID: ptr(tech.UserID.String()),
	}
}

func (f *fixture) createScheduled(tech model.Principal, startHours, duration float64) *model.WorkOrder {
	f.t.Helper()
	res, err := f.workOrders.Create(f.ctx, f.supervisor, f.scheduledInput(tech, startHours, duration))
	if err != nil {
		f.t.Fatalf("Create: %v", err)
	}
	return res.WorkOrder
}

func (f *fixture) completeAllTasks(workOrderID uuid.UUID) {
	f.t.Helper()
	tasks, err := f.store.Tasks().ListByWorkOrder(f.ctx, workOrderID)
	if err != nil {
		f.t.Fatalf("ListByWorkOrder: %v", err)
	}
	for _, task := range tasks {
		if _, err := f.tasks.UpdateTaskStatus(f.ctx, f.technician, task.ID.String(), UpdateTaskStatusInput{
			Status: string(model.TaskStatusCompleted),
		}); err != nil {
			f.t.Fatalf("complete task %d: %v", task.Ordering, err)
		}
	}
}

func (f *fixture) auditEntries(modelName string) []model.AuditLog {
	f.t.Helper()
	logs, err := f.store.AuditLogs().List(f.ctx, repository.AuditLogFilter{Model: &modelName})
	if err != nil {
		f.t.Fatalf("list audit: %v", err)
	}
	return logs
}

func expectKind(t *testing.T, err, kind error) {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("expected %v, got %v", kind, err)
	}
}
