package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"workorder-service/internal/auth"
	"workorder-service/internal/model"
	"workorder-service/internal/policy"
	"workorder-service/internal/repository"
	"workorder-service/internal/utils"
)

type UserSettings struct {
	MaxFailedLogins int
	BaseURL         string
}

type UserService struct {
	stores   Stores
	issuer   *auth.Issuer
	parser   *auth.Parser
	notifier Notifier
	settings UserSettings
	audit    auditRecorder
	log      zerolog.Logger
	now      func() time.Time
}

func NewUserService(stores Stores, issuer *auth.Issuer, parser *auth.Parser, notifier Notifier, settings UserSettings, log zerolog.Logger) *UserService {
	if settings.MaxFailedLogins <= 0 {
		settings.MaxFailedLogins = 3
	}
	s := &UserService{
		stores:   stores,
		issuer:   issuer,
		parser:   parser,
		notifier: notifier,
		settings: settings,
		log:      log,
		now:      time.Now,
	}
	s.audit = auditRecorder{sink: stores.Audit, log: log, now: s.clock}
	return s
}

func (s *UserService) WithClock(now func() time.Time) *UserService {
	s.now = now
	return s
}

func (s *UserService) clock() time.Time {
	return s.now()
}

type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      *model.User `json:"user"`
}

var errInvalidCredentials = newError(ErrUnauthenticated, "invalid email or password")

// Login verifies the password and opens the user's single live session.
// Repeated failures deactivate the account.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = utils.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, validationError("userEmail and password are required")
	}

	user, err := s.stores.Users.GetByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return nil, errInvalidCredentials
		}
		return nil, storeError(err, "user")
	}

	var (
		result      *LoginResult
		loginErr    error
		deactivated bool
	)
	err = s.stores.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.stores.Tx.AdvisoryLock(ctx, "user:"+user.ID.String()); err != nil {
			return err
		}
		current, err := s.stores.Users.GetByID(ctx, user.ID)
		if err != nil {
			return err
		}
		now := s.now().UTC()

		if !current.IsActive {
			loginErr = newError(ErrForbidden, "user is inactive")
			return s.recordAttempt(ctx, current.ID, now, model.LoginStatusFailed, "inactive user", nil)
		}

		if !auth.CheckPassword(current.PasswordHash, password) {
			current.FailedAttempts++
			if current.FailedAttempts >= s.settings.MaxFailedLogins {
				current.IsActive = false
				current.LoginToken = nil
				deactivated = true
			}
			if err := s.stores.Users.Update(ctx, current); err != nil {
				return err
			}
			loginErr = errInvalidCredentials
			if deactivated {
				loginErr = newError(ErrUnauthenticated, "invalid email or password, account deactivated after %d failed attempts", current.FailedAttempts)
			}
			return s.recordAttempt(ctx, current.ID, now, model.LoginStatusFailed, "wrong password", nil)
		}

		token, expiresAt, err := s.issuer.IssueSession(current.ID)
		if err != nil {
			return fmt.Errorf("issue session: %w", err)
		}
		current.FailedAttempts = 0
		current.LoginToken = &token
		if err := s.stores.Users.Update(ctx, current); err != nil {
			return err
		}
		if err := s.recordAttempt(ctx, current.ID, now, model.LoginStatusSuccess, "", &token); err != nil {
			return err
		}
		result = &LoginResult{Token: token, ExpiresAt: expiresAt, User: current}
		return nil
	})
	if err != nil {
		return nil, storeError(err, "user")
	}

	if deactivated {
		s.log.Warn().Str("user_id", user.ID.String()).Msg("user deactivated after failed logins")
		s.audit.record(ctx, user.Email, model.AuditActionInactive, model.AuditModelUser, user.ID.String(),
			map[string]any{"cause": "too many failed login attempts"})
	}
	if loginErr != nil {
		return nil, loginErr
	}

	s.audit.record(ctx, user.Email, model.AuditActionLogin, model.AuditModelUser, user.ID.String(), nil)
	return result, nil
}

func (s *UserService) recordAttempt(ctx context.Context, userID uuid.UUID, at time.Time, status model.LoginStatus, cause string, token *string) error {
	attempt := &model.LoginAttempt{
		UserID:    userID,
		Timestamp: at,
		Status:    status,
		Token:     token,
	}
	if cause != "" {
		attempt.Cause = &cause
	}
	return s.stores.Users.AppendLoginAttempt(ctx, attempt)
}

// Logout closes the live session of a user. Users close their own session,
// administrators any session.
func (s *UserService) Logout(ctx context.Context, principal model.Principal, id string) error {
	userID, err := parseID(id, "user id")
	if err != nil {
		return err
	}
	if userID != principal.UserID && !principal.IsAdministrator() {
		return newError(ErrForbidden, "you may only close your own session")
	}
	user, err := s.stores.Users.GetByID(ctx, userID)
	if err != nil {
		return storeError(err, "user")
	}
	if user.LoginToken == nil {
		return newError(ErrNoChanges, "user has no open session")
	}
	user.LoginToken = nil
	if err := s.stores.Users.Update(ctx, user); err != nil {
		return storeError(err, "user")
	}
	s.audit.record(ctx, principalActor(principal), model.AuditActionUpdate, model.AuditModelUser, user.ID.String(),
		map[string]string{"session": "closed"})
	return nil
}

// Authenticate resolves a bearer token to the principal it belongs to. The
// token must be the user's current session.
func (s *UserService) Authenticate(ctx context.Context, token string) (model.Principal, error) {
	userID, err := s.parser.Parse(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return model.Principal{}, newError(ErrUnauthenticated, "session expired")
		}
		return model.Principal{}, newError(ErrUnauthenticated, "invalid token")
	}
	user, err := s.stores.Users.GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return model.Principal{}, newError(ErrUnauthenticated, "invalid token")
		}
		return model.Principal{}, storeError(err, "user")
	}
	if !user.IsActive {
		return model.Principal{}, newError(ErrUnauthenticated, "user is inactive")
	}
	if user.LoginToken == nil || *user.LoginToken != token {
		return model.Principal{}, newError(ErrUnauthenticated, "session closed")
	}
	return user.Principal(), nil
}

func (s *UserService) HasAdministrator(ctx context.Context) (bool, error) {
	exists, err := s.stores.Users.ExistsByRole(ctx, model.RoleAdministrator)
	if err != nil {
		return false, storeError(err, "user")
	}
	return exists, nil
}

type UserInput struct {
	Name     string `json:"userName" validate:"required,min=2,max=100"`
	LastName string `json:"userLastName" validate:"required,min=2,max=100"`
	Email    string `json:"userEmail" validate:"required,email,max=255"`
	Phone    string `json:"userPhone" validate:"max=20"`
	Role     string `json:"userRole"`
	Password string `json:"password"`
}

func (in *UserInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = utils.NormalizeEmail(in.Email)
	in.Phone = utils.NormalizePhone(in.Phone)
	in.Role = strings.TrimSpace(in.Role)
}

func (in *UserInput) newUser(role model.Role) *model.User {
	return &model.User{
		Email:    in.Email,
		Name:     in.Name,
		LastName: in.LastName,
		FullName: in.Name + " " + in.LastName,
		Phone:    in.Phone,
		Role:     role,
	}
}

func hashPassword(password string) (string, error) {
	hash, err := auth.HashPassword(password)
	if errors.Is(err, auth.ErrPasswordTooShort) {
		return "", validationError("%s", err.Error())
	}
	return hash, err
}

// RegisterAdmin bootstraps the first administrator. It fails once one exists.
func (s *UserService) RegisterAdmin(ctx context.Context, input UserInput) (*model.User, error) {
	input.normalize()
	if err := validateStruct(&input); err != nil {
		return nil, err
	}
	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	var user *model.User
	err = s.stores.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.stores.Tx.AdvisoryLock(ctx, "register-admin"); err != nil {
			return err
		}
		exists, err := s.stores.Users.ExistsByRole(ctx, model.RoleAdministrator)
		if err != nil {
			return err
		}
		if exists {
			return newError(ErrForbidden, "an administrator is already registered")
		}
		user = input.newUser(model.RoleAdministrator)
		user.PasswordHash = hash
		user.IsActive = true
		return s.stores.Users.Create(ctx, user)
	})
	if err != nil {
		return nil, storeError(err, "user")
	}

	s.audit.record(ctx, user.Email, model.AuditActionCreate, model.AuditModelUser, user.ID.String(), user)
	return user, nil
}

type CreateUserResult struct {
	User    *model.User
	Message string
}

// Create registers a supervisor or technician and sends them a confirmation
// link. The user is removed again when the link cannot be delivered.
func (s *UserService) Create(ctx context.Context, principal model.Principal, input UserInput) (*CreateUserResult, error) {
	if err := policy.Authorize(principal.Role, policy.OpManageUsers); err != nil {
		return nil, storeError(err, "user")
	}
	input.normalize()
	if err := validateStruct(&input); err != nil {
		return nil, err
	}
	role := model.Role(input.Role)
	if role != model.RoleSupervisor && role != model.RoleTechnician {
		return nil, validationError("userRole must be %s or %s", model.RoleSupervisor, model.RoleTechnician)
	}

	user := input.newUser(role)
	if input.Password != "" {
		hash, err := hashPassword(input.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	token, expiresAt, err := s.issuer.IssueConfirmation(user.Email)
	if err != nil {
		return nil, fmt.Errorf("issue confirmation: %w", err)
	}
	user.ConfirmationToken = &token
	user.ConfirmationExpiresAt = &expiresAt

	if err := s.stores.Users.Create(ctx, user); err != nil {
		return nil, storeError(err, "user")
	}

	if err := s.sendConfirmation(ctx, user, token, expiresAt); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("confirmation delivery failed, removing user")
		if delErr := s.stores.Users.Delete(ctx, user.ID); delErr != nil {
			s.log.Error().Err(delErr).Str("user_id", user.ID.String()).Msg("failed to remove unconfirmed user")
		}
		return nil, newError(ErrNotificationFailed, "user not created, confirmation could not be sent: %v", err)
	}

	s.audit.record(ctx, principalActor(principal), model.AuditActionCreate, model.AuditModelUser, user.ID.String(), user)
	s.audit.record(ctx, principalActor(principal), model.AuditActionSendEmail, model.AuditModelUser, user.ID.String(),
		map[string]string{"event": EventUserConfirmation, "email": user.Email})

	return &CreateUserResult{User: user, Message: "User created. Confirmation sent to " + user.Email + "."}, nil
}

func (s *UserService) sendConfirmation(ctx context.Context, user *model.User, token string, expiresAt time.Time) error {
	if s.notifier == nil {
		return errors.New("no notifier configured")
	}
	link := strings.TrimRight(s.settings.BaseURL, "/") + "/userconfirm?" + url.Values{
		"token": {token},
		"email": {user.Email},
	}.Encode()

	n, err := renderNotification(EventUserConfirmation,
		Recipient{UserID: user.ID, Email: user.Email, Name: user.FullName},
		model.AuditModelUser, user.ID.String(),
		map[string]string{
			"Email":   user.Email,
			"Role":    string(user.Role),
			"Link":    link,
			"Expires": expiresAt.UTC().Format(time.RFC3339),
		})
	if err != nil {
		return err
	}
	return s.notifier.Notify(ctx, n)
}

type ConfirmInput struct {
	Token    string `json:"token"`
	Email    string `json:"userEmail"`
	Password string `json:"password"`
}

// Confirm activates an account from its confirmation link and sets the
// password. An expired link deactivates the account.
func (s *UserService) Confirm(ctx context.Context, input ConfirmInput) (*model.User, error) {
	email := utils.NormalizeEmail(input.Email)
	token := strings.TrimSpace(input.Token)
	if email == "" || token == "" {
		return nil, validationError("token and userEmail are required")
	}

	user, err := s.stores.Users.GetByEmail(ctx, email)
	if err != nil {
		return nil, storeError(err, "user")
	}
	if user.ConfirmationToken == nil || *user.ConfirmationToken != token {
		return nil, validationError("invalid confirmation token")
	}

	if user.ConfirmationExpiresAt != nil && s.now().After(*user.ConfirmationExpiresAt) {
		user.IsActive = false
		user.ConfirmationToken = nil
		user.ConfirmationExpiresAt = nil
		if err := s.stores.Users.Update(ctx, user); err != nil {
			return nil, storeError(err, "user")
		}
		s.audit.record(ctx, user.Email, model.AuditActionInactive, model.AuditModelUser, user.ID.String(),
			map[string]string{"cause": "confirmation expired"})
		return nil, validationError("confirmation token expired")
	}

	tokenEmail, err := s.parser.ParseConfirmation(token)
	if err != nil || tokenEmail != email {
		return nil, validationError("invalid confirmation token")
	}

	password := input.Password
	if password == "" && user.PasswordHash == "" {
		return nil, validationError("password is required")
	}
	if password != "" {
		hash, err := hashPassword(password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	user.IsActive = true
	user.FailedAttempts = 0
	user.ConfirmationToken = nil
	user.ConfirmationExpiresAt = nil
	if err := s.stores.Users.Update(ctx, user); err != nil {
		return nil, storeError(err, "user")
	}

	s.audit.record(ctx, user.Email, model.AuditActionUpdate, model.AuditModelUser, user.ID.String(),
		map[string]string{"confirmation": "accepted"})
	return user, nil
}

// Get returns a user. Everyone may read themselves, supervisors may read
// technicians, administrators anyone.
func (s *UserService) Get(ctx context.Context, principal model.Principal, id string) (*model.User, error) {
	userID, err := parseID(id, "user id")
	if err != nil {
		return nil, err
	}
	if userID != principal.UserID {
		if err := policy.Authorize(principal.Role, policy.OpViewUsers); err != nil {
			return nil, storeError(err, "user")
		}
	}
	user, err := s.stores.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeError(err, "user")
	}
	if principal.IsSupervisor() && userID != principal.UserID && user.Role != model.RoleTechnician {
		return nil, newError(ErrForbidden, "supervisors may only view technicians")
	}
	attempts, err := s.stores.Users.ListLoginAttempts(ctx, userID)
	if err != nil {
		return nil, storeError(err, "user")
	}
	user.LoginAttempts = attempts
	return user, nil
}

// List returns users, optionally of one role. Supervisors only see
// technicians.
func (s *UserService) List(ctx context.Context, principal model.Principal, role string) ([]model.User, error) {
	if err := policy.Authorize(principal.Role, policy.OpViewUsers); err != nil {
		return nil, storeError(err, "user")
	}
	var filter repository.UserFilter
	if role = strings.TrimSpace(role); role != "" {
		r := model.Role(role)
		if !r.Valid() {
			return nil, validationError("invalid userRole %q", role)
		}
		filter.Role = &r
	}
	if principal.IsSupervisor() {
		technician := model.RoleTechnician
		if filter.Role != nil && *filter.Role != technician {
			return nil, newError(ErrForbidden, "supervisors may only list technicians")
		}
		filter.Role = &technician
	}
	users, err := s.stores.Users.List(ctx, filter)
	if err != nil {
		return nil, storeError(err, "user")
	}
	return users, nil
}

type DeleteUserResult struct {
	Deactivated bool
	Message     string
}

// Delete removes a user, or deactivates them when work orders still name
// them as supervisor or technician.
func (s *UserService) Delete(ctx context.Context, principal model.Principal, id, cause string) (*DeleteUserResult, error) {
	if err := policy.Authorize(principal.Role, policy.OpManageUsers); err != nil {
		return nil, storeError(err, "user")
	}
	userID, err := parseID(id, "user id")
	if err != nil {
		return nil, err
	}
	if userID == principal.UserID {
		return nil, newError(ErrForbidden, "you cannot delete yourself")
	}
	cause = strings.TrimSpace(cause)
	if cause == "" {
		return nil, validationError("userDeletionCause is required")
	}

	user, err := s.stores.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeError(err, "user")
	}
	refs, err := s.stores.WorkOrders.CountByUser(ctx, userID)
	if err != nil {
		return nil, storeError(err, "user")
	}

	if refs > 0 {
		user.IsActive = false
		user.LoginToken = nil
		user.DeletionCause = &cause
		if err := s.stores.Users.Update(ctx, user); err != nil {
			return nil, storeError(err, "user")
		}
		s.audit.record(ctx, principalActor(principal), model.AuditActionInactive, model.AuditModelUser, user.ID.String(),
			map[string]any{"cause": cause, "workOrders": refs})
		return &DeleteUserResult{
			Deactivated: true,
			Message:     fmt.Sprintf("User is referenced by %d work orders and was deactivated.", refs),
		}, nil
	}

	if err := s.stores.Users.Delete(ctx, userID); err != nil {
		return nil, storeError(err, "user")
	}
	s.audit.record(ctx, principalActor(principal), model.AuditActionDelete, model.AuditModelUser, user.ID.String(),
		map[string]any{"cause": cause, "userEmail": user.Email})
	return &DeleteUserResult{Message: "User deleted."}, nil
}
