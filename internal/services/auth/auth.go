// Package auth содержит регистрацию, вход и восстановление пароля пользователей академии.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/bitforex-academy/internal/kvstore"
	"github.com/magabrotheeeer/bitforex-academy/internal/lib/jwt"
	"github.com/magabrotheeeer/bitforex-academy/internal/lib/password"
	"github.com/magabrotheeeer/bitforex-academy/internal/lib/sl"
	"github.com/magabrotheeeer/bitforex-academy/internal/models"
	"github.com/magabrotheeeer/bitforex-academy/internal/rabbitmq"
	"github.com/magabrotheeeer/bitforex-academy/internal/services/notify"
)

var (
	// ErrUserExists пользователь с таким email уже зарегистрирован.
	ErrUserExists = errors.New("user with this email already exists")
	// ErrInvalidCredentials неверный email или пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserBlocked учётная запись заблокирована администратором.
	ErrUserBlocked = errors.New("user is blocked")
	// ErrNoSession нет активной сессии.
	ErrNoSession = errors.New("no active session")
)

// Service отвечает за регистрацию, вход, выход и заявки на сброс пароля.
type Service struct {
	store     *kvstore.Store
	jwtMaker  jwt.Maker
	publisher notify.Publisher
	log       *slog.Logger
}

// NewService создаёт Service.
func NewService(store *kvstore.Store, jwtMaker jwt.Maker, publisher notify.Publisher, log *slog.Logger) *Service {
	return &Service{
		store:     store,
		jwtMaker:  jwtMaker,
		publisher: publisher,
		log:       log,
	}
}

// NormalizeEmail приводит email к виду, в котором он хранится.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register создаёт пользователя со статусом Inactive и без плана.
// Уникальность email проверяется последовательно перед записью.
func (s *Service) Register(ctx context.Context, name, email, rawPassword, username string) (models.User, error) {
	const op = "services.auth.Register"
	email = NormalizeEmail(email)

	admin, err := kvstore.ReadOr(ctx, s.store, kvstore.KeyAdmin, models.Admin{})
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	if admin.Email != "" && NormalizeEmail(admin.Email) == email {
		return models.User{}, fmt.Errorf("%s: %w", op, ErrUserExists)
	}

	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	if username == "" {
		username = strings.SplitN(email, "@", 2)[0]
	}
	user := models.User{
		Name:     name,
		Email:    email,
		Password: hashed,
		Username: username,
		Plan:     models.PlanNone,
		Status:   models.StatusInactive,
		Created:  time.Now().UnixMilli(),
	}

	_, err = kvstore.Update(ctx, s.store, kvstore.KeyUsers, []models.User{}, func(users *[]models.User) error {
		for _, u := range *users {
			if NormalizeEmail(u.Email) == email {
				return ErrUserExists
			}
		}
		*users = append(*users, user)
		return nil
	})
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return user.Public(), nil
}

// Login проверяет учётные данные администратора или пользователя,
// перезаписывает текущую сессию и возвращает JWT.
func (s *Service) Login(ctx context.Context, email, rawPassword string) (string, models.Session, error) {
	const op = "services.auth.Login"
	email = NormalizeEmail(email)

	session, err := s.authenticate(ctx, email, rawPassword)
	if err != nil {
		return "", models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	token, err := s.jwtMaker.GenerateToken(session.Email, session.Name, session.Role, session.UID)
	if err != nil {
		return "", models.Session{}, fmt.Errorf("%s: %w", op, err)
	}
	if session.Role == models.RoleUser {
		if err := s.setUserSession(ctx, email, session.UID); err != nil {
			return "", models.Session{}, fmt.Errorf("%s: %w", op, err)
		}
	}
	if err := s.store.Write(ctx, kvstore.KeySession, session); err != nil {
		return "", models.Session{}, fmt.Errorf("%s: %w", op, err)
	}
	return token, session, nil
}

func (s *Service) authenticate(ctx context.Context, email, rawPassword string) (models.Session, error) {
	admin, err := kvstore.ReadOr(ctx, s.store, kvstore.KeyAdmin, models.Admin{})
	if err != nil {
		return models.Session{}, err
	}
	if admin.Email != "" && NormalizeEmail(admin.Email) == email {
		if err := password.CompareHash(admin.Password, rawPassword); err != nil {
			return models.Session{}, ErrInvalidCredentials
		}
		return models.Session{
			UID:    uuid.NewString(),
			Email:  email,
			Name:   admin.Name,
			Role:   models.RoleAdmin,
			Active: true,
		}, nil
	}

	users, err := kvstore.ReadOr(ctx, s.store, kvstore.KeyUsers, []models.User{})
	if err != nil {
		return models.Session{}, err
	}
	for _, u := range users {
		if NormalizeEmail(u.Email) != email {
			continue
		}
		if err := password.CompareHash(u.Password, rawPassword); err != nil {
			return models.Session{}, ErrInvalidCredentials
		}
		if u.Status == models.StatusBlocked {
			return models.Session{}, ErrUserBlocked
		}
		return models.Session{
			UID:    uuid.NewString(),
			Email:  email,
			Name:   u.Name,
			Role:   models.RoleUser,
			Active: true,
		}, nil
	}
	return models.Session{}, ErrInvalidCredentials
}

// Logout отзывает сессию пользователя email и помечает текущую сессию
// неактивной, если она принадлежит ему. Токены, выданные до выхода,
// перестают приниматься.
func (s *Service) Logout(ctx context.Context, email string) error {
	const op = "services.auth.Logout"
	email = NormalizeEmail(email)

	revoked := true
	err := s.setUserSession(ctx, email, "")
	if errors.Is(err, ErrNoSession) {
		revoked = false
	} else if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	_, err = kvstore.Update(ctx, s.store, kvstore.KeySession, models.Session{}, func(sess *models.Session) error {
		if !sess.Active || NormalizeEmail(sess.Email) != email {
			return ErrNoSession
		}
		sess.Active = false
		return nil
	})
	if errors.Is(err, ErrNoSession) && revoked {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// setUserSession записывает идентификатор сессии в запись пользователя.
// Пустой sid отзывает сессию; если отзывать нечего, возвращается ErrNoSession.
func (s *Service) setUserSession(ctx context.Context, email, sid string) error {
	_, err := kvstore.Update(ctx, s.store, kvstore.KeyUsers, []models.User{}, func(users *[]models.User) error {
		for i := range *users {
			if NormalizeEmail((*users)[i].Email) != email {
				continue
			}
			if sid == "" && (*users)[i].Session == "" {
				return ErrNoSession
			}
			(*users)[i].Session = sid
			return nil
		}
		return ErrNoSession
	})
	return err
}

// Session возвращает текущую сессию.
func (s *Service) Session(ctx context.Context) (models.Session, error) {
	const op = "services.auth.Session"
	sess, err := kvstore.ReadOr(ctx, s.store, kvstore.KeySession, models.Session{})
	if err != nil {
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}
	if !sess.Active {
		return models.Session{}, fmt.Errorf("%s: %w", op, ErrNoSession)
	}
	return sess, nil
}

// ForgotPassword регистрирует заявку на сброс пароля и уведомляет администратора.
// Для незнакомого email ничего не сохраняется, но и ошибка не возвращается,
// чтобы не раскрывать наличие учётной записи.
func (s *Service) ForgotPassword(ctx context.Context, email string) (models.PasswordRequest, error) {
	const op = "services.auth.ForgotPassword"
	email = NormalizeEmail(email)

	known, err := s.userExists(ctx, email)
	if err != nil {
		return models.PasswordRequest{}, fmt.Errorf("%s: %w", op, err)
	}
	if !known {
		s.log.Info("password request for unknown email ignored")
		return models.PasswordRequest{}, nil
	}

	req := models.PasswordRequest{
		ID:      uuid.NewString(),
		Email:   email,
		Status:  models.PasswordRequestOpen,
		Created: time.Now().UnixMilli(),
	}
	_, err = kvstore.Update(ctx, s.store, kvstore.KeyPasswordRequests, []models.PasswordRequest{}, func(reqs *[]models.PasswordRequest) error {
		for _, r := range *reqs {
			if r.Email == email && r.Status == models.PasswordRequestOpen {
				req = r
				return errRequestOpen
			}
		}
		*reqs = append(*reqs, req)
		return nil
	})
	if errors.Is(err, errRequestOpen) {
		return req, nil
	}
	if err != nil {
		return models.PasswordRequest{}, fmt.Errorf("%s: %w", op, err)
	}

	admin, err := kvstore.ReadOr(ctx, s.store, kvstore.KeyAdmin, models.Admin{})
	if err != nil {
		s.log.Warn("failed to read admin account", sl.Err(err))
	}
	if admin.Email != "" {
		msg := models.Notification{
			Kind:  models.NotifyPasswordRequest,
			Email: admin.Email,
			Name:  admin.Name,
			Data:  map[string]string{"request_id": req.ID, "user_email": req.Email},
		}
		if err := s.publisher.Publish(ctx, rabbitmq.RoutingPassword, msg); err != nil {
			s.log.Error("failed to publish password request", sl.Err(err))
		}
	}
	return req, nil
}

func (s *Service) userExists(ctx context.Context, email string) (bool, error) {
	users, err := kvstore.ReadOr(ctx, s.store, kvstore.KeyUsers, []models.User{})
	if err != nil {
		return false, err
	}
	for _, u := range users {
		if NormalizeEmail(u.Email) == email {
			return true, nil
		}
	}
	return false, nil
}

// EnsureAdmin создаёт учётную запись администратора, если её ещё нет.
func (s *Service) EnsureAdmin(ctx context.Context, email, rawPassword, name string) error {
	const op = "services.auth.EnsureAdmin"
	if email == "" || rawPassword == "" {
		return nil
	}
	_, err := kvstore.Update(ctx, s.store, kvstore.KeyAdmin, models.Admin{}, func(admin *models.Admin) error {
		if admin.Email != "" {
			return errAdminExists
		}
		hashed, err := password.GetHash(rawPassword)
		if err != nil {
			return err
		}
		*admin = models.Admin{
			Email:    NormalizeEmail(email),
			Password: hashed,
			Name:     name,
			Role:     models.RoleAdmin,
		}
		return nil
	})
	if errors.Is(err, errAdminExists) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("admin account created", slog.String("email", NormalizeEmail(email)))
	return nil
}

var (
	errAdminExists = errors.New("admin exists")
	errRequestOpen = errors.New("password request already open")
)

// Admin возвращает учётную запись администратора без хеша пароля.
func (s *Service) Admin(ctx context.Context) (models.Admin, error) {
	const op = "services.auth.Admin"
	admin, err := kvstore.ReadOr(ctx, s.store, kvstore.KeyAdmin, models.Admin{})
	if err != nil {
		return models.Admin{}, fmt.Errorf("%s: %w", op, err)
	}
	admin.Password = ""
	return admin, nil
}

// SaveAdminProfile обновляет имя, email и, если задан, пароль администратора.
// Email, занятый пользователем, отклоняется с ErrUserExists.
func (s *Service) SaveAdminProfile(ctx context.Context, name, email, rawPassword string) (models.Admin, error) {
	const op = "services.auth.SaveAdminProfile"
	if email != "" {
		taken, err := s.userExists(ctx, NormalizeEmail(email))
		if err != nil {
			return models.Admin{}, fmt.Errorf("%s: %w", op, err)
		}
		if taken {
			return models.Admin{}, fmt.Errorf("%s: %w", op, ErrUserExists)
		}
	}
	admin, err := kvstore.Update(ctx, s.store, kvstore.KeyAdmin, models.Admin{}, func(admin *models.Admin) error {
		if name != "" {
			admin.Name = name
		}
		if email != "" {
			admin.Email = NormalizeEmail(email)
		}
		if rawPassword != "" {
			hashed, err := password.GetHash(rawPassword)
			if err != nil {
				return err
			}
			admin.Password = hashed
		}
		admin.Role = models.RoleAdmin
		return nil
	})
	if err != nil {
		return models.Admin{}, fmt.Errorf("%s: %w", op, err)
	}
	admin.Password = ""
	return admin, nil
}
