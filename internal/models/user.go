// Package models содержит записи академии в том виде, в каком они
// сериализуются в JSON под ключами хранилища.
package models

// Роли сессии.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Статусы учётной записи пользователя.
const (
	StatusInactive = "Inactive"
	StatusActive   = "Active"
	StatusBlocked  = "Blocked"
)

// PlanNone план пользователя до первой одобренной оплаты.
const PlanNone = "none"

// User запись пользователя под ключом users. Email уникален.
// Токен пользователя принимается, пока его sid совпадает с Session.
// Password хранит bcrypt-хеш и никогда не отдаётся наружу.
type User struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
	Plan     string `json:"plan"`
	Status   string `json:"status"`
	Created  int64  `json:"created"`
	Session  string `json:"session,omitempty"`
}

// Public возвращает копию записи без хеша пароля.
func (u User) Public() User {
	u.Password = ""
	return u
}

// Admin единственная запись администратора под ключом adminAccount.
type Admin struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// Session текущая сессия под ключом session, перезаписывается при входе.
type Session struct {
	UID    string `json:"uid,omitempty"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Active bool   `json:"active"`
}

// PasswordRequest заявка на сброс пароля под ключом bf_pwd_requests.
type PasswordRequest struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Status   string `json:"status"`
	Created  int64  `json:"created"`
	Resolved int64  `json:"resolved,omitempty"`
}

// Статусы заявки на сброс пароля.
const (
	PasswordRequestOpen     = "open"
	PasswordRequestResolved = "resolved"
)
