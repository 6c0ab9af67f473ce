package auth

type AuthServicePort interface {
	CreateUser(user User) (*User, error)
	GetUser(email string) (*User, error)
	GetUserByID(id uint) (*User, error)
}

var _ AuthServicePort = (*AuthService)(nil)
