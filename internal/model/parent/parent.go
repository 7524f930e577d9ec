package parent

import "context"

type Parent struct {
	ID           string `json:"id"`
	LoginHash    string `json:"login_hash"`
	PasswordHash string `json:"password_hash"`
}

type Repository interface {
	Create(ctx context.Context, p *Parent) error
	FindByID(ctx context.Context, id string) (Parent, error)
	FindByLogin(ctx context.Context, loginHash string) (Parent, error)
	Exists(ctx context.Context, loginHash string) bool
}
