package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Muragesh-24/ENGIGROW/internal/domain"
	"github.com/Muragesh-24/ENGIGROW/internal/repository"
	"github.com/Muragesh-24/ENGIGROW/internal/repository/sqlite"
)

func newUserRepo(t *testing.T) repository.UserRepository {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := sqlite.NewUserRepository(db)
	require.NoError(t, repo.Init(context.Background()))
	return repo
}

func validRegistration() RegisterInput {
	return RegisterInput{
		Name:        "Ada",
		Institution: "Analytical College",
		Interests:   []string{"robotics", " ml "},
		Email:       " Ada@Uni.EDU ",
		Password:    "Abcdef1!",
	}
}

func TestUserService_Register(t *testing.T) {
	repo := newUserRepo(t)
	svc := NewUserService(repo, bcrypt.MinCost)
	ctx := context.Background()

	user, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)
	assert.Equal(t, "ada@uni.edu", user.Email)
	assert.Equal(t, []string{"robotics", "ml"}, user.Interests)
	assert.Empty(t, user.PasswordHash, "returned user must not carry the hash")

	stored, err := repo.GetByEmail(ctx, "ada@uni.edu")
	require.NoError(t, err)
	assert.NotEqual(t, "Abcdef1!", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("Abcdef1!")))
}

func TestUserService_Register_Duplicate(t *testing.T) {
	svc := NewUserService(newUserRepo(t), bcrypt.MinCost)
	ctx := context.Background()

	_, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	again := validRegistration()
	again.Email = "ADA@uni.edu"
	_, err = svc.Register(ctx, again)
	assert.ErrorIs(t, err, domain.ErrDuplicateIdentity)
}

func TestUserService_Register_Validation(t *testing.T) {
	svc := NewUserService(newUserRepo(t), bcrypt.MinCost)

	tests := []struct {
		name   string
		mutate func(*RegisterInput)
	}{
		{name: "missing name", mutate: func(in *RegisterInput) { in.Name = "  " }},
		{name: "missing institution", mutate: func(in *RegisterInput) { in.Institution = "" }},
		{name: "missing email", mutate: func(in *RegisterInput) { in.Email = "" }},
		{name: "malformed email", mutate: func(in *RegisterInput) { in.Email = "ada-at-uni" }},
		{name: "no interests", mutate: func(in *RegisterInput) { in.Interests = nil }},
		{name: "blank interests", mutate: func(in *RegisterInput) { in.Interests = []string{" ", ""} }},
		{name: "weak password", mutate: func(in *RegisterInput) { in.Password = "abc" }},
		{name: "missing password", mutate: func(in *RegisterInput) { in.Password = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validRegistration()
			tt.mutate(&in)
			_, err := svc.Register(context.Background(), in)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestUserService_Authenticate(t *testing.T) {
	svc := NewUserService(newUserRepo(t), bcrypt.MinCost)
	ctx := context.Background()
	_, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "correct", email: "ada@uni.edu", password: "Abcdef1!"},
		{name: "email case and spaces ignored", email: "  ADA@uni.edu", password: "Abcdef1!"},
		{name: "wrong password", email: "ada@uni.edu", password: "Abcdef1?", wantErr: domain.ErrInvalidCredentials},
		{name: "unknown user", email: "bob@uni.edu", password: "Abcdef1!", wantErr: domain.ErrNotFound},
		{name: "empty password", email: "ada@uni.edu", password: "", wantErr: domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := svc.Authenticate(ctx, tt.email, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ada@uni.edu", user.Email)
			assert.Empty(t, user.PasswordHash)
		})
	}
}

func TestUserService_GetByEmail(t *testing.T) {
	svc := NewUserService(newUserRepo(t), bcrypt.MinCost)
	ctx := context.Background()
	_, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	user, err := svc.GetByEmail(ctx, "ada@uni.edu")
	require.NoError(t, err)
	assert.Equal(t, "Analytical College", user.Institution)
	assert.Empty(t, user.PasswordHash)

	_, err = svc.GetByEmail(ctx, "ghost@uni.edu")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
