package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"microshop/internal/domain"
)

func newTestAccountService(accounts *fakeAccountRepo, issuer *fakeIssuer) *accountService {
	s := NewAccountService(noTx{}, accounts, issuer, nil).(*accountService)
	s.hashCost = bcrypt.MinCost
	return s
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func accountsByID(list ...*domain.Account) func(int64) (*domain.Account, error) {
	return func(id int64) (*domain.Account, error) {
		for _, a := range list {
			if a.ID == id {
				cp := *a
				return &cp, nil
			}
		}
		return nil, domain.ErrNotFound
	}
}

func accountsByUsername(list ...*domain.Account) func(string) (*domain.Account, error) {
	return func(username string) (*domain.Account, error) {
		for _, a := range list {
			if a.Username == username {
				cp := *a
				return &cp, nil
			}
		}
		return nil, domain.ErrNotFound
	}
}

func TestLogin(t *testing.T) {
	alice := &domain.Account{ID: 3, Username: "alice", PasswordHash: hashed(t, "s3cret"), Role: domain.RoleUser}
	accounts := &fakeAccountRepo{findByUsername: accountsByUsername(alice)}
	issuer := &fakeIssuer{}
	svc := newTestAccountService(accounts, issuer)

	t.Run("valid credentials issue a token with the stored role", func(t *testing.T) {
		token, account, err := svc.Login(context.Background(), "alice", "s3cret")
		require.NoError(t, err)
		assert.Equal(t, "token-alice", token)
		assert.Equal(t, int64(3), account.ID)
		require.NotEmpty(t, issuer.issued)
		assert.Equal(t, issuedToken{"alice", 3, domain.RoleUser}, issuer.issued[len(issuer.issued)-1])
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := svc.Login(context.Background(), "alice", "nope")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, _, err := svc.Login(context.Background(), "bob", "s3cret")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})
}

func TestRefresh(t *testing.T) {
	admin := &domain.Account{ID: 1, Username: "admin", Role: domain.RoleAdmin}
	issuer := &fakeIssuer{}
	svc := newTestAccountService(&fakeAccountRepo{findById: accountsByID(admin)}, issuer)

	token, err := svc.Refresh(context.Background(), domain.Principal{Identity: "admin", AccountID: 1, Role: domain.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, "token-admin", token)
	assert.Equal(t, domain.RoleAdmin, issuer.issued[0].role)

	_, err = svc.Refresh(context.Background(), domain.Principal{Identity: "ghost", AccountID: 9})
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	_, err = svc.Refresh(context.Background(), domain.Principal{Identity: "mallory", AccountID: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestRegister(t *testing.T) {
	accounts := &fakeAccountRepo{}
	svc := newTestAccountService(accounts, &fakeIssuer{})

	account, err := svc.Register(context.Background(), AccountInput{
		Name: "Alice", Surname: "Liddell", Address: "Wonderland 1", Username: " alice ", Password: "pw",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", account.Username)
	assert.Equal(t, domain.RoleUser, account.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte("pw")))

	_, err = svc.Register(context.Background(), AccountInput{Name: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	accounts.createErr = domain.ErrConflict
	_, err = svc.Register(context.Background(), AccountInput{Name: "A", Username: "alice", Password: "pw"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestGetAccount_Access(t *testing.T) {
	alice := &domain.Account{ID: 3, Username: "alice"}
	svc := newTestAccountService(&fakeAccountRepo{findById: accountsByID(alice)}, &fakeIssuer{})
	ctx := context.Background()

	got, err := svc.GetAccount(ctx, domain.Principal{Identity: "alice", AccountID: 3, Role: domain.RoleUser}, 3)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	_, err = svc.GetAccount(ctx, domain.Principal{Identity: "admin", AccountID: 1, Role: domain.RoleAdmin}, 3)
	assert.NoError(t, err)

	_, err = svc.GetAccount(ctx, domain.Principal{Identity: "bob", AccountID: 4, Role: domain.RoleUser}, 3)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.GetAccount(ctx, domain.Principal{Identity: "bob", AccountID: 4, Role: domain.RoleUser}, 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateAccount(t *testing.T) {
	alice := &domain.Account{ID: 3, Name: "Alice", Username: "alice", PasswordHash: "old", Role: domain.RoleUser}
	bob := &domain.Account{ID: 4, Name: "Bob", Username: "bob", Role: domain.RoleUser}
	self := domain.Principal{Identity: "alice", AccountID: 3, Role: domain.RoleUser}

	t.Run("keeps password and role when not supplied", func(t *testing.T) {
		accounts := &fakeAccountRepo{findById: accountsByID(alice, bob), findByUsername: accountsByUsername(alice, bob)}
		svc := newTestAccountService(accounts, &fakeIssuer{})

		got, err := svc.UpdateAccount(context.Background(), self, 3, AccountInput{Name: "Alicia", Username: "alice", Address: "New 2"})
		require.NoError(t, err)
		assert.Equal(t, "Alicia", got.Name)
		assert.Equal(t, "old", got.PasswordHash)
		assert.Equal(t, domain.RoleUser, got.Role)
		require.Len(t, accounts.updated, 1)
	})

	t.Run("username taken by another account", func(t *testing.T) {
		accounts := &fakeAccountRepo{findById: accountsByID(alice, bob), findByUsername: accountsByUsername(alice, bob)}
		svc := newTestAccountService(accounts, &fakeIssuer{})

		_, err := svc.UpdateAccount(context.Background(), self, 3, AccountInput{Name: "Alice", Username: "bob"})
		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.Empty(t, accounts.updated)
	})

	t.Run("other user's account", func(t *testing.T) {
		accounts := &fakeAccountRepo{findById: accountsByID(alice, bob), findByUsername: accountsByUsername(alice, bob)}
		svc := newTestAccountService(accounts, &fakeIssuer{})

		_, err := svc.UpdateAccount(context.Background(), self, 4, AccountInput{Name: "Bob", Username: "bob"})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestDeleteAccount(t *testing.T) {
	alice := &domain.Account{ID: 3, Username: "alice"}
	accounts := &fakeAccountRepo{findById: accountsByID(alice)}
	svc := newTestAccountService(accounts, &fakeIssuer{})
	ctx := context.Background()

	err := svc.DeleteAccount(ctx, domain.Principal{Identity: "bob", AccountID: 4, Role: domain.RoleUser}, 3)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Empty(t, accounts.deleted)

	require.NoError(t, svc.DeleteAccount(ctx, domain.Principal{Identity: "alice", AccountID: 3, Role: domain.RoleUser}, 3))
	assert.Equal(t, []int64{3}, accounts.deleted)
}

func TestEnsureAdmin(t *testing.T) {
	t.Run("creates the admin once", func(t *testing.T) {
		accounts := &fakeAccountRepo{}
		svc := newTestAccountService(accounts, &fakeIssuer{})

		require.NoError(t, svc.EnsureAdmin(context.Background(), "admin", "admin-pass"))
		require.Len(t, accounts.created, 1)
		assert.Equal(t, domain.RoleAdmin, accounts.created[0].Role)
		assert.Equal(t, "admin", accounts.created[0].Username)
	})

	t.Run("existing admin untouched", func(t *testing.T) {
		existing := &domain.Account{ID: 1, Username: "admin", Role: domain.RoleAdmin}
		accounts := &fakeAccountRepo{findByUsername: accountsByUsername(existing)}
		svc := newTestAccountService(accounts, &fakeIssuer{})

		require.NoError(t, svc.EnsureAdmin(context.Background(), "admin", "admin-pass"))
		assert.Empty(t, accounts.created)
	})

	t.Run("unconfigured is a no-op", func(t *testing.T) {
		accounts := &fakeAccountRepo{}
		svc := newTestAccountService(accounts, &fakeIssuer{})

		require.NoError(t, svc.EnsureAdmin(context.Background(), "", ""))
		assert.Empty(t, accounts.created)
	})
}
