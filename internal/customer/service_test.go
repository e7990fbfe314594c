package customer_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/sokoswift/internal/customer"
	"github.com/vasiliy-maslov/sokoswift/internal/session"
	"github.com/vasiliy-maslov/sokoswift/internal/session/sessiontest"
	"golang.org/x/crypto/bcrypt"
)

type MockCustomerRepository struct {
	mock.Mock
}

func (m *MockCustomerRepository) Create(ctx context.Context, c *customer.Customer) (int64, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCustomerRepository) GetByID(ctx context.Context, id int64) (*customer.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Customer), args.Error(1)
}

func (m *MockCustomerRepository) GetByEmail(ctx context.Context, email string) (*customer.Customer, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Customer), args.Error(1)
}

func hashPassword(t *testing.T, raw string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestCustomerService_Register_Success(t *testing.T) {
	mockRepo := new(MockCustomerRepository)
	svc := customer.NewService(mockRepo)

	mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(c *customer.Customer) bool {
		return c.FirstName == "Amina" &&
			c.LastName == "Otieno" &&
			c.Email == "amina@example.com" &&
			c.Phone == "0712345678"
	})).Return(int64(17), nil).Once()

	created, err := svc.Register(context.Background(), customer.RegisterInput{
		Name:     "Amina Wanjiru Otieno",
		Email:    "  Amina@Example.com ",
		Phone:    "0712345678",
		Password: "supersecret",
	})

	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, int64(17), created.ID)
	assert.NotEqual(t, "supersecret", created.PasswordHash, "password should be hashed, not raw")
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("supersecret")))
	mockRepo.AssertExpectations(t)
}

func TestCustomerService_Register_DuplicateIdentity(t *testing.T) {
	mockRepo := new(MockCustomerRepository)
	svc := customer.NewService(mockRepo)

	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*customer.Customer")).
		Return(int64(0), customer.ErrDuplicateIdentity).
		Once()

	created, err := svc.Register(context.Background(), customer.RegisterInput{
		Name:     "Amina",
		Email:    "amina@example.com",
		Phone:    "0712345678",
		Password: "supersecret",
	})

	require.ErrorIs(t, err, customer.ErrDuplicateIdentity)
	require.Nil(t, created)
	mockRepo.AssertExpectations(t)
}

func TestCustomerService_Register_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input customer.RegisterInput
	}{
		{name: "empty name", input: customer.RegisterInput{Name: "  ", Email: "a@b.c", Phone: "1", Password: "p"}},
		{name: "empty email", input: customer.RegisterInput{Name: "A", Email: "", Phone: "1", Password: "p"}},
		{name: "empty phone", input: customer.RegisterInput{Name: "A", Email: "a@b.c", Phone: " ", Password: "p"}},
		{name: "empty password", input: customer.RegisterInput{Name: "A", Email: "a@b.c", Phone: "1", Password: ""}},
		{name: "password over 72 bytes", input: customer.RegisterInput{Name: "A", Email: "a@b.c", Phone: "1", Password: strings.Repeat("x", 73)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockCustomerRepository)
			svc := customer.NewService(mockRepo)

			_, err := svc.Register(context.Background(), tt.input)
			require.ErrorIs(t, err, customer.ErrInvalidInput)
			mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestCustomerService_Register_RepositoryError(t *testing.T) {
	mockRepo := new(MockCustomerRepository)
	svc := customer.NewService(mockRepo)
	dbErr := errors.New("connection reset")

	mockRepo.On("Create", mock.Anything, mock.Anything).Return(int64(0), dbErr).Once()

	_, err := svc.Register(context.Background(), customer.RegisterInput{
		Name: "A", Email: "a@b.c", Phone: "1", Password: "p",
	})
	require.ErrorIs(t, err, dbErr)
	require.NotErrorIs(t, err, customer.ErrDuplicateIdentity)
}

func TestCustomerService_Login(t *testing.T) {
	stored := &customer.Customer{
		ID:           5,
		FirstName:    "Amina",
		Email:        "amina@example.com",
		PasswordHash: hashPassword(t, "supersecret"),
	}

	tests := []struct {
		name      string
		email     string
		password  string
		repoUser  *customer.Customer
		repoErr   error
		wantErrIs error
		wantID    int64
	}{
		{name: "success", email: "Amina@example.com", password: "supersecret", repoUser: stored, wantID: 5},
		{name: "wrong password", email: "amina@example.com", password: "nope", repoUser: stored, wantErrIs: customer.ErrInvalidCredentials},
		{name: "unknown email", email: "amina@example.com", password: "supersecret", repoErr: customer.ErrNotFound, wantErrIs: customer.ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockCustomerRepository)
			svc := customer.NewService(mockRepo)
			store := sessiontest.NewStore()
			sess := session.New(store, "sid")

			if tt.repoUser != nil {
				mockRepo.On("GetByEmail", mock.Anything, "amina@example.com").Return(tt.repoUser, nil).Once()
			} else {
				mockRepo.On("GetByEmail", mock.Anything, "amina@example.com").Return(nil, tt.repoErr).Once()
			}

			id, err := svc.Login(context.Background(), sess, tt.email, tt.password)

			identity, idErr := sess.Identity(context.Background())
			require.NoError(t, idErr)

			if tt.wantErrIs != nil {
				require.ErrorIs(t, err, tt.wantErrIs)
				assert.Zero(t, id)
				assert.False(t, identity.Authenticated(), "failed login must not authenticate the session")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
			assert.True(t, identity.Authenticated())
			assert.Equal(t, tt.wantID, identity.CustomerID)
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestCustomerService_Login_SessionStoreFailure(t *testing.T) {
	mockRepo := new(MockCustomerRepository)
	svc := customer.NewService(mockRepo)
	store := sessiontest.NewStore()
	store.Err = errors.New("redis down")

	mockRepo.On("GetByEmail", mock.Anything, "amina@example.com").Return(&customer.Customer{
		ID: 5, PasswordHash: hashPassword(t, "supersecret"),
	}, nil).Once()

	_, err := svc.Login(context.Background(), session.New(store, "sid"), "amina@example.com", "supersecret")
	require.Error(t, err)
	require.NotErrorIs(t, err, customer.ErrInvalidCredentials)
}

func TestCustomerService_Logout(t *testing.T) {
	svc := customer.NewService(new(MockCustomerRepository))
	store := sessiontest.NewStore()
	sess := session.New(store, "sid")
	require.NoError(t, sess.MarkAuthenticated(context.Background(), 9))

	require.NoError(t, svc.Logout(context.Background(), sess))

	identity, err := sess.Identity(context.Background())
	require.NoError(t, err)
	assert.False(t, identity.Authenticated())
	assert.Empty(t, store.Value("sid", session.KeyUserID))
}

func TestCustomerService_GetByID(t *testing.T) {
	mockRepo := new(MockCustomerRepository)
	svc := customer.NewService(mockRepo)

	expected := customer.Customer{
		ID:        3,
		FirstName: "Test",
		LastName:  "User",
		Email:     "getbyid@example.com",
		Phone:     "0700000000",
		CreatedAt: time.Now().Add(-time.Hour),
	}
	mockRepo.On("GetByID", mock.Anything, int64(3)).Return(&expected, nil).Once()
	mockRepo.On("GetByID", mock.Anything, int64(4)).Return(nil, customer.ErrNotFound).Once()

	found, err := svc.GetByID(context.Background(), 3)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(expected, *found))

	_, err = svc.GetByID(context.Background(), 4)
	require.ErrorIs(t, err, customer.ErrNotFound)
	mockRepo.AssertExpectations(t)
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		in, first, last string
	}{
		{"Amina Otieno", "Amina", "Otieno"},
		{"Amina", "Amina", ""},
		{"  Amina  Wanjiru   Otieno ", "Amina", "Otieno"},
		{"", "", ""},
	}
	for _, tt := range tests {
		first, last := customer.SplitName(tt.in)
		assert.Equal(t, tt.first, first, tt.in)
		assert.Equal(t, tt.last, last, tt.in)
	}
}
