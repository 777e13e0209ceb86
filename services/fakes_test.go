package services

import (
	"context"
	"io"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/gym_backend/models"
	"github.com/HSouheill/gym_backend/repositories"
	"github.com/HSouheill/gym_backend/utils"
)

type fakeUserStore struct {
	mu    sync.Mutex
	users map[models.Role]map[string]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[models.Role]map[string]*models.User)}
}

func (f *fakeUserStore) put(role models.Role, user *models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.users[role] == nil {
		f.users[role] = make(map[string]*models.User)
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.Role = role
	clone := *user
	f.users[role][user.Email] = &clone
}

func (f *fakeUserStore) get(role models.Role, email string) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[role][email]
	if !ok {
		return nil
	}
	clone := *u
	return &clone
}

func (f *fakeUserStore) byID(role models.Role, id primitive.ObjectID) *models.User {
	for _, u := range f.users[role] {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (f *fakeUserStore) FindByEmail(_ context.Context, role models.Role, email string) (*models.User, error) {
	if u := f.get(role, email); u != nil {
		return u, nil
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeUserStore) FindByID(_ context.Context, role models.Role, id primitive.ObjectID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u := f.byID(role, id); u != nil {
		clone := *u
		return &clone, nil
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeUserStore) EmailExists(_ context.Context, role models.Role, email string) (bool, error) {
	return f.get(role, email) != nil, nil
}

func (f *fakeUserStore) Create(_ context.Context, role models.Role, user *models.User) error {
	if f.get(role, user.Email) != nil {
		return repositories.ErrDuplicateKey
	}
	user.ID = primitive.NewObjectID()
	f.put(role, user)
	user.Role = role
	return nil
}

func (f *fakeUserStore) UpdatePassword(_ context.Context, role models.Role, id primitive.ObjectID, hash string, changedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byID(role, id)
	if u == nil {
		return repositories.ErrNotFound
	}
	u.Password = hash
	u.PasswordChangedAt = &changedAt
	return nil
}

func (f *fakeUserStore) TouchLogin(_ context.Context, role models.Role, id primitive.ObjectID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byID(role, id)
	if u == nil {
		return repositories.ErrNotFound
	}
	u.LastLoginAt = &at
	return nil
}

func (f *fakeUserStore) UpdateProfile(_ context.Context, role models.Role, id primitive.ObjectID, update models.ProfileUpdate) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byID(role, id)
	if u == nil {
		return nil, repositories.ErrNotFound
	}
	if update.FullName != nil {
		u.FullName = *update.FullName
	}
	if update.Phone != nil {
		u.Phone = *update.Phone
	}
	clone := *u
	return &clone, nil
}

func (f *fakeUserStore) UpdateProfilePicture(_ context.Context, role models.Role, id primitive.ObjectID, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byID(role, id)
	if u == nil {
		return repositories.ErrNotFound
	}
	u.ProfilePic = url
	return nil
}

func (f *fakeUserStore) SetBlocked(_ context.Context, role models.Role, id primitive.ObjectID, blocked bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byID(role, id)
	if u == nil {
		return repositories.ErrNotFound
	}
	u.IsBlocked = blocked
	return nil
}

func (f *fakeUserStore) List(_ context.Context, role models.Role, limit, skip int64) ([]models.User, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := make([]models.User, 0, len(f.users[role]))
	for _, u := range f.users[role] {
		all = append(all, *u)
	}
	total := int64(len(all))
	if skip >= total {
		return []models.User{}, total, nil
	}
	end := skip + limit
	if end > total {
		end = total
	}
	return all[skip:end], total, nil
}

type fakeOTPStore struct {
	mu   sync.Mutex
	otps map[string]*models.OTP
}

func newFakeOTPStore() *fakeOTPStore {
	return &fakeOTPStore{otps: make(map[string]*models.OTP)}
}

func otpStoreKey(email, role string, purpose models.OTPPurpose) string {
	return email + "|" + role + "|" + string(purpose)
}

func (f *fakeOTPStore) Save(_ context.Context, otp *models.OTP) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	otp.ID = primitive.NewObjectID()
	clone := *otp
	f.otps[otpStoreKey(otp.Email, otp.Role, otp.Purpose)] = &clone
	return nil
}

func (f *fakeOTPStore) FindLatest(_ context.Context, email, role string, purpose models.OTPPurpose) (*models.OTP, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	otp, ok := f.otps[otpStoreKey(email, role, purpose)]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	clone := *otp
	return &clone, nil
}

func (f *fakeOTPStore) Consume(_ context.Context, id primitive.ObjectID, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, otp := range f.otps {
		if otp.ID == id && otp.OTP == code {
			delete(f.otps, k)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeOTPStore) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, otp := range f.otps {
		if otp.ID == id {
			delete(f.otps, k)
		}
	}
	return nil
}

func (f *fakeOTPStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.otps)
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []Email
	err  error
}

func (m *fakeMailer) Send(_ context.Context, email Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, email)
	return nil
}

func (m *fakeMailer) all() []Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Email(nil), m.sent...)
}

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

// lastCode returns the OTP in the most recent email sent to "to"
func (m *fakeMailer) lastCode(to string) string {
	sent := m.all()
	for i := len(sent) - 1; i >= 0; i-- {
		if sent[i].To == to {
			return codePattern.FindString(sent[i].Text)
		}
	}
	return ""
}

type authEvent struct {
	userID string
	reason string
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []authEvent
}

func (n *fakeNotifier) NotifyAuthChange(userID, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, authEvent{userID: userID, reason: reason})
}

func (n *fakeNotifier) all() []authEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]authEvent(nil), n.events...)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type authEnv struct {
	svc      *AuthService
	users    *fakeUserStore
	otps     *fakeOTPStore
	mailer   *fakeMailer
	notifier *fakeNotifier
	redis    *miniredis.Miniredis
	clock    time.Time
}

func (e *authEnv) advance(d time.Duration) {
	e.clock = e.clock.Add(d)
}

// newAuthEnv wires an AuthService against in-memory stores and miniredis.
// The clock starts an hour in the past so tokens signed with it are never
// rejected as issued in the future.
func newAuthEnv(t *testing.T) *authEnv {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	env := &authEnv{
		users:    newFakeUserStore(),
		otps:     newFakeOTPStore(),
		mailer:   &fakeMailer{},
		notifier: &fakeNotifier{},
		redis:    mr,
		clock:    time.Now().Add(-time.Hour),
	}

	tokens := NewTokenService("test-secret", "gym-backend", 24*time.Hour, 7*24*time.Hour)
	tokens.now = func() time.Time { return env.clock }

	env.svc = NewAuthService(AuthDeps{
		Users:         env.users,
		OTPs:          env.otps,
		Tokens:        tokens,
		Revocations:   NewRedisRevocationStore(client),
		OTPAttempts:   NewOTPAttemptLimiter(client, 5, 10*time.Minute),
		LoginAttempts: NewLoginAttemptLimiter(client, 5, 30*time.Minute),
		Mailer:        env.mailer,
		Notifier:      env.notifier,
	}, AuthConfig{
		OTPTTL:           10 * time.Minute,
		OTPLength:        6,
		SuperAdminEmails: []string{"root@example.com"},
	}, testLogger())
	env.svc.now = func() time.Time { return env.clock }

	return env
}

// seedUser stores a user with the given password and returns it
func (e *authEnv) seedUser(t *testing.T, role models.Role, email, password string) *models.User {
	t.Helper()
	hash, err := utils.HashPassword(password)
	require.NoError(t, err)
	user := &models.User{Email: email, Password: hash, IsEmailVerified: true, CreatedAt: e.clock}
	e.users.put(role, user)
	return e.users.get(role, email)
}
