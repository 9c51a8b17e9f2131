// Package store holds the authentication state of one user session: the
// form fields being edited, the UI flags pages react to, and the actions
// that drive the backend (login, signup, logout, online-status updates).
//
// Every action reports its outcome through a notify.Notifier. A store is
// scoped to one session; the web frontend creates one per browser and the
// terminal client one per process.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/snapgram/internal/client/backend"
	"github.com/dmitrijs2005/snapgram/internal/client/profiles"
	"github.com/dmitrijs2005/snapgram/internal/logging"
	"github.com/dmitrijs2005/snapgram/internal/notify"
)

const (
	msgInvalidCredentials = "Invalid credentials"
	msgLoginSuccessful    = "Login successful"
	msgEmptyFields        = "Please don't leave the fields empty"
	msgAllFieldsRequired  = "All fields are required"
	msgAccountCreated     = "Account created. Please check your email to verify."
	msgLogoutSuccessful   = "Logout successful"
	msgUnexpected         = "An unexpected error occurred"
)

// DefaultTaskTimeout bounds each background status update.
const DefaultTaskTimeout = 10 * time.Second

type Options struct {
	Logger      logging.Logger
	TaskTimeout time.Duration
}

// Form holds the signup fields. Login uses only Email and Password.
type Form struct {
	Email    string
	Password string
	Username string
	DOB      string
}

// State is a point-in-time copy of what pages render. The password itself
// is never exposed.
type State struct {
	Email        string
	Username     string
	DOB          string
	HasPassword  bool
	LoginSuccess bool
	CreateAcc    bool
	Error        string
}

type AuthStore struct {
	auth     backend.Auth
	profiles profiles.Repository
	notifier notify.Notifier
	logger   logging.Logger
	tasks    *tracker

	mu           sync.RWMutex
	form         Form
	loginSuccess bool
	createAcc    bool
	errMsg       string

	subMu       sync.Mutex
	subscribed  bool
	unsubscribe func()
}

func New(auth backend.Auth, repo profiles.Repository, n notify.Notifier, opts Options) *AuthStore {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop{}
	}
	logger = logger.With("module", "store")

	timeout := opts.TaskTimeout
	if timeout == 0 {
		timeout = DefaultTaskTimeout
	}

	return &AuthStore{
		auth:     auth,
		profiles: repo,
		notifier: n,
		logger:   logger,
		tasks:    newTracker(logger, timeout),
	}
}

func (s *AuthStore) SetLogin(email, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form.Email = email
	s.form.Password = password
}

func (s *AuthStore) SetForm(f Form) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form = f
}

func (s *AuthStore) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{
		Email:        s.form.Email,
		Username:     s.form.Username,
		DOB:          s.form.DOB,
		HasPassword:  s.form.Password != "",
		LoginSuccess: s.loginSuccess,
		CreateAcc:    s.createAcc,
		Error:        s.errMsg,
	}
}

func (s *AuthStore) setError(msg string) {
	s.mu.Lock()
	s.errMsg = msg
	s.mu.Unlock()
}

func (s *AuthStore) toast(ctx context.Context, t notify.Type, msg string) {
	if s.notifier != nil {
		s.notifier.Notify(ctx, notify.NewToast(t, msg))
	}
}

// answered reports whether err came back from the backend or its database,
// as opposed to a failure on our side of the wire.
func answered(err error) bool {
	return backend.IsBackendError(err) || errors.Is(err, profiles.ErrStorage)
}

// HandleSubmit signs in with the held email and password.
//
// Rejected credentials produce a negative toast. Other backend errors are
// only logged. On success LoginSuccess is set and the user is marked online:
// directly, or by the SIGNED_IN task when Init has subscribed, so a login
// sends one status update either way.
func (s *AuthStore) HandleSubmit(ctx context.Context) {
	s.mu.Lock()
	s.errMsg = ""
	s.loginSuccess = false
	email, password := s.form.Email, s.form.Password
	s.mu.Unlock()

	sess, err := s.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		switch {
		case errors.Is(err, backend.ErrInvalidCredentials):
			s.toast(ctx, notify.Negative, msgInvalidCredentials)
		case answered(err):
			s.logger.Error(ctx, "sign in failed", "error", err)
		default:
			s.logger.Error(ctx, "unexpected sign in failure", "error", err)
			s.setError(msgUnexpected)
		}
		return
	}

	s.mu.Lock()
	s.loginSuccess = true
	s.mu.Unlock()

	s.toast(ctx, notify.Positive, msgLoginSuccessful)
	if sess != nil {
		s.logger.Info(ctx, "logged in", "user_id", sess.User.ID)
	}
	if !s.isSubscribed() {
		_ = s.UpdateOnlineStatus(ctx, true)
	}
}

func (s *AuthStore) isSubscribed() bool {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return s.subscribed
}

// CreateAccount checks the username is free, signs the user up with
// username and dob as metadata, then inserts an offline profile row.
//
// A failed profile insert leaves the auth account in place; the user id is
// logged so the row can be created by hand.
func (s *AuthStore) CreateAccount(ctx context.Context) {
	s.mu.Lock()
	s.errMsg = ""
	f := s.form
	s.mu.Unlock()

	if f.Email == "" || f.Username == "" || f.Password == "" || f.DOB == "" {
		s.setError(msgAllFieldsRequired)
		s.toast(ctx, notify.Negative, msgEmptyFields)
		return
	}

	existing, err := s.profiles.FindByUsername(ctx, f.Username)
	if err != nil {
		s.logger.Error(ctx, "checking existing users failed", "error", err)
		s.toast(ctx, notify.Negative, fmt.Sprintf("Error checking username: %s", err))
		return
	}
	if len(existing) > 0 {
		s.toast(ctx, notify.Negative, fmt.Sprintf("%s already exists", f.Username))
		return
	}

	user, err := s.auth.SignUp(ctx, backend.SignUpParams{
		Email:    f.Email,
		Password: f.Password,
		Data:     map[string]any{"username": f.Username, "dob": f.DOB},
	})
	if err != nil {
		s.fail(ctx, err, "Sign-up error", "sign up failed")
		return
	}

	var userID string
	if user != nil {
		userID = user.ID
	}
	err = s.profiles.Insert(ctx, profiles.Profile{
		ID:       userID,
		Username: f.Username,
		Email:    f.Email,
		Online:   false,
	})
	if err != nil {
		s.fail(ctx, err, "Profile creation error", "inserting profile failed", "user_id", userID)
		return
	}

	s.toast(ctx, notify.Positive, msgAccountCreated)
	s.logger.Info(ctx, "account created", "user_id", userID)

	s.mu.Lock()
	s.createAcc = true
	s.form.Email = ""
	s.form.Password = ""
	s.mu.Unlock()
}

func (s *AuthStore) fail(ctx context.Context, err error, prefix, logMsg string, args ...any) {
	if !answered(err) {
		s.logger.Error(ctx, "unexpected error", append(args, "error", err)...)
		s.setError(msgUnexpected)
		s.toast(ctx, notify.Negative, msgUnexpected)
		return
	}
	s.logger.Error(ctx, logMsg, append(args, "error", err)...)
	s.setError(err.Error())
	s.toast(ctx, notify.Negative, fmt.Sprintf("%s: %s", prefix, err))
}

// LogoutUser marks the user offline, signs out and clears the credentials.
// The fields are cleared even when sign-out fails.
func (s *AuthStore) LogoutUser(ctx context.Context) {
	_ = s.UpdateOnlineStatus(ctx, false)

	err := s.auth.SignOut(ctx)

	s.mu.Lock()
	s.form.Email = ""
	s.form.Password = ""
	s.form.Username = ""
	s.mu.Unlock()

	if err != nil {
		s.logger.Error(ctx, "error logging out", "error", err)
		s.toast(ctx, notify.Negative, fmt.Sprintf("Error logging out: %s", err))
		return
	}
	s.toast(ctx, notify.Positive, msgLogoutSuccessful)
}

// UpdateOnlineStatus sets the online flag on the signed-in user's profile.
// Without a session it does nothing. Failures are logged and returned.
func (s *AuthStore) UpdateOnlineStatus(ctx context.Context, status bool) error {
	sess, err := s.auth.GetSession(ctx)
	if err != nil {
		s.logger.Error(ctx, "error fetching session", "error", err)
		return fmt.Errorf("get session: %w", err)
	}
	if sess == nil || sess.User.ID == "" {
		s.logger.Debug(ctx, "no session, online status unchanged")
		return nil
	}

	if err := s.profiles.SetOnline(ctx, sess.User.ID, status); err != nil {
		s.logger.Error(ctx, "error updating online status", "user_id", sess.User.ID, "error", err)
		return fmt.Errorf("set online: %w", err)
	}
	s.logger.Info(ctx, "online status updated", "user_id", sess.User.ID, "online", status)
	return nil
}

// SubscribeToAuthChanges marks the user online on SIGNED_IN and offline on
// SIGNED_OUT. Each update runs as a tracked background task. The returned
// function removes the subscription.
func (s *AuthStore) SubscribeToAuthChanges(ctx context.Context) func() {
	return s.auth.OnAuthStateChange(func(event backend.AuthEvent, _ *backend.Session) {
		var online bool
		switch event {
		case backend.EventSignedIn:
			online = true
		case backend.EventSignedOut:
			online = false
		default:
			return
		}
		id := s.tasks.Go(ctx, "online-status", func(ctx context.Context) error {
			return s.UpdateOnlineStatus(ctx, online)
		})
		s.logger.Debug(ctx, "auth event", "event", string(event), "task_id", id)
	})
}

// Init subscribes to auth changes. Calling it again before Close does
// nothing.
func (s *AuthStore) Init(ctx context.Context) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.subscribed {
		return
	}
	s.unsubscribe = s.SubscribeToAuthChanges(ctx)
	s.subscribed = true
}

// Wait blocks until every background task has finished.
func (s *AuthStore) Wait() {
	s.tasks.Wait()
}

// Close drops the auth subscription and waits for running tasks.
func (s *AuthStore) Close() {
	s.subMu.Lock()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.subscribed = false
	s.subMu.Unlock()
	s.tasks.Close()
}
