package store

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/snapgram/internal/client/backend"
	"github.com/dmitrijs2005/snapgram/internal/client/profiles"
	"github.com/dmitrijs2005/snapgram/internal/notify"
)

// ---- fake auth ----

type fakeAuth struct {
	mu sync.Mutex

	SignInRet *backend.Session
	SignInErr error
	// EmitSignedIn makes a successful sign-in notify the listener, as the
	// real client does.
	EmitSignedIn bool
	SignUpRet *backend.User
	SignUpErr error
	SignOutErr error
	Session    *backend.Session
	SessionErr error

	SignInCalls  int
	SignUpCalls  int
	SignOutCalls int
	LastEmail    string
	LastPassword string
	LastSignUp   backend.SignUpParams

	// calls in order, shared with fakeProfiles when set
	trace *[]string

	listener backend.AuthListener
	subs     int
	unsubs   int
}

func (f *fakeAuth) record(s string) {
	if f.trace != nil {
		*f.trace = append(*f.trace, s)
	}
}

func (f *fakeAuth) SignInWithPassword(_ context.Context, email, password string) (*backend.Session, error) {
	f.mu.Lock()
	f.SignInCalls++
	f.LastEmail, f.LastPassword = email, password
	ret, err, emit := f.SignInRet, f.SignInErr, f.EmitSignedIn
	f.mu.Unlock()

	if emit && err == nil {
		f.emit(backend.EventSignedIn)
	}
	return ret, err
}

func (f *fakeAuth) SignUp(_ context.Context, p backend.SignUpParams) (*backend.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SignUpCalls++
	f.LastSignUp = p
	f.record("signup")
	return f.SignUpRet, f.SignUpErr
}

func (f *fakeAuth) SignOut(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SignOutCalls++
	f.record("signout")
	return f.SignOutErr
}

func (f *fakeAuth) GetSession(context.Context) (*backend.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Session, f.SessionErr
}

func (f *fakeAuth) OnAuthStateChange(fn backend.AuthListener) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listener = fn
	f.subs++
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.listener = nil
		f.unsubs++
	}
}

func (f *fakeAuth) emit(event backend.AuthEvent) {
	f.mu.Lock()
	fn := f.listener
	f.mu.Unlock()
	if fn != nil {
		fn(event, nil)
	}
}

// ---- fake profiles ----

type onlineCall struct {
	ID     string
	Online bool
}

type fakeProfiles struct {
	mu sync.Mutex

	FindRet   []profiles.Profile
	FindErr   error
	InsertErr error
	SetErr    error

	FindCalls  int
	Inserted   []profiles.Profile
	OnlineSets []onlineCall

	trace *[]string
}

func (f *fakeProfiles) FindByUsername(context.Context, string) ([]profiles.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FindCalls++
	return f.FindRet, f.FindErr
}

func (f *fakeProfiles) Insert(_ context.Context, p profiles.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Inserted = append(f.Inserted, p)
	if f.trace != nil {
		*f.trace = append(*f.trace, "insert")
	}
	return f.InsertErr
}

func (f *fakeProfiles) SetOnline(_ context.Context, id string, online bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.OnlineSets = append(f.OnlineSets, onlineCall{ID: id, Online: online})
	if f.trace != nil {
		*f.trace = append(*f.trace, "online")
	}
	return f.SetErr
}

func (f *fakeProfiles) onlineSets() []onlineCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]onlineCall(nil), f.OnlineSets...)
}

// ---- recording notifier ----

type toasts struct {
	mu  sync.Mutex
	got []notify.Toast
}

func (r *toasts) Notify(_ context.Context, t notify.Toast) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, t)
}

func (r *toasts) all() []notify.Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Toast(nil), r.got...)
}
