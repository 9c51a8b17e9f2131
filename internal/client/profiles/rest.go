package profiles

import (
	"context"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/snapgram/internal/client/backend"
)

const table = "profiles"

// RESTRepository goes through the backend's row API, so row-level security
// applies with the caller's session.
type RESTRepository struct {
	rows backend.Rows
}

var _ Repository = (*RESTRepository)(nil)

func NewRESTRepository(rows backend.Rows) *RESTRepository {
	return &RESTRepository{rows: rows}
}

func (r *RESTRepository) FindByUsername(ctx context.Context, username string) ([]Profile, error) {
	var found []Profile
	err := r.rows.Rows(ctx, backend.Request{
		Method: http.MethodGet,
		Table:  table,
		Query:  url.Values{"select": {"id,username"}, "username": {"eq." + username}},
	}, &found)
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (r *RESTRepository) Insert(ctx context.Context, p Profile) error {
	return r.rows.Rows(ctx, backend.Request{
		Method: http.MethodPost,
		Table:  table,
		Body:   p,
		Prefer: "return=minimal",
	}, nil)
}

func (r *RESTRepository) SetOnline(ctx context.Context, id string, online bool) error {
	var updated []Profile
	err := r.rows.Rows(ctx, backend.Request{
		Method: http.MethodPatch,
		Table:  table,
		Query:  url.Values{"id": {"eq." + id}, "select": {"id"}},
		Body:   map[string]bool{"online": online},
		Prefer: "return=representation",
	}, &updated)
	if err != nil {
		return err
	}
	if len(updated) == 0 {
		return ErrNotFound
	}
	return nil
}
