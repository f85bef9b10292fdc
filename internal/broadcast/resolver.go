package broadcast

import (
	"context"
	"slices"
	"strings"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/apperr"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/model"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/org"
)

// scopeFunc returns the directory filter matching every user a sender of
// one role may address.
type scopeFunc func(sender *model.User) (org.UserFilter, error)

// scopes is the recipient strategy per sending role. Roles without an
// entry may not send.
var scopes = map[model.Role]scopeFunc{
	model.RoleSuperAdmin: func(sender *model.User) (org.UserFilter, error) {
		return org.UserFilter{ExcludeIDs: []string{sender.ID}}, nil
	},

	model.RoleAreaManager: func(sender *model.User) (org.UserFilter, error) {
		if sender.AreaID == nil {
			return org.UserFilter{}, apperr.ErrEmptyRecipients.With(
				"area manager %s is not assigned to an area", sender.ID)
		}
		return org.UserFilter{
			Roles:   []model.Role{model.RoleCityCoordinator, model.RoleActivistCoordinator},
			AreaIDs: []string{*sender.AreaID},
		}, nil
	},

	model.RoleCityCoordinator: func(sender *model.User) (org.UserFilter, error) {
		if sender.CityID == nil {
			return org.UserFilter{}, apperr.ErrEmptyRecipients.With(
				"city coordinator %s is not assigned to a city", sender.ID)
		}
		return org.UserFilter{
			Roles:   []model.Role{model.RoleActivistCoordinator},
			CityIDs: []string{*sender.CityID},
		}, nil
	},
}

// Resolver computes recipient sets from the org directory. It has no side
// effects.
type Resolver struct {
	dir org.Directory
}

// NewResolver creates a Resolver reading from dir.
func NewResolver(dir org.Directory) *Resolver {
	return &Resolver{dir: dir}
}

// Scope returns the filter selecting every active user below sender.
func (r *Resolver) Scope(sender *model.User) (org.UserFilter, error) {
	scope, ok := scopes[sender.Role]
	if !ok {
		return org.UserFilter{}, apperr.ErrSenderForbidden
	}
	filter, err := scope(sender)
	if err != nil {
		return org.UserFilter{}, err
	}
	filter.ActiveOnly = true
	return filter, nil
}

// Resolve returns the sorted recipient IDs for a new task. In selected mode
// every ID must fall inside the sender's scope; one stray ID fails the
// whole request. An empty result is an error.
func (r *Resolver) Resolve(
	ctx context.Context,
	sender *model.User,
	mode model.RecipientMode,
	selectedIDs []string,
) ([]string, error) {
	filter, err := r.Scope(sender)
	if err != nil {
		return nil, err
	}

	var wanted []string
	switch mode {
	case model.ModeAll:
	case model.ModeSelected:
		wanted = dedupe(selectedIDs)
		if len(wanted) == 0 {
			return nil, apperr.ErrEmptyRecipients
		}
		filter.IDs = wanted
	default:
		return nil, apperr.Validation(map[string]string{"mode": `must be "all" or "selected"`})
	}

	users, err := r.dir.ListUsers(ctx, filter)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	slices.Sort(ids)

	if mode == model.ModeSelected && len(ids) != len(wanted) {
		var missing []string
		for _, id := range wanted {
			if _, found := slices.BinarySearch(ids, id); !found {
				missing = append(missing, id)
			}
		}
		return nil, apperr.ErrRecipientOutOfScope.With(
			"recipients outside the sender's scope: %s", strings.Join(missing, ", "))
	}

	if len(ids) == 0 {
		return nil, apperr.ErrEmptyRecipients
	}
	return ids, nil
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
