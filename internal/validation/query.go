package validation

import (
	"errors"

	"github.com/labstack/echo/v4"

	apperrors "acquisitions/internal/errors"
	"acquisitions/internal/model"
)

// ListUsersQuery is the coerced query string of GET /users.
type ListUsersQuery struct {
	Page      int    `query:"page" validate:"min=1"`
	Limit     int    `query:"limit" validate:"min=1,max=100"`
	Search    string `query:"search" validate:"max=255"`
	SortBy    string `query:"sortBy"`
	SortOrder string `query:"sortOrder" validate:"oneof=asc desc"`
}

func (q *ListUsersQuery) normalize() {
	if _, ok := model.UserSortColumns[q.SortBy]; !ok {
		q.SortBy = model.DefaultUserSort
	}
}

// DefaultListUsersQuery returns the values used for absent parameters.
func DefaultListUsersQuery() ListUsersQuery {
	return ListUsersQuery{
		Page:      1,
		Limit:     10,
		SortBy:    model.DefaultUserSort,
		SortOrder: "desc",
	}
}

// BindListUsersQuery reads the listing parameters from the query string,
// applying defaults and converting numeric strings. Values that cannot be
// parsed are reported in the same format as validation failures.
func BindListUsersQuery(c echo.Context) (ListUsersQuery, error) {
	q := DefaultListUsersQuery()

	errs := echo.QueryParamsBinder(c).
		Int("page", &q.Page).
		Int("limit", &q.Limit).
		String("search", &q.Search).
		String("sortBy", &q.SortBy).
		String("sortOrder", &q.SortOrder).
		BindErrors()
	if len(errs) == 0 {
		return q, nil
	}

	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		var bindErr *echo.BindingError
		if errors.As(err, &bindErr) && len(bindErr.Field) > 0 {
			msgs = append(msgs, invalid(bindErr.Field))
			continue
		}
		msgs = append(msgs, err.Error())
	}
	return q, apperrors.NewValidationError(msgs...)
}
