package service

import (
	"errors"

	"github.com/tazhibayda/todo-service/internal/domain"
)

func isNotFound(err error) bool { return errors.Is(err, domain.ErrNotFound) }

func isConflict(err error) bool { return errors.Is(err, domain.ErrConflict) }

func isInvalid(err error) bool { return errors.Is(err, domain.ErrInvalidOrExpired) }
