package repository

import (
	"errors"

	"github.com/yz4230/dpw-deploy/internal/entity"
	"gorm.io/gorm"
)

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entity.ErrNotFound
	}
	return err
}
