package db

import (
	"github.com/blacktop/dexsig/internal/model"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// store implements the run queries shared by the gorm backed databases.
type store struct {
	db *gorm.DB
}

func (s *store) migrate() error {
	return s.db.AutoMigrate(&model.Run{}, &model.Match{})
}

// Save creates or replaces a run and its matches.
func (s *store) Save(run *model.Run) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", run.ID).Delete(&model.Match{}).Error; err != nil {
			return errors.Wrap(err, "failed to delete old matches")
		}
		for i := range run.Matches {
			run.Matches[i].ID = 0
			run.Matches[i].RunID = run.ID
		}
		if err := tx.Omit(clause.Associations).Save(run).Error; err != nil {
			return errors.Wrap(err, "failed to save run")
		}
		if len(run.Matches) == 0 {
			return nil
		}
		if err := tx.Create(&run.Matches).Error; err != nil {
			return errors.Wrap(err, "failed to save matches")
		}
		return nil
	})
}

// Get returns the run for the given ID.
func (s *store) Get(id string) (*model.Run, error) {
	var run model.Run
	if err := s.db.Preload("Matches", func(db *gorm.DB) *gorm.DB {
		return db.Order("id")
	}).Where("id = ?", id).First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(model.ErrNotFound, "id %s", id)
		}
		return nil, err
	}
	return &run, nil
}

// List returns all runs, newest first.
func (s *store) List() ([]*model.Run, error) {
	var runs []*model.Run
	if err := s.db.Preload("Matches").Order("created_at desc").Order("id").Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// Delete removes the given run and its matches.
func (s *store) Delete(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", id).Delete(&model.Match{}).Error; err != nil {
			return err
		}
		res := tx.Unscoped().Where("id = ?", id).Delete(&model.Run{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.Wrapf(model.ErrNotFound, "id %s", id)
		}
		return nil
	})
}

// Close closes the database.
func (s *store) Close() error {
	if s.db == nil {
		return nil
	}
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
