package store

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tartampluch/go-daybook/internal/config"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store wraps the local SQLite database holding rules, contacts and memos.
// All access goes through it; the engine never sees gorm types.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the database at path and migrates the schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrDBOpen, err)
	}

	if err := db.AutoMigrate(&HolidayRule{}, &Contact{}, &Memo{}); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrDBMigrate, err)
	}

	slog.Debug("Database ready",
		config.LogKeyComponent, config.CompStore,
		config.LogKeyPath, path,
	)
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// -----------------------------------------------------------------------------
// Holiday Rules
// -----------------------------------------------------------------------------

// Rules returns all live (non-deleted) holiday rules.
func (s *Store) Rules() ([]HolidayRule, error) {
	var rules []HolidayRule
	err := s.db.Order("region, month, day").Find(&rules).Error
	return rules, err
}

// SaveRule creates or updates a rule. A zero ID is assigned on create.
func (s *Store) SaveRule(r *HolidayRule) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Recurrence == "" {
		r.Recurrence = config.RecurrenceFixed
	}
	return s.db.Save(r).Error
}

// DeleteRule soft-deletes a rule. The row stays restorable for the undo
// window surfaced by the UI toast.
func (s *Store) DeleteRule(id uuid.UUID) error {
	res := s.db.Delete(&HolidayRule{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New(config.ErrRuleNotFound)
	}
	return nil
}

// RestoreRule undoes a recent DeleteRule. Restoring after the undo window has
// elapsed fails; the row is then considered gone for good (a periodic vacuum
// or the next seed run may purge it).
func (s *Store) RestoreRule(id uuid.UUID) error {
	var rule HolidayRule
	err := s.db.Unscoped().First(&rule, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.New(config.ErrRuleNotFound)
	}
	if err != nil {
		return err
	}
	if !rule.DeletedAt.Valid {
		return nil // never deleted, nothing to restore
	}
	if time.Since(rule.DeletedAt.Time) > config.RuleUndoWindow {
		return errors.New(config.ErrUndoExpired)
	}

	err = s.db.Unscoped().Model(&HolidayRule{}).
		Where("id = ?", id).
		Update("deleted_at", nil).Error
	if err != nil {
		return err
	}

	slog.Info(config.MsgRuleRestored,
		config.LogKeyComponent, config.CompStore,
		config.LogKeyRule, rule.Name,
	)
	return nil
}

// -----------------------------------------------------------------------------
// Contacts
// -----------------------------------------------------------------------------

// Contacts returns all contacts ordered by name.
func (s *Store) Contacts() ([]Contact, error) {
	var contacts []Contact
	err := s.db.Order("name").Find(&contacts).Error
	return contacts, err
}

// SaveContact creates or updates a single contact.
func (s *Store) SaveContact(c *Contact) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return s.db.Save(c).Error
}

// UpsertContacts merges an imported batch into the database, matching on the
// deterministic vCard UID so repeated imports stay idempotent.
func (s *Store) UpsertContacts(batch []Contact) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		for i := range batch {
			c := &batch[i]
			var existing Contact
			err := tx.First(&existing, "v_card_uid = ?", c.VCardUID).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				if c.ID == uuid.Nil {
					c.ID = uuid.New()
				}
				if err := tx.Create(c).Error; err != nil {
					return err
				}
			case err != nil:
				return err
			default:
				existing.Name = c.Name
				existing.Birthday = c.Birthday
				existing.BirthdayKnown = c.BirthdayKnown
				existing.YearKnown = c.YearKnown
				if err := tx.Save(&existing).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// -----------------------------------------------------------------------------
// Memos
// -----------------------------------------------------------------------------

// Memos returns all memos ordered by date.
func (s *Store) Memos() ([]Memo, error) {
	var memos []Memo
	err := s.db.Order("date").Find(&memos).Error
	return memos, err
}

// SaveMemo validates and persists a memo. Invalid memos never reach the
// database; the editor uses the same Validate call to gate its save button.
func (s *Store) SaveMemo(m *Memo) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return s.db.Save(m).Error
}

// DeleteMemo removes a memo permanently. Unlike holiday rules there is no
// undo window for memos.
func (s *Store) DeleteMemo(id uuid.UUID) error {
	return s.db.Delete(&Memo{}, "id = ?", id).Error
}
