package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/shivaganesht/KPRIT-Placements-Automation-Tool/internal/models"
)

// SQLStore keeps the same collections as tables in a sqlite database.
// Each Update runs in one database transaction.
type SQLStore struct {
	db *gorm.DB
}

func OpenSQL(dsn string) (*SQLStore, error) {
	d, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	if err := d.AutoMigrate(
		&models.User{},
		&models.Contact{},
		&models.ApprovalRecord{},
		&models.CreditHistoryEntry{},
		&models.Template{},
		&models.Setting{},
	); err != nil {
		return nil, err
	}
	defaults := models.DefaultSettings()
	if err := d.Clauses(clause.OnConflict{DoNothing: true}).Create(&defaults).Error; err != nil {
		return nil, err
	}
	return &SQLStore{db: d}, nil
}

// View runs fn inside a transaction that is always rolled back, so every
// read in fn sees the same state.
func (s *SQLStore) View(ctx context.Context, fn func(Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&sqlTx{db: tx, readOnly: true})
	})
}

func (s *SQLStore) Update(ctx context.Context, fn func(Tx) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&sqlTx{db: tx})
	})
	return err
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type sqlTx struct {
	db       *gorm.DB
	readOnly bool
}

func (t *sqlTx) create(v any) error {
	if t.readOnly {
		return errReadOnly
	}
	return writeErr(t.db.Create(v).Error)
}

func (t *sqlTx) save(kind, id string, model, v any) error {
	if t.readOnly {
		return errReadOnly
	}
	res := t.db.Model(model).Where("id = ?", id).Select("*").UpdateColumns(v)
	if res.Error != nil {
		return writeErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}

// insertion order
const byRowID = "rowid asc"

func notFound(kind, id string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return err
}

func writeErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}

func (t *sqlTx) Settings() ([]models.Setting, error) {
	var out []models.Setting
	if err := t.db.Order(byRowID).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (t *sqlTx) User(id string) (*models.User, error) {
	var u models.User
	if err := t.db.Where("id = ?", id).First(&u).Error; err != nil {
		return nil, notFound("user", id, err)
	}
	return &u, nil
}

func (t *sqlTx) UserByEmail(email string) (*models.User, error) {
	var u models.User
	if err := t.db.Where("email = ?", email).First(&u).Error; err != nil {
		return nil, notFound("user", email, err)
	}
	return &u, nil
}

func (t *sqlTx) Users() ([]models.User, error) {
	out := []models.User{}
	if err := t.db.Order(byRowID).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (t *sqlTx) InsertUser(u *models.User) error {
	return t.create(u)
}

func (t *sqlTx) SaveUser(u *models.User) error {
	return t.save("user", u.ID, &models.User{}, u)
}

func (t *sqlTx) Contact(id string) (*models.Contact, error) {
	var c models.Contact
	if err := t.db.Where("id = ?", id).First(&c).Error; err != nil {
		return nil, notFound("contact", id, err)
	}
	return &c, nil
}

func (t *sqlTx) Contacts(f ContactFilter) ([]models.Contact, error) {
	q := t.db.Order(byRowID)
	if f.SubmittedBy != "" {
		q = q.Where("submitted_by = ?", f.SubmittedBy)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	out := []models.Contact{}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (t *sqlTx) InsertContact(c *models.Contact) error {
	return t.create(c)
}

func (t *sqlTx) SaveContact(c *models.Contact) error {
	return t.save("contact", c.ID, &models.Contact{}, c)
}

func (t *sqlTx) Approvals(contactID string) ([]models.ApprovalRecord, error) {
	q := t.db.Order(byRowID)
	if contactID != "" {
		q = q.Where("contact_id = ?", contactID)
	}
	out := []models.ApprovalRecord{}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (t *sqlTx) InsertApproval(a *models.ApprovalRecord) error {
	return t.create(a)
}

func (t *sqlTx) CreditHistory(userID string) ([]models.CreditHistoryEntry, error) {
	q := t.db.Order(byRowID)
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	out := []models.CreditHistoryEntry{}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (t *sqlTx) InsertCreditEntry(e *models.CreditHistoryEntry) error {
	return t.create(e)
}

func (t *sqlTx) Templates(kind string) ([]models.Template, error) {
	q := t.db.Order(byRowID)
	if kind != "" {
		q = q.Where("type = ?", kind)
	}
	out := []models.Template{}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (t *sqlTx) InsertTemplate(tpl *models.Template) error {
	return t.create(tpl)
}
