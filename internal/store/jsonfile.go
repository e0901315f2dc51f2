package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/shivaganesht/KPRIT-Placements-Automation-Tool/internal/models"
)

type document struct {
	Users          []models.User               `json:"users"`
	Contacts       []models.Contact            `json:"contacts"`
	Approvals      []models.ApprovalRecord     `json:"approvals"`
	CreditsHistory []models.CreditHistoryEntry `json:"credits_history"`
	AITemplates    []models.Template           `json:"ai_templates"`
	Settings       []models.Setting            `json:"settings"`
}

func emptyDocument() *document {
	return &document{
		Users:          []models.User{},
		Contacts:       []models.Contact{},
		Approvals:      []models.ApprovalRecord{},
		CreditsHistory: []models.CreditHistoryEntry{},
		AITemplates:    []models.Template{},
		Settings:       models.DefaultSettings(),
	}
}

// clone copies every collection so a unit of work can be discarded.
// Records are values; their pointer fields are replaced, never written through.
func (d *document) clone() *document {
	return &document{
		Users:          append([]models.User{}, d.Users...),
		Contacts:       append([]models.Contact{}, d.Contacts...),
		Approvals:      append([]models.ApprovalRecord{}, d.Approvals...),
		CreditsHistory: append([]models.CreditHistoryEntry{}, d.CreditsHistory...),
		AITemplates:    append([]models.Template{}, d.AITemplates...),
		Settings:       append([]models.Setting{}, d.Settings...),
	}
}

// JSONStore keeps the whole document in memory and rewrites the backing
// file after every committed Update.
type JSONStore struct {
	path   string
	log    *zap.Logger
	mu     sync.RWMutex
	doc    *document
	closed bool
}

// OpenJSON loads path. A missing or unparseable file yields the empty
// document with default settings; the file is not touched until the first
// write.
func OpenJSON(path string, log *zap.Logger) (*JSONStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &JSONStore{path: path, log: log}
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	s.doc = doc
	return s, nil
}

func (s *JSONStore) load() (*document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.log.Info("store file not found, starting empty", zap.String("path", s.path))
		return emptyDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.log.Warn("store file unparseable, starting empty", zap.String("path", s.path), zap.Error(err))
		return emptyDocument(), nil
	}
	s.normalize(&doc)
	return &doc, nil
}

// normalize coerces malformed records at the boundary instead of letting
// them reach the services.
func (s *JSONStore) normalize(doc *document) {
	users := make([]models.User, 0, len(doc.Users))
	for _, u := range doc.Users {
		if u.ID == "" {
			s.log.Warn("dropping user without id", zap.String("email", u.Email))
			continue
		}
		if u.Role != models.RoleAdmin {
			u.Role = models.RoleAmbassador
		}
		if u.Credits < 0 {
			u.Credits = 0
		}
		users = append(users, u)
	}
	doc.Users = users

	contacts := make([]models.Contact, 0, len(doc.Contacts))
	for _, c := range doc.Contacts {
		if c.ID == "" {
			s.log.Warn("dropping contact without id", zap.String("name", c.Name))
			continue
		}
		switch c.Status {
		case models.StatusPending, models.StatusApproved, models.StatusRejected:
		default:
			s.log.Warn("coercing unknown contact status", zap.String("id", c.ID), zap.String("status", c.Status))
			c.Status = models.StatusPending
		}
		contacts = append(contacts, c)
	}
	doc.Contacts = contacts

	if doc.Approvals == nil {
		doc.Approvals = []models.ApprovalRecord{}
	}
	if doc.CreditsHistory == nil {
		doc.CreditsHistory = []models.CreditHistoryEntry{}
	}
	if doc.AITemplates == nil {
		doc.AITemplates = []models.Template{}
	}

	have := make(map[string]bool, len(doc.Settings))
	for _, e := range doc.Settings {
		have[e.Key] = true
	}
	for _, e := range models.DefaultSettings() {
		if !have[e.Key] {
			doc.Settings = append(doc.Settings, e)
		}
	}
}

func (s *JSONStore) write(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrPersistence, err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

func (s *JSONStore) View(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&jsonTx{doc: s.doc, readOnly: true})
}

func (s *JSONStore) Update(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("%w: store closed", ErrPersistence)
	}
	next := s.doc.clone()
	if err := fn(&jsonTx{doc: next}); err != nil {
		return err
	}
	if err := s.write(next); err != nil {
		s.log.Error("store write failed", zap.String("path", s.path), zap.Error(err))
		return err
	}
	s.doc = next
	return nil
}

// Close flushes the document one last time.
func (s *JSONStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.write(s.doc)
}

type jsonTx struct {
	doc      *document
	readOnly bool
}

func (t *jsonTx) writable() error {
	if t.readOnly {
		return errReadOnly
	}
	return nil
}

func (t *jsonTx) Settings() ([]models.Setting, error) {
	return append([]models.Setting{}, t.doc.Settings...), nil
}

func (t *jsonTx) User(id string) (*models.User, error) {
	for i := range t.doc.Users {
		if t.doc.Users[i].ID == id {
			u := t.doc.Users[i]
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
}

func (t *jsonTx) UserByEmail(email string) (*models.User, error) {
	for i := range t.doc.Users {
		if t.doc.Users[i].Email == email {
			u := t.doc.Users[i]
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
}

func (t *jsonTx) Users() ([]models.User, error) {
	return append([]models.User{}, t.doc.Users...), nil
}

func (t *jsonTx) InsertUser(u *models.User) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.doc.Users = append(t.doc.Users, *u)
	return nil
}

func (t *jsonTx) SaveUser(u *models.User) error {
	if err := t.writable(); err != nil {
		return err
	}
	for i := range t.doc.Users {
		if t.doc.Users[i].ID == u.ID {
			t.doc.Users[i] = *u
			return nil
		}
	}
	return fmt.Errorf("user %s: %w", u.ID, ErrNotFound)
}

func (t *jsonTx) Contact(id string) (*models.Contact, error) {
	for i := range t.doc.Contacts {
		if t.doc.Contacts[i].ID == id {
			c := t.doc.Contacts[i]
			return &c, nil
		}
	}
	return nil, fmt.Errorf("contact %s: %w", id, ErrNotFound)
}

func (t *jsonTx) Contacts(f ContactFilter) ([]models.Contact, error) {
	out := []models.Contact{}
	for i := range t.doc.Contacts {
		if f.match(&t.doc.Contacts[i]) {
			out = append(out, t.doc.Contacts[i])
		}
	}
	return out, nil
}

func (t *jsonTx) InsertContact(c *models.Contact) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.doc.Contacts = append(t.doc.Contacts, *c)
	return nil
}

func (t *jsonTx) SaveContact(c *models.Contact) error {
	if err := t.writable(); err != nil {
		return err
	}
	for i := range t.doc.Contacts {
		if t.doc.Contacts[i].ID == c.ID {
			t.doc.Contacts[i] = *c
			return nil
		}
	}
	return fmt.Errorf("contact %s: %w", c.ID, ErrNotFound)
}

func (t *jsonTx) Approvals(contactID string) ([]models.ApprovalRecord, error) {
	out := []models.ApprovalRecord{}
	for _, a := range t.doc.Approvals {
		if contactID == "" || a.ContactID == contactID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (t *jsonTx) InsertApproval(a *models.ApprovalRecord) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.doc.Approvals = append(t.doc.Approvals, *a)
	return nil
}

func (t *jsonTx) CreditHistory(userID string) ([]models.CreditHistoryEntry, error) {
	out := []models.CreditHistoryEntry{}
	for _, e := range t.doc.CreditsHistory {
		if userID == "" || e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (t *jsonTx) InsertCreditEntry(e *models.CreditHistoryEntry) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.doc.CreditsHistory = append(t.doc.CreditsHistory, *e)
	return nil
}

func (t *jsonTx) Templates(kind string) ([]models.Template, error) {
	out := []models.Template{}
	for _, tpl := range t.doc.AITemplates {
		if kind == "" || tpl.Type == kind {
			out = append(out, tpl)
		}
	}
	return out, nil
}

func (t *jsonTx) InsertTemplate(tpl *models.Template) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.doc.AITemplates = append(t.doc.AITemplates, *tpl)
	return nil
}
