// Package templates stores reusable outreach messages and fills in their
// [PLACEHOLDER] variables.
package templates

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/shivaganesht/KPRIT-Placements-Automation-Tool/internal/contacts"
	"github.com/shivaganesht/KPRIT-Placements-Automation-Tool/internal/models"
	"github.com/shivaganesht/KPRIT-Placements-Automation-Tool/internal/store"
)

const (
	TypeEmail      = "email"
	TypeCallScript = "call_script"
	TypeLinkedIn   = "linkedin"
)

type Input struct {
	Type      string   `json:"type" validate:"required,oneof=email call_script linkedin"`
	Title     string   `json:"title" validate:"required"`
	Content   string   `json:"content" validate:"required"`
	Variables []string `json:"variables"`
}

type Library struct {
	store    store.Store
	validate *validator.Validate
}

func NewLibrary(s store.Store) *Library {
	return &Library{store: s, validate: validator.New()}
}

// Save stores a template. When no variables are given they are collected
// from the placeholders in the content.
func (l *Library) Save(ctx context.Context, in Input) (*models.Template, error) {
	if err := l.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", contacts.ErrValidation, err)
	}
	vars := in.Variables
	if len(vars) == 0 {
		vars = Placeholders(in.Content)
	}
	tpl := models.Template{
		ID:        store.NewID(),
		Type:      in.Type,
		Title:     in.Title,
		Content:   in.Content,
		Variables: vars,
		CreatedAt: store.Now(),
	}
	if err := l.store.Update(ctx, func(tx store.Tx) error {
		return tx.InsertTemplate(&tpl)
	}); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// List returns templates of the given type, or all of them when kind is empty.
func (l *Library) List(ctx context.Context, kind string) ([]models.Template, error) {
	var out []models.Template
	err := l.store.View(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.Templates(kind)
		return err
	})
	return out, err
}

var placeholderRe = regexp.MustCompile(`\[([A-Z][A-Z0-9_]*)\]`)

// Placeholders lists the distinct [KEY] names in content, in order of first use.
func Placeholders(content string) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range placeholderRe.FindAllStringSubmatch(content, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// Personalize replaces every [KEY] in content with vars[KEY]. Placeholders
// without a value are left as they are. When two keys overlap the longer
// one wins.
func Personalize(content string, vars map[string]string) string {
	if len(vars) == 0 {
		return content
	}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, "["+k+"]", vars[k])
	}
	return strings.NewReplacer(pairs...).Replace(content)
}
