package lifecycle

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"
)

// Schema declares how one entity maps onto its table. Every entity declares
// exactly one Schema and the generic store and service derive all queries
// from it.
type Schema[E any] struct {
	// Entity is the singular human label ("Pincode", "Courier company").
	Entity string
	// Plural overrides the default Entity+"s" label.
	Plural string
	Table  string
	// Columns are the domain columns, named as in the entity's db tags.
	Columns []string
	// Mutable lists the columns Update may write. "status" is allowed.
	Mutable []string
	// Unique lists the columns that must be unique among non-deleted rows.
	Unique []string
	// KeyField is the column used by bulk import; empty disables import.
	KeyField string
	// Labels overrides field labels used in messages.
	Labels map[string]string

	// Values returns the domain column values of e keyed by column.
	Values func(e E) map[string]any
	// Meta exposes the embedded lifecycle record.
	Meta func(e *E) *Record
	// Prepare normalises a payload before it is validated and written.
	Prepare func(e *E) error
	// CheckUpdate rejects update payloads carrying fields Update cannot
	// write. Its error message is shown to the caller.
	CheckUpdate func(e E) error
}

// Check verifies the declaration is internally consistent.
func (s Schema[E]) Check() error {
	if strings.TrimSpace(s.Table) == "" {
		return errors.New("lifecycle: schema table required")
	}
	if strings.TrimSpace(s.Entity) == "" {
		return fmt.Errorf("lifecycle: schema %s: entity label required", s.Table)
	}
	if len(s.Columns) == 0 {
		return fmt.Errorf("lifecycle: schema %s: columns required", s.Table)
	}
	if s.Values == nil || s.Meta == nil {
		return fmt.Errorf("lifecycle: schema %s: Values and Meta required", s.Table)
	}
	writable := append([]string{"status"}, s.Columns...)
	if missing := lo.Without(s.Mutable, writable...); len(missing) > 0 {
		return fmt.Errorf("lifecycle: schema %s: unknown mutable columns %v", s.Table, missing)
	}
	if missing := lo.Without(s.Unique, s.Columns...); len(missing) > 0 {
		return fmt.Errorf("lifecycle: schema %s: unknown unique columns %v", s.Table, missing)
	}
	if s.KeyField != "" && !lo.Contains(s.Columns, s.KeyField) {
		return fmt.Errorf("lifecycle: schema %s: unknown key field %s", s.Table, s.KeyField)
	}
	return nil
}

// MustCheck panics when the declaration is inconsistent. Meant for package
// level schema variables.
func (s Schema[E]) MustCheck() Schema[E] {
	if err := s.Check(); err != nil {
		panic(err)
	}
	return s
}

func (s Schema[E]) isUnique(field string) bool {
	return lo.Contains(s.Unique, field)
}

func (s Schema[E]) label(field string) string {
	if l, ok := s.Labels[field]; ok {
		return l
	}
	words := strings.ReplaceAll(field, "_", " ")
	if words == "" {
		return words
	}
	return strings.ToUpper(words[:1]) + words[1:]
}

// singular lowercases the first letter of Entity only, keeping acronyms.
func (s Schema[E]) singular() string {
	if s.Entity == "" {
		return ""
	}
	return strings.ToLower(s.Entity[:1]) + s.Entity[1:]
}

func (s Schema[E]) plural() string {
	if s.Plural != "" {
		return s.Plural
	}
	return strings.ToLower(s.Entity) + "s"
}

// keyOf returns the trimmed bulk-import key of e.
func (s Schema[E]) keyOf(e E) string {
	return valueString(s.Values(e)[s.KeyField])
}

func (s Schema[E]) valueOf(e E, field string) string {
	return valueString(s.Values(e)[field])
}

func valueString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case *string:
		if t == nil {
			return ""
		}
		return strings.TrimSpace(*t)
	case fmt.Stringer:
		if rv := reflect.ValueOf(t); rv.Kind() == reflect.Pointer && rv.IsNil() {
			return ""
		}
		return strings.TrimSpace(t.String())
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func (s Schema[E]) table() string {
	return ident(s.Table)
}

// selectList renders the lifecycle and domain columns in a stable order.
func (s Schema[E]) selectList() string {
	cols := make([]string, 0, len(recordColumns)+len(s.Columns))
	for _, c := range recordColumns {
		cols = append(cols, ident(c))
	}
	for _, c := range s.Columns {
		cols = append(cols, ident(c))
	}
	return strings.Join(cols, ", ")
}
