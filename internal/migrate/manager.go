package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
	"time"
)

const (
	defaultMigrationsTable = "schema_migrations"
	defaultSeedsTable      = "schema_seeds"
)

// ErrNothingApplied is returned by Down when no migration is recorded.
var ErrNothingApplied = errors.New("migrate: no migrations applied")

// Applied is a file recorded as executed.
type Applied struct {
	Name      string
	AppliedAt time.Time
}

// Manager executes SQL migrations and seed files read from a file system,
// usually the embedded migrations package or a directory via os.DirFS.
// Each file runs in its own transaction together with its bookkeeping row.
type Manager struct {
	db         *sql.DB
	migrations fs.FS
	seeds      fs.FS
	applied    journal
	seeded     journal
}

// Option configures Manager.
type Option func(*Manager)

// WithMigrationsTable overrides the default migrations bookkeeping table.
func WithMigrationsTable(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.applied = journal(name)
		}
	}
}

// WithSeedsTable overrides the default seeds bookkeeping table.
func WithSeedsTable(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.seeded = journal(name)
		}
	}
}

// NewManager constructs a Manager. Either file system may be nil.
func NewManager(db *sql.DB, migrations, seeds fs.FS, opts ...Option) *Manager {
	m := &Manager{
		db:         db,
		migrations: migrations,
		seeds:      seeds,
		applied:    defaultMigrationsTable,
		seeded:     defaultSeedsTable,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Up applies every migration not yet recorded, in file name order.
func (m *Manager) Up(ctx context.Context) error {
	return m.runPending(ctx, m.migrations, ".up.sql", m.applied)
}

// Seed applies every seed file not yet recorded. Seeds run at most once.
func (m *Manager) Seed(ctx context.Context) error {
	return m.runPending(ctx, m.seeds, ".sql", m.seeded)
}

// Down reverts the most recently applied migration.
func (m *Manager) Down(ctx context.Context) error {
	done, err := m.load(ctx, m.applied)
	if err != nil {
		return err
	}
	if len(done) == 0 {
		return ErrNothingApplied
	}
	last := done[len(done)-1].Name
	want := strings.TrimSuffix(last, ".up.sql") + ".down.sql"

	downs, err := collectSQL(m.migrations, ".down.sql")
	if err != nil {
		return err
	}
	i := slices.IndexFunc(downs, func(f sqlFile) bool { return f.Base == want })
	if i < 0 {
		return fmt.Errorf("missing down migration for %s", last)
	}
	err = m.inTx(ctx, func(tx *sql.Tx) error {
		if err := runScript(ctx, tx, m.migrations, downs[i].Path); err != nil {
			return err
		}
		return m.applied.forget(ctx, tx, last)
	})
	if err != nil {
		return fmt.Errorf("revert %s: %w", last, err)
	}
	return nil
}

// Status lists applied migrations, oldest first.
func (m *Manager) Status(ctx context.Context) ([]Applied, error) {
	return m.load(ctx, m.applied)
}

func (m *Manager) runPending(ctx context.Context, fsys fs.FS, suffix string, j journal) error {
	done, err := m.load(ctx, j)
	if err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(done))
	for _, a := range done {
		seen[a.Name] = struct{}{}
	}
	files, err := collectSQL(fsys, suffix)
	if err != nil {
		return err
	}
	for _, f := range files {
		if _, ok := seen[f.Base]; ok {
			continue
		}
		err := m.inTx(ctx, func(tx *sql.Tx) error {
			if err := runScript(ctx, tx, fsys, f.Path); err != nil {
				return err
			}
			return j.record(ctx, tx, f.Base, time.Now().UTC())
		})
		if err != nil {
			return fmt.Errorf("apply %s: %w", f.Base, err)
		}
	}
	return nil
}

// load makes sure both bookkeeping tables exist and reads j.
func (m *Manager) load(ctx context.Context, j journal) ([]Applied, error) {
	for _, t := range []journal{m.applied, m.seeded} {
		if err := t.create(ctx, m.db); err != nil {
			return nil, fmt.Errorf("create %s: %w", t, err)
		}
	}
	return j.entries(ctx, m.db)
}

func (m *Manager) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func runScript(ctx context.Context, tx *sql.Tx, fsys fs.FS, name string) error {
	src, err := fs.ReadFile(fsys, name)
	if err != nil {
		return err
	}
	for _, stmt := range splitStatements(string(src)) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// journal is a bookkeeping table named after itself.
type journal string

func (j journal) create(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf(`
		create table if not exists %s (
			name       text primary key,
			applied_at timestamptz not null default now()
		)`, j))
	return err
}

func (j journal) entries(ctx context.Context, db *sql.DB) ([]Applied, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`select name, applied_at from %s order by applied_at, name`, j))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Applied
	for rows.Next() {
		var a Applied
		if err := rows.Scan(&a.Name, &a.AppliedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (j journal) record(ctx context.Context, tx *sql.Tx, name string, at time.Time) error {
	_, err := tx.ExecContext(ctx, fmt.Sprintf(`insert into %s (name, applied_at) values ($1, $2)`, j), name, at)
	return err
}

func (j journal) forget(ctx context.Context, tx *sql.Tx, name string) error {
	_, err := tx.ExecContext(ctx, fmt.Sprintf(`delete from %s where name = $1`, j), name)
	return err
}

type sqlFile struct {
	Base string
	Path string
}

// collectSQL lists the files of fsys ending in suffix, sorted by base name.
func collectSQL(fsys fs.FS, suffix string) ([]sqlFile, error) {
	if fsys == nil {
		return nil, nil
	}
	var files []sqlFile
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case d.IsDir(), !strings.HasSuffix(d.Name(), suffix):
			return nil
		}
		files = append(files, sqlFile{Base: path.Base(p), Path: p})
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	slices.SortFunc(files, func(a, b sqlFile) int { return strings.Compare(a.Base, b.Base) })
	return files, nil
}

// splitStatements splits SQL on semicolons outside single-quoted strings,
// line comments and dollar-quoted bodies such as function definitions.
func splitStatements(sql string) []string {
	var (
		stmts   []string
		current strings.Builder
		inQuote bool
		dollar  string
	)
	flush := func() {
		if strings.TrimSpace(current.String()) != "" {
			stmts = append(stmts, current.String())
		}
		current.Reset()
	}
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case dollar != "":
			if strings.HasPrefix(sql[i:], dollar) {
				current.WriteString(dollar)
				i += len(dollar) - 1
				dollar = ""
				continue
			}
		case inQuote:
			if c == '\'' {
				inQuote = false
			}
		case c == '\'':
			inQuote = true
		case c == '-' && strings.HasPrefix(sql[i:], "--"):
			end := strings.IndexByte(sql[i:], '\n')
			if end < 0 {
				end = len(sql) - i
			}
			current.WriteString(sql[i : i+end])
			i += end - 1
			continue
		case c == '$':
			if tag, ok := dollarTag(sql[i:]); ok {
				dollar = tag
				current.WriteString(tag)
				i += len(tag) - 1
				continue
			}
		case c == ';':
			current.WriteByte(c)
			flush()
			continue
		}
		current.WriteByte(c)
	}
	flush()
	return stmts
}

// dollarTag returns the opening tag ($$ or $name$) at the start of s.
func dollarTag(s string) (string, bool) {
	for i := 1; i < len(s); i++ {
		c := s[i]
		if c == '$' {
			return s[:i+1], true
		}
		if !(c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || i > 1 && c >= '0' && c <= '9') {
			return "", false
		}
	}
	return "", false
}
