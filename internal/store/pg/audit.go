package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"shopadmin.app/internal/audit"
	"shopadmin.app/internal/auth"
)

var _ audit.Store = (*Store)(nil)

const entrySelect = `
	select l.id, l.actor_id, coalesce(a.username, ''), l.role, l.action, l.target_id,
	       l.metadata, l.ip_address, l.created_at, l.archived, l.immutable`

func scanEntry(row rowScanner) (audit.Entry, error) {
	var (
		e       audit.Entry
		role    string
		action  string
		rawMeta []byte
	)
	if err := row.Scan(&e.ID, &e.ActorID, &e.ActorName, &role, &action, &e.TargetID,
		&rawMeta, &e.IPAddress, &e.Timestamp, &e.Archived, &e.Immutable); err != nil {
		return audit.Entry{}, err
	}
	e.Role = auth.Role(role)
	e.Action = audit.Action(action)
	if len(rawMeta) > 0 && string(rawMeta) != "{}" {
		if err := json.Unmarshal(rawMeta, &e.Metadata); err != nil {
			return audit.Entry{}, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return e, nil
}

func (s *Store) AppendEntry(ctx context.Context, e audit.Entry) error {
	if s.db == nil {
		return errNoDB
	}
	metaJSON := []byte("{}")
	if len(e.Metadata) > 0 {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		metaJSON = b
	}
	_, err := s.db.ExecContext(ctx, `
		insert into activity_logs (id, actor_id, role, action, target_id, metadata, ip_address, created_at, archived, immutable)
		values ($1, $2, $3, $4, $5, $6, $7, $8, false, $9)
	`, e.ID, e.ActorID, string(e.Role), string(e.Action), e.TargetID, metaJSON, e.IPAddress, e.Timestamp, e.Immutable)
	if err != nil {
		return fmt.Errorf("insert activity log: %w", err)
	}
	return nil
}

func (s *Store) ListEntries(ctx context.Context, f audit.Filter, offset, limit int) ([]audit.Entry, int, error) {
	if s.db == nil {
		return nil, 0, errNoDB
	}
	if offset < 0 || limit < 0 {
		return nil, 0, fmt.Errorf("%w: offset and limit must not be negative", audit.ErrInvalidInput)
	}
	action := string(f.Action)

	var total int
	if err := s.db.QueryRowContext(ctx, `
		select count(*) from activity_logs where ($1 = '' or action = $1)
	`, action).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count activity logs: %w", err)
	}
	if total == 0 || offset >= total {
		return []audit.Entry{}, total, nil
	}

	rows, err := s.db.QueryContext(ctx, entrySelect+`
		from activity_logs l
		left join admins a on a.id = l.actor_id
		where ($1 = '' or l.action = $1)
		order by l.created_at desc, l.id desc
		limit $2 offset $3
	`, action, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list activity logs: %w", err)
	}
	defer rows.Close()

	entries := make([]audit.Entry, 0, limit)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

func (s *Store) GetEntry(ctx context.Context, id string) (audit.Entry, error) {
	if s.db == nil {
		return audit.Entry{}, errNoDB
	}
	e, err := scanEntry(s.db.QueryRowContext(ctx, entrySelect+`
		from activity_logs l
		left join admins a on a.id = l.actor_id
		where l.id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return audit.Entry{}, audit.ErrNotFound
	}
	return e, err
}

// ArchiveEntry flips archived on an immutable entry in one conditional
// statement. The table trigger rejects every other kind of update.
func (s *Store) ArchiveEntry(ctx context.Context, id string) (audit.Entry, error) {
	if s.db == nil {
		return audit.Entry{}, errNoDB
	}
	e, err := scanEntry(s.db.QueryRowContext(ctx, `
		with archived as (
			update activity_logs set archived = true
			where id = $1 and immutable and not archived
			returning *
		)`+entrySelect+`
		from archived l
		left join admins a on a.id = l.actor_id
	`, id))
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return audit.Entry{}, fmt.Errorf("archive activity log: %w", err)
	}
	var exists bool
	if err := s.db.QueryRowContext(ctx, `select exists(select 1 from activity_logs where id = $1)`, id).Scan(&exists); err != nil {
		return audit.Entry{}, err
	}
	if !exists {
		return audit.Entry{}, audit.ErrNotFound
	}
	return audit.Entry{}, audit.ErrNotModifiable
}
