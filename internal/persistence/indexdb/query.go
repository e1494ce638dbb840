package indexdb

import (
	"context"
	"database/sql"
)

// NetworkRow is one network lifetime as recorded from created and destroyed
// events.
type NetworkRow struct {
	ID          uint64
	Type        string
	CreatedTick uint64
	Destroyed   bool
	DestroyTick uint64
	Members     int
	Cells       int
}

// EventCounts returns how many events of each type are indexed.
func (s *SQLiteIndex) EventCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT type, COUNT(*) FROM events GROUP BY type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, err
		}
		out[typ] = n
	}
	return out, rows.Err()
}

// Networks lists indexed networks of netType in id order. An empty netType
// lists all of them.
func (s *SQLiteIndex) Networks(ctx context.Context, netType string) ([]NetworkRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, created_tick, destroyed_tick, members, cells FROM networks WHERE (?='' OR type=?) ORDER BY id`,
		netType, netType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []NetworkRow
	for rows.Next() {
		var r NetworkRow
		var destroyed sql.NullInt64
		if err := rows.Scan(&r.ID, &r.Type, &r.CreatedTick, &destroyed, &r.Members, &r.Cells); err != nil {
			return nil, err
		}
		if destroyed.Valid {
			r.Destroyed = true
			r.DestroyTick = uint64(destroyed.Int64)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Meta reads one meta key; missing keys read as "".
func (s *SQLiteIndex) Meta(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key=?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return v, err
}
