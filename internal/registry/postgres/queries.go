package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/qiita-spots/qp-shogun/internal/model"
)

// runColumns is the column list used for SELECT statements on the
// provisioning_runs table.
const runColumns = `id, host, env_prefix, status, report, started_at, finished_at`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryUpsertPlugin(ctx context.Context, db executor, p model.Plugin) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO plugins (name, version, description, registered_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE
		SET version = EXCLUDED.version,
		    description = EXCLUDED.description,
		    registered_at = EXCLUDED.registered_at`,
		p.Name, p.Version, p.Description, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert plugin %s: %w", p.Name, err)
	}
	return nil
}

func queryReplaceCommands(ctx context.Context, db executor, pluginName string, commands []model.Command) error {
	if _, err := db.ExecContext(ctx,
		`DELETE FROM commands WHERE plugin_name = $1`, pluginName); err != nil {
		return fmt.Errorf("clear commands for %s: %w", pluginName, err)
	}

	for _, c := range commands {
		params, err := json.Marshal(c.Parameters)
		if err != nil {
			return fmt.Errorf("marshal parameters for %s: %w", c.Name, err)
		}
		sets, err := json.Marshal(c.DefaultSets)
		if err != nil {
			return fmt.Errorf("marshal default sets for %s: %w", c.Name, err)
		}
		if _, err := db.ExecContext(ctx, `
			INSERT INTO commands (plugin_name, name, description, parameters, default_sets)
			VALUES ($1, $2, $3, $4, $5)`,
			pluginName, c.Name, c.Description, params, sets,
		); err != nil {
			return fmt.Errorf("insert command %s: %w", c.Name, err)
		}
	}
	return nil
}

func queryGetPlugin(ctx context.Context, db executor, name string) (*model.Plugin, error) {
	var p model.Plugin
	err := db.QueryRowContext(ctx,
		`SELECT name, version, description FROM plugins WHERE name = $1`, name).
		Scan(&p.Name, &p.Version, &p.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("plugin %s is not registered", name)
	}
	if err != nil {
		return nil, fmt.Errorf("get plugin %s: %w", name, err)
	}

	p.Commands, err = queryListCommands(ctx, db, name)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func queryListCommands(ctx context.Context, db executor, pluginName string) ([]model.Command, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT name, description, parameters, default_sets
		FROM commands WHERE plugin_name = $1 ORDER BY name`, pluginName)
	if err != nil {
		return nil, fmt.Errorf("list commands for %s: %w", pluginName, err)
	}
	defer rows.Close()

	var commands []model.Command
	for rows.Next() {
		var (
			c            model.Command
			params, sets []byte
		)
		if err := rows.Scan(&c.Name, &c.Description, &params, &sets); err != nil {
			return nil, fmt.Errorf("scan command: %w", err)
		}
		if len(params) > 0 {
			if err := json.Unmarshal(params, &c.Parameters); err != nil {
				return nil, fmt.Errorf("unmarshal parameters for %s: %w", c.Name, err)
			}
		}
		if len(sets) > 0 {
			if err := json.Unmarshal(sets, &c.DefaultSets); err != nil {
				return nil, fmt.Errorf("unmarshal default sets for %s: %w", c.Name, err)
			}
		}
		commands = append(commands, c)
	}
	return commands, rows.Err()
}

func queryInsertRun(ctx context.Context, db executor, r *model.Run) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO provisioning_runs (id, host, env_prefix, status, report, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.Host, r.EnvPrefix, string(r.Status), jsonbBytes(r.Report),
		r.StartedAt, nullTimePtr(r.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.ID, err)
	}
	return nil
}

func queryFinishRun(ctx context.Context, db executor, id string, status model.RunStatus, report json.RawMessage) error {
	res, err := db.ExecContext(ctx, `
		UPDATE provisioning_runs
		SET status = $2, report = $3, finished_at = $4
		WHERE id = $1`,
		id, string(status), jsonbBytes(report), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

func queryRecentRuns(ctx context.Context, db executor, limit int) ([]*model.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM provisioning_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.Run
	for rows.Next() {
		var (
			r        model.Run
			status   string
			report   []byte
			finished sql.NullTime
		)
		if err := rows.Scan(&r.ID, &r.Host, &r.EnvPrefix, &status, &report, &r.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Status = model.RunStatus(status)
		if len(report) > 0 {
			r.Report = json.RawMessage(report)
		}
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

// nullTimePtr converts a *time.Time to sql.NullTime.
func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// jsonbBytes converts a json.RawMessage to []byte for a JSONB column,
// mapping empty to NULL.
func jsonbBytes(m json.RawMessage) []byte {
	if len(m) == 0 {
		return nil
	}
	return []byte(m)
}
