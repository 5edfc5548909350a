//go:build cgo

package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	kuzu "github.com/kuzudb/go-kuzu"
)

// KuzuIndex implements Index on KuzuDB. It requires CGO because the go-kuzu
// driver wraps KuzuDB's C library.
type KuzuIndex struct {
	db   *kuzu.Database
	conn *kuzu.Connection
}

// Compile-time check that KuzuIndex satisfies Index.
var _ Index = (*KuzuIndex)(nil)

// NewKuzuIndex opens an in-memory KuzuDB index.
func NewKuzuIndex() (*KuzuIndex, error) {
	return openKuzu(":memory:")
}

// NewKuzuFileIndex opens a persistent index at dbPath. KuzuDB creates the
// leaf directory itself.
func NewKuzuFileIndex(dbPath string) (*KuzuIndex, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("history: create parent directory: %w", err)
	}
	return openKuzu(dbPath)
}

func openKuzu(path string) (*KuzuIndex, error) {
	db, err := kuzu.OpenDatabase(path, kuzu.DefaultSystemConfig())
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("history: open connection: %w", err)
	}
	return &KuzuIndex{db: db, conn: conn}, nil
}

// Close releases the connection and database.
func (k *KuzuIndex) Close() error {
	if k.conn != nil {
		k.conn.Close()
	}
	if k.db != nil {
		k.db.Close()
	}
	return nil
}

// ---------- Schema ----------

// Node tables must precede relationship tables.
var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS Run(
		id STRING,
		ts INT64,
		client STRING,
		files INT64,
		success BOOLEAN,
		PRIMARY KEY(id)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Unit(id STRING, PRIMARY KEY(id))`,
	`CREATE NODE TABLE IF NOT EXISTS Module(id STRING, PRIMARY KEY(id))`,
	`CREATE REL TABLE IF NOT EXISTS EXECUTED(FROM Run TO Unit, pos INT64)`,
	`CREATE REL TABLE IF NOT EXISTS DEPLOYED(FROM Run TO Module, pos INT64)`,
}

func (k *KuzuIndex) InitSchema(_ context.Context) error {
	for _, stmt := range ddlStatements {
		res, err := k.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("history: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// ---------- Writes ----------

func (k *KuzuIndex) Record(_ context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("history: record: run id is required")
	}
	err := k.exec(
		"CREATE (r:Run {id: $id, ts: $ts, client: $client, files: $files, success: $success})",
		map[string]any{
			"id":      run.ID,
			"ts":      run.Timestamp.UnixNano(),
			"client":  run.Client,
			"files":   int64(run.FileCount),
			"success": run.Success,
		},
	)
	if err != nil {
		return fmt.Errorf("history: record %s: %w", run.ID, err)
	}
	for i, u := range run.Units {
		if err := k.link("Unit", "EXECUTED", run.ID, u, i); err != nil {
			return err
		}
	}
	for i, m := range run.Modules {
		if err := k.link("Module", "DEPLOYED", run.ID, m, i); err != nil {
			return err
		}
	}
	return nil
}

// link merges the target node and connects the run to it. Table and
// relationship names are fixed internal constants.
func (k *KuzuIndex) link(table, rel, runID, target string, pos int) error {
	if err := k.exec(fmt.Sprintf("MERGE (n:%s {id: $id})", table), map[string]any{"id": target}); err != nil {
		return fmt.Errorf("history: merge %s %s: %w", table, target, err)
	}
	cypher := fmt.Sprintf(
		`MATCH (r:Run {id: $run}), (n:%s {id: $id})
		 CREATE (r)-[:%s {pos: $pos}]->(n)`, table, rel)
	if err := k.exec(cypher, map[string]any{"run": runID, "id": target, "pos": int64(pos)}); err != nil {
		return fmt.Errorf("history: link %s -> %s: %w", runID, target, err)
	}
	return nil
}

// ---------- Reads ----------

const runColumns = "r.id, r.ts, r.client, r.files, r.success"

func (k *KuzuIndex) Recent(_ context.Context, limit int) ([]Run, error) {
	return k.runs(
		"MATCH (r:Run) RETURN "+runColumns+" ORDER BY r.ts DESC, r.id LIMIT $lim",
		map[string]any{"lim": int64(limitOr(limit))},
	)
}

func (k *KuzuIndex) ForUnit(_ context.Context, unitID string, limit int) ([]Run, error) {
	return k.runs(
		"MATCH (r:Run)-[:EXECUTED]->(u:Unit {id: $id}) RETURN "+runColumns+" ORDER BY r.ts DESC, r.id LIMIT $lim",
		map[string]any{"id": unitID, "lim": int64(limitOr(limit))},
	)
}

func (k *KuzuIndex) ForModule(_ context.Context, moduleID string, limit int) ([]Run, error) {
	return k.runs(
		"MATCH (r:Run)-[:DEPLOYED]->(m:Module {id: $id}) RETURN "+runColumns+" ORDER BY r.ts DESC, r.id LIMIT $lim",
		map[string]any{"id": moduleID, "lim": int64(limitOr(limit))},
	)
}

func (k *KuzuIndex) Stats(_ context.Context) (*Stats, error) {
	var st Stats
	counts := []struct {
		cypher string
		dst    *int
	}{
		{"MATCH (r:Run) RETURN count(r)", &st.Runs},
		{"MATCH (r:Run) WHERE r.success = false RETURN count(r)", &st.Failures},
		{"MATCH (u:Unit) RETURN count(u)", &st.Units},
		{"MATCH (m:Module) RETURN count(m)", &st.Modules},
	}
	for _, c := range counts {
		rows, err := k.query(c.cypher, nil)
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 && len(rows[0]) > 0 {
			*c.dst = toInt(rows[0][0])
		}
	}
	return &st, nil
}

// runs executes a query returning runColumns and fills in each run's units
// and modules in recorded order.
func (k *KuzuIndex) runs(cypher string, params map[string]any) ([]Run, error) {
	rows, err := k.query(cypher, params)
	if err != nil {
		return nil, err
	}
	out := make([]Run, 0, len(rows))
	for _, r := range rows {
		run := Run{
			ID:        toString(r[0]),
			Timestamp: time.Unix(0, toInt64(r[1])).UTC(),
			Client:    toString(r[2]),
			FileCount: toInt(r[3]),
			Success:   toBool(r[4]),
		}
		if run.Units, err = k.targets("EXECUTED", "Unit", run.ID); err != nil {
			return nil, err
		}
		if run.Modules, err = k.targets("DEPLOYED", "Module", run.ID); err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, nil
}

func (k *KuzuIndex) targets(rel, table, runID string) ([]string, error) {
	rows, err := k.query(
		fmt.Sprintf("MATCH (r:Run {id: $id})-[e:%s]->(n:%s) RETURN n.id ORDER BY e.pos", rel, table),
		map[string]any{"id": runID},
	)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, toString(r[0]))
	}
	return ids, nil
}

// ---------- Internal helpers ----------

// exec runs a parameterized Cypher statement that produces no result rows.
func (k *KuzuIndex) exec(cypher string, params map[string]any) error {
	stmt, err := k.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := k.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a Cypher statement and collects every row in column order.
func (k *KuzuIndex) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = k.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = k.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = k.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

// KuzuDB returns typed Go values; these coerce any to concrete types.

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case uint64:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func toInt(v any) int {
	return int(toInt64(v))
}

func toBool(v any) bool {
	b, _ := v.(bool)
	return b
}

// Persistent reports whether Open returns a durable index.
const Persistent = true

// Open returns a persistent index under dir with its schema initialized.
func Open(ctx context.Context, dir string) (Index, error) {
	idx, err := NewKuzuFileIndex(filepath.Join(dir, "runs.kuzu"))
	if err != nil {
		return nil, err
	}
	if err := idx.InitSchema(ctx); err != nil {
		idx.Close()
		return nil, err
	}
	return idx, nil
}
