package db

import (
	"database/sql"
	"fmt"
	"time"
)

// FileStatus is the outcome of ingesting one file.
type FileStatus string

const (
	StatusIngested FileStatus = "ingested"
	StatusSkipped  FileStatus = "skipped"
	StatusFailed   FileStatus = "failed"
	StatusPruned   FileStatus = "pruned"
)

// FileOutcome is the per-file row of an ingest run. Failures carry the
// reason instead of being swallowed, so a batch report can list exactly
// what went wrong.
type FileOutcome struct {
	Path        string
	Kind        string
	ContentHash string
	Status      FileStatus
	Points      int
	Error       string
}

// RunSummary aggregates one ingest run.
type RunSummary struct {
	ID             int64
	CorpusRoot     string
	StartedAt      time.Time
	FinishedAt     *time.Time
	FilesTotal     int
	FilesIngested  int
	FilesFailed    int
	PointsUpserted int
}

// BeginRun records the start of an ingest run and returns its ID.
func (d *DB) BeginRun(corpusRoot string, filesTotal int) (int64, error) {
	res, err := d.Exec(
		`INSERT INTO ingest_runs (corpus_root, files_total) VALUES (?, ?)`,
		corpusRoot, filesTotal,
	)
	if err != nil {
		return 0, fmt.Errorf("recording ingest run: %w", err)
	}
	return res.LastInsertId()
}

// RecordFile stores the outcome of one file within a run.
func (d *DB) RecordFile(runID int64, o FileOutcome) error {
	_, err := d.Exec(
		`INSERT INTO ingest_files (run_id, path, kind, content_hash, status, points, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, o.Path, o.Kind, o.ContentHash, string(o.Status), o.Points, o.Error,
	)
	if err != nil {
		return fmt.Errorf("recording file outcome for %s: %w", o.Path, err)
	}
	return nil
}

// IngestedPaths returns the paths whose most recent outcome is an
// ingest, mapped to the kind they were ingested as. These are the files
// that still have points in the vector store; a path whose latest row
// is pruned has already been dropped.
func (d *DB) IngestedPaths() (map[string]string, error) {
	rows, err := d.Query(
		`SELECT path, kind FROM ingest_files AS f
		 WHERE status = 'ingested'
		   AND id = (SELECT MAX(id) FROM ingest_files WHERE path = f.path)`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying ingested paths: %w", err)
	}
	defer rows.Close()

	paths := make(map[string]string)
	for rows.Next() {
		var path, kind string
		if err := rows.Scan(&path, &kind); err != nil {
			return nil, fmt.Errorf("scanning ingested path: %w", err)
		}
		paths[path] = kind
	}
	return paths, rows.Err()
}

// FinishRun closes an ingest run with its final counters.
func (d *DB) FinishRun(runID int64, ingested, failed, points int) error {
	_, err := d.Exec(
		`UPDATE ingest_runs
		 SET finished_at = datetime('now'), files_ingested = ?, files_failed = ?, points_upserted = ?
		 WHERE id = ?`,
		ingested, failed, points, runID,
	)
	if err != nil {
		return fmt.Errorf("finishing ingest run %d: %w", runID, err)
	}
	return nil
}

// RunFailures returns the failed file outcomes of a run, oldest first.
func (d *DB) RunFailures(runID int64) ([]FileOutcome, error) {
	rows, err := d.Query(
		`SELECT path, kind, content_hash, status, points, error
		 FROM ingest_files WHERE run_id = ? AND status = 'failed' ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying run failures: %w", err)
	}
	defer rows.Close()

	var outcomes []FileOutcome
	for rows.Next() {
		var o FileOutcome
		var status string
		if err := rows.Scan(&o.Path, &o.Kind, &o.ContentHash, &status, &o.Points, &o.Error); err != nil {
			return nil, fmt.Errorf("scanning file outcome: %w", err)
		}
		o.Status = FileStatus(status)
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// LastRun returns the most recent ingest run, or nil if none exist.
func (d *DB) LastRun() (*RunSummary, error) {
	row := d.QueryRow(
		`SELECT id, corpus_root, started_at, finished_at, files_total, files_ingested, files_failed, points_upserted
		 FROM ingest_runs ORDER BY id DESC LIMIT 1`,
	)

	var r RunSummary
	var finished sql.NullTime
	err := row.Scan(&r.ID, &r.CorpusRoot, &r.StartedAt, &finished,
		&r.FilesTotal, &r.FilesIngested, &r.FilesFailed, &r.PointsUpserted)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying last run: %w", err)
	}
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return &r, nil
}

// AnalysisRecord is one stored report.
type AnalysisRecord struct {
	ID        int64
	Source    string
	Category  string
	Family    string
	Model     string
	Matches   int
	Duration  time.Duration
	Report    string
	CreatedAt time.Time
}

// RecordAnalysis stores a finished report and returns its ID.
func (d *DB) RecordAnalysis(a AnalysisRecord) (int64, error) {
	res, err := d.Exec(
		`INSERT INTO analyses (source, category, family, model, matches, duration_ms, report)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.Source, a.Category, a.Family, a.Model, a.Matches, a.Duration.Milliseconds(), a.Report,
	)
	if err != nil {
		return 0, fmt.Errorf("recording analysis: %w", err)
	}
	return res.LastInsertId()
}

// RecentAnalyses returns up to limit reports, newest first. The report
// body is included; callers listing history can ignore it.
func (d *DB) RecentAnalyses(limit int) ([]AnalysisRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.Query(
		`SELECT id, source, category, family, model, matches, duration_ms, report, created_at
		 FROM analyses ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying analyses: %w", err)
	}
	defer rows.Close()

	var records []AnalysisRecord
	for rows.Next() {
		var a AnalysisRecord
		var durationMS int64
		if err := rows.Scan(&a.ID, &a.Source, &a.Category, &a.Family, &a.Model,
			&a.Matches, &durationMS, &a.Report, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning analysis: %w", err)
		}
		a.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, a)
	}
	return records, rows.Err()
}
