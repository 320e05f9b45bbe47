package gazetteer

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// binaryVersion is bumped whenever binaryFile changes shape.
const binaryVersion = 1

// binaryFile is the msgpack layout of a .bin cache.
type binaryFile struct {
	Version   int        `msgpack:"v"`
	Count     int        `msgpack:"n"`
	Districts []District `msgpack:"d"`
}

const (
	sqliteTable  = "districts"
	sqliteSelect = `SELECT id, name, full_name, level,
		COALESCE(sido, '') AS sido,
		COALESCE(sigungu, '') AS sigungu,
		COALESCE(eupmyeondong, '') AS eupmyeondong
		FROM districts ORDER BY rowid`
	sqliteSchema = `CREATE TABLE IF NOT EXISTS districts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		full_name TEXT NOT NULL,
		level TEXT NOT NULL,
		sido TEXT,
		sigungu TEXT,
		eupmyeondong TEXT
	)`
	sqliteInsert = `INSERT INTO districts (id, name, full_name, level, sido, sigungu, eupmyeondong)
		VALUES (:id, :name, :full_name, :level, :sido, :sigungu, :eupmyeondong)`
)

// Load reads a dataset file once and builds an immutable Gazetteer from it.
func Load(path string) (*Gazetteer, error) {
	start := time.Now()

	format, err := DetectFileFormat(path)
	if err != nil {
		return nil, err
	}

	districts, err := ReadDistricts(path, format)
	if err != nil {
		return nil, err
	}

	g, err := New(districts)
	if err != nil {
		return nil, fmt.Errorf("invalid dataset %s: %w", path, err)
	}

	log.Debugf("Loaded %d districts from %s (%s) in %v", g.Len(), path, format, time.Since(start))
	return g, nil
}

// ReadDistricts decodes the raw rows of a dataset without validating them.
func ReadDistricts(path string, format FileFormat) ([]District, error) {
	switch format {
	case FormatJSON:
		return readJSON(path)
	case FormatYAML:
		return readYAML(path)
	case FormatBinary:
		return readBinary(path)
	case FormatSQLite:
		return readSQLite(path)
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownFormat, format)
}

func readJSON(path string) ([]District, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset %s: %w", path, err)
	}
	defer file.Close()

	var districts []District
	if err := json.NewDecoder(bufio.NewReader(file)).Decode(&districts); err != nil {
		return nil, fmt.Errorf("failed to decode JSON dataset %s: %w", path, err)
	}
	return districts, nil
}

func readYAML(path string) ([]District, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset %s: %w", path, err)
	}
	defer file.Close()

	var districts []District
	if err := yaml.NewDecoder(bufio.NewReader(file)).Decode(&districts); err != nil {
		return nil, fmt.Errorf("failed to decode YAML dataset %s: %w", path, err)
	}
	return districts, nil
}

func readBinary(path string) ([]District, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset %s: %w", path, err)
	}
	defer file.Close()

	var bin binaryFile
	if err := msgpack.NewDecoder(bufio.NewReader(file)).Decode(&bin); err != nil {
		return nil, fmt.Errorf("failed to decode binary dataset %s: %w", path, err)
	}
	if bin.Version != binaryVersion {
		return nil, fmt.Errorf("binary dataset %s has version %d, expected %d", path, bin.Version, binaryVersion)
	}
	if bin.Count != len(bin.Districts) {
		return nil, fmt.Errorf("binary dataset %s is truncated: header says %d districts, found %d",
			path, bin.Count, len(bin.Districts))
	}
	return bin.Districts, nil
}

func readSQLite(path string) ([]District, error) {
	db, err := sqlx.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite dataset %s: %w", path, err)
	}
	defer db.Close()

	var districts []District
	if err := db.Select(&districts, sqliteSelect); err != nil {
		return nil, fmt.Errorf("failed to query %s table in %s: %w", sqliteTable, path, err)
	}
	return districts, nil
}

// Export writes the gazetteer to path, picking the format from its extension.
// The usual target is a .bin cache that loads faster than the JSON source.
func (g *Gazetteer) Export(path string) error {
	format, err := FormatForPath(path)
	if err != nil {
		return err
	}
	if format == FormatSQLite {
		return g.exportSQLite(path)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(g.districts)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		err = enc.Encode(g.districts)
		if err == nil {
			err = enc.Close()
		}
	case FormatBinary:
		err = msgpack.NewEncoder(w).Encode(binaryFile{
			Version:   binaryVersion,
			Count:     len(g.districts),
			Districts: g.districts,
		})
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	log.Debugf("Exported %d districts to %s (%s)", len(g.districts), path, format)
	return nil
}

func (g *Gazetteer) exportSQLite(path string) error {
	// ids are primary keys, so never append to an older export
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer db.Close()

	if _, err := db.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("failed to create %s table: %w", sqliteTable, err)
	}

	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin export: %w", err)
	}
	for i := range g.districts {
		if _, err := tx.NamedExec(sqliteInsert, &g.districts[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert %q: %w", g.districts[i].ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit export: %w", err)
	}

	log.Debugf("Exported %d districts to %s (%s)", len(g.districts), path, FormatSQLite)
	return nil
}
