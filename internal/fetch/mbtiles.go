package fetch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"go.uber.org/multierr"

	"github.com/Faultbox/geotiles/pkg/tileid"
)

// MBTilesFetcher serves tiles from an MBTiles archive. Rows in the archive
// use TMS numbering; requests use XYZ.
type MBTilesFetcher struct {
	db   *sql.DB
	stmt *sql.Stmt
}

// uriEscaper encodes the characters a sqlite file URI reserves in its path.
var uriEscaper = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

// fileDSN builds a sqlite URI filename for path with the given query.
func fileDSN(path, query string) string {
	return "file:" + uriEscaper.Replace(filepath.ToSlash(path)) + "?" + query
}

// OpenMBTiles opens an archive read-only.
// The returned fetcher must be closed after use.
func OpenMBTiles(path string) (*MBTilesFetcher, error) {
	db, err := sql.Open("sqlite3", fileDSN(path, "mode=ro"))
	if err != nil {
		return nil, fmt.Errorf("opening mbtiles %s: %w", path, err)
	}

	stmt, err := db.Prepare("SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?")
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("preparing tile query: %w", err), db.Close())
	}

	return &MBTilesFetcher{db: db, stmt: stmt}, nil
}

// Close releases the statement and the database.
func (m *MBTilesFetcher) Close() error {
	return multierr.Combine(m.stmt.Close(), m.db.Close())
}

// Fetch returns the tile blob for req.Tile.
func (m *MBTilesFetcher) Fetch(ctx context.Context, req Request) ([]byte, error) {
	t := tileid.FlipY(req.Tile)

	var data []byte
	err := m.stmt.QueryRowContext(ctx, uint32(t.Z), t.X, t.Y).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, tileid.String(req.Tile))
	}
	if err != nil {
		return nil, fmt.Errorf("reading tile %s: %w", tileid.String(req.Tile), err)
	}
	return data, nil
}

// Metadata returns the archive's name/value metadata table.
func (m *MBTilesFetcher) Metadata(ctx context.Context) (map[string]string, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT name, value FROM metadata")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		meta[name] = value
	}
	return meta, rows.Err()
}
