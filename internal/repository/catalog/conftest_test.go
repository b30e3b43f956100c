package catalog

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/kailas-cloud/shelfrank/internal/db/sqlite"
)

const testSchema = `
CREATE TABLE categorias (
	id_categoria INTEGER PRIMARY KEY,
	nombre TEXT NOT NULL
);
CREATE TABLE productos (
	id_producto INTEGER PRIMARY KEY,
	nombre TEXT NOT NULL,
	precio NUMERIC NOT NULL,
	cantidad INTEGER NOT NULL,
	id_categoria INTEGER REFERENCES categorias(id_categoria),
	imagen TEXT
);
INSERT INTO categorias VALUES (1, 'Bebidas'), (2, 'Snacks');
INSERT INTO productos VALUES
	(5, 'Agua mineral', 1.50, 40, 1, 'agua.png'),
	(7, 'Refresco cola', 2.25, 0, 1, NULL),
	(9, 'Papas fritas', 3.10, 12, 2, ''),
	(11, 'Galletas', 1.99, -3, NULL, NULL);
`

// newTestStore creates a seeded catalog database in a temp dir.
func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "catalog.db")

	seed, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open seed db: %v", err)
	}
	if _, err := seed.Exec(testSchema); err != nil {
		t.Fatalf("seed schema: %v", err)
	}
	if err := seed.Close(); err != nil {
		t.Fatalf("close seed db: %v", err)
	}

	s, err := sqlite.NewStore(sqlite.Config{DSN: dsn, MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	return s
}
