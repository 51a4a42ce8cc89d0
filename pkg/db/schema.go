// Package db provides the SQLite-backed ledger row store and its metadata.
package db

// Schema defines the SQL statements to create database tables.
// Ledger cells are stored as text exactly as they appear on a sheet row so
// that malformed rows survive and can be skipped by readers.
const Schema = `
CREATE TABLE IF NOT EXISTS transactions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    date TEXT NOT NULL DEFAULT '',           -- dd/mm/yyyy
    type TEXT NOT NULL DEFAULT '',           -- add, subtract, transfer
    wallet_type TEXT NOT NULL DEFAULT '',    -- total, wallet, <from>_to_<to>
    amount TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    balance_total TEXT NOT NULL DEFAULT '',
    balance_wallet TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL DEFAULT '',
    merchant TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS lending (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    date TEXT NOT NULL DEFAULT '',           -- dd/mm/yyyy
    person TEXT NOT NULL DEFAULT '',
    amount TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT '',         -- lent, partial, returned
    description TEXT NOT NULL DEFAULT '',
    return_date TEXT NOT NULL DEFAULT '',
    return_to TEXT NOT NULL DEFAULT '',
    remaining TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_lending_person
    ON lending(person COLLATE NOCASE);

-- Key-value metadata (last export, etc.)
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// InitializeSchema creates all tables if they don't exist.
func InitializeSchema(conn *Connection) error {
	if _, err := conn.db.Exec(Schema); err != nil {
		return err
	}
	return nil
}
