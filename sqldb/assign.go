package sqldb

import (
	"database/sql"
)

// AssignDB implements auth.AssignDB.
type AssignDB struct {
	*DB
	assign   *sql.Stmt
	get      *sql.Stmt
	getAll   *sql.Stmt
	unassign *sql.Stmt
}

func NewAssignDB(db *DB) *AssignDB {

	mustCreate(db,
		`CREATE TABLE IF NOT EXISTS chain_assignment (
			path varchar(512) NOT NULL,
			children_only bool NOT NULL, -- whether this affects only the paths below
			chain int(11) NOT NULL,
			PRIMARY KEY (path, children_only)
		)`)

	var assignDB = &AssignDB{}
	assignDB.DB = db
	assignDB.assign = mustPrepare(db, "INSERT INTO chain_assignment (path, children_only, chain) VALUES (?, ?, ?)")
	assignDB.get = mustPrepare(db, "SELECT chain FROM chain_assignment WHERE path = ? AND children_only = ? LIMIT 1")
	assignDB.getAll = mustPrepare(db, "SELECT path, children_only, chain FROM chain_assignment")
	assignDB.unassign = mustPrepare(db, "DELETE FROM chain_assignment WHERE path = ? AND children_only = ?") // "LIMIT 1" is not working in SQLite
	return assignDB
}

// AssignChainID replaces an existing assignment.
func (db *AssignDB) AssignChainID(path string, childrenOnly bool, chainID int) error {

	tx, err := db.Begin()
	if err != nil {
		return err
	}

	if _, err := tx.Stmt(db.unassign).Exec(path, childrenOnly); err != nil {
		tx.Rollback()
		return err
	}

	if _, err := tx.Stmt(db.assign).Exec(path, childrenOnly, chainID); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (db *AssignDB) GetAssignedChainID(path string, childrenOnly bool) (int, error) {
	var chainID int
	err := db.get.QueryRow(path, childrenOnly).Scan(&chainID)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return chainID, err
}

func (db *AssignDB) GetAllChainAssignments() (map[string]map[bool]int, error) {
	rows, err := db.getAll.Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var all = make(map[string]map[bool]int)
	for rows.Next() {
		var path string
		var childrenOnly bool
		var chainID int
		if err = rows.Scan(&path, &childrenOnly, &chainID); err != nil {
			return nil, err
		}
		if _, ok := all[path]; !ok {
			all[path] = make(map[bool]int)
		}
		all[path][childrenOnly] = chainID
	}
	return all, rows.Err()
}

func (db *AssignDB) UnassignChain(path string, childrenOnly bool) error {
	_, err := db.unassign.Exec(path, childrenOnly)
	return err
}
