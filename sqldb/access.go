package sqldb

import (
	"database/sql"
)

// AccessDB implements auth.AccessDB.
type AccessDB struct {
	*DB
	get    *sql.Stmt
	getAll *sql.Stmt
	insert *sql.Stmt
	remove *sql.Stmt
}

func NewAccessDB(db *DB) *AccessDB {

	mustCreate(db,
		`CREATE TABLE IF NOT EXISTS access (
			path varchar(512) NOT NULL,
			grp int(11) NOT NULL,
			permission int(11) NOT NULL,
			PRIMARY KEY (path, grp)
		)`)

	var accessDB = &AccessDB{}
	accessDB.DB = db
	accessDB.get = mustPrepare(db, "SELECT grp, permission FROM access WHERE path = ?")
	accessDB.getAll = mustPrepare(db, "SELECT path, grp, permission FROM access")
	accessDB.insert = mustPrepare(db, "INSERT INTO access (path, grp, permission) VALUES (?, ?, ?)")
	accessDB.remove = mustPrepare(db, "DELETE FROM access WHERE path = ? AND grp = ?")
	return accessDB
}

func (db *AccessDB) GetAccessRules(path string) (map[int]int, error) {
	rows, err := db.get.Query(path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var rules = map[int]int{}
	for rows.Next() {
		var groupID, perm int
		if err = rows.Scan(&groupID, &perm); err != nil {
			return nil, err
		}
		rules[groupID] = perm
	}
	return rules, rows.Err()
}

func (db *AccessDB) GetAllAccessRules() (map[string]map[int]int, error) {
	rows, err := db.getAll.Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var all = make(map[string]map[int]int)
	for rows.Next() {
		var path string
		var groupID, perm int
		if err = rows.Scan(&path, &groupID, &perm); err != nil {
			return nil, err
		}
		if _, ok := all[path]; !ok {
			all[path] = make(map[int]int)
		}
		all[path][groupID] = perm
	}
	return all, rows.Err()
}

// InsertAccessRule replaces an existing rule of the group.
func (db *AccessDB) InsertAccessRule(path string, groupID int, perm int) error {

	tx, err := db.Begin()
	if err != nil {
		return err
	}

	if _, err := tx.Stmt(db.remove).Exec(path, groupID); err != nil {
		tx.Rollback()
		return err
	}

	if _, err := tx.Stmt(db.insert).Exec(path, groupID, perm); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (db *AccessDB) RemoveAccessRule(path string, groupID int) error {
	_, err := db.remove.Exec(path, groupID)
	return err
}
