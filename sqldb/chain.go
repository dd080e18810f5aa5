package sqldb

import (
	"database/sql"
	"fmt"

	"github.com/wansing/docflow/auth"
)

type chain struct {
	db           *ChainDB // required for lazy loading
	id           int
	name         string
	groups       []int // without 0
	groupsLoaded bool  // lazy loading
}

func (c *chain) ID() int {
	return c.id
}

func (c *chain) Name() string {
	return c.name
}

func (c *chain) Groups() ([]int, error) {

	if !c.groupsLoaded {

		c.groups = []int{}

		rows, err := c.db.groups.Query(c.id)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		for rows.Next() {
			var groupID int
			if err = rows.Scan(&groupID); err != nil {
				return nil, err
			}
			c.groups = append(c.groups, groupID)
		}

		c.groupsLoaded = true
	}

	return c.groups, nil
}

type ChainDB struct {
	*DB
	clear     *sql.Stmt
	delete    *sql.Stmt
	get       *sql.Stmt
	getAll    *sql.Stmt
	getByName *sql.Stmt
	groups    *sql.Stmt
	insert    *sql.Stmt
	push      *sql.Stmt
}

func NewChainDB(db *DB) *ChainDB {

	mustCreate(db,
		`CREATE TABLE IF NOT EXISTS chain (
			id `+db.autoIncrement()+`,
			name varchar(32) NOT NULL,
			UNIQUE (name)
		)`,
		`CREATE TABLE IF NOT EXISTS chain_position (
			chain int(11) NOT NULL,
			position int(11) NOT NULL,
			grp int(11) NOT NULL,
			PRIMARY KEY (chain, position)
		)`)

	var chainDB = &ChainDB{}
	chainDB.DB = db
	chainDB.clear = mustPrepare(db, "DELETE FROM chain_position WHERE chain = ?")
	chainDB.delete = mustPrepare(db, "DELETE FROM chain WHERE id = ?")
	chainDB.get = mustPrepare(db, "SELECT id, name FROM chain WHERE id = ? LIMIT 1")
	chainDB.getAll = mustPrepare(db, "SELECT id, name FROM chain ORDER BY name LIMIT ? OFFSET ?")
	chainDB.getByName = mustPrepare(db, "SELECT id, name FROM chain WHERE name = ? LIMIT 1")
	chainDB.groups = mustPrepare(db, "SELECT grp FROM chain_position WHERE chain = ? ORDER BY position")
	chainDB.insert = mustPrepare(db, "INSERT INTO chain (name) VALUES (?)")
	chainDB.push = mustPrepare(db, "INSERT INTO chain_position (chain, position, grp) VALUES (?, ?, ?)")
	return chainDB
}

func (db *ChainDB) Delete(c auth.DBChain) error {

	tx, err := db.Begin()
	if err != nil {
		return err
	}

	_, err = tx.Stmt(db.clear).Exec(c.ID())
	if err != nil {
		tx.Rollback()
		return err
	}

	_, err = tx.Stmt(db.delete).Exec(c.ID())
	if err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (db *ChainDB) getOne(stmt *sql.Stmt, arg interface{}) (auth.DBChain, error) {
	var c = &chain{
		db: db,
	}
	if err := stmt.QueryRow(arg).Scan(&c.id, &c.name); err != nil {
		return nil, err
	}
	return c, nil
}

func (db *ChainDB) GetChain(id int) (auth.DBChain, error) {
	return db.getOne(db.get, id)
}

func (db *ChainDB) GetChainByName(name string) (auth.DBChain, error) {
	return db.getOne(db.getByName, name)
}

func (db *ChainDB) GetAllChains(limit, offset int) ([]auth.DBChain, error) {

	rows, err := db.getAll.Query(limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all = []auth.DBChain{}

	for rows.Next() {
		var c = &chain{
			db: db,
		}
		if err = rows.Scan(&c.id, &c.name); err != nil {
			return nil, err
		}
		all = append(all, c)
	}

	return all, rows.Err()
}

func (db *ChainDB) InsertChain(name string) (auth.DBChain, error) {
	if _, err := db.insert.Exec(name); err != nil {
		return nil, err
	}
	return db.GetChainByName(name)
}

func (db *ChainDB) UpdateChain(c auth.DBChain, groups []int) error {

	for _, group := range groups {
		if group <= 0 {
			return fmt.Errorf("invalid group id %d", group)
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}

	_, err = tx.Stmt(db.clear).Exec(c.ID())
	if err != nil {
		tx.Rollback()
		return err
	}

	for position, group := range groups {
		_, err = tx.Stmt(db.push).Exec(c.ID(), position, group)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	if c, ok := c.(*chain); ok {
		c.groups = groups
		c.groupsLoaded = true
	}
	return nil
}
